package batch_test

import (
	"context"
	"credit-application-system/internal/batch"
	"credit-application-system/internal/domain/credit"
	"credit-application-system/internal/infrastructure/monitoring"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockStatusCounter struct {
	mock.Mock
}

func (m *MockStatusCounter) CountByStatus(ctx context.Context) (map[credit.Status]int64, error) {
	args := m.Called(ctx)
	if counts, ok := args.Get(0).(map[credit.Status]int64); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestPortfolioSnapshotJob_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("Publishes counts including empty statuses", func(t *testing.T) {
		counter := new(MockStatusCounter)
		counter.On("CountByStatus", ctx).Return(map[credit.Status]int64{
			credit.StatusInProgress: 7,
			credit.StatusApproved:   2,
		}, nil).Once()

		job := batch.NewPortfolioSnapshotJob(counter, logger)
		assert.NoError(t, job.Run(ctx))

		gauge := monitoring.Business.CreditsByStatus
		assert.Equal(t, float64(7), testutil.ToFloat64(gauge.WithLabelValues("IN_PROGRESS")))
		assert.Equal(t, float64(2), testutil.ToFloat64(gauge.WithLabelValues("APPROVED")))
		assert.Equal(t, float64(0), testutil.ToFloat64(gauge.WithLabelValues("REJECTED")))
		counter.AssertExpectations(t)
	})

	t.Run("Repository failure aborts the job", func(t *testing.T) {
		counter := new(MockStatusCounter)
		counter.On("CountByStatus", ctx).Return(nil, errors.New("db down")).Once()

		job := batch.NewPortfolioSnapshotJob(counter, logger)
		err := job.Run(ctx)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to count credits")
		counter.AssertExpectations(t)
	})
}

func TestNewPortfolioSnapshotJob_NilDependencies(t *testing.T) {
	assert.Panics(t, func() { batch.NewPortfolioSnapshotJob(nil, logger) })
	assert.Panics(t, func() { batch.NewPortfolioSnapshotJob(new(MockStatusCounter), nil) })
}
