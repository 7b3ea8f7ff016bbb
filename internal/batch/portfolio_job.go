package batch

import (
	"context"
	"credit-application-system/internal/domain/credit"
	"credit-application-system/internal/infrastructure/monitoring"
	"fmt"
	"log/slog"
	"time"
)

// StatusCounter is the slice of the credit repository the snapshot needs.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[credit.Status]int64, error)
}

type PortfolioSnapshotJob struct {
	counter StatusCounter
	logger  *slog.Logger
}

func NewPortfolioSnapshotJob(counter StatusCounter, logger *slog.Logger) *PortfolioSnapshotJob {
	if counter == nil || logger == nil {
		panic("PortfolioSnapshotJob dependencies cannot be nil")
	}
	return &PortfolioSnapshotJob{
		counter: counter,
		logger:  logger.With("job", "PortfolioSnapshot"),
	}
}

// Run counts credits per status and publishes the result as a gauge. Known
// statuses with no credits are reported as zero.
func (j *PortfolioSnapshotJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting credit portfolio snapshot job.")

	counts, err := j.counter.CountByStatus(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to count credits by status, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to count credits: %w", err)
	}

	snapshot := make(map[string]int64, len(credit.Statuses))
	for _, status := range credit.Statuses {
		snapshot[string(status)] = 0
	}
	var total int64
	for status, n := range counts {
		snapshot[string(status)] = n
		total += n
	}
	monitoring.SetCreditsByStatus(snapshot)

	j.logger.InfoContext(ctx, "Credit portfolio snapshot job finished successfully.",
		slog.Duration("duration", time.Since(startTime)),
		slog.Int64("total_credits", total),
		slog.Any("by_status", snapshot),
	)
	return nil
}
