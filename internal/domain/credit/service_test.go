package credit_test

import (
	"context"
	"credit-application-system/internal/domain/credit"
	"credit-application-system/internal/domain/customer"
	"credit-application-system/internal/event"
	"credit-application-system/internal/pkg/apperrors"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockCustomerService struct {
	mock.Mock
}

func (_m *MockCustomerService) Save(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	ret := _m.Called(ctx, c)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	ret := _m.Called(ctx, customerID)

	var r0 *customer.Customer
	if rf, ok := ret.Get(0).(func(context.Context, int64) *customer.Customer); ok {
		r0 = rf(ctx, customerID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*customer.Customer)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, int64) error); ok {
		r1 = rf(ctx, customerID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *MockCustomerService) Update(ctx context.Context, customerID int64, u customer.Update) (*customer.Customer, error) {
	ret := _m.Called(ctx, customerID, u)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) Delete(ctx context.Context, customerID int64) error {
	return _m.Called(ctx, customerID).Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (_m *MockEventPublisher) PublishCustomerCreated(ctx context.Context, e event.CustomerCreatedEvent) error {
	return _m.Called(ctx, e).Error(0)
}

func (_m *MockEventPublisher) PublishCustomerUpdated(ctx context.Context, e event.CustomerUpdatedEvent) error {
	return _m.Called(ctx, e).Error(0)
}

func (_m *MockEventPublisher) PublishCustomerDeleted(ctx context.Context, e event.CustomerDeletedEvent) error {
	return _m.Called(ctx, e).Error(0)
}

func (_m *MockEventPublisher) PublishCreditCreated(ctx context.Context, e event.CreditCreatedEvent) error {
	return _m.Called(ctx, e).Error(0)
}

type testDeps struct {
	repo      *credit.MockCreditRepository
	customers *MockCustomerService
	pub       *MockEventPublisher
	service   credit.CreditService
}

func setupTest() testDeps {
	d := testDeps{
		repo:      new(credit.MockCreditRepository),
		customers: new(MockCustomerService),
		pub:       new(MockEventPublisher),
	}
	d.service = credit.NewCreditService(d.repo, d.customers, d.pub, logger)
	return d
}

func TestCreditService_Save(t *testing.T) {
	ctx := context.Background()
	customerID := int64(1)

	t.Run("Success", func(t *testing.T) {
		d := setupTest()
		c := buildCredit(customerID)
		code := c.CreditCode

		d.customers.On("FindByID", ctx, customerID).Return(&customer.Customer{ID: customerID}, nil).Once()
		d.repo.On("Save", ctx, mock.MatchedBy(func(cr *credit.Credit) bool {
			match := cr.CustomerID == customerID && cr.CreditCode == code
			if match {
				cr.ID = 10
			}
			return match
		})).Return(nil).Once()
		d.pub.On("PublishCreditCreated", ctx, mock.MatchedBy(func(e event.CreditCreatedEvent) bool {
			return e.Payload.CreditCode == code.String() && e.Payload.CreditValue == "500.00" && e.Payload.Status == "IN_PROGRESS"
		})).Return(nil).Once()

		saved, err := d.service.Save(ctx, c)

		require.NoError(t, err)
		assert.Equal(t, int64(10), saved.ID)
		assert.Equal(t, code, saved.CreditCode)
		assert.Equal(t, 5, saved.NumberOfInstallments)
		d.customers.AssertExpectations(t)
		d.repo.AssertExpectations(t)
		d.pub.AssertExpectations(t)
	})

	t.Run("Error - Unknown customer", func(t *testing.T) {
		d := setupTest()
		notFound := apperrors.NewNotFoundError("Id %d not found", int64(99))
		d.customers.On("FindByID", ctx, int64(99)).Return(nil, notFound).Once()

		saved, err := d.service.Save(ctx, buildCredit(99))

		assert.Nil(t, saved)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.EqualError(t, err, "Id 99 not found")
		d.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		d.pub.AssertNotCalled(t, "PublishCreditCreated", mock.Anything, mock.Anything)
	})

	t.Run("Error - Customer removed before insert", func(t *testing.T) {
		d := setupTest()
		d.customers.On("FindByID", ctx, customerID).Return(&customer.Customer{ID: customerID}, nil).Once()
		d.repo.On("Save", ctx, mock.AnythingOfType("*credit.Credit")).Return(apperrors.ErrNotFound).Once()

		saved, err := d.service.Save(ctx, buildCredit(customerID))

		assert.Nil(t, saved)
		assert.EqualError(t, err, "Id 1 not found")
	})

	t.Run("Error - Repository failure", func(t *testing.T) {
		d := setupTest()
		dbErr := errors.New("insert failed")
		d.customers.On("FindByID", ctx, customerID).Return(&customer.Customer{ID: customerID}, nil).Once()
		d.repo.On("Save", ctx, mock.AnythingOfType("*credit.Credit")).Return(dbErr).Once()

		saved, err := d.service.Save(ctx, buildCredit(customerID))

		assert.Nil(t, saved)
		assert.ErrorIs(t, err, dbErr)
		d.pub.AssertNotCalled(t, "PublishCreditCreated", mock.Anything, mock.Anything)
	})

	t.Run("Publish failure does not fail the save", func(t *testing.T) {
		d := setupTest()
		d.customers.On("FindByID", ctx, customerID).Return(&customer.Customer{ID: customerID}, nil).Once()
		d.repo.On("Save", ctx, mock.AnythingOfType("*credit.Credit")).Return(nil).Once()
		d.pub.On("PublishCreditCreated", ctx, mock.Anything).Return(errors.New("channel closed")).Once()

		saved, err := d.service.Save(ctx, buildCredit(customerID))

		assert.NoError(t, err)
		assert.NotNil(t, saved)
	})

	t.Run("Error - Nil credit", func(t *testing.T) {
		d := setupTest()
		_, err := d.service.Save(ctx, nil)
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	})
}

func TestCreditService_FindAllByCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns the customer's credits", func(t *testing.T) {
		d := setupTest()
		credits := []*credit.Credit{buildCredit(1), buildCredit(1), buildCredit(1)}
		d.repo.On("FindAllByCustomerID", ctx, int64(1)).Return(credits, nil).Once()

		got, err := d.service.FindAllByCustomer(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, credits, got)
	})

	t.Run("No credits is an empty list", func(t *testing.T) {
		d := setupTest()
		d.repo.On("FindAllByCustomerID", ctx, int64(2)).Return(nil, nil).Once()

		got, err := d.service.FindAllByCustomer(ctx, 2)

		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Error - Repository failure", func(t *testing.T) {
		d := setupTest()
		dbErr := errors.New("timeout")
		d.repo.On("FindAllByCustomerID", ctx, int64(2)).Return(nil, dbErr).Once()

		got, err := d.service.FindAllByCustomer(ctx, 2)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestCreditService_FindByCreditCode(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		d := setupTest()
		c := buildCredit(1)
		d.repo.On("FindByCreditCode", ctx, c.CreditCode).Return(c, nil).Once()

		got, err := d.service.FindByCreditCode(ctx, 1, c.CreditCode)

		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("Error - Unknown code", func(t *testing.T) {
		d := setupTest()
		code := uuid.New()
		d.repo.On("FindByCreditCode", ctx, code).Return(nil, apperrors.ErrNotFound).Once()

		got, err := d.service.FindByCreditCode(ctx, 1, code)

		assert.Nil(t, got)
		assert.EqualError(t, err, "Creditcode "+code.String()+" not found")
		var be *apperrors.BusinessError
		assert.ErrorAs(t, err, &be)
		assert.ErrorIs(t, err, apperrors.ErrBusiness)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error - Owned by another customer", func(t *testing.T) {
		d := setupTest()
		c := buildCredit(1)
		d.repo.On("FindByCreditCode", ctx, c.CreditCode).Return(c, nil).Once()

		got, err := d.service.FindByCreditCode(ctx, 2, c.CreditCode)

		assert.Nil(t, got)
		assert.EqualError(t, err, "Contact admin")
		assert.ErrorIs(t, err, apperrors.ErrBusiness)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error - Repository failure", func(t *testing.T) {
		d := setupTest()
		code := uuid.New()
		dbErr := errors.New("connection refused")
		d.repo.On("FindByCreditCode", ctx, code).Return(nil, dbErr).Once()

		got, err := d.service.FindByCreditCode(ctx, 1, code)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, apperrors.ErrBusiness)
	})
}

func TestNewCreditService_Guards(t *testing.T) {
	assert.Panics(t, func() { credit.NewCreditService(nil, new(MockCustomerService), nil, nil) })
	assert.Panics(t, func() { credit.NewCreditService(new(credit.MockCreditRepository), nil, nil, nil) })
	assert.NotPanics(t, func() { credit.NewCreditService(new(credit.MockCreditRepository), new(MockCustomerService), nil, nil) })
}
