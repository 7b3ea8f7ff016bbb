package credit

import (
	"context"
	"credit-application-system/internal/domain/customer"
	"credit-application-system/internal/event"
	"credit-application-system/internal/infrastructure/monitoring"
	"credit-application-system/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	lookupFound         = "found"
	lookupNotFound      = "not_found"
	lookupOwnerMismatch = "owner_mismatch"

	msgContactAdmin = "Contact admin"
)

type CreditService interface {
	Save(ctx context.Context, c *Credit) (*Credit, error)
	FindAllByCustomer(ctx context.Context, customerID int64) ([]*Credit, error)
	FindByCreditCode(ctx context.Context, customerID int64, code uuid.UUID) (*Credit, error)
}

var _ CreditService = (*creditService)(nil)

type creditService struct {
	repo            CreditRepository
	customerService customer.CustomerService
	pub             event.EventPublisher
	logger          *slog.Logger
}

func NewCreditService(repo CreditRepository, customerService customer.CustomerService, eventPublisher event.EventPublisher, logger *slog.Logger) CreditService {
	if repo == nil {
		panic("credit repository cannot be nil")
	}
	if customerService == nil {
		panic("customer service cannot be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCreditService, using default stderr handler")
	}

	if eventPublisher == nil {
		logger.Warn("Warning: No event publisher provided to NewCreditService, events will not be published")
		eventPublisher = event.NoopPublisher{}
	}

	return &creditService{
		repo:            repo,
		customerService: customerService,
		pub:             eventPublisher,
		logger:          logger.With(slog.String("component", "creditService")),
	}
}

func NewCreditEventPayload(c *Credit) event.CreditEventPayload {
	if c == nil {
		return event.CreditEventPayload{}
	}
	return event.CreditEventPayload{
		CreditID:             c.ID,
		CreditCode:           c.CreditCode.String(),
		CreditValue:          c.CreditValue.StringFixed(2),
		DayFirstInstallment:  c.DayFirstInstallment.Format(time.DateOnly),
		NumberOfInstallments: c.NumberOfInstallments,
		Status:               string(c.Status),
		CustomerID:           c.CustomerID,
		CreatedAt:            c.CreatedAt,
	}
}

func (s *creditService) Save(ctx context.Context, c *Credit) (*Credit, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: credit cannot be nil", apperrors.ErrInvalidArgument)
	}
	log := s.logger.With(slog.Int64("customerID", c.CustomerID), slog.String("creditCode", c.CreditCode.String()))
	log.InfoContext(ctx, "Attempting to register credit application")

	owner, err := s.customerService.FindByID(ctx, c.CustomerID)
	if err != nil {
		log.WarnContext(ctx, "Cannot register credit, customer lookup failed", slog.Any("error", err))
		return nil, err
	}
	c.CustomerID = owner.ID
	if c.Status == "" {
		c.Status = StatusInProgress
	}

	if err := s.repo.Save(ctx, c); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Customer deleted between the lookup and the insert.
			log.WarnContext(ctx, "Customer vanished before credit was stored")
			return nil, apperrors.NewNotFoundError("Id %d not found", c.CustomerID)
		}
		log.ErrorContext(ctx, "Repository failed to save credit", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save credit for customer %d: %w", c.CustomerID, err)
	}

	monitoring.RecordCreditCreated()
	createdEvent := event.CreditCreatedEvent{
		Timestamp: time.Now(),
		Payload:   NewCreditEventPayload(c),
	}
	if pubErr := s.pub.PublishCreditCreated(ctx, createdEvent); pubErr != nil {
		log.ErrorContext(ctx, "Credit created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	log.InfoContext(ctx, "Successfully registered credit application", slog.Int64("creditID", c.ID))
	return c, nil
}

func (s *creditService) FindAllByCustomer(ctx context.Context, customerID int64) ([]*Credit, error) {
	log := s.logger.With(slog.Int64("customerID", customerID))
	log.DebugContext(ctx, "Listing credits for customer")

	credits, err := s.repo.FindAllByCustomerID(ctx, customerID)
	if err != nil {
		log.ErrorContext(ctx, "Repository error listing credits", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list credits for customer %d: %w", customerID, err)
	}
	if credits == nil {
		credits = []*Credit{}
	}

	log.DebugContext(ctx, "Listed credits for customer", slog.Int("count", len(credits)))
	return credits, nil
}

func (s *creditService) FindByCreditCode(ctx context.Context, customerID int64, code uuid.UUID) (*Credit, error) {
	log := s.logger.With(slog.Int64("customerID", customerID), slog.String("creditCode", code.String()))
	log.DebugContext(ctx, "Looking up credit by code")

	c, err := s.repo.FindByCreditCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			monitoring.RecordCreditLookup(lookupNotFound)
			log.WarnContext(ctx, "Credit code not found")
			return nil, apperrors.NewBusinessError(apperrors.ErrNotFound, fmt.Sprintf("Creditcode %s not found", code))
		}
		log.ErrorContext(ctx, "Repository error finding credit", slog.Any("error", err))
		return nil, fmt.Errorf("failed to find credit %s: %w", code, err)
	}

	if !c.BelongsTo(customerID) {
		monitoring.RecordCreditLookup(lookupOwnerMismatch)
		log.WarnContext(ctx, "Credit requested by a customer that does not own it", slog.Int64("ownerID", c.CustomerID))
		return nil, apperrors.NewBusinessError(apperrors.ErrForbidden, msgContactAdmin)
	}

	monitoring.RecordCreditLookup(lookupFound)
	return c, nil
}
