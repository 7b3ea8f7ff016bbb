package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"credit-application-system/internal/domain/credit"
	"credit-application-system/internal/infrastructure/monitoring"
	"credit-application-system/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	insertCreditQuery = `
        INSERT INTO credits (credit_code, credit_value, day_first_installment, number_of_installments, status, customer_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id, created_at`

	creditColumns = `id, credit_code::text, credit_value::text, day_first_installment, number_of_installments, status, customer_id, created_at`

	findCreditsByCustomerQuery = `
        SELECT ` + creditColumns + `
        FROM credits
        WHERE customer_id = $1
        ORDER BY id ASC`

	findCreditByCodeQuery = `
        SELECT ` + creditColumns + `
        FROM credits
        WHERE credit_code = $1`

	countCreditsByStatusQuery = `
        SELECT status, COUNT(*)
        FROM credits
        GROUP BY status`
)

type CreditRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ credit.CreditRepository = (*CreditRepository)(nil)

func NewCreditRepository(db DBPool, logger *slog.Logger) *CreditRepository {
	if db == nil {
		panic("DBPool cannot be nil for CreditRepository")
	}
	return &CreditRepository{db: db, logger: logger.With("component", "CreditRepository")}
}

func (r *CreditRepository) Save(ctx context.Context, c *credit.Credit) error {
	if c == nil {
		return fmt.Errorf("%w: credit cannot be nil", apperrors.ErrInvalidArgument)
	}
	log := r.logger.With(slog.Int64("customerID", c.CustomerID), slog.String("creditCode", c.CreditCode.String()))

	startTime := time.Now()
	err := r.db.QueryRow(ctx, insertCreditQuery,
		c.CreditCode.String(),
		c.CreditValue.String(),
		c.DayFirstInstallment,
		c.NumberOfInstallments,
		string(c.Status),
		c.CustomerID,
	).Scan(&c.ID, &c.CreatedAt)
	monitoring.RecordDBQuery("InsertCredit", err, time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, log)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) || errors.Is(translatedErr, apperrors.ErrNotFound) {
			return translatedErr
		}
		log.ErrorContext(ctx, "Failed to insert credit", "error", err)
		return fmt.Errorf("%w: failed to insert credit: %w", apperrors.ErrDatabase, err)
	}

	log.InfoContext(ctx, "Credit inserted successfully", slog.Int64("creditID", c.ID))
	return nil
}

func (r *CreditRepository) FindAllByCustomerID(ctx context.Context, customerID int64) ([]*credit.Credit, error) {
	startTime := time.Now()
	rows, err := r.db.Query(ctx, findCreditsByCustomerQuery, customerID)
	if err != nil {
		monitoring.RecordDBQuery("FindCreditsByCustomer", err, time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query credits", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	credits := make([]*credit.Credit, 0)
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			monitoring.RecordDBQuery("FindCreditsByCustomer", err, time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan credit row", "customer_id", customerID, "error", err)
			return nil, fmt.Errorf("%w: failed to scan credit row: %w", apperrors.ErrDatabase, err)
		}
		credits = append(credits, c)
	}

	err = rows.Err()
	monitoring.RecordDBQuery("FindCreditsByCustomer", err, time.Since(startTime))
	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating credit rows", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("%w: error iterating credit rows: %w", apperrors.ErrDatabase, err)
	}

	return credits, nil
}

func (r *CreditRepository) FindByCreditCode(ctx context.Context, code uuid.UUID) (*credit.Credit, error) {
	startTime := time.Now()
	c, err := scanCredit(r.db.QueryRow(ctx, findCreditByCodeQuery, code.String()))
	monitoring.RecordDBQuery("FindCreditByCode", err, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Credit not found", "credit_code", code.String())
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get credit by code", "credit_code", code.String(), "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return c, nil
}

func (r *CreditRepository) CountByStatus(ctx context.Context) (map[credit.Status]int64, error) {
	startTime := time.Now()
	rows, err := r.db.Query(ctx, countCreditsByStatusQuery)
	if err != nil {
		monitoring.RecordDBQuery("CountCreditsByStatus", err, time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to count credits by status", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	counts := make(map[credit.Status]int64)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			monitoring.RecordDBQuery("CountCreditsByStatus", err, time.Since(startTime))
			return nil, fmt.Errorf("%w: failed to scan status count: %w", apperrors.ErrDatabase, err)
		}
		counts[credit.Status(status)] = count
	}

	err = rows.Err()
	monitoring.RecordDBQuery("CountCreditsByStatus", err, time.Since(startTime))
	if err != nil {
		return nil, fmt.Errorf("%w: error iterating status counts: %w", apperrors.ErrDatabase, err)
	}
	return counts, nil
}

func scanCredit(row pgx.Row) (*credit.Credit, error) {
	var (
		c           credit.Credit
		code, value string
		status      string
	)
	if err := row.Scan(
		&c.ID, &code, &value, &c.DayFirstInstallment,
		&c.NumberOfInstallments, &status, &c.CustomerID, &c.CreatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if c.CreditCode, err = uuid.Parse(code); err != nil {
		return nil, fmt.Errorf("invalid credit code %q: %w", code, err)
	}
	if c.CreditValue, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("invalid credit value %q: %w", value, err)
	}
	c.Status = credit.Status(status)
	return &c, nil
}
