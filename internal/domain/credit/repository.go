package credit

import (
	"context"

	"github.com/google/uuid"
)

type CreditRepository interface {
	// Save inserts the credit and writes the assigned ID back to c.
	Save(ctx context.Context, c *Credit) error

	// FindAllByCustomerID returns the customer's credits in ID order. No
	// credits is an empty slice, not an error.
	FindAllByCustomerID(ctx context.Context, customerID int64) ([]*Credit, error)

	FindByCreditCode(ctx context.Context, code uuid.UUID) (*Credit, error)

	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
