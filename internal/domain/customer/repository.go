package customer

import (
	"context"
)

type CustomerRepository interface {
	// Save inserts the customer when ID is zero and updates it otherwise.
	// On insert the assigned ID and timestamps are written back to c.
	Save(ctx context.Context, c *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	Delete(ctx context.Context, customerID int64) error
}
