package credit

import (
	"credit-application-system/internal/pkg/apperrors"
	"credit-application-system/internal/pkg/money"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusInProgress, StatusApproved, StatusRejected}

type Credit struct {
	ID                   int64
	CreditCode           uuid.UUID
	CreditValue          decimal.Decimal
	DayFirstInstallment  time.Time
	NumberOfInstallments int
	Status               Status
	CustomerID           int64
	CreatedAt            time.Time
}

func NewCredit(creditValue decimal.Decimal, dayFirstInstallment time.Time, numberOfInstallments int, customerID int64) *Credit {
	return &Credit{
		CreditCode:           uuid.New(),
		CreditValue:          creditValue,
		DayFirstInstallment:  truncateToDay(dayFirstInstallment),
		NumberOfInstallments: numberOfInstallments,
		Status:               StatusInProgress,
		CustomerID:           customerID,
		CreatedAt:            time.Now(),
	}
}

func (c *Credit) BelongsTo(customerID int64) bool {
	return c.CustomerID == customerID
}

// Policy bounds inbound credit applications.
type Policy struct {
	MinInstallments int
	MaxInstallments int
}

func DefaultPolicy() Policy {
	return Policy{MinInstallments: 1, MaxInstallments: 48}
}

// Validate checks c against the policy. The first installment must fall on a
// calendar day after now.
func (p Policy) Validate(c *Credit, now time.Time) error {
	var errs apperrors.ValidationErrors
	if !c.CreditValue.IsPositive() {
		errs.Add("creditValue", "must be greater than zero")
	} else if !money.Fits(c.CreditValue) {
		errs.Add("creditValue", money.Message)
	}
	if c.DayFirstInstallment.IsZero() || !truncateToDay(c.DayFirstInstallment).After(truncateToDay(now)) {
		errs.Add("dayFirstOfInstallment", "must be a future date")
	}
	if c.NumberOfInstallments < p.MinInstallments || c.NumberOfInstallments > p.MaxInstallments {
		errs.Add("numberOfInstallments", fmt.Sprintf("must be between %d and %d", p.MinInstallments, p.MaxInstallments))
	}
	if c.CustomerID <= 0 {
		errs.Add("customerId", "is required")
	}
	return errs.OrNil()
}

func truncateToDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
