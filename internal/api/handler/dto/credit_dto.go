package dto

import (
	"credit-application-system/internal/domain/credit"
	"credit-application-system/internal/pkg/apperrors"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = time.DateOnly

type CreateCreditRequest struct {
	CreditValue           decimal.Decimal `json:"creditValue"`
	DayFirstOfInstallment string          `json:"dayFirstOfInstallment" validate:"required,datetime=2006-01-02"`
	NumberOfInstallments  int             `json:"numberOfInstallments"`
	CustomerID            int64           `json:"customerId" validate:"required,gt=0"`
}

func (r *CreateCreditRequest) Validate() error {
	return Validate(r)
}

// ToDomain builds the credit and checks it against policy as of now.
func (r *CreateCreditRequest) ToDomain(policy credit.Policy, now time.Time) (*credit.Credit, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	day, err := time.Parse(dateLayout, r.DayFirstOfInstallment)
	if err != nil {
		return nil, apperrors.NewValidationError("dayFirstOfInstallment", "must be a date in YYYY-MM-DD format")
	}

	c := credit.NewCredit(r.CreditValue, day, r.NumberOfInstallments, r.CustomerID)
	if err := policy.Validate(c, now); err != nil {
		return nil, err
	}
	return c, nil
}

type CreditListItem struct {
	CreditCode           string          `json:"creditCode"`
	CreditValue          decimal.Decimal `json:"creditValue"`
	NumberOfInstallments int             `json:"numberOfInstallments"`
}

type CreditResponse struct {
	CreditCode           string          `json:"creditCode"`
	CreditValue          decimal.Decimal `json:"creditValue"`
	DayFirstInstallment  string          `json:"dayFirstInstallment"`
	NumberOfInstallments int             `json:"numberOfInstallments"`
	Status               string          `json:"status"`
	CustomerID           int64           `json:"customerId"`
}

func NewCreditResponse(c *credit.Credit) CreditResponse {
	if c == nil {
		return CreditResponse{}
	}
	return CreditResponse{
		CreditCode:           c.CreditCode.String(),
		CreditValue:          c.CreditValue,
		DayFirstInstallment:  c.DayFirstInstallment.Format(dateLayout),
		NumberOfInstallments: c.NumberOfInstallments,
		Status:               string(c.Status),
		CustomerID:           c.CustomerID,
	}
}

func NewCreditListResponse(credits []*credit.Credit) []CreditListItem {
	items := make([]CreditListItem, 0, len(credits))
	for _, c := range credits {
		items = append(items, CreditListItem{
			CreditCode:           c.CreditCode.String(),
			CreditValue:          c.CreditValue,
			NumberOfInstallments: c.NumberOfInstallments,
		})
	}
	return items
}
