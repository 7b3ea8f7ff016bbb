package money

import "github.com/shopspring/decimal"

// Amounts are stored as NUMERIC(15,2).
const (
	Precision = 15
	Scale     = 2
)

var limit = decimal.New(1, Precision-Scale)

// Fits reports whether d can be stored without rounding or overflow.
func Fits(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale)) && d.Abs().LessThan(limit)
}

// Message describes the amount format for validation errors.
const Message = "must have at most 13 integer digits and 2 decimal places"
