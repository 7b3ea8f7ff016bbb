package dto

import (
	"credit-application-system/internal/domain/customer"
	"time"

	"github.com/shopspring/decimal"
)

type CreateCustomerRequest struct {
	FirstName string          `json:"firstName" validate:"notblank,max=120"`
	LastName  string          `json:"lastName" validate:"notblank,max=120"`
	CPF       string          `json:"cpf" validate:"required,cpf"`
	Income    decimal.Decimal `json:"income"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"notblank"`
	ZipCode   string          `json:"zipCode" validate:"notblank,max=20"`
	Street    string          `json:"street" validate:"notblank,max=255"`
}

func (r *CreateCustomerRequest) Validate() error {
	return Validate(r)
}

func (r *CreateCustomerRequest) ToDomain() *customer.Customer {
	return customer.NewCustomer(
		r.FirstName, r.LastName, r.CPF, r.Email, r.Password, r.Income,
		customer.Address{ZipCode: r.ZipCode, Street: r.Street},
	)
}

// UpdateCustomerRequest lists the only fields that may change after
// registration. Omitted fields keep their stored value.
type UpdateCustomerRequest struct {
	FirstName *string          `json:"firstName,omitempty" validate:"omitempty,notblank,max=120"`
	LastName  *string          `json:"lastName,omitempty" validate:"omitempty,notblank,max=120"`
	Income    *decimal.Decimal `json:"income,omitempty"`
	ZipCode   *string          `json:"zipCode,omitempty" validate:"omitempty,notblank,max=20"`
	Street    *string          `json:"street,omitempty" validate:"omitempty,notblank,max=255"`
}

func (r *UpdateCustomerRequest) Validate() error {
	return Validate(r)
}

func (r *UpdateCustomerRequest) ToDomain() customer.Update {
	return customer.Update{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Income:    r.Income,
		ZipCode:   r.ZipCode,
		Street:    r.Street,
	}
}

type CustomerResponse struct {
	ID        int64           `json:"id"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	CPF       string          `json:"cpf"`
	Email     string          `json:"email"`
	Income    decimal.Decimal `json:"income"`
	ZipCode   string          `json:"zipCode"`
	Street    string          `json:"street"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}

	return CustomerResponse{
		ID:        cust.ID,
		FirstName: cust.FirstName,
		LastName:  cust.LastName,
		CPF:       cust.CPF,
		Email:     cust.Email,
		Income:    cust.Income,
		ZipCode:   cust.Address.ZipCode,
		Street:    cust.Address.Street,
		CreatedAt: cust.CreatedAt,
		UpdatedAt: cust.UpdatedAt,
	}
}
