package customer

import (
	"credit-application-system/internal/pkg/apperrors"
	"credit-application-system/internal/pkg/money"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Address struct {
	ZipCode string
	Street  string
}

type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	CPF       string
	Email     string
	Income    decimal.Decimal
	Address   Address

	// Password holds the plain-text secret between request mapping and Save;
	// only PasswordHash is ever persisted.
	Password     string
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Update carries the fields a customer may change after registration.
// Nil fields are left untouched.
type Update struct {
	FirstName *string
	LastName  *string
	Income    *decimal.Decimal
	ZipCode   *string
	Street    *string
}

func NewCustomer(firstName, lastName, cpf, email, password string, income decimal.Decimal, address Address) *Customer {
	now := time.Now()
	return &Customer{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		CPF:       NormalizeCPF(cpf),
		Email:     strings.TrimSpace(email),
		Income:    income,
		Password:  password,
		Address: Address{
			ZipCode: strings.TrimSpace(address.ZipCode),
			Street:  strings.TrimSpace(address.Street),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Apply copies the non-nil fields of u onto c and reports whether anything changed.
func (c *Customer) Apply(u Update) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&c.FirstName, u.FirstName)
	set(&c.LastName, u.LastName)
	set(&c.Address.ZipCode, u.ZipCode)
	set(&c.Address.Street, u.Street)
	if u.Income != nil && !c.Income.Equal(*u.Income) {
		c.Income = *u.Income
		changed = true
	}
	if changed {
		c.UpdatedAt = time.Now()
	}
	return changed
}

func (c *Customer) HashPassword() error {
	if c.Password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.PasswordHash = string(hash)
	c.Password = ""
	return nil
}

func (c *Customer) CheckPassword(plain string) bool {
	if c.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(plain)) == nil
}

// Validate checks the data-model constraints. A password is required only for
// customers that have not been stored yet.
func (c *Customer) Validate() error {
	var errs apperrors.ValidationErrors
	if strings.TrimSpace(c.FirstName) == "" {
		errs.Add("firstName", "cannot be blank")
	}
	if strings.TrimSpace(c.LastName) == "" {
		errs.Add("lastName", "cannot be blank")
	}
	if !ValidCPF(c.CPF) {
		errs.Add("cpf", "must be a valid CPF")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil || strings.ContainsAny(c.Email, " <>") {
		errs.Add("email", "must be a valid email address")
	}
	if c.Income.IsNegative() {
		errs.Add("income", "cannot be negative")
	} else if !money.Fits(c.Income) {
		errs.Add("income", money.Message)
	}
	if c.ID == 0 && c.Password == "" && c.PasswordHash == "" {
		errs.Add("password", "cannot be blank")
	}
	if strings.TrimSpace(c.Address.ZipCode) == "" {
		errs.Add("zipCode", "cannot be blank")
	}
	if strings.TrimSpace(c.Address.Street) == "" {
		errs.Add("street", "cannot be blank")
	}
	return errs.OrNil()
}
