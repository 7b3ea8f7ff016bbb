// Package memory keeps customers and credits in process memory. It enforces
// the same uniqueness, foreign key and cascade rules as the PostgreSQL schema.
package memory

import (
	"context"
	"credit-application-system/internal/domain/credit"
	"credit-application-system/internal/domain/customer"
	"credit-application-system/internal/pkg/apperrors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	customers      map[int64]customer.Customer
	credits        map[int64]credit.Credit
	creditsByCode  map[uuid.UUID]int64
	nextCustomerID int64
	nextCreditID   int64

	logger *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		customers:     make(map[int64]customer.Customer),
		credits:       make(map[int64]credit.Credit),
		creditsByCode: make(map[uuid.UUID]int64),
		logger:        logger.With("component", "MemoryStore"),
	}
}

func (s *Store) Customers() *CustomerRepository {
	return &CustomerRepository{store: s}
}

func (s *Store) Credits() *CreditRepository {
	return &CreditRepository{store: s}
}

type CustomerRepository struct {
	store *Store
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if cust.ID == 0 {
		for _, existing := range s.customers {
			if existing.CPF == cust.CPF {
				return fmt.Errorf("%w: customers_cpf_key", apperrors.ErrAlreadyExists)
			}
			if existing.Email == cust.Email {
				return fmt.Errorf("%w: customers_email_key", apperrors.ErrAlreadyExists)
			}
		}
		s.nextCustomerID++
		cust.ID = s.nextCustomerID
		cust.CreatedAt = now
		cust.UpdatedAt = now

		stored := *cust
		stored.Password = ""
		s.customers[cust.ID] = stored
		s.logger.DebugContext(ctx, "Customer inserted", slog.Int64("customerID", cust.ID))
		return nil
	}

	existing, ok := s.customers[cust.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	existing.FirstName = cust.FirstName
	existing.LastName = cust.LastName
	existing.Income = cust.Income
	existing.Address = cust.Address
	existing.UpdatedAt = now
	s.customers[cust.ID] = existing
	cust.UpdatedAt = now
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.customers[customerID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &stored, nil
}

// Delete removes the customer and every credit it owns.
func (r *CustomerRepository) Delete(ctx context.Context, customerID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[customerID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.customers, customerID)

	removed := 0
	for id, c := range s.credits {
		if c.CustomerID == customerID {
			delete(s.credits, id)
			delete(s.creditsByCode, c.CreditCode)
			removed++
		}
	}
	s.logger.DebugContext(ctx, "Customer deleted", slog.Int64("customerID", customerID), slog.Int("creditsRemoved", removed))
	return nil
}

type CreditRepository struct {
	store *Store
}

var _ credit.CreditRepository = (*CreditRepository)(nil)

func (r *CreditRepository) Save(ctx context.Context, c *credit.Credit) error {
	if c == nil {
		return fmt.Errorf("%w: credit cannot be nil", apperrors.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[c.CustomerID]; !ok {
		return fmt.Errorf("%w: credits_customer_id_fkey", apperrors.ErrNotFound)
	}
	if _, ok := s.creditsByCode[c.CreditCode]; ok {
		return fmt.Errorf("%w: credits_credit_code_key", apperrors.ErrAlreadyExists)
	}

	s.nextCreditID++
	c.ID = s.nextCreditID
	c.CreatedAt = time.Now()
	s.credits[c.ID] = *c
	s.creditsByCode[c.CreditCode] = c.ID
	return nil
}

func (r *CreditRepository) FindAllByCustomerID(ctx context.Context, customerID int64) ([]*credit.Credit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	credits := make([]*credit.Credit, 0)
	for _, c := range s.credits {
		if c.CustomerID == customerID {
			c := c
			credits = append(credits, &c)
		}
	}
	sort.Slice(credits, func(i, j int) bool { return credits[i].ID < credits[j].ID })
	return credits, nil
}

func (r *CreditRepository) FindByCreditCode(ctx context.Context, code uuid.UUID) (*credit.Credit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.creditsByCode[code]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := s.credits[id]
	return &c, nil
}

func (r *CreditRepository) CountByStatus(ctx context.Context) (map[credit.Status]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[credit.Status]int64)
	for _, c := range s.credits {
		counts[c.Status]++
	}
	return counts, nil
}
