package postgres

import (
	"context"
	"credit-application-system/internal/domain/customer"
	"credit-application-system/internal/pkg/apperrors"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pgxmockExpectationsNotMetMsg = "pgxmock expectations not met"

var fixedTime = time.Date(2030, time.January, 2, 10, 0, 0, 0, time.UTC)

var customerColumns = []string{
	"id", "first_name", "last_name", "cpf", "email", "income", "password_hash",
	"zip_code", "street", "created_at", "updated_at",
}

func newCustomerFixture() *customer.Customer {
	return &customer.Customer{
		FirstName:    "Cami",
		LastName:     "Cavalcante",
		CPF:          "28475934625",
		Email:        "camila@email.com",
		Income:       decimal.NewFromInt(1000),
		PasswordHash: "$2a$10$hash",
		Address:      customer.Address{ZipCode: "000000", Street: "Rua da Cami, 123"},
	}
}

func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func setupCustomerRepo(t *testing.T) (context.Context, *CustomerRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewCustomerRepository(mockPool, logger)

	return ctx, repo, mockPool
}

func TestSaveNewCustomerWhenSuccess(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	cust := newCustomerFixture()

	mockPool.ExpectQuery(regexp.QuoteMeta(insertCustomerQuery)).WithArgs(
		cust.FirstName, cust.LastName, cust.CPF, cust.Email, "1000",
		cust.PasswordHash, cust.Address.ZipCode, cust.Address.Street,
	).WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
		AddRow(int64(1), fixedTime, fixedTime))

	err := repo.Save(ctx, cust)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), cust.ID)
	assert.Equal(t, fixedTime, cust.CreatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveNewCustomerWhenDuplicate(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	cust := newCustomerFixture()

	mockPool.ExpectQuery(regexp.QuoteMeta(insertCustomerQuery)).WithArgs(anyArgs(8)...).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "customers_cpf_key"})

	err := repo.Save(ctx, cust)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "customers_cpf_key")
	assert.Equal(t, int64(0), cust.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveNewCustomerWhenDatabaseError(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(insertCustomerQuery)).WithArgs(anyArgs(8)...).
		WillReturnError(errors.New("connection lost"))

	err := repo.Save(ctx, newCustomerFixture())
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveExistingCustomerWhenSuccess(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	cust := newCustomerFixture()
	cust.ID = 5
	cust.Income = decimal.RequireFromString("2500.50")

	mockPool.ExpectQuery(regexp.QuoteMeta(updateCustomerQuery)).WithArgs(
		cust.FirstName, cust.LastName, "2500.5", cust.Address.ZipCode, cust.Address.Street, cust.ID,
	).WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(fixedTime))

	err := repo.Save(ctx, cust)
	assert.NoError(t, err)
	assert.Equal(t, fixedTime, cust.UpdatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveExistingCustomerWhenNotFound(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	cust := newCustomerFixture()
	cust.ID = 404

	mockPool.ExpectQuery(regexp.QuoteMeta(updateCustomerQuery)).WithArgs(anyArgs(6)...).
		WillReturnError(pgx.ErrNoRows)

	err := repo.Save(ctx, cust)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveNilCustomer(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	assert.ErrorIs(t, repo.Save(ctx, nil), apperrors.ErrInvalidArgument)
}

func TestFindCustomerByIDWhenSuccess(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	expected := newCustomerFixture()

	mockPool.ExpectQuery(regexp.QuoteMeta(findCustomerByIDQuery)).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(customerColumns).AddRow(
			int64(1), expected.FirstName, expected.LastName, expected.CPF, expected.Email, "1000.00",
			expected.PasswordHash, expected.Address.ZipCode, expected.Address.Street, fixedTime, fixedTime,
		))

	cust, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cust.ID)
	assert.Equal(t, expected.CPF, cust.CPF)
	assert.True(t, expected.Income.Equal(cust.Income))
	assert.Equal(t, expected.Address, cust.Address)
	assert.Empty(t, cust.Password)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindCustomerByIDWhenNotFound(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(findCustomerByIDQuery)).WithArgs(int64(2)).WillReturnError(pgx.ErrNoRows)

	cust, err := repo.FindByID(ctx, 2)
	assert.Nil(t, cust)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindCustomerByIDWhenDatabaseError(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(findCustomerByIDQuery)).WithArgs(int64(2)).WillReturnError(errors.New("timeout"))

	cust, err := repo.FindByID(ctx, 2)
	assert.Nil(t, cust)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestDeleteCustomerWhenSuccess(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectExec(regexp.QuoteMeta(deleteCustomerQuery)).WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(ctx, 1))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestDeleteCustomerWhenNotFound(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectExec(regexp.QuoteMeta(deleteCustomerQuery)).WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(ctx, 1), apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestDeleteCustomerWhenDatabaseError(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectExec(regexp.QuoteMeta(deleteCustomerQuery)).WithArgs(int64(1)).
		WillReturnError(errors.New("lock timeout"))

	assert.ErrorIs(t, repo.Delete(ctx, 1), apperrors.ErrDatabase)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestTranslateDBError(t *testing.T) {
	assert.Nil(t, translateDBError(nil, logger))
	assert.ErrorIs(t, translateDBError(pgx.ErrNoRows, logger), apperrors.ErrNotFound)
	assert.ErrorIs(t, translateDBError(&pgconn.PgError{Code: pgUniqueViolation}, logger), apperrors.ErrAlreadyExists)
	assert.ErrorIs(t, translateDBError(&pgconn.PgError{Code: pgForeignKeyViolation}, logger), apperrors.ErrNotFound)
	assert.ErrorIs(t, translateDBError(&pgconn.PgError{Code: "40001"}, logger), apperrors.ErrDatabase)
	assert.ErrorIs(t, translateDBError(errors.New("boom"), logger), apperrors.ErrDatabase)
}

func TestMigrate(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	ctx := context.Background()

	t.Run("applies the schema", func(t *testing.T) {
		mockPool.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS customers")).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))

		assert.NoError(t, Migrate(ctx, mockPool, logger))
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("reports a failing script", func(t *testing.T) {
		mockPool.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS customers")).
			WillReturnError(errors.New("permission denied"))

		err := Migrate(ctx, mockPool, logger)
		assert.ErrorIs(t, err, apperrors.ErrDatabase)
		assert.Contains(t, err.Error(), "0001_init.sql")
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}
