package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/pashagolub/pgxmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payrolladmin/payroll/backend/internal/company/domain"
	"github.com/payrolladmin/payroll/backend/internal/company/repository"
)

var companyColumns = []string{"id", "user_id", "name", "entity_type", "pan_vat", "address", "phone", "email", "created_at", "updated_at"}

func sampleCompany() domain.Company {
	email := "hr@acme.test"
	return domain.Company{
		ID:         "c-1",
		UserID:     "u-1",
		Name:       "Acme",
		EntityType: domain.EntityPvtLtd,
		PanVat:     "123456789",
		Address:    "Kathmandu",
		Phone:      "01-555",
		Email:      &email,
		CreatedAt:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewPgRepository(mock)
	ctx := context.Background()
	c := sampleCompany()
	args := []interface{}{c.ID, c.UserID, c.Name, "PVT_LTD", c.PanVat, c.Address, c.Phone, c.Email, c.CreatedAt}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO companies")).
			WithArgs(args...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, c))
	})

	t.Run("second company for user", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO companies")).
			WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "companies_user_id_key"})

		assert.ErrorIs(t, repo.Create(ctx, c), repository.ErrCompanyExists)
	})

	t.Run("pan/vat taken", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO companies")).
			WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "companies_pan_vat_key"})

		assert.ErrorIs(t, repo.Create(ctx, c), repository.ErrPanVatAlreadyUsed)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewPgRepository(mock)
	ctx := context.Background()
	c := sampleCompany()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1")).
			WithArgs("u-1").
			WillReturnRows(pgxmock.NewRows(companyColumns).
				AddRow(c.ID, c.UserID, c.Name, "PVT_LTD", c.PanVat, c.Address, c.Phone, c.Email, c.CreatedAt, c.UpdatedAt))

		got, err := repo.FindByUserID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("none", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1")).
			WithArgs("u-2").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByUserID(ctx, "u-2")
		assert.ErrorIs(t, err, repository.ErrCompanyNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewPgRepository(mock)
	ctx := context.Background()
	c := sampleCompany()
	args := []interface{}{c.ID, c.Name, "PVT_LTD", c.PanVat, c.Address, c.Phone, c.Email, c.UpdatedAt}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE companies")).
			WithArgs(args...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Update(ctx, c))
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE companies")).
			WithArgs(args...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.Update(ctx, c), repository.ErrCompanyNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
