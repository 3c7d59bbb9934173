package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/pashagolub/pgxmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payrolladmin/payroll/backend/internal/department/domain"
	"github.com/payrolladmin/payroll/backend/internal/department/repository"
)

var departmentColumns = []string{"id", "company_id", "name", "description", "created_at"}

func TestCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewPgRepository(mock)
	ctx := context.Background()
	d := domain.Department{ID: "d-1", CompanyID: "c-1", Name: "Finance", CreatedAt: time.Now()}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO departments")).
			WithArgs("d-1", "c-1", "Finance", d.Description, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, d))
	})

	t.Run("name taken in company", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO departments")).
			WithArgs("d-1", "c-1", "Finance", d.Description, pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "departments_company_name_key"})

		assert.ErrorIs(t, repo.Create(ctx, d), repository.ErrDepartmentExists)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByCompany(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewPgRepository(mock)
	ctx := context.Background()
	now := time.Now()
	desc := "Payroll and tax"

	t.Run("rows", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE company_id = $1")).
			WithArgs("c-1").
			WillReturnRows(pgxmock.NewRows(departmentColumns).
				AddRow("d-2", "c-1", "Operations", &desc, now).
				AddRow("d-1", "c-1", "Finance", &desc, now.Add(-time.Hour)))

		list, err := repo.ListByCompany(ctx, "c-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Operations", list[0].Name)
		assert.Equal(t, "Payroll and tax", *list[1].Description)
	})

	t.Run("empty is not nil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE company_id = $1")).
			WithArgs("c-2").
			WillReturnRows(pgxmock.NewRows(departmentColumns))

		list, err := repo.ListByCompany(ctx, "c-2")
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE company_id = $1")).
			WithArgs("c-3").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.ListByCompany(ctx, "c-3")
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_ScopedToCompany(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewPgRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND company_id = $2")).
		WithArgs("d-1", "other-company").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.FindByID(context.Background(), "other-company", "d-1")
	assert.ErrorIs(t, err, repository.ErrDepartmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAndDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewPgRepository(mock)
	ctx := context.Background()
	d := domain.Department{ID: "d-1", CompanyID: "c-1", Name: "Finance"}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE departments")).
		WithArgs("d-1", "c-1", "Finance", d.Description).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Update(ctx, d))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE departments")).
		WithArgs("d-1", "c-1", "Finance", d.Description).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "departments_company_name_key"})
	assert.ErrorIs(t, repo.Update(ctx, d), repository.ErrDepartmentExists)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM departments")).
		WithArgs("d-1", "c-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(ctx, "c-1", "d-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM departments")).
		WithArgs("d-1", "c-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(ctx, "c-1", "d-1"), repository.ErrDepartmentNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
