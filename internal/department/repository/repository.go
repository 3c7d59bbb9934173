package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/payrolladmin/payroll/backend/internal/common/db"
	"github.com/payrolladmin/payroll/backend/internal/department/domain"
)

var (
	ErrDepartmentExists   = errors.New("department already exists")
	ErrDepartmentNotFound = errors.New("department not found")
)

type Repository interface {
	Create(ctx context.Context, d domain.Department) error
	ListByCompany(ctx context.Context, companyID string) ([]domain.Department, error)
	FindByID(ctx context.Context, companyID, id string) (domain.Department, error)
	Update(ctx context.Context, d domain.Department) error
	Delete(ctx context.Context, companyID, id string) error
}

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

func (r *PgRepository) Create(ctx context.Context, d domain.Department) error {
	start := time.Now()
	_, err := r.db.Exec(
		ctx,
		`INSERT INTO departments (id, company_id, name, description, created_at) VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.CompanyID, d.Name, d.Description, d.CreatedAt,
	)
	if db.IsUniqueViolation(err, "departments_company_name_key") {
		db.MeasureQueryDuration("create department", start)
		return ErrDepartmentExists
	}
	return db.HandleExecError(err, "create department", start)
}

func (r *PgRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.Department, error) {
	start := time.Now()
	rows, err := r.db.Query(
		ctx,
		`SELECT id, company_id, name, description, created_at
		 FROM departments
		 WHERE company_id = $1
		 ORDER BY created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, db.HandleExecError(err, "list departments", start)
	}
	defer rows.Close()

	departments := make([]domain.Department, 0)
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.Name, &d.Description, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	db.MeasureQueryDuration("list departments", start)
	return departments, nil
}

// FindByID only returns departments of the given company.
func (r *PgRepository) FindByID(ctx context.Context, companyID, id string) (domain.Department, error) {
	start := time.Now()
	var d domain.Department
	err := r.db.QueryRow(
		ctx,
		`SELECT id, company_id, name, description, created_at FROM departments WHERE id = $1 AND company_id = $2`,
		id, companyID,
	).Scan(&d.ID, &d.CompanyID, &d.Name, &d.Description, &d.CreatedAt)
	if err := db.HandleQueryError(err, ErrDepartmentNotFound, "find department", start); err != nil {
		return domain.Department{}, err
	}
	return d, nil
}

func (r *PgRepository) Update(ctx context.Context, d domain.Department) error {
	start := time.Now()
	tag, err := r.db.Exec(
		ctx,
		`UPDATE departments SET name = $3, description = $4 WHERE id = $1 AND company_id = $2`,
		d.ID, d.CompanyID, d.Name, d.Description,
	)
	if db.IsUniqueViolation(err, "departments_company_name_key") {
		db.MeasureQueryDuration("update department", start)
		return ErrDepartmentExists
	}
	if err := db.HandleExecError(err, "update department", start); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, companyID, id string) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM departments WHERE id = $1 AND company_id = $2`, id, companyID)
	if err := db.HandleExecError(err, "delete department", start); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}
