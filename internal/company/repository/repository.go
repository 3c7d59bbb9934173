package repository

import (
	"context"
	"errors"
	"time"

	"github.com/payrolladmin/payroll/backend/internal/common/db"
	"github.com/payrolladmin/payroll/backend/internal/company/domain"
)

var (
	ErrCompanyNotFound   = errors.New("company not found")
	ErrCompanyExists     = errors.New("company already exists for user")
	ErrPanVatAlreadyUsed = errors.New("pan/vat already registered")
)

type Repository interface {
	Create(ctx context.Context, company domain.Company) error
	FindByUserID(ctx context.Context, userID string) (domain.Company, error)
	Update(ctx context.Context, company domain.Company) error
}

const selectCompany = `SELECT id, user_id, name, entity_type, pan_vat, address, phone, email, created_at, updated_at FROM companies`

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

func (r *PgRepository) Create(ctx context.Context, c domain.Company) error {
	start := time.Now()
	_, err := r.db.Exec(
		ctx,
		`INSERT INTO companies (id, user_id, name, entity_type, pan_vat, address, phone, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		c.ID, c.UserID, c.Name, string(c.EntityType), c.PanVat, c.Address, c.Phone, c.Email, c.CreatedAt,
	)
	if err := mapConstraint(err); err != nil {
		db.MeasureQueryDuration("create company", start)
		return err
	}
	return db.HandleExecError(err, "create company", start)
}

func (r *PgRepository) FindByUserID(ctx context.Context, userID string) (domain.Company, error) {
	start := time.Now()
	var (
		c          domain.Company
		entityType string
	)
	err := r.db.QueryRow(ctx, selectCompany+` WHERE user_id = $1`, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &entityType, &c.PanVat, &c.Address, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt,
	)
	if err := db.HandleQueryError(err, ErrCompanyNotFound, "find company by user", start); err != nil {
		return domain.Company{}, err
	}
	c.EntityType = domain.EntityType(entityType)
	return c, nil
}

func (r *PgRepository) Update(ctx context.Context, c domain.Company) error {
	start := time.Now()
	tag, err := r.db.Exec(
		ctx,
		`UPDATE companies SET name = $2, entity_type = $3, pan_vat = $4, address = $5, phone = $6, email = $7, updated_at = $8
		 WHERE id = $1`,
		c.ID, c.Name, string(c.EntityType), c.PanVat, c.Address, c.Phone, c.Email, c.UpdatedAt,
	)
	if err := mapConstraint(err); err != nil {
		db.MeasureQueryDuration("update company", start)
		return err
	}
	if err := db.HandleExecError(err, "update company", start); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

func mapConstraint(err error) error {
	switch {
	case db.IsUniqueViolation(err, "companies_user_id_key"):
		return ErrCompanyExists
	case db.IsUniqueViolation(err, "companies_pan_vat_key"):
		return ErrPanVatAlreadyUsed
	}
	return nil
}
