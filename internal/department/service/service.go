package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	"github.com/payrolladmin/payroll/backend/internal/common/constants"
	commoncrypto "github.com/payrolladmin/payroll/backend/internal/common/crypto"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/department/domain"
	"github.com/payrolladmin/payroll/backend/internal/department/repository"
)

var ErrNameTooShort = commonerrors.NewDomainError(
	"VALIDATION_FAILED",
	commonerrors.CategoryValidation,
	http.StatusBadRequest,
	"name must be at least 2 characters",
)

type Patch struct {
	Name        *string
	Description *string
}

// Service scopes every operation to the caller's company; callers pass the
// tenant from the verified access token.
type Service struct {
	repo        repository.Repository
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
}

func NewService(repo repository.Repository, idGenerator commoncrypto.IDGenerator, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{repo: repo, idGenerator: idGenerator, clock: clk, log: log}
}

func (s *Service) List(ctx context.Context, companyID string) ([]domain.Department, error) {
	departments, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, commonerrors.ErrDatabaseError.WithCause(err)
	}
	return departments, nil
}

func (s *Service) Create(ctx context.Context, companyID, name string, description *string) (domain.Department, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < constants.DepartmentNameMinLength {
		return domain.Department{}, ErrNameTooShort
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return domain.Department{}, commonerrors.ErrInternalError.WithCause(err)
	}

	d := domain.Department{
		ID:          id,
		CompanyID:   companyID,
		Name:        name,
		Description: normalizeDescription(description),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return domain.Department{}, s.mapWriteError(ctx, companyID, err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"company_id":    companyID,
		"department_id": id,
		"action":        "department_created",
	}).Info("department created")
	return d, nil
}

func (s *Service) Update(ctx context.Context, companyID, id string, patch Patch) (domain.Department, error) {
	if !commoncrypto.IsValidID(id) {
		return domain.Department{}, commonerrors.ErrDepartmentNotFound
	}
	d, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, repository.ErrDepartmentNotFound) {
			return domain.Department{}, commonerrors.ErrDepartmentNotFound
		}
		return domain.Department{}, commonerrors.ErrDatabaseError.WithCause(err)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if utf8.RuneCountInString(name) < constants.DepartmentNameMinLength {
			return domain.Department{}, ErrNameTooShort
		}
		d.Name = name
	}
	if patch.Description != nil {
		d.Description = normalizeDescription(patch.Description)
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return domain.Department{}, s.mapWriteError(ctx, companyID, err)
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	if !commoncrypto.IsValidID(id) {
		return commonerrors.ErrDepartmentNotFound
	}
	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return s.mapWriteError(ctx, companyID, err)
	}
	s.log.WithFields(ctx, logger.Fields{
		"company_id":    companyID,
		"department_id": id,
		"action":        "department_deleted",
	}).Info("department deleted")
	return nil
}

func (s *Service) mapWriteError(ctx context.Context, companyID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDepartmentExists):
		return commonerrors.ErrDepartmentExists
	case errors.Is(err, repository.ErrDepartmentNotFound):
		return commonerrors.ErrDepartmentNotFound
	}
	s.log.WithFields(ctx, logger.Fields{
		"company_id": companyID,
		"action":     "department_write_failed",
	}).Errorf("department write failed: %v", err)
	return commonerrors.ErrDatabaseError.WithCause(err)
}

// normalizeDescription trims and turns blank into nil.
func normalizeDescription(description *string) *string {
	if description == nil {
		return nil
	}
	v := strings.TrimSpace(*description)
	if v == "" {
		return nil
	}
	return &v
}
