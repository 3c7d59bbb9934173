package service

import (
	"context"
	"errors"
	"strings"

	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	commoncrypto "github.com/payrolladmin/payroll/backend/internal/common/crypto"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/company/domain"
	"github.com/payrolladmin/payroll/backend/internal/company/repository"
)

type CreateInput struct {
	Name       string
	EntityType domain.EntityType
	PanVat     string
	Address    string
	Phone      string
	Email      *string
}

// Service manages the single company a user owns. The company id only
// reaches the user's tokens on the next login or refresh.
type Service struct {
	repo        repository.Repository
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
}

func NewService(repo repository.Repository, idGenerator commoncrypto.IDGenerator, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{repo: repo, idGenerator: idGenerator, clock: clk, log: log}
}

// GetMine returns nil without error when the user has no company yet.
func (s *Service) GetMine(ctx context.Context, userID string) (*domain.Company, error) {
	c, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			return nil, nil
		}
		return nil, commonerrors.ErrDatabaseError.WithCause(err)
	}
	return &c, nil
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (domain.Company, error) {
	if !in.EntityType.Valid() {
		return domain.Company{}, commonerrors.ErrInvalidPayload
	}

	existing, err := s.GetMine(ctx, userID)
	if err != nil {
		return domain.Company{}, err
	}
	if existing != nil {
		return domain.Company{}, commonerrors.ErrCompanyAlreadyExists
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return domain.Company{}, commonerrors.ErrInternalError.WithCause(err)
	}

	now := s.clock.Now()
	c := domain.Company{
		ID:         id,
		UserID:     userID,
		Name:       strings.TrimSpace(in.Name),
		EntityType: in.EntityType,
		PanVat:     strings.TrimSpace(in.PanVat),
		Address:    strings.TrimSpace(in.Address),
		Phone:      strings.TrimSpace(in.Phone),
		Email:      in.Email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return domain.Company{}, s.mapWriteError(ctx, userID, "company_create_failed", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id":    userID,
		"company_id": id,
		"action":     "company_created",
	}).Info("company created")
	return c, nil
}

func (s *Service) UpdateMine(ctx context.Context, userID string, patch domain.Patch) (domain.Company, error) {
	if patch.EntityType != nil && !patch.EntityType.Valid() {
		return domain.Company{}, commonerrors.ErrInvalidPayload
	}

	c, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			return domain.Company{}, commonerrors.ErrCompanyNotFound
		}
		return domain.Company{}, commonerrors.ErrDatabaseError.WithCause(err)
	}

	c.Apply(patch)
	c.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			return domain.Company{}, commonerrors.ErrCompanyNotFound
		}
		return domain.Company{}, s.mapWriteError(ctx, userID, "company_update_failed", err)
	}
	return c, nil
}

func (s *Service) mapWriteError(ctx context.Context, userID, action string, err error) error {
	switch {
	case errors.Is(err, repository.ErrCompanyExists):
		return commonerrors.ErrCompanyAlreadyExists
	case errors.Is(err, repository.ErrPanVatAlreadyUsed):
		return commonerrors.ErrPanVatInUse
	}
	s.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"action":  action,
	}).Errorf("company write failed: %v", err)
	return commonerrors.ErrDatabaseError.WithCause(err)
}
