package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	commoncrypto "github.com/payrolladmin/payroll/backend/internal/common/crypto"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/company/domain"
	"github.com/payrolladmin/payroll/backend/internal/company/repository"
	"github.com/payrolladmin/payroll/backend/internal/company/service"
)

type mockRepo struct {
	createFunc       func(ctx context.Context, c domain.Company) error
	findByUserIDFunc func(ctx context.Context, userID string) (domain.Company, error)
	updateFunc       func(ctx context.Context, c domain.Company) error
}

func (m *mockRepo) Create(ctx context.Context, c domain.Company) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, c)
	}
	return nil
}

func (m *mockRepo) FindByUserID(ctx context.Context, userID string) (domain.Company, error) {
	if m.findByUserIDFunc != nil {
		return m.findByUserIDFunc(ctx, userID)
	}
	return domain.Company{}, repository.ErrCompanyNotFound
}

func (m *mockRepo) Update(ctx context.Context, c domain.Company) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, c)
	}
	return nil
}

func newService(repo *mockRepo) (*service.Service, *clock.MockClock) {
	clk := clock.NewMockClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	return service.NewService(repo, commoncrypto.NewUUIDGenerator(), clk, logger.Discard()), clk
}

var validInput = service.CreateInput{
	Name:       " Acme Traders ",
	EntityType: domain.EntityPvtLtd,
	PanVat:     "601234567",
	Address:    "Kathmandu",
	Phone:      "9800000000",
}

func TestGetMine_NoCompanyIsNotAnError(t *testing.T) {
	svc, _ := newService(&mockRepo{})

	c, err := svc.GetMine(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCreate_Success(t *testing.T) {
	var created domain.Company
	svc, clk := newService(&mockRepo{createFunc: func(ctx context.Context, c domain.Company) error {
		created = c
		return nil
	}})

	c, err := svc.Create(context.Background(), "u-1", validInput)
	require.NoError(t, err)

	assert.Equal(t, "Acme Traders", c.Name)
	assert.Equal(t, "u-1", c.UserID)
	assert.True(t, commoncrypto.IsValidID(c.ID))
	assert.Equal(t, clk.Now(), c.CreatedAt)
	assert.Equal(t, c, created)
}

func TestCreate_SecondCompanyRejected(t *testing.T) {
	svc, _ := newService(&mockRepo{findByUserIDFunc: func(ctx context.Context, userID string) (domain.Company, error) {
		return domain.Company{ID: "c-1", UserID: userID}, nil
	}})

	_, err := svc.Create(context.Background(), "u-1", validInput)
	require.ErrorIs(t, err, commonerrors.ErrCompanyAlreadyExists)
	de, _ := commonerrors.AsDomainError(err)
	assert.Equal(t, 400, de.HTTPStatus())
}

func TestCreate_ConstraintMapping(t *testing.T) {
	cases := []struct {
		repoErr error
		want    error
	}{
		{repository.ErrCompanyExists, commonerrors.ErrCompanyAlreadyExists},
		{repository.ErrPanVatAlreadyUsed, commonerrors.ErrPanVatInUse},
		{errors.New("boom"), commonerrors.ErrDatabaseError},
	}
	for _, tc := range cases {
		svc, _ := newService(&mockRepo{createFunc: func(ctx context.Context, c domain.Company) error {
			return tc.repoErr
		}})
		_, err := svc.Create(context.Background(), "u-1", validInput)
		assert.ErrorIs(t, err, tc.want)
	}
}

func TestCreate_InvalidEntityType(t *testing.T) {
	svc, _ := newService(&mockRepo{})
	in := validInput
	in.EntityType = "LLC"

	_, err := svc.Create(context.Background(), "u-1", in)
	require.ErrorIs(t, err, commonerrors.ErrInvalidPayload)
}

func TestUpdateMine(t *testing.T) {
	existing := domain.Company{ID: "c-1", UserID: "u-1", Name: "Old", EntityType: domain.EntityNGO, PanVat: "1"}

	t.Run("applies only given fields", func(t *testing.T) {
		var saved domain.Company
		svc, clk := newService(&mockRepo{
			findByUserIDFunc: func(ctx context.Context, userID string) (domain.Company, error) { return existing, nil },
			updateFunc: func(ctx context.Context, c domain.Company) error {
				saved = c
				return nil
			},
		})
		name := "New"
		c, err := svc.UpdateMine(context.Background(), "u-1", domain.Patch{Name: &name})
		require.NoError(t, err)

		assert.Equal(t, "New", c.Name)
		assert.Equal(t, domain.EntityNGO, c.EntityType)
		assert.Equal(t, "1", saved.PanVat)
		assert.Equal(t, clk.Now(), saved.UpdatedAt)
	})

	t.Run("no company", func(t *testing.T) {
		svc, _ := newService(&mockRepo{})
		_, err := svc.UpdateMine(context.Background(), "u-1", domain.Patch{})
		require.ErrorIs(t, err, commonerrors.ErrCompanyNotFound)
	})

	t.Run("pan vat taken", func(t *testing.T) {
		svc, _ := newService(&mockRepo{
			findByUserIDFunc: func(ctx context.Context, userID string) (domain.Company, error) { return existing, nil },
			updateFunc: func(ctx context.Context, c domain.Company) error {
				return repository.ErrPanVatAlreadyUsed
			},
		})
		pan := "2"
		_, err := svc.UpdateMine(context.Background(), "u-1", domain.Patch{PanVat: &pan})
		require.ErrorIs(t, err, commonerrors.ErrPanVatInUse)
	})
}
