package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	commonhttp "github.com/payrolladmin/payroll/backend/internal/common/http"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/company/domain"
	"github.com/payrolladmin/payroll/backend/internal/company/service"
)

type CompanyService interface {
	GetMine(ctx context.Context, userID string) (*domain.Company, error)
	Create(ctx context.Context, userID string, in service.CreateInput) (domain.Company, error)
	UpdateMine(ctx context.Context, userID string, patch domain.Patch) (domain.Company, error)
}

type createCompanyRequest struct {
	Name       string  `json:"name" validate:"required,max=200"`
	EntityType string  `json:"entityType" validate:"required,oneof=SOLE_PROPRIETOR PARTNERSHIP PVT_LTD NGO OTHER"`
	PanVat     string  `json:"panVat" validate:"required,max=50"`
	Address    string  `json:"address" validate:"required,max=500"`
	Phone      string  `json:"phone" validate:"required,max=30"`
	Email      *string `json:"email" validate:"omitempty,email"`
}

type updateCompanyRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=200"`
	EntityType *string `json:"entityType" validate:"omitempty,oneof=SOLE_PROPRIETOR PARTNERSHIP PVT_LTD NGO OTHER"`
	PanVat     *string `json:"panVat" validate:"omitempty,min=1,max=50"`
	Address    *string `json:"address" validate:"omitempty,max=500"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
	Email      *string `json:"email" validate:"omitempty,email"`
}

type companyResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	EntityType string    `json:"entityType"`
	PanVat     string    `json:"panVat"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	Email      *string   `json:"email"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toResponse(c domain.Company) companyResponse {
	return companyResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		Name:       c.Name,
		EntityType: string(c.EntityType),
		PanVat:     c.PanVat,
		Address:    c.Address,
		Phone:      c.Phone,
		Email:      c.Email,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

type Handler struct {
	companies CompanyService
	log       *logger.Logger
}

// NewHandler serves /api/company and /api/company/me. A user without a
// company is allowed here since this is where one gets created.
func NewHandler(companies CompanyService, guards *jwtverify.Guards, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	h := &Handler{companies: companies, log: log}
	timeout := commonhttp.WithTimeout(requestTimeout)

	guarded := func(fn http.HandlerFunc) http.Handler {
		return guards.Access(jwtverify.TenantOptional)(timeout(fn))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/company", commonhttp.Methods(map[string]http.Handler{
		http.MethodPost: guarded(h.create),
	}))
	mux.Handle("/api/company/me", commonhttp.Methods(map[string]http.Handler{
		http.MethodGet:   guarded(h.getMine),
		http.MethodPatch: guarded(h.updateMine),
	}))
	return mux
}

func (h *Handler) getMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrUnauthorized, h.log)
		return
	}

	c, err := h.companies.GetMine(r.Context(), identity.UserID)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	if c == nil {
		commonhttp.WriteJSON(w, http.StatusOK, nil)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, toResponse(*c))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrUnauthorized, h.log)
		return
	}

	var req createCompanyRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	c, err := h.companies.Create(r.Context(), identity.UserID, service.CreateInput{
		Name:       req.Name,
		EntityType: domain.EntityType(req.EntityType),
		PanVat:     req.PanVat,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
	})
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) updateMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrUnauthorized, h.log)
		return
	}

	var req updateCompanyRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	patch := domain.Patch{
		Name:    trimmed(req.Name),
		PanVat:  trimmed(req.PanVat),
		Address: trimmed(req.Address),
		Phone:   trimmed(req.Phone),
		Email:   req.Email,
	}
	if req.EntityType != nil {
		et := domain.EntityType(*req.EntityType)
		patch.EntityType = &et
	}

	c, err := h.companies.UpdateMine(r.Context(), identity.UserID, patch)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, toResponse(c))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
