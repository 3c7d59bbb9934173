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
	"github.com/payrolladmin/payroll/backend/internal/department/domain"
	"github.com/payrolladmin/payroll/backend/internal/department/service"
)

type DepartmentService interface {
	List(ctx context.Context, companyID string) ([]domain.Department, error)
	Create(ctx context.Context, companyID, name string, description *string) (domain.Department, error)
	Update(ctx context.Context, companyID, id string, patch service.Patch) (domain.Department, error)
	Delete(ctx context.Context, companyID, id string) error
}

type createDepartmentRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type updateDepartmentRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type departmentResponse struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"companyId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toResponse(d domain.Department) departmentResponse {
	return departmentResponse{
		ID:          d.ID,
		CompanyID:   d.CompanyID,
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}

type Handler struct {
	departments DepartmentService
	log         *logger.Logger
}

// NewHandler serves /api/departments. Every route needs a tenant in the
// access token; a user who just created a company must refresh first.
func NewHandler(departments DepartmentService, guards *jwtverify.Guards, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	h := &Handler{departments: departments, log: log}
	timeout := commonhttp.WithTimeout(requestTimeout)
	guarded := func(fn http.HandlerFunc) http.Handler {
		return guards.Access(jwtverify.TenantRequired)(timeout(fn))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/departments", commonhttp.Methods(map[string]http.Handler{
		http.MethodGet:  guarded(h.list),
		http.MethodPost: guarded(h.create),
	}))
	mux.Handle(departmentPrefix, commonhttp.Methods(map[string]http.Handler{
		http.MethodPatch:  guarded(h.update),
		http.MethodDelete: guarded(h.delete),
	}))
	return mux
}

const departmentPrefix = "/api/departments/"

// departmentID takes the single path segment after the prefix.
func departmentID(r *http.Request) (string, bool) {
	id := strings.TrimPrefix(r.URL.Path, departmentPrefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (h *Handler) companyID(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrUnauthorized, h.log)
		return "", false
	}
	id, ok := identity.Tenant.ID()
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrCompanyRequired, h.log)
		return "", false
	}
	return id, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(w, r)
	if !ok {
		return
	}

	departments, err := h.departments.List(r.Context(), companyID)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	resp := make([]departmentResponse, 0, len(departments))
	for _, d := range departments {
		resp = append(resp, toResponse(d))
	}
	commonhttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(w, r)
	if !ok {
		return
	}

	var req createDepartmentRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	d, err := h.departments.Create(r.Context(), companyID, req.Name, req.Description)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusCreated, toResponse(d))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(w, r)
	if !ok {
		return
	}
	id, ok := departmentID(r)
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrDepartmentNotFound, h.log)
		return
	}

	var req updateDepartmentRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	d, err := h.departments.Update(r.Context(), companyID, id, service.Patch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(w, r)
	if !ok {
		return
	}
	id, ok := departmentID(r)
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrDepartmentNotFound, h.log)
		return
	}

	if err := h.departments.Delete(r.Context(), companyID, id); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
