package http

import (
	"net/http"
	"strconv"

	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	"github.com/payrolladmin/payroll/backend/internal/common/httpmetrics"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/observability/metrics"
)

type ErrorHandler struct {
	log *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{log: log}
}

// HandleError writes err as an ErrorEnvelope. Anything that is not a
// DomainError is reported as a 500 without leaking its text.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	if domainErr, ok := commonerrors.AsDomainError(err); ok {
		h.handleDomainError(w, r, domainErr)
		return
	}

	ctx := r.Context()
	h.log.WithFields(ctx, logger.Fields{
		"action": "unhandled_error",
		"path":   r.URL.Path,
	}).Errorf("unhandled error: %v", err)

	recordHTTPError(r, http.StatusInternalServerError)

	internal := commonerrors.ErrInternalError
	WriteErrorEnvelope(w, internal.HTTPStatus(), internal.Code(), internal.Message(), nil, TraceIDFromContext(ctx))
}

func (h *ErrorHandler) handleDomainError(w http.ResponseWriter, r *http.Request, err commonerrors.DomainError) {
	ctx := r.Context()
	status := err.HTTPStatus()

	fields := logger.Fields{
		"error_code": err.Code(),
		"category":   string(err.Category()),
		"status":     status,
		"action":     "domain_error",
	}
	switch {
	case status >= http.StatusInternalServerError:
		h.log.WithFields(ctx, fields).Errorf("domain error: %s", err.Error())
	case h.log.ShouldLog(logger.DEBUG):
		h.log.WithFields(ctx, fields).Debugf("domain error: %s", err.Error())
	}

	metrics.DomainErrorsTotal.WithLabelValues(
		string(err.Category()),
		err.Code(),
		strconv.Itoa(status),
	).Inc()
	recordHTTPError(r, status)

	WriteErrorEnvelope(w, status, err.Code(), err.Message(), nil, TraceIDFromContext(ctx))
}

func HandleError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	NewErrorHandler(log).HandleError(w, r, err)
}

func recordHTTPError(r *http.Request, status int) {
	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(status),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()
}
