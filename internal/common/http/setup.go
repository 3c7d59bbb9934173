package http

import (
	"net/http"

	"github.com/payrolladmin/payroll/backend/internal/common/httpmetrics"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

// BuildBaseHandler wraps handler with the middleware every route shares.
func BuildBaseHandler(log *logger.Logger, maxRequestSize int64, handler http.Handler) http.Handler {
	metrics := httpmetrics.New()
	recovery := RecoveryMiddleware(log)
	maxSize := MaxRequestSizeMiddleware(maxRequestSize)
	csp := ContentSecurityPolicyMiddleware("")

	return SecurityHeadersMiddleware(csp(TraceIDMiddleware(recovery(maxSize(metrics.Wrap(handler))))))
}
