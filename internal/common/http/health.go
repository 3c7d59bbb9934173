package http

import (
	"context"
	"net/http"
	"time"

	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports 503 when the database does not answer within two seconds.
func HealthHandler(log *logger.Logger, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteErrorEnvelope(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed", nil, "")
			return
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				log.WithFields(ctx, logger.Fields{"action": "health_db_ping_failed"}).Warnf("health check failed: %v", err)
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}

		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
