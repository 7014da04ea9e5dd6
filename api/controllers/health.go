package controllers

import (
	"context"
	"net/http"

	"github.com/otabekov/orderdesk-backend/api/responses"
	"github.com/otabekov/orderdesk-backend/pkg/config"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/logger"
)

// Pinger is anything readiness can probe: the upstream client and the
// optional Redis cache both satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OrderDesk-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every wired dependency. Nil pingers are skipped so a
// deployment without Redis still reports ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, pingers map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OrderDesk-Env", cfg.App.Env)

		checks := map[string]string{}
		for name, pinger := range pingers {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(r.Context()); err != nil {
				checks[name] = err.Error()
			}
		}

		if len(checks) > 0 {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency not ready").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
