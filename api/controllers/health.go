package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/supplyledger-backend/api/responses"
	"github.com/angelmondragon/supplyledger-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency the ready check must reach.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SupplyLedger-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and redis both answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, redis Pinger) http.HandlerFunc {
	deps := []struct {
		name string
		p    Pinger
	}{
		{"database", db},
		{"redis", redis},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SupplyLedger-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for _, dep := range deps {
			if dep.p == nil {
				continue
			}
			if err := dep.p.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.name+" unavailable").
						WithDetails(map[string]any{"dependency": dep.name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
