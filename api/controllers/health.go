package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/portalakashico/portal-backend/api/responses"
	"github.com/portalakashico/portal-backend/pkg/config"
	"github.com/portalakashico/portal-backend/pkg/logger"
	"github.com/portalakashico/portal-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Portal-Env", cfg.App.Env)
		responses.WriteJSON(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once the optional Redis dependency answers a ping.
func HealthReady(cfg *config.Config, pinger redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Portal-Env", cfg.App.Env)
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				if logg != nil {
					logg.Error(r.Context(), "readiness.redis", err)
				}
				responses.WriteJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "redis": "down"})
				return
			}
		}
		responses.WriteJSON(w, map[string]string{"status": "ready"})
	}
}
