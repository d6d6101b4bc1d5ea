package controllers

import (
	"context"
	"net/http"

	"github.com/bowenSteve/kipsunya-biz/api/responses"
	"github.com/bowenSteve/kipsunya-biz/pkg/config"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kipsunya-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kipsunya-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true
		for name, p := range map[string]pinger{"db": dbP, "redis": redisP} {
			if p == nil {
				checks[name] = "skipped"
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				checks[name] = "down"
				healthy = false
				continue
			}
			checks[name] = "up"
		}

		status := http.StatusOK
		statusText := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			statusText = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": statusText,
			"checks": checks,
		})
	}
}
