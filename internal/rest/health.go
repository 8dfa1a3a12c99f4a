package rest

import (
	"context"
	"net/http"
	"time"

	jsonres "farmDirect/pkg/response"

	"github.com/labstack/echo/v4"
)

// Pinger is any dependency the service cannot work without.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		return c.JSON(http.StatusServiceUnavailable, jsonres.Error("UNAVAILABLE", "dependency check failed", failed))
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
