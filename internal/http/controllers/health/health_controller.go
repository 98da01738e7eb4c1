// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	dto "github.com/dropDatabas3/widgetauth/internal/http/dto/health"
	httperrors "github.com/dropDatabas3/widgetauth/internal/http/errors"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
)

// Pinger es cualquier dependencia que sabe responder si está viva
// (store.Store, cache.Client).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController maneja /healthz y /readyz.
type HealthController struct {
	components map[string]Pinger
	version    string
	timeout    time.Duration
}

func NewHealthController(components map[string]Pinger, version string) *HealthController {
	return &HealthController{components: components, version: version, timeout: 2 * time.Second}
}

// Healthz: el proceso está vivo.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz verifica cada dependencia; cualquiera caída => 503.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := dto.HealthResponse{
		Status:     "ready",
		Components: make(map[string]dto.HealthStatus, len(names)),
		Version:    c.version,
		Timestamp:  time.Now().UTC(),
	}
	for _, name := range names {
		if err := c.components[name].Ping(ctx); err != nil {
			log.Warn("component not ready", logger.Component(name), logger.Err(err))
			resp.Status = "unavailable"
			resp.Components[name] = dto.HealthStatus{Status: "error", Message: err.Error()}
			continue
		}
		resp.Components[name] = dto.HealthStatus{Status: "ok"}
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	httperrors.WriteJSON(w, status, resp)
}
