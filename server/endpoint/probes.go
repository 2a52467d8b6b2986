// Package endpoint serves the orchestrator probes.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/pvpauth/component"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// ProbeResponse is the body of every probe.
type ProbeResponse struct {
	Status     string             `json:"status"`
	Service    string             `json:"service"`
	Timestamp  string             `json:"timestamp"`
	Components []component.Health `json:"components,omitempty"`
}

// Probes answers /health, /liveness and /readiness for one service.
type Probes struct {
	service string
	checker HealthChecker
}

// NewProbes creates the probe handlers. A nil checker reports no components.
func NewProbes(service string, checker HealthChecker) *Probes {
	if checker == nil {
		checker = func(context.Context) []component.Health { return nil }
	}
	return &Probes{service: service, checker: checker}
}

// Health lists every component. Unhealthy answers 503; degraded still
// answers 200.
func (p *Probes) Health(c *gin.Context) {
	components := p.checker(c.Request.Context())
	if components == nil {
		components = []component.Health{}
	}
	status := component.Overall(components)
	p.reply(c, status != component.StatusUnhealthy, string(status), components)
}

// Liveness never consults dependencies.
func (p *Probes) Liveness(c *gin.Context) {
	p.reply(c, true, "alive", nil)
}

// Readiness is not ready while any component is unhealthy.
func (p *Probes) Readiness(c *gin.Context) {
	if component.Overall(p.checker(c.Request.Context())) == component.StatusUnhealthy {
		p.reply(c, false, "not_ready", nil)
		return
	}
	p.reply(c, true, "ready", nil)
}

func (p *Probes) reply(c *gin.Context, ok bool, status string, components []component.Health) {
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, ProbeResponse{
		Status:     status,
		Service:    p.service,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	})
}
