package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/pvpauth/component"
)

// DisplaySummary prints the startup summary: infrastructure, routes and
// live health, all collected from the component registry.
func (a *App) DisplaySummary(ctx context.Context, took time.Duration) {
	w := a.summaryOut
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", a.Name, a.Version, took.Seconds())

	if infra := a.Components.Describe(); len(infra) > 0 {
		fmt.Fprintf(w, "\n📊 Infrastructure\n")
		for i, d := range infra {
			details := d.Details
			if d.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, d.Port)
			}
			fmt.Fprintf(w, "   %s %s [%s]: %s\n", branch(i, len(infra)), d.Name, d.Type, details)
		}
	}

	var routes []component.Route
	for _, c := range a.Components.All() {
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}
	if len(routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", branch(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}

	if results := a.Components.HealthAll(ctx); len(results) > 0 {
		fmt.Fprintf(w, "\n🏥 Health Check\n")
		for i, h := range results {
			msg := ""
			if h.Message != "" {
				msg = " - " + h.Message
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(results)), healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
