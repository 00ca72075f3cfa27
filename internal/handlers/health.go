package handlers

import (
	"context"
	"time"

	"ledgerly/internal/services/currency"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	version   string
	checks    map[string]HealthCheck
	converter *currency.Converter
}

func NewHealthHandler(version string, checks map[string]HealthCheck, converter *currency.Converter) *HealthHandler {
	return &HealthHandler{version: version, checks: checks, converter: converter}
}

// Check reports "ok" when every dependency answers, "degraded" with a 503
// otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	services := fiber.Map{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			services[name] = err.Error()
			status = "degraded"
			continue
		}
		services[name] = "connected"
	}

	body := fiber.Map{
		"status":   status,
		"version":  h.version,
		"services": services,
	}
	if h.converter != nil {
		rates := fiber.Map{
			"base":     h.converter.Base(),
			"fallback": h.converter.UsingFallback(),
		}
		if last := h.converter.LastUpdate(); !last.IsZero() {
			rates["last_update"] = last.UTC()
		}
		body["rates"] = rates
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(body)
}
