package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// InitMetrics creates the HTTP metrics collector for the service on the given registerer.
func InitMetrics(serviceName string, registry prometheus.Registerer) *fiberprometheus.FiberPrometheus {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return fiberprometheus.NewWithRegistry(registry, serviceName, "onebatch", "http", nil)
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return prom.Middleware(c)
	}
}
