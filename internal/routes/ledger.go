package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/congo-pay/signed_send/internal/payments"
)

// RegisterLedgerRoutes wires the balance and signed send endpoints. sendChain
// runs before the send handler.
func RegisterLedgerRoutes(r fiber.Router, h *payments.Handler, sendChain ...fiber.Handler) {
	r.Get("/balance/:address", h.Balance)
	r.Post("/send", append(sendChain, h.Send)...)
}

// RegisterMetricsRoute exposes the Prometheus registry.
func RegisterMetricsRoute(r fiber.Router, reg *prometheus.Registry) {
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
