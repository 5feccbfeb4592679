package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/signed_send/internal/config"
	"github.com/congo-pay/signed_send/internal/ledger"
	"github.com/congo-pay/signed_send/internal/metrics"
	"github.com/congo-pay/signed_send/internal/middleware"
	"github.com/congo-pay/signed_send/internal/notification"
	"github.com/congo-pay/signed_send/internal/payments"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// are optional in development; the in-memory ledger is used without DB.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if err := d.Cfg.ValidateServer(); err != nil {
		return err
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New())
	if d.Cfg.IsDev() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	// Health and metrics
	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app, d.Registry)

	// Services and handlers
	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		pg := ledger.NewPostgresLedger(d.DB, d.Cfg.WelcomeCredit)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		ledgerBackend = pg
	} else {
		d.Logger.Warn("DATABASE_URL not set, balances are kept in memory")
		ledgerBackend = ledger.NewInMemory(d.Cfg.WelcomeCredit)
	}

	ledgerMetrics, err := metrics.NewLedger(d.Registry)
	if err != nil {
		return err
	}
	notifier := notification.NewLoggerNotifier(d.Logger)
	paymentSvc := payments.NewService(ledgerBackend, notifier, ledgerMetrics, d.Logger)
	paymentHandler := payments.NewHandler(paymentSvc)

	sendChain := []fiber.Handler{middleware.SendRateLimit(d.Cache, d.Cfg.SendRateLimit)}
	if d.Cache != nil {
		sendChain = append(sendChain, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterLedgerRoutes(app, paymentHandler, sendChain...)

	app.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDHeader).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	return nil
}
