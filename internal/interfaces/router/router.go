package router

import (
	"propsales-backend/internal/application/alerts"
	eligsvc "propsales-backend/internal/application/eligibility"
	ledgersvc "propsales-backend/internal/application/ledger"
	ownersvc "propsales-backend/internal/application/owners"
	reconsvc "propsales-backend/internal/application/reconciliation"
	transfersvc "propsales-backend/internal/application/transfers"
	"propsales-backend/internal/config"
	"propsales-backend/internal/infrastructure/backoffice"
	"propsales-backend/internal/infrastructure/cache"
	"propsales-backend/internal/infrastructure/database"
	chargehandler "propsales-backend/internal/interfaces/handlers/charges"
	healthhandler "propsales-backend/internal/interfaces/handlers/health"
	ownerhandler "propsales-backend/internal/interfaces/handlers/owners"
	reconhandler "propsales-backend/internal/interfaces/handlers/reconciliation"
	transferhandler "propsales-backend/internal/interfaces/handlers/transfers"
	"propsales-backend/internal/middleware"
	"propsales-backend/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Deps are the connections the app is built on. DB and Rdb may be nil; without
// a DB only health and metrics are served.
type Deps struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	Registry *prometheus.Registry
}

// Runtime is what the entrypoints need after the app is built.
type Runtime struct {
	DB         *gorm.DB
	Rdb        *redis.Client
	Reconciler *reconsvc.Service
}

// CreateApp opens the configured connections and builds the app.
func CreateApp(cfg *config.Config) (*fiber.App, *Runtime, error) {
	deps := Deps{Registry: prometheus.NewRegistry()}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		deps.Rdb = rdb
	}
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, err
		}
		deps.DB = db
	}
	return Build(cfg, deps)
}

// Build wires services, handlers and middleware onto a new app.
func Build(cfg *config.Config, deps Deps) (*fiber.App, *Runtime, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.HealthMarker(deps.Rdb))
	app.Use(middleware.RouteLogger())

	rt := &Runtime{DB: deps.DB, Rdb: deps.Rdb}

	var bo *backoffice.Client
	if cfg.BackofficeBaseURL != "" {
		bo = backoffice.New(cfg.BackofficeBaseURL, cfg.BackofficeAPIKey, cfg.BackofficeTimeout)
	}

	hh := &healthhandler.Handlers{
		Rdb:            deps.Rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if bo != nil {
		hh.Backoffice = bo
	}
	if deps.DB != nil {
		hh.DB = &gormDBPinger{db: deps.DB}
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	if deps.DB == nil {
		return app, rt, nil
	}
	db := deps.DB

	var eligibility transfersvc.EligibilityChecker = &eligsvc.Service{DB: db}
	if bo != nil {
		eligibility = bo
	}
	ledger := &ledgersvc.Service{DB: db}
	store := &transfersvc.GormStore{DB: db}
	ts := &transfersvc.Service{
		Eligibility: eligibility,
		Ledger:      ledger,
		Store:       store,
		Metrics:     metrics.New(reg),
	}

	var notifier alerts.Notifier
	if cfg.SendinblueAPIKey != "" && cfg.OpsAlertEmail != "" {
		notifier = &alerts.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom, To: cfg.OpsAlertEmail}
	}
	rs := &reconsvc.Service{
		Store:      store,
		Ledger:     ledger,
		Notifier:   notifier,
		StaleAfter: cfg.ReconcileStaleAfter,
	}
	rt.Reconciler = rs

	api := app.Group("/api/v1")

	// Transfer workflow
	th := &transferhandler.Handlers{
		Service:     ts,
		Idempotency: &cache.IdempotencyStore{Rdb: deps.Rdb, TTL: cfg.IdempotencyTTL},
	}
	api.Get("/unit-transfer/customer/:id", th.CheckEligibility)
	api.Get("/is-pay-transfer-charge/:id", th.CheckTransferCharge)
	api.Patch("/unit-transfer/mark-used/:id", th.MarkUsed)
	api.Post("/unit-transfer/record", th.Record)
	api.Patch("/unit-transfer/record/:id", th.Update)
	api.Patch("/unit-transfer/record/:id/verify", th.Verify)
	api.Get("/unit-transfer/records", th.List)

	// Reconciliation
	rh := &reconhandler.Handlers{Service: rs}
	api.Get("/unit-transfer/reconciliation", rh.List)
	api.Post("/unit-transfer/reconciliation/scan", rh.Scan)
	api.Post("/unit-transfer/reconciliation/:id/resolve", rh.Resolve)

	// Read side
	oh := &ownerhandler.Handlers{Service: &ownersvc.Service{DB: db}}
	api.Get("/owners/unit/:unitId", oh.UnitOwners)
	api.Get("/transfer-charges/transaction/:id", oh.TransferDetail)

	// Payment entry
	ch := &chargehandler.Handlers{Ledger: ledger}
	api.Post("/transfer-charges", ch.Record)

	return app, rt, nil
}
