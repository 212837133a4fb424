package bootstrap

import (
	"propsales-backend/internal/config"
	"propsales-backend/internal/interfaces/router"
	"propsales-backend/internal/pkg/logging"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for serverless hosting (the api handler imports this
// package, not internal). Reconciliation is not scheduled here; serverless
// deployments trigger it through POST /api/v1/unit-transfer/reconciliation/scan.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.Env)
	app, _, err := router.CreateApp(cfg)
	return app, err
}
