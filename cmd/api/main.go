package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propsales-backend/internal/config"
	"propsales-backend/internal/interfaces/router"
	"propsales-backend/internal/pkg/logging"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const reconcileTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}
	logging.Setup(cfg.LogLevel, cfg.Env)

	app, rt, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create failed")
	}

	// Verify connections before accepting traffic
	if rt.DB != nil {
		sqlDB, err := rt.DB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("Postgres: get DB")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("Postgres connection failed")
		}
		log.Info().Msg("Postgres connected")
	} else {
		log.Warn().Msg("DATABASE_URL not set; serving health and metrics only")
	}
	if rt.Rdb != nil {
		if err := rt.Rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		log.Info().Msg("Redis connected")
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if rt.Reconciler != nil {
		if _, err := rt.Reconciler.Schedule(c, cfg.ReconcileCron, reconcileTimeout); err != nil {
			log.Fatal().Err(err).Str("spec", cfg.ReconcileCron).Msg("failed to schedule transfer reconciliation")
		}
		c.Start()
		log.Info().Str("spec", cfg.ReconcileCron).Msg("transfer reconciliation scheduled")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server running")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	<-c.Stop().Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	if rt.Rdb != nil {
		_ = rt.Rdb.Close()
	}
}
