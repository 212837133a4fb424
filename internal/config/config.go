package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	LogLevel            string

	BackofficeBaseURL string // BACKOFFICE_BASE_URL; when set, eligibility is read from the back office API
	BackofficeAPIKey  string
	BackofficeTimeout time.Duration

	ReconcileCron       string        // RECONCILE_CRON, robfig/cron spec
	ReconcileStaleAfter time.Duration // RECORDED transfers older than this are flagged ORPHANED
	IdempotencyTTL      time.Duration

	SendinblueAPIKey string // SENDINBLUE_API_KEY for ops alert emails (Brevo)
	MailFrom         string
	OpsAlertEmail    string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("BACKOFFICE_TIMEOUT", "10s")
	viper.SetDefault("RECONCILE_CRON", "@every 15m")
	viper.SetDefault("RECONCILE_STALE_AFTER", "30m")
	viper.SetDefault("IDEMPOTENCY_TTL", "24h")
	viper.SetDefault("MAIL_FROM", "noreply@propsales.app")

	return &Config{
		Env:                 viper.GetString("APP_ENV"),
		Port:                viper.GetString("PORT"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		BackofficeBaseURL:   strings.TrimSpace(viper.GetString("BACKOFFICE_BASE_URL")),
		BackofficeAPIKey:    viper.GetString("BACKOFFICE_API_KEY"),
		BackofficeTimeout:   viper.GetDuration("BACKOFFICE_TIMEOUT"),
		ReconcileCron:       viper.GetString("RECONCILE_CRON"),
		ReconcileStaleAfter: viper.GetDuration("RECONCILE_STALE_AFTER"),
		IdempotencyTTL:      viper.GetDuration("IDEMPOTENCY_TTL"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		OpsAlertEmail:       viper.GetString("OPS_ALERT_EMAIL"),
	}, nil
}
