// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for SubPool.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, gateway_secret_key, etc.
//   - Environment variables: SUBPOOL_MONGO_URI, SUBPOOL_GATEWAY_SECRET_KEY, etc.
//   - Command-line flags: --mongo_uri, --gateway_secret_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "subpool", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Payment processor configuration
	{Name: "gateway_base_url", Default: "https://api.flutterwave.com/v3", Desc: "Payment processor API base URL"},
	{Name: "gateway_secret_key", Default: "", Desc: "Payment processor secret key (required in production)"},
	{Name: "gateway_timeout", Default: "30s", Desc: "Per-call timeout for processor requests"},

	// Push notifications (optional)
	{Name: "push_url", Default: "", Desc: "Push relay endpoint (blank disables push)"},
	{Name: "push_server_key", Default: "", Desc: "Server key for the push relay"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@subpool.app", Desc: "From email address"},
	{Name: "mail_from_name", Default: "SubPool", Desc: "From display name"},

	// Base URL for checkout redirects
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL the hosted checkout returns to"},

	// Billing cycle settings
	{Name: "currency", Default: "NGN", Desc: "ISO currency for invoices and payouts"},
	{Name: "cycle_interval", Default: "24h", Desc: "How often the billing cycle runs"},
	{Name: "cycle_timeout", Default: "30m", Desc: "Ceiling for one whole billing cycle"},
	{Name: "payment_window", Default: "72h", Desc: "Invoice lifetime before a non-payer is removed"},
	{Name: "reminder_age", Default: "24h", Desc: "Invoice age that triggers a payment reminder"},
	{Name: "reminder_tolerance", Default: "1h", Desc: "Window around reminder_age"},

	// Notification queue settings
	{Name: "queue_poll_interval", Default: "5s", Desc: "Dispatcher claim poll interval"},
	{Name: "queue_job_timeout", Default: "30s", Desc: "Per-delivery timeout"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SUBPOOL_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SUBPOOL", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// Payment processor
		GatewayBaseURL:   appValues.String("gateway_base_url"),
		GatewaySecretKey: appValues.String("gateway_secret_key"),
		GatewayTimeout:   appValues.Duration("gateway_timeout", 30*time.Second),

		// Push
		PushURL:       appValues.String("push_url"),
		PushServerKey: appValues.String("push_server_key"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		// Base URL
		BaseURL: appValues.String("base_url"),

		// Billing cycle
		Currency:          appValues.String("currency"),
		CycleInterval:     appValues.Duration("cycle_interval", 24*time.Hour),
		CycleTimeout:      appValues.Duration("cycle_timeout", 30*time.Minute),
		PaymentWindow:     appValues.Duration("payment_window", 72*time.Hour),
		ReminderAge:       appValues.Duration("reminder_age", 24*time.Hour),
		ReminderTolerance: appValues.Duration("reminder_tolerance", time.Hour),

		// Queue
		QueuePollInterval: appValues.Duration("queue_poll_interval", 5*time.Second),
		QueueJobTimeout:   appValues.Duration("queue_job_timeout", 30*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
//
// SubPool validates the MongoDB URI format to catch configuration
// errors early, and refuses to start a production instance without a
// processor secret: a billing service that cannot charge or pay out is
// misconfigured, not degraded.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if coreCfg.Env == "prod" && appCfg.GatewaySecretKey == "" {
		return fmt.Errorf("gateway_secret_key is required in production")
	}

	if appCfg.CycleInterval < time.Minute {
		return fmt.Errorf("cycle_interval %s is too short (minimum 1m)", appCfg.CycleInterval)
	}

	return nil
}
