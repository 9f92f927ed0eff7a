// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level and format, CORS, and request body limits.
// AppConfig is where everything specific to the subscription pool
// service lives: the ledger database, the payment processor, delivery
// backends, and the billing cycle knobs.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connections in the driver pool
	MongoMinPoolSize uint64 // Min connections kept warm

	// Payment processor configuration
	GatewayBaseURL   string        // Processor API base (e.g., https://api.flutterwave.com/v3)
	GatewaySecretKey string        // Bearer secret for the processor API
	GatewayTimeout   time.Duration // Per-call ceiling for processor requests

	// Push notification configuration (optional; email-only when blank)
	PushURL       string // Push relay endpoint
	PushServerKey string // Server key for the push relay

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@subpool.app)
	MailFromName string // From display name (e.g., SubPool)

	// Base URL the hosted checkout redirects back to
	BaseURL string // e.g., "https://subpool.app" or "http://localhost:3000"

	// Billing configuration
	Currency          string        // ISO currency for invoices and payouts
	CycleInterval     time.Duration // how often the billing cycle runs
	CycleTimeout      time.Duration // ceiling for one whole cycle
	PaymentWindow     time.Duration // invoice lifetime before eviction
	ReminderAge       time.Duration // invoice age that triggers a reminder
	ReminderTolerance time.Duration // window around ReminderAge

	// Notification queue configuration
	QueuePollInterval time.Duration // dispatcher claim poll interval
	QueueJobTimeout   time.Duration // per-delivery ceiling
}
