// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/subpoolhq/subpool/internal/app/billing"
	"github.com/subpoolhq/subpool/internal/app/gateway"
	"github.com/subpoolhq/subpool/internal/app/notify"
	"github.com/subpoolhq/subpool/internal/app/push"
	"github.com/subpoolhq/subpool/internal/app/queue"
	bankstore "github.com/subpoolhq/subpool/internal/app/store/bankdetails"
	groupstore "github.com/subpoolhq/subpool/internal/app/store/groups"
	jobstore "github.com/subpoolhq/subpool/internal/app/store/jobs"
	paymentstore "github.com/subpoolhq/subpool/internal/app/store/payments"
	userstore "github.com/subpoolhq/subpool/internal/app/store/users"
	"github.com/subpoolhq/subpool/internal/app/system/mailer"
	"github.com/subpoolhq/subpool/internal/app/system/metrics"
	"github.com/subpoolhq/subpool/internal/app/system/tasks"
	"github.com/subpoolhq/subpool/internal/app/system/workers"
)

// services holds everything assembled at startup that the HTTP layer
// and shutdown need. The waffle hook signatures are fixed, so the
// wiring lives in a package-level singleton populated by Startup.
type services struct {
	registry   *prometheus.Registry
	gateway    *gateway.Client
	payments   *paymentstore.Store
	groups     *groupstore.Store
	dispatcher *queue.Dispatcher
	runner     *tasks.Runner
	maint      *workers.QueueMaintenance
}

var svcs services

// Startup assembles the billing pipeline after DB connections and
// schema setup are complete, but before the HTTP handler is built:
// stores, the payment gateway client, delivery backends, the
// notification dispatcher, the billing service, and the cycle runner.
// The dispatcher and runner start here and stop in Shutdown.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	met := metrics.New(registry)

	groups := groupstore.New(db)
	payments := paymentstore.New(db)
	banks := bankstore.New(db)
	users := userstore.New(db)
	jobs := jobstore.New(db)

	gw := gateway.New(gateway.Config{
		BaseURL:   appCfg.GatewayBaseURL,
		SecretKey: appCfg.GatewaySecretKey,
		Timeout:   appCfg.GatewayTimeout,
	}, logger)

	pusher := push.New(push.Config{
		BaseURL:   appCfg.PushURL,
		ServerKey: appCfg.PushServerKey,
	}, logger)

	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)

	q := queue.New(jobs, met, logger)

	dispatcher := queue.NewDispatcher(jobs, met, logger,
		appCfg.QueuePollInterval, appCfg.QueueJobTimeout)
	notify.NewHandlers(users, groups, payments, gw, mail, pusher, notify.Config{
		Currency:           appCfg.Currency,
		RedirectURL:        appCfg.BaseURL + "/payments/verify",
		PaymentWindowHours: int(appCfg.PaymentWindow.Hours()),
	}, logger).Register(dispatcher)

	billingSvc := billing.NewService(groups, payments, banks, gw, q, met, billing.Config{
		Currency:          appCfg.Currency,
		PaymentWindow:     appCfg.PaymentWindow,
		ReminderAge:       appCfg.ReminderAge,
		ReminderTolerance: appCfg.ReminderTolerance,
	}, logger)

	runner := tasks.NewRunner(tasks.BillingCycleJobs(billingSvc), logger,
		appCfg.CycleInterval, appCfg.CycleTimeout)

	maint := workers.NewQueueMaintenance(jobs, logger, time.Minute, 5*time.Minute)

	dispatcher.Start()
	runner.Start()
	maint.Start()

	svcs = services{
		registry:   registry,
		gateway:    gw,
		payments:   payments,
		groups:     groups,
		dispatcher: dispatcher,
		runner:     runner,
		maint:      maint,
	}
	return nil
}
