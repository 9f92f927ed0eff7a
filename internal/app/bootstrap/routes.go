// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	healthfeature "github.com/subpoolhq/subpool/internal/app/features/health"
	jobsfeature "github.com/subpoolhq/subpool/internal/app/features/jobs"
	paymentsfeature "github.com/subpoolhq/subpool/internal/app/features/payments"
	"github.com/subpoolhq/subpool/internal/app/system/ratelimit"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// SubPool's HTTP surface is operational: a health check, Prometheus
// metrics, manual billing job triggers, and the payment verification
// callback the hosted checkout redirects to.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus metrics for the jobs, queue, and disbursement counters
	r.Handle("/metrics", promhttp.HandlerFor(svcs.registry, promhttp.HandlerOpts{}))

	// Manual triggers for the billing jobs, rate limited per client IP
	jobsHandler := jobsfeature.NewHandler(svcs.runner, logger)
	jobsLimiter := ratelimit.New(10, time.Minute)
	r.With(jobsLimiter.Middleware).Mount("/jobs", jobsfeature.Routes(jobsHandler))

	// Checkout return leg
	paymentsHandler := paymentsfeature.NewHandler(svcs.gateway, svcs.payments, svcs.groups, logger)
	r.Mount("/payments", paymentsfeature.Routes(paymentsHandler))

	return r, nil
}
