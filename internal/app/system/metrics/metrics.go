// internal/app/system/metrics/metrics.go

// Package metrics exposes the billing pipeline's Prometheus
// collectors. Silent retry paths (a reverted disbursement, a
// dead-lettered job) have no user-facing signal, so monitoring these
// counters is the only way a human learns about them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Billing holds the per-job and per-item collectors used by the
// orchestrator and the queue. One instance per process, created in
// bootstrap and injected.
type Billing struct {
	JobRuns     *prometheus.CounterVec // job name -> runs
	JobErrors   *prometheus.CounterVec // job name -> top-level failures
	JobDuration *prometheus.HistogramVec

	ItemsProcessed *prometheus.CounterVec // job name -> items settled
	ItemsFailed    *prometheus.CounterVec // job name -> per-item failures

	DisbursementsInitiated prometheus.Counter
	DisbursementsSettled   prometheus.Counter
	DisbursementsReverted  prometheus.Counter

	JobsEnqueued  prometheus.Counter
	JobsDelivered prometheus.Counter
	JobsDead      prometheus.Counter
}

// New registers the collectors on reg and returns them. Pass
// prometheus.DefaultRegisterer in production; a fresh registry in
// tests.
func New(reg prometheus.Registerer) *Billing {
	f := promauto.With(reg)
	return &Billing{
		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subpool_billing_job_runs_total",
			Help: "Completed invocations of each billing job.",
		}, []string{"job"}),
		JobErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subpool_billing_job_errors_total",
			Help: "Billing job invocations that failed at the top-level query.",
		}, []string{"job"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subpool_billing_job_duration_seconds",
			Help:    "Wall time of each billing job invocation.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"job"}),
		ItemsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subpool_billing_items_processed_total",
			Help: "Batch items settled per job, success or failure.",
		}, []string{"job"}),
		ItemsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subpool_billing_items_failed_total",
			Help: "Batch items that settled with an error, per job.",
		}, []string{"job"}),
		DisbursementsInitiated: f.NewCounter(prometheus.CounterOpts{
			Name: "subpool_disbursements_initiated_total",
			Help: "Transfer requests the gateway accepted.",
		}),
		DisbursementsSettled: f.NewCounter(prometheus.CounterOpts{
			Name: "subpool_disbursements_settled_total",
			Help: "Transfer batches confirmed successful.",
		}),
		DisbursementsReverted: f.NewCounter(prometheus.CounterOpts{
			Name: "subpool_disbursements_reverted_total",
			Help: "Transfer batches that failed and returned to the payout pool.",
		}),
		JobsEnqueued: f.NewCounter(prometheus.CounterOpts{
			Name: "subpool_notification_jobs_enqueued_total",
			Help: "Notification jobs persisted to the delivery queue.",
		}),
		JobsDelivered: f.NewCounter(prometheus.CounterOpts{
			Name: "subpool_notification_jobs_delivered_total",
			Help: "Notification jobs whose handler completed.",
		}),
		JobsDead: f.NewCounter(prometheus.CounterOpts{
			Name: "subpool_notification_jobs_dead_total",
			Help: "Notification jobs parked after exhausting retries.",
		}),
	}
}
