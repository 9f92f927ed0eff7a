// internal/app/features/jobs/routes.go
package jobs

import (
	"github.com/go-chi/chi/v5"

	"github.com/subpoolhq/subpool/internal/app/billing"
)

// Routes returns a subrouter with one trigger per billing job.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	// mounted under /jobs
	r.Get("/"+billing.JobRecurringInvoices, h.trigger(billing.JobRecurringInvoices))
	r.Get("/"+billing.JobCheckPayments, h.trigger(billing.JobCheckPayments))
	r.Get("/"+billing.JobPaymentReminders, h.trigger(billing.JobPaymentReminders))
	r.Get("/"+billing.JobDisburse, h.trigger(billing.JobDisburse))
	r.Get("/"+billing.JobVerifyDisbursement, h.trigger(billing.JobVerifyDisbursement))
	return r
}
