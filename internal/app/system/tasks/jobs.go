// internal/app/system/tasks/jobs.go
package tasks

import (
	"github.com/subpoolhq/subpool/internal/app/billing"
)

// BillingCycleJobs assembles the five billing jobs in their required
// order: invoices first, then eviction checks, reminders, creator
// disbursements, and finally disbursement verification.
func BillingCycleJobs(svc *billing.Service) []Job {
	return []Job{
		{Name: billing.JobRecurringInvoices, Run: svc.RecurringInvoices},
		{Name: billing.JobCheckPayments, Run: svc.CheckMemberPayments},
		{Name: billing.JobPaymentReminders, Run: svc.PaymentReminders},
		{Name: billing.JobDisburse, Run: svc.DisburseToCreators},
		{Name: billing.JobVerifyDisbursement, Run: svc.VerifyDisbursements},
	}
}
