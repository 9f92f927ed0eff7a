// internal/app/billing/service.go

// Package billing is the recurring billing and disbursement
// orchestrator: five batch jobs that generate invoices, evict
// non-payers, send reminders, push payouts to group admins, and
// reconcile payout status against the payment gateway.
//
// Each job reads its working set from the ledger stores, fans out over
// it with bounded concurrency, and hands every outbound notification to
// the delivery queue. A job returns an error only when it cannot even
// enumerate its working set; per-item failures are logged with the
// item's identity, counted, and left for the next cycle.
package billing

import (
	"context"
	"time"

	"github.com/subpoolhq/subpool/internal/app/gateway"
	"github.com/subpoolhq/subpool/internal/app/queue"
	"github.com/subpoolhq/subpool/internal/app/system/batch"
	"github.com/subpoolhq/subpool/internal/app/system/metrics"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Job names, shared by the trigger endpoints and the scheduler.
const (
	JobRecurringInvoices  = "recurring-invoices"
	JobCheckPayments      = "check-members-payments"
	JobPaymentReminders   = "inactive-members-reminder"
	JobDisburse           = "group-creator-disbursements"
	JobVerifyDisbursement = "verify-disbursements"
)

// Ledger dependencies. The concrete Mongo stores satisfy these; tests
// run the jobs against in-memory fakes.
type (
	GroupLedger interface {
		FindDueForBilling(ctx context.Context, now time.Time) ([]models.Group, error)
		FindWithLapsedMembers(ctx context.Context, cutoff time.Time) ([]models.Group, error)
		FindReminderWindow(ctx context.Context, from, to time.Time) ([]models.Group, error)
		FindDisbursable(ctx context.Context) ([]models.Group, error)
		MarkActivated(ctx context.Context, id primitive.ObjectID) error
		AdvanceNextSubscription(ctx context.Context, id primitive.ObjectID, version int64, next time.Time) error
		RemoveMembers(ctx context.Context, id primitive.ObjectID, version int64, userIDs []primitive.ObjectID) error
	}

	PaymentLedger interface {
		FindSuccessfulUndisbursed(ctx context.Context, groupID primitive.ObjectID) ([]models.Payment, error)
		FindDisbursePending(ctx context.Context) ([]models.Payment, error)
		MarkDisbursePending(ctx context.Context, id primitive.ObjectID, disbursementID string) error
		SettleDisbursement(ctx context.Context, disbursementID string) (int64, error)
		RevertDisbursement(ctx context.Context, disbursementID string) (int64, error)
	}

	BankLedger interface {
		GetByUserID(ctx context.Context, userID primitive.ObjectID) (models.BankDetails, error)
	}

	Gateway interface {
		InitiateTransfer(ctx context.Context, req gateway.TransferRequest) gateway.TransferResult
		FetchTransferStatus(ctx context.Context, transferID string) gateway.TransferStatusResult
		ResolveBankCode(ctx context.Context, bankName string) (string, error)
	}
)

// Config holds the billing cycle knobs.
type Config struct {
	Currency          string        // e.g. "NGN"
	CycleDays         int           // billing period, 30
	PaymentWindow     time.Duration // invoice lifetime before eviction, 72h
	ReminderAge       time.Duration // invoice age that triggers a reminder, 24h
	ReminderTolerance time.Duration // window around ReminderAge, 1h
}

func (c *Config) applyDefaults() {
	if c.Currency == "" {
		c.Currency = "NGN"
	}
	if c.CycleDays <= 0 {
		c.CycleDays = 30
	}
	if c.PaymentWindow <= 0 {
		c.PaymentWindow = 72 * time.Hour
	}
	if c.ReminderAge <= 0 {
		c.ReminderAge = 24 * time.Hour
	}
	if c.ReminderTolerance <= 0 {
		c.ReminderTolerance = time.Hour
	}
}

// Service runs the five billing jobs.
type Service struct {
	groups   GroupLedger
	payments PaymentLedger
	banks    BankLedger
	gw       Gateway
	q        queue.Enqueuer
	met      *metrics.Billing
	log      *zap.Logger
	cfg      Config
	now      func() time.Time
}

func NewService(groups GroupLedger, payments PaymentLedger, banks BankLedger,
	gw Gateway, q queue.Enqueuer, met *metrics.Billing, cfg Config, logger *zap.Logger) *Service {
	cfg.applyDefaults()
	return &Service{
		groups:   groups,
		payments: payments,
		banks:    banks,
		gw:       gw,
		q:        q,
		met:      met,
		log:      logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock substitutes the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// instrument wraps one job invocation with run/error/duration metrics.
func (s *Service) instrument(job string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.met.JobRuns.WithLabelValues(job).Inc()
	s.met.JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	if err != nil {
		s.met.JobErrors.WithLabelValues(job).Inc()
	}
	return err
}

// recordResults logs per-item failures and feeds the item counters.
// Item identity comes from the ids slice, parallel to results.
func (s *Service) recordResults(job string, results []batch.Result, ids []string) {
	s.met.ItemsProcessed.WithLabelValues(job).Add(float64(len(results)))
	for _, r := range batch.Failed(results) {
		s.met.ItemsFailed.WithLabelValues(job).Inc()
		s.log.Error("billing: batch item failed",
			zap.String("job", job),
			zap.String("item", ids[r.Index]),
			zap.Error(r.Err))
	}
}

func groupIDs(groups []models.Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.ID.Hex()
	}
	return out
}
