// internal/app/billing/invoices.go
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/subpoolhq/subpool/internal/app/notify"
	"github.com/subpoolhq/subpool/internal/app/system/batch"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"go.uber.org/zap"
)

// RecurringInvoices bills every group whose subscription date has
// arrived: marks the group activated (idempotent), enqueues one invoice
// job per member, and advances the next subscription date by one cycle.
// One group's failure never blocks the others.
func (s *Service) RecurringInvoices(ctx context.Context) error {
	return s.instrument(JobRecurringInvoices, func() error {
		now := s.now()
		groups, err := s.groups.FindDueForBilling(ctx, now)
		if err != nil {
			return fmt.Errorf("recurring invoices: find due groups: %w", err)
		}
		if len(groups) == 0 {
			return nil
		}
		s.log.Info("billing: recurring invoice sweep",
			zap.Int("groups", len(groups)))

		results := batch.Run(ctx, groups, batch.DefaultLimit, s.invoiceGroup)
		s.recordResults(JobRecurringInvoices, results, groupIDs(groups))
		return nil
	})
}

func (s *Service) invoiceGroup(ctx context.Context, g models.Group) error {
	if err := s.groups.MarkActivated(ctx, g.ID); err != nil {
		return fmt.Errorf("activate group: %w", err)
	}

	for _, m := range g.Members {
		payload := notify.MemberPayload{GroupID: g.ID, UserID: m.UserID}
		if err := s.q.Enqueue(ctx, notify.EventInvoice, payload); err != nil {
			return fmt.Errorf("enqueue invoice for member %s: %w", m.UserID.Hex(), err)
		}
	}

	next := g.NextSubscriptionDate.Add(time.Duration(s.cfg.CycleDays) * 24 * time.Hour)
	if err := s.groups.AdvanceNextSubscription(ctx, g.ID, g.Version, next); err != nil {
		return fmt.Errorf("advance subscription date: %w", err)
	}
	return nil
}
