// internal/app/billing/reminders.go
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

// PaymentReminders nudges members whose invoice went out about a day
// ago and is still unpaid: one reminder to the member, one to the group
// admin, both through the delivery queue.
func (s *Service) PaymentReminders(ctx context.Context) error {
	return s.instrument(JobPaymentReminders, func() error {
		now := s.now()
		from := now.Add(-s.cfg.ReminderAge - s.cfg.ReminderTolerance)
		to := now.Add(-s.cfg.ReminderAge + s.cfg.ReminderTolerance)

		groups, err := s.groups.FindReminderWindow(ctx, from, to)
		if err != nil {
			return fmt.Errorf("payment reminders: find groups: %w", err)
		}
		if len(groups) == 0 {
			return nil
		}
		s.log.Info("billing: reminder sweep", zap.Int("groups", len(groups)))

		results := batch.Run(ctx, groups, batch.DefaultLimit, func(ctx context.Context, g models.Group) error {
			return s.remindGroup(ctx, g, from, to)
		})
		s.recordResults(JobPaymentReminders, results, groupIDs(groups))
		return nil
	})
}

func (s *Service) remindGroup(ctx context.Context, g models.Group, from, to time.Time) error {
	for _, m := range g.Members {
		if !m.PaymentActive || m.LastInvoiceSentAt == nil {
			continue
		}
		sent := *m.LastInvoiceSentAt
		if sent.Before(from) || sent.After(to) {
			continue
		}

		payload := notify.MemberPayload{GroupID: g.ID, UserID: m.UserID}
		if err := s.q.Enqueue(ctx, notify.EventReminder, payload); err != nil {
			return fmt.Errorf("enqueue reminder for %s: %w", m.UserID.Hex(), err)
		}
		if err := s.q.Enqueue(ctx, notify.EventAdminReminder, payload); err != nil {
			return fmt.Errorf("enqueue admin reminder for %s: %w", m.UserID.Hex(), err)
		}
	}
	return nil
}
