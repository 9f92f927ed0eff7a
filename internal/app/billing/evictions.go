// internal/app/billing/evictions.go
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/subpoolhq/subpool/internal/app/notify"
	"github.com/subpoolhq/subpool/internal/app/system/batch"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CheckMemberPayments evicts members whose payment window elapsed
// without a successful payment. Each removed member triggers two
// notifications: one to the member, one to the group admin.
func (s *Service) CheckMemberPayments(ctx context.Context) error {
	return s.instrument(JobCheckPayments, func() error {
		cutoff := s.now().Add(-s.cfg.PaymentWindow)
		groups, err := s.groups.FindWithLapsedMembers(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("check member payments: find lapsed groups: %w", err)
		}
		if len(groups) == 0 {
			return nil
		}
		s.log.Info("billing: member payment sweep", zap.Int("groups", len(groups)))

		results := batch.Run(ctx, groups, batch.DefaultLimit, func(ctx context.Context, g models.Group) error {
			return s.evictNonPayers(ctx, g, cutoff)
		})
		s.recordResults(JobCheckPayments, results, groupIDs(groups))
		return nil
	})
}

// lapsedMembers picks the members whose invoice went out at or before
// cutoff and is still unpaid. The group admin is never evicted from
// their own group: the admin holds the upstream subscription, so the
// group cannot exist without them.
func lapsedMembers(g models.Group, cutoff time.Time) []primitive.ObjectID {
	var out []primitive.ObjectID
	for _, m := range g.Members {
		if m.UserID == g.AdminID {
			continue
		}
		if m.PaymentActive && m.LastInvoiceSentAt != nil && !m.LastInvoiceSentAt.After(cutoff) {
			out = append(out, m.UserID)
		}
	}
	return out
}

func (s *Service) evictNonPayers(ctx context.Context, g models.Group, cutoff time.Time) error {
	lapsed := lapsedMembers(g, cutoff)
	if len(lapsed) == 0 {
		return nil
	}

	if err := s.groups.RemoveMembers(ctx, g.ID, g.Version, lapsed); err != nil {
		return fmt.Errorf("remove members: %w", err)
	}
	s.log.Info("billing: evicted non-paying members",
		zap.String("group_id", g.ID.Hex()),
		zap.Int("count", len(lapsed)))

	for _, userID := range lapsed {
		payload := notify.MemberPayload{GroupID: g.ID, UserID: userID}
		if err := s.q.Enqueue(ctx, notify.EventMemberRemoved, payload); err != nil {
			return fmt.Errorf("enqueue member removed for %s: %w", userID.Hex(), err)
		}
		if err := s.q.Enqueue(ctx, notify.EventAdminMemberRemoved, payload); err != nil {
			return fmt.Errorf("enqueue admin notice for %s: %w", userID.Hex(), err)
		}
	}
	return nil
}
