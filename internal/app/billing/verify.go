// internal/app/billing/verify.go
package billing

import (
	"context"
	"fmt"

	"github.com/subpoolhq/subpool/internal/app/gateway"
	"github.com/subpoolhq/subpool/internal/app/notify"
	"github.com/subpoolhq/subpool/internal/app/system/batch"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"go.uber.org/zap"
)

// VerifyDisbursements reconciles every pending payout against the
// gateway. A successful transfer settles all payments in its batch and
// notifies the admin once per disbursement; a failed transfer returns
// the whole batch to the payout pool with no notification — the
// reverted counter is the monitoring signal for that path.
func (s *Service) VerifyDisbursements(ctx context.Context) error {
	return s.instrument(JobVerifyDisbursement, func() error {
		pending, err := s.payments.FindDisbursePending(ctx)
		if err != nil {
			return fmt.Errorf("verify disbursements: find pending payments: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		batches := groupByDisbursement(pending)
		ids := make([]string, 0, len(batches))
		for id := range batches {
			ids = append(ids, id)
		}
		s.log.Info("billing: verifying disbursements",
			zap.Int("transfers", len(ids)),
			zap.Int("payments", len(pending)))

		results := batch.Run(ctx, ids, batch.DefaultLimit, func(ctx context.Context, id string) error {
			return s.verifyOne(ctx, id, batches[id])
		})
		s.recordResults(JobVerifyDisbursement, results, ids)
		return nil
	})
}

func groupByDisbursement(pending []models.Payment) map[string][]models.Payment {
	out := make(map[string][]models.Payment)
	for _, p := range pending {
		if p.DisbursementID == "" {
			continue // pending without an id should not exist; skip defensively
		}
		out[p.DisbursementID] = append(out[p.DisbursementID], p)
	}
	return out
}

func (s *Service) verifyOne(ctx context.Context, disbursementID string, payments []models.Payment) error {
	st := s.gw.FetchTransferStatus(ctx, disbursementID)
	if !st.OK {
		// Gateway unavailable: leave the batch pending, try next cycle.
		s.log.Warn("billing: transfer status unavailable",
			zap.String("disbursement_id", disbursementID),
			zap.String("message", st.Message))
		return nil
	}

	switch st.Status {
	case gateway.TransferSuccessful:
		n, err := s.payments.SettleDisbursement(ctx, disbursementID)
		if err != nil {
			return fmt.Errorf("settle disbursement %s: %w", disbursementID, err)
		}
		s.met.DisbursementsSettled.Inc()

		var total int64
		for _, p := range payments {
			total += p.Net()
		}
		s.log.Info("billing: disbursement settled",
			zap.String("disbursement_id", disbursementID),
			zap.Int64("payments", n),
			zap.Int64("amount", total))

		// One aggregate notification per transfer, not per payment.
		return s.q.Enqueue(ctx, notify.EventPayout, notify.PayoutPayload{
			GroupID:        payments[0].GroupID,
			Amount:         total,
			Currency:       s.cfg.Currency,
			DisbursementID: disbursementID,
		})

	case gateway.TransferFailed:
		n, err := s.payments.RevertDisbursement(ctx, disbursementID)
		if err != nil {
			return fmt.Errorf("revert disbursement %s: %w", disbursementID, err)
		}
		s.met.DisbursementsReverted.Inc()
		s.log.Warn("billing: disbursement failed, returned to pool",
			zap.String("disbursement_id", disbursementID),
			zap.Int64("payments", n))
		return nil

	default:
		// Still in flight at the gateway; check again next cycle.
		return nil
	}
}
