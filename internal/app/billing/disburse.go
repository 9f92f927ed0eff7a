// internal/app/billing/disburse.go
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/subpoolhq/subpool/internal/app/gateway"
	bankstore "github.com/subpoolhq/subpool/internal/app/store/bankdetails"
	"github.com/subpoolhq/subpool/internal/app/notify"
	"github.com/subpoolhq/subpool/internal/app/system/batch"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DisburseToCreators pays each group admin the collected member shares:
// the sum of amount minus fee across the group's successful, not yet
// disbursed payments, sent as one bank transfer. A missing payout
// account is a normal outcome — the admin is notified and the group is
// skipped without error. Gateway rejections leave the payments in the
// pool for the next cycle.
func (s *Service) DisburseToCreators(ctx context.Context) error {
	return s.instrument(JobDisburse, func() error {
		groups, err := s.groups.FindDisbursable(ctx)
		if err != nil {
			return fmt.Errorf("disburse: find groups: %w", err)
		}
		if len(groups) == 0 {
			return nil
		}
		s.log.Info("billing: disbursement sweep", zap.Int("groups", len(groups)))

		results := batch.Run(ctx, groups, batch.DefaultLimit, s.disburseGroup)
		s.recordResults(JobDisburse, results, groupIDs(groups))
		return nil
	})
}

func (s *Service) disburseGroup(ctx context.Context, g models.Group) error {
	outstanding, err := s.payments.FindSuccessfulUndisbursed(ctx, g.ID)
	if err != nil {
		return fmt.Errorf("load outstanding payments: %w", err)
	}
	if len(outstanding) == 0 {
		// Nothing collected since the last payout: no gateway call.
		return nil
	}

	var total int64
	for _, p := range outstanding {
		total += p.Net()
	}

	bank, err := s.banks.GetByUserID(ctx, g.AdminID)
	if errors.Is(err, bankstore.ErrNotFound) {
		s.log.Info("billing: payout blocked on missing bank details",
			zap.String("group_id", g.ID.Hex()),
			zap.String("admin_id", g.AdminID.Hex()))
		return s.q.Enqueue(ctx, notify.EventBankMissing, notify.PayoutPayload{
			GroupID:  g.ID,
			Amount:   total,
			Currency: s.cfg.Currency,
		})
	}
	if err != nil {
		return fmt.Errorf("load bank details: %w", err)
	}

	bankCode, err := s.gw.ResolveBankCode(ctx, bank.BankName)
	if err != nil {
		return fmt.Errorf("resolve bank code: %w", err)
	}

	reference := uuid.NewString()
	res := s.gw.InitiateTransfer(ctx, gateway.TransferRequest{
		BankCode:      bankCode,
		AccountNumber: bank.AccountNumber,
		Amount:        total,
		Currency:      s.cfg.Currency,
		Reference:     reference,
		Narration:     "subpool payout: " + g.GroupName,
	})
	if !res.OK {
		// "Not yet", never fatal: the payments stay not-disbursed and
		// the next cycle tries again with a fresh reference.
		s.log.Warn("billing: transfer not accepted",
			zap.String("group_id", g.ID.Hex()),
			zap.String("reference", reference),
			zap.String("message", res.Message))
		return nil
	}

	stampResults := batch.Run(ctx, outstanding, batch.NestedLimit, func(ctx context.Context, p models.Payment) error {
		return s.payments.MarkDisbursePending(ctx, p.ID, res.TransferID)
	})
	for _, r := range batch.Failed(stampResults) {
		// The transfer is in flight; an unstamped payment would be
		// double-paid next cycle. Loud log, manual reconciliation.
		s.log.Error("billing: failed to stamp payment with disbursement id",
			zap.String("payment_id", outstanding[r.Index].ID.Hex()),
			zap.String("disbursement_id", res.TransferID),
			zap.Error(r.Err))
	}

	s.met.DisbursementsInitiated.Inc()
	s.log.Info("billing: transfer initiated",
		zap.String("group_id", g.ID.Hex()),
		zap.String("disbursement_id", res.TransferID),
		zap.Int64("amount", total),
		zap.Int("payments", len(outstanding)))
	return nil
}
