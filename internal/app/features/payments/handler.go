// internal/app/features/payments/handler.go

// Package payments handles the checkout return leg: the processor
// redirects the payer back with a transaction reference, and the
// handler confirms the charge server-side before settling the ledger.
// The redirect's own status parameter is never trusted.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/subpoolhq/subpool/internal/app/gateway"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Verifier confirms a transaction with the payment processor.
type Verifier interface {
	Verify(ctx context.Context, reference string) gateway.VerifyResult
}

// PaymentLedger is the slice of the payment store the callback needs.
type PaymentLedger interface {
	GetByReference(ctx context.Context, reference string) (models.Payment, error)
	MarkSuccessful(ctx context.Context, reference string) error
}

// GroupLedger clears the payer's outstanding invoice after settlement.
type GroupLedger interface {
	ClearMemberPayment(ctx context.Context, groupID, userID primitive.ObjectID) error
}

// Handler holds dependencies for the payment callback endpoints.
type Handler struct {
	Gateway  Verifier
	Payments PaymentLedger
	Groups   GroupLedger
	Log      *zap.Logger
}

// NewHandler constructs a payments Handler.
func NewHandler(gw Verifier, payments PaymentLedger, groups GroupLedger, logger *zap.Logger) *Handler {
	return &Handler{Gateway: gw, Payments: payments, Groups: groups, Log: logger}
}

type callbackResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(callbackResponse{Code: status, Message: message})
}

// VerifyCallback handles GET /payments/verify?tx_ref=…
//
// The reference is looked up in the ledger, confirmed with the
// processor, and settled if the processor reports the charge
// successful for the expected amount. Repeating the callback for an
// already settled payment succeeds without a second write.
func (h *Handler) VerifyCallback(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("tx_ref")
	if reference == "" {
		writeJSON(w, http.StatusBadRequest, "missing tx_ref")
		return
	}
	ctx := r.Context()

	p, err := h.Payments.GetByReference(ctx, reference)
	if errors.Is(err, mongo.ErrNoDocuments) {
		writeJSON(w, http.StatusNotFound, "unknown payment reference")
		return
	}
	if err != nil {
		h.Log.Error("payments: load by reference failed",
			zap.String("reference", reference), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, "could not load payment")
		return
	}

	if p.Status == models.PaymentSuccessful {
		writeJSON(w, http.StatusOK, "success")
		return
	}

	res := h.Gateway.Verify(ctx, reference)
	if !res.OK {
		h.Log.Warn("payments: processor verify unavailable",
			zap.String("reference", reference), zap.String("message", res.Message))
		writeJSON(w, http.StatusBadGateway, "verification unavailable, try again")
		return
	}
	if !strings.EqualFold(res.Status, "successful") {
		writeJSON(w, http.StatusPaymentRequired, "payment not completed")
		return
	}
	if res.Amount != p.Amount {
		h.Log.Error("payments: verified amount mismatch",
			zap.String("reference", reference),
			zap.Int64("expected", p.Amount),
			zap.Int64("got", res.Amount))
		writeJSON(w, http.StatusConflict, "amount mismatch")
		return
	}

	if err := h.Payments.MarkSuccessful(ctx, reference); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		h.Log.Error("payments: settle failed",
			zap.String("reference", reference), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, "could not settle payment")
		return
	}

	if err := h.Groups.ClearMemberPayment(ctx, p.GroupID, p.UserID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		// The payment is settled; the member flag catches up on the next
		// invoice cycle. Log loudly, do not fail the payer's redirect.
		h.Log.Error("payments: clear member flag failed",
			zap.String("group_id", p.GroupID.Hex()),
			zap.String("user_id", p.UserID.Hex()),
			zap.Error(err))
	}

	h.Log.Info("payments: settled",
		zap.String("reference", reference),
		zap.Int64("amount", p.Amount))
	writeJSON(w, http.StatusOK, "success")
}
