// internal/app/notify/handlers.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/subpoolhq/subpool/internal/app/gateway"
	"github.com/subpoolhq/subpool/internal/app/queue"
	"github.com/subpoolhq/subpool/internal/app/system/mailer"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Store dependencies, narrowed to what delivery needs. The concrete
// stores under internal/app/store satisfy these.
type (
	UserDirectory interface {
		GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	}
	GroupLedger interface {
		GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
		SetMemberInvoiceSent(ctx context.Context, groupID, userID primitive.ObjectID, at time.Time) error
	}
	PaymentLedger interface {
		Create(ctx context.Context, p models.Payment) (models.Payment, error)
	}
	CheckoutCreator interface {
		CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) gateway.CheckoutResult
	}
	Pusher interface {
		Enabled() bool
		Send(ctx context.Context, deviceToken, title, body string) bool
	}
)

// Config carries the billing knobs delivery needs to render emails.
type Config struct {
	Currency           string // e.g. "NGN"
	RedirectURL        string // where the hosted checkout returns the payer
	PaymentWindowHours int    // invoice lifetime, e.g. 72
}

// Handlers owns delivery of every notification event.
type Handlers struct {
	users    UserDirectory
	groups   GroupLedger
	payments PaymentLedger
	checkout CheckoutCreator
	mail     mailer.Sender
	push     Pusher
	cfg      Config
	log      *zap.Logger
}

func NewHandlers(users UserDirectory, groups GroupLedger, payments PaymentLedger,
	checkout CheckoutCreator, mail mailer.Sender, push Pusher, cfg Config, logger *zap.Logger) *Handlers {
	if cfg.PaymentWindowHours <= 0 {
		cfg.PaymentWindowHours = 72
	}
	return &Handlers{
		users:    users,
		groups:   groups,
		payments: payments,
		checkout: checkout,
		mail:     mail,
		push:     push,
		cfg:      cfg,
		log:      logger,
	}
}

// Register binds every event to its handler on the dispatcher.
func (h *Handlers) Register(d *queue.Dispatcher) {
	d.Register(EventInvoice, h.Invoice)
	d.Register(EventMemberRemoved, h.MemberRemoved)
	d.Register(EventAdminMemberRemoved, h.AdminMemberRemoved)
	d.Register(EventReminder, h.Reminder)
	d.Register(EventAdminReminder, h.AdminReminder)
	d.Register(EventBankMissing, h.BankMissing)
	d.Register(EventPayout, h.Payout)
}

// MemberShare is what one member owes per cycle: an equal split of the
// subscription cost plus the platform handling fee.
func MemberShare(g models.Group) (amount, fee int64) {
	n := int64(g.NumberOfMembers)
	if n <= 0 {
		n = 1
	}
	return g.SubscriptionCost/n + g.HandlingFee, g.HandlingFee
}

// Invoice generates one member's payment request: a pending payment row
// with a fresh checkout reference, an invoice email carrying the hosted
// payment link, and the member's payment_active flag.
func (h *Handlers) Invoice(ctx context.Context, payload bson.Raw) error {
	var p MemberPayload
	if err := bson.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invoice: decode payload: %w", err)
	}

	group, err := h.groups.GetByID(ctx, p.GroupID)
	if err != nil {
		return fmt.Errorf("invoice: load group %s: %w", p.GroupID.Hex(), err)
	}
	member, ok := findMember(group, p.UserID)
	if !ok {
		// Member left or was evicted between enqueue and delivery.
		h.log.Info("invoice: member no longer in group, skipping",
			zap.String("group_id", p.GroupID.Hex()),
			zap.String("user_id", p.UserID.Hex()))
		return nil
	}
	if member.PaymentActive {
		// Redelivered job: this cycle's invoice already went out.
		return nil
	}

	user, err := h.users.GetByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("invoice: load user %s: %w", p.UserID.Hex(), err)
	}

	amount, fee := MemberShare(group)
	reference := uuid.NewString()

	res := h.checkout.CreateCheckout(ctx, gateway.CheckoutRequest{
		Reference:   reference,
		Amount:      amount,
		Currency:    h.cfg.Currency,
		Email:       user.Email,
		FullName:    user.FullName,
		RedirectURL: h.cfg.RedirectURL,
	})
	if !res.OK {
		return fmt.Errorf("invoice: checkout for %s: %s", reference, res.Message)
	}

	if _, err := h.payments.Create(ctx, models.Payment{
		Reference: reference,
		UserID:    p.UserID,
		GroupID:   p.GroupID,
		Amount:    amount,
		Fee:       fee,
		Currency:  h.cfg.Currency,
	}); err != nil {
		return fmt.Errorf("invoice: create payment %s: %w", reference, err)
	}

	email := mailer.BuildInvoiceEmail(user.Email, mailer.InvoiceEmailData{
		MemberName:  user.FullName,
		GroupName:   group.GroupName,
		Amount:      mailer.FormatAmount(amount, h.cfg.Currency),
		PaymentLink: res.PaymentLink,
		DueInHours:  h.cfg.PaymentWindowHours,
	})
	if err := h.mail.Send(email); err != nil {
		return err
	}

	if err := h.groups.SetMemberInvoiceSent(ctx, p.GroupID, p.UserID, time.Now().UTC()); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil // member vanished mid-flight; nothing to mark
		}
		return fmt.Errorf("invoice: mark member invoiced: %w", err)
	}
	return nil
}

// MemberRemoved tells an evicted member they lost their spot, by email
// and, when a device token is on file, by push.
func (h *Handlers) MemberRemoved(ctx context.Context, payload bson.Raw) error {
	var p MemberPayload
	if err := bson.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("member removed: decode payload: %w", err)
	}

	group, err := h.groups.GetByID(ctx, p.GroupID)
	if err != nil {
		return fmt.Errorf("member removed: load group: %w", err)
	}
	user, err := h.users.GetByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("member removed: load user: %w", err)
	}

	email := mailer.BuildMemberRemovedEmail(user.Email, mailer.RemovalEmailData{
		MemberName: user.FullName,
		GroupName:  group.GroupName,
	})
	if err := h.mail.Send(email); err != nil {
		return err
	}

	if h.push.Enabled() && user.DeviceToken != "" {
		h.push.Send(ctx, user.DeviceToken,
			"Removed from "+group.GroupName,
			"Your subscription share was not paid in time.")
	}
	return nil
}

// AdminMemberRemoved tells the group admin one of their members was
// evicted for non-payment.
func (h *Handlers) AdminMemberRemoved(ctx context.Context, payload bson.Raw) error {
	var p MemberPayload
	if err := bson.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("admin member removed: decode payload: %w", err)
	}

	group, err := h.groups.GetByID(ctx, p.GroupID)
	if err != nil {
		return fmt.Errorf("admin member removed: load group: %w", err)
	}
	admin, err := h.users.GetByID(ctx, group.AdminID)
	if err != nil {
		return fmt.Errorf("admin member removed: load admin: %w", err)
	}
	member, err := h.users.GetByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("admin member removed: load member: %w", err)
	}

	return h.mail.Send(mailer.BuildAdminMemberRemovedEmail(admin.Email, mailer.RemovalEmailData{
		MemberName: member.FullName,
		GroupName:  group.GroupName,
		AdminName:  admin.FullName,
	}))
}

// Reminder nudges a member whose invoice is a day old and still unpaid.
func (h *Handlers) Reminder(ctx context.Context, payload bson.Raw) error {
	var p MemberPayload
	if err := bson.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("reminder: decode payload: %w", err)
	}

	group, err := h.groups.GetByID(ctx, p.GroupID)
	if err != nil {
		return fmt.Errorf("reminder: load group: %w", err)
	}
	member, ok := findMember(group, p.UserID)
	if !ok || !member.PaymentActive {
		return nil // paid or evicted since enqueue
	}
	user, err := h.users.GetByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("reminder: load user: %w", err)
	}

	amount, _ := MemberShare(group)
	return h.mail.Send(mailer.BuildReminderEmail(user.Email, mailer.ReminderEmailData{
		Name:      user.FullName,
		GroupName: group.GroupName,
		Amount:    mailer.FormatAmount(amount, h.cfg.Currency),
		HoursLeft: h.hoursLeft(member),
	}))
}

// AdminReminder mirrors the reminder to the group admin.
func (h *Handlers) AdminReminder(ctx context.Context, payload bson.Raw) error {
	var p MemberPayload
	if err := bson.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("admin reminder: decode payload: %w", err)
	}

	group, err := h.groups.GetByID(ctx, p.GroupID)
	if err != nil {
		return fmt.Errorf("admin reminder: load group: %w", err)
	}
	member, ok := findMember(group, p.UserID)
	if !ok || !member.PaymentActive {
		return nil
	}
	admin, err := h.users.GetByID(ctx, group.AdminID)
	if err != nil {
		return fmt.Errorf("admin reminder: load admin: %w", err)
	}
	memberUser, err := h.users.GetByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("admin reminder: load member: %w", err)
	}

	amount, _ := MemberShare(group)
	return h.mail.Send(mailer.BuildAdminReminderEmail(admin.Email, mailer.ReminderEmailData{
		Name:      admin.FullName,
		Member:    memberUser.FullName,
		GroupName: group.GroupName,
		Amount:    mailer.FormatAmount(amount, h.cfg.Currency),
		HoursLeft: h.hoursLeft(member),
	}))
}

// BankMissing asks a group admin to configure a payout account.
func (h *Handlers) BankMissing(ctx context.Context, payload bson.Raw) error {
	var p PayoutPayload
	if err := bson.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("bank missing: decode payload: %w", err)
	}

	group, err := h.groups.GetByID(ctx, p.GroupID)
	if err != nil {
		return fmt.Errorf("bank missing: load group: %w", err)
	}
	admin, err := h.users.GetByID(ctx, group.AdminID)
	if err != nil {
		return fmt.Errorf("bank missing: load admin: %w", err)
	}

	return h.mail.Send(mailer.BuildBankMissingEmail(admin.Email, mailer.BankMissingEmailData{
		AdminName: admin.FullName,
		GroupName: group.GroupName,
		Amount:    mailer.FormatAmount(p.Amount, p.Currency),
	}))
}

// Payout confirms one settled disbursement to the group admin — one
// email per transfer batch, not per payment.
func (h *Handlers) Payout(ctx context.Context, payload bson.Raw) error {
	var p PayoutPayload
	if err := bson.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("payout: decode payload: %w", err)
	}

	group, err := h.groups.GetByID(ctx, p.GroupID)
	if err != nil {
		return fmt.Errorf("payout: load group: %w", err)
	}
	admin, err := h.users.GetByID(ctx, group.AdminID)
	if err != nil {
		return fmt.Errorf("payout: load admin: %w", err)
	}

	email := mailer.BuildPayoutEmail(admin.Email, mailer.PayoutEmailData{
		AdminName: admin.FullName,
		GroupName: group.GroupName,
		Amount:    mailer.FormatAmount(p.Amount, p.Currency),
	})
	if err := h.mail.Send(email); err != nil {
		return err
	}

	if h.push.Enabled() && admin.DeviceToken != "" {
		h.push.Send(ctx, admin.DeviceToken,
			"Payout sent",
			fmt.Sprintf("%s for %s is on its way to your bank.",
				mailer.FormatAmount(p.Amount, p.Currency), group.GroupName))
	}
	return nil
}

func (h *Handlers) hoursLeft(m models.Member) int {
	if m.LastInvoiceSentAt == nil {
		return h.cfg.PaymentWindowHours
	}
	deadline := m.LastInvoiceSentAt.Add(time.Duration(h.cfg.PaymentWindowHours) * time.Hour)
	left := int(time.Until(deadline).Hours())
	if left < 0 {
		return 0
	}
	return left
}

func findMember(g models.Group, userID primitive.ObjectID) (models.Member, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return models.Member{}, false
}
