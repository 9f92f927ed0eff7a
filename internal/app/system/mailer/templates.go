// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// strict strips any markup from user-supplied strings (names, group
// names) before they reach an email body.
var strict = bluemonday.StrictPolicy()

func clean(s string) string { return strict.Sanitize(s) }

// FormatAmount renders minor units for display, e.g. 190000/"NGN" ->
// "NGN 1900".
func FormatAmount(minor int64, currency string) string {
	return currency + " " + decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)).String()
}

// InvoiceEmailData holds data for the per-member invoice email.
type InvoiceEmailData struct {
	MemberName  string
	GroupName   string
	Amount      string // pre-formatted, e.g. "NGN 1050"
	PaymentLink string
	DueInHours  int
}

// BuildInvoiceEmail creates the invoice email with the hosted checkout link.
func BuildInvoiceEmail(to string, data InvoiceEmailData) Email {
	data.MemberName = clean(data.MemberName)
	data.GroupName = clean(data.GroupName)
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Your %s subscription share is due", data.GroupName),
		TextBody: buildInvoiceText(data),
		HTMLBody: mustRender(invoiceHTMLTemplate, data),
	}
}

func buildInvoiceText(data InvoiceEmailData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.MemberName)
	fmt.Fprintf(&buf, "Your share of the %s subscription is due: %s.\n\n", data.GroupName, data.Amount)
	fmt.Fprintf(&buf, "Pay here:\n%s\n\n", data.PaymentLink)
	fmt.Fprintf(&buf, "Please pay within %d hours to keep your spot in the group.\n", data.DueInHours)
	return buf.String()
}

// RemovalEmailData holds data for the member-removed emails.
type RemovalEmailData struct {
	MemberName string
	GroupName  string
	AdminName  string
}

// BuildMemberRemovedEmail tells an evicted member they lost their spot.
func BuildMemberRemovedEmail(to string, data RemovalEmailData) Email {
	data.MemberName = clean(data.MemberName)
	data.GroupName = clean(data.GroupName)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.MemberName)
	fmt.Fprintf(&buf, "You've been removed from the group %q because your subscription share was not paid in time.\n\n", data.GroupName)
	buf.WriteString("You can rejoin a group at any time from the app.\n")
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("You've been removed from %s", data.GroupName),
		TextBody: buf.String(),
		HTMLBody: mustRender(memberRemovedHTMLTemplate, data),
	}
}

// BuildAdminMemberRemovedEmail tells the group admin a member was evicted.
func BuildAdminMemberRemovedEmail(to string, data RemovalEmailData) Email {
	data.MemberName = clean(data.MemberName)
	data.GroupName = clean(data.GroupName)
	data.AdminName = clean(data.AdminName)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.AdminName)
	fmt.Fprintf(&buf, "%s was removed from your group %q for non-payment.\n\n", data.MemberName, data.GroupName)
	buf.WriteString("Their spot is now open for a new member.\n")
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("A member was removed from %s", data.GroupName),
		TextBody: buf.String(),
	}
}

// ReminderEmailData holds data for the payment reminder emails.
type ReminderEmailData struct {
	Name      string
	Member    string // admin variant: which member is being chased
	GroupName string
	Amount    string
	HoursLeft int
}

// BuildReminderEmail nudges a member whose invoice is about to lapse.
func BuildReminderEmail(to string, data ReminderEmailData) Email {
	data.Name = clean(data.Name)
	data.GroupName = clean(data.GroupName)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.Name)
	fmt.Fprintf(&buf, "Friendly reminder: your %s share of %s is still unpaid.\n\n", data.GroupName, data.Amount)
	fmt.Fprintf(&buf, "You have about %d hours left before you lose your spot in the group.\n", data.HoursLeft)
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Reminder: your %s payment is due soon", data.GroupName),
		TextBody: buf.String(),
		HTMLBody: mustRender(reminderHTMLTemplate, data),
	}
}

// BuildAdminReminderEmail mirrors the reminder to the group admin.
func BuildAdminReminderEmail(to string, data ReminderEmailData) Email {
	data.Name = clean(data.Name)
	data.Member = clean(data.Member)
	data.GroupName = clean(data.GroupName)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.Name)
	fmt.Fprintf(&buf, "%s has not yet paid their %s share for your group %q.\n", data.Member, data.Amount, data.GroupName)
	fmt.Fprintf(&buf, "They have about %d hours left before they are removed.\n", data.HoursLeft)
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("%s: a member's payment is overdue", data.GroupName),
		TextBody: buf.String(),
	}
}

// BankMissingEmailData holds data for the missing-payout-account email.
type BankMissingEmailData struct {
	AdminName string
	GroupName string
	Amount    string
}

// BuildBankMissingEmail asks the admin to add bank details so their
// payout can go through.
func BuildBankMissingEmail(to string, data BankMissingEmailData) Email {
	data.AdminName = clean(data.AdminName)
	data.GroupName = clean(data.GroupName)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.AdminName)
	fmt.Fprintf(&buf, "We have %s waiting to be paid out for your group %q, but there is no bank account on your profile.\n\n", data.Amount, data.GroupName)
	buf.WriteString("Add your bank details in the app and the payout will go out on the next cycle.\n")
	return Email{
		To:       to,
		Subject:  "Add your bank details to receive your payout",
		TextBody: buf.String(),
	}
}

// PayoutEmailData holds data for the disbursement-completed email.
type PayoutEmailData struct {
	AdminName string
	GroupName string
	Amount    string
	BankName  string
}

// BuildPayoutEmail confirms a completed disbursement, once per transfer
// batch.
func BuildPayoutEmail(to string, data PayoutEmailData) Email {
	data.AdminName = clean(data.AdminName)
	data.GroupName = clean(data.GroupName)
	data.BankName = clean(data.BankName)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.AdminName)
	fmt.Fprintf(&buf, "We've sent %s to your %s account — the collected shares for your group %q.\n\n", data.Amount, data.BankName, data.GroupName)
	buf.WriteString("It can take a little while to reflect depending on your bank.\n")
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Your %s payout of %s is on its way", data.GroupName, data.Amount),
		TextBody: buf.String(),
		HTMLBody: mustRender(payoutHTMLTemplate, data),
	}
}

func mustRender(tmpl string, data any) string {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

const emailShellTop = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;background-color:#f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr><td align="center" style="padding:40px 20px;">
      <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width:480px;background:#ffffff;border-radius:8px;">
        <tr><td style="padding:28px 32px;border-bottom:1px solid #e5e7eb;text-align:center;">
          <h1 style="margin:0;font-size:22px;font-weight:600;color:#4f46e5;">subpool</h1>
        </td></tr>
        <tr><td style="padding:32px;font-size:15px;color:#374151;line-height:1.6;">`

const emailShellBottom = `</td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

const invoiceHTMLTemplate = emailShellTop + `
<p>Hi {{.MemberName}},</p>
<p>Your share of the <strong>{{.GroupName}}</strong> subscription is due: <strong>{{.Amount}}</strong>.</p>
<p style="text-align:center;margin:28px 0;">
  <a href="{{.PaymentLink}}" style="background:#4f46e5;color:#ffffff;padding:12px 28px;border-radius:6px;text-decoration:none;font-weight:600;">Pay now</a>
</p>
<p style="font-size:13px;color:#6b7280;">Please pay within {{.DueInHours}} hours to keep your spot in the group.</p>
` + emailShellBottom

const memberRemovedHTMLTemplate = emailShellTop + `
<p>Hi {{.MemberName}},</p>
<p>You've been removed from the group <strong>{{.GroupName}}</strong> because your subscription share was not paid in time.</p>
<p>You can rejoin a group at any time from the app.</p>
` + emailShellBottom

const reminderHTMLTemplate = emailShellTop + `
<p>Hi {{.Name}},</p>
<p>Friendly reminder: your <strong>{{.GroupName}}</strong> share of <strong>{{.Amount}}</strong> is still unpaid.</p>
<p>You have about {{.HoursLeft}} hours left before you lose your spot in the group.</p>
` + emailShellBottom

const payoutHTMLTemplate = emailShellTop + `
<p>Hi {{.AdminName}},</p>
<p>We've sent <strong>{{.Amount}}</strong> to your {{.BankName}} account — the collected shares for your group <strong>{{.GroupName}}</strong>.</p>
<p style="font-size:13px;color:#6b7280;">It can take a little while to reflect depending on your bank.</p>
` + emailShellBottom
