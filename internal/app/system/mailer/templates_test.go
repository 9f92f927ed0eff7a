// internal/app/system/mailer/templates_test.go
package mailer

import (
	"strings"
	"testing"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{190000, "NGN", "NGN 1900"},
		{105050, "NGN", "NGN 1050.5"},
		{1, "NGN", "NGN 0.01"},
		{0, "USD", "USD 0"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.minor, tc.currency); got != tc.want {
			t.Errorf("FormatAmount(%d, %q) = %q, want %q", tc.minor, tc.currency, got, tc.want)
		}
	}
}

func TestBuildInvoiceEmail(t *testing.T) {
	e := BuildInvoiceEmail("member@example.com", InvoiceEmailData{
		MemberName:  "Ada",
		GroupName:   "Netflix Crew",
		Amount:      "NGN 1050",
		PaymentLink: "https://pay.example.com/abc",
		DueInHours:  72,
	})

	if e.To != "member@example.com" {
		t.Errorf("To = %q", e.To)
	}
	if !strings.Contains(e.Subject, "Netflix Crew") {
		t.Errorf("subject missing group name: %q", e.Subject)
	}
	if !strings.Contains(e.TextBody, "https://pay.example.com/abc") {
		t.Error("text body missing payment link")
	}
	if !strings.Contains(e.TextBody, "72 hours") {
		t.Error("text body missing payment window")
	}
	if !strings.Contains(e.HTMLBody, `href="https://pay.example.com/abc"`) {
		t.Error("html body missing payment link")
	}
}

func TestBuildInvoiceEmailSanitizesNames(t *testing.T) {
	e := BuildInvoiceEmail("m@example.com", InvoiceEmailData{
		MemberName: `<script>alert(1)</script>Ada`,
		GroupName:  `<b>Crew</b>`,
		Amount:     "NGN 1050",
	})

	if strings.Contains(e.HTMLBody, "<script>") {
		t.Error("script tag survived sanitization")
	}
	if !strings.Contains(e.HTMLBody, "Ada") {
		t.Error("member name stripped entirely")
	}
	if strings.Contains(e.Subject, "<b>") {
		t.Errorf("markup in subject: %q", e.Subject)
	}
}

func TestBuildReminderEmails(t *testing.T) {
	member := BuildReminderEmail("m@example.com", ReminderEmailData{
		Name:      "Ada",
		GroupName: "Crew",
		Amount:    "NGN 1050",
		HoursLeft: 48,
	})
	if !strings.Contains(member.TextBody, "48 hours") {
		t.Error("member reminder missing hours left")
	}
	if member.HTMLBody == "" {
		t.Error("member reminder has no html body")
	}

	admin := BuildAdminReminderEmail("a@example.com", ReminderEmailData{
		Name:      "Boss",
		Member:    "Ada",
		GroupName: "Crew",
		Amount:    "NGN 1050",
		HoursLeft: 48,
	})
	if !strings.Contains(admin.TextBody, "Ada") {
		t.Error("admin reminder missing member name")
	}
	if !strings.Contains(admin.TextBody, "Crew") {
		t.Error("admin reminder missing group name")
	}
}

func TestBuildPayoutEmail(t *testing.T) {
	e := BuildPayoutEmail("a@example.com", PayoutEmailData{
		AdminName: "Boss",
		GroupName: "Crew",
		Amount:    "NGN 1900",
		BankName:  "Access Bank",
	})
	if !strings.Contains(e.Subject, "NGN 1900") {
		t.Errorf("subject missing amount: %q", e.Subject)
	}
	if !strings.Contains(e.TextBody, "Access Bank") {
		t.Error("text body missing bank name")
	}
	if !strings.Contains(e.HTMLBody, "NGN 1900") {
		t.Error("html body missing amount")
	}
}
