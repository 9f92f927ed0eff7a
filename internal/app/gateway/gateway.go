// internal/app/gateway/gateway.go

// Package gateway wraps the external payment processor's REST API:
// hosted checkout links, transaction verification, bank transfers
// (disbursements), transfer status, and the bank directory.
//
// Every operation follows a soft-fail contract: transport errors and
// non-2xx responses come back as OK=false with a message, never as a
// panic. Callers treat OK=false as "not yet", keep their own state
// retryable, and try again on a later cycle. Idempotency is the
// caller's job: supply a fresh unique reference per logical payment or
// transfer; the gateway does not deduplicate.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Transfer status strings reported by the processor.
const (
	TransferSuccessful = "SUCCESSFUL"
	TransferFailed     = "FAILED"
	TransferPending    = "PENDING"
)

// Config holds the gateway connection settings. SecretKey is the bearer
// secret for the processor's API.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration // per-call ceiling; default 30s
}

// Client is the payment gateway adapter. Construct with New; safe for
// concurrent use. The bank directory is fetched once and cached for the
// process lifetime.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	log     *zap.Logger

	bankMu  sync.Mutex
	bankIdx map[string]string // folded bank name -> code
}

func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.SecretKey,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// CheckoutRequest describes one hosted checkout link.
type CheckoutRequest struct {
	Reference   string
	Amount      int64 // minor units
	Currency    string
	Email       string
	FullName    string
	RedirectURL string
}

// CheckoutResult reports the hosted payment link. OK=false carries a
// human-readable message and no link.
type CheckoutResult struct {
	OK          bool
	Message     string
	PaymentLink string
	Reference   string
}

// CreateCheckout requests a hosted payment page for one invoice.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) CheckoutResult {
	body := map[string]any{
		"tx_ref":       req.Reference,
		"amount":       minorToMajor(req.Amount),
		"currency":     req.Currency,
		"redirect_url": req.RedirectURL,
		"customer": map[string]any{
			"email": req.Email,
			"name":  req.FullName,
		},
	}

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/payments", body, &resp); err != nil {
		c.log.Warn("gateway: create checkout failed",
			zap.String("reference", req.Reference), zap.Error(err))
		return CheckoutResult{Message: err.Error(), Reference: req.Reference}
	}
	if resp.Status != "success" {
		return CheckoutResult{Message: resp.Message, Reference: req.Reference}
	}
	return CheckoutResult{OK: true, PaymentLink: resp.Data.Link, Reference: req.Reference}
}

// VerifyResult reports the processor's view of one transaction.
type VerifyResult struct {
	OK       bool
	Message  string
	Status   string // e.g. "successful"
	Amount   int64  // minor units
	Currency string
}

// Verify fetches the current state of a transaction by its reference.
func (c *Client) Verify(ctx context.Context, reference string) VerifyResult {
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status   string          `json:"status"`
			Amount   decimal.Decimal `json:"amount"`
			Currency string          `json:"currency"`
		} `json:"data"`
	}
	path := "/transactions/verify_by_reference?tx_ref=" + reference
	if err := c.get(ctx, path, &resp); err != nil {
		c.log.Warn("gateway: verify failed",
			zap.String("reference", reference), zap.Error(err))
		return VerifyResult{Message: err.Error()}
	}
	if resp.Status != "success" {
		return VerifyResult{Message: resp.Message}
	}
	return VerifyResult{
		OK:       true,
		Status:   resp.Data.Status,
		Amount:   majorToMinor(resp.Data.Amount),
		Currency: resp.Data.Currency,
	}
}

// TransferRequest describes one payout to a bank account.
type TransferRequest struct {
	BankCode      string
	AccountNumber string
	Amount        int64 // minor units
	Currency      string
	Reference     string
	Narration     string
}

// TransferResult reports whether the processor accepted the transfer.
// Acceptance is not completion: poll FetchTransferStatus for the
// terminal outcome.
type TransferResult struct {
	OK         bool
	Message    string
	TransferID string
	Reference  string
}

// InitiateTransfer asks the processor to move money to a bank account.
func (c *Client) InitiateTransfer(ctx context.Context, req TransferRequest) TransferResult {
	body := map[string]any{
		"account_bank":   req.BankCode,
		"account_number": req.AccountNumber,
		"amount":         minorToMajor(req.Amount),
		"currency":       req.Currency,
		"reference":      req.Reference,
		"narration":      req.Narration,
	}

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/transfers", body, &resp); err != nil {
		c.log.Warn("gateway: initiate transfer failed",
			zap.String("reference", req.Reference), zap.Error(err))
		return TransferResult{Message: err.Error(), Reference: req.Reference}
	}
	if resp.Status != "success" {
		return TransferResult{Message: resp.Message, Reference: req.Reference}
	}
	return TransferResult{
		OK:         true,
		TransferID: fmt.Sprintf("%d", resp.Data.ID),
		Reference:  req.Reference,
	}
}

// TransferStatusResult reports a transfer's current state. Status is one
// of the Transfer* constants (or a processor-specific in-flight value).
type TransferStatusResult struct {
	OK      bool
	Message string
	Status  string
}

// FetchTransferStatus polls one transfer by the id InitiateTransfer
// returned.
func (c *Client) FetchTransferStatus(ctx context.Context, transferID string) TransferStatusResult {
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/transfers/"+transferID, &resp); err != nil {
		c.log.Warn("gateway: fetch transfer status failed",
			zap.String("transfer_id", transferID), zap.Error(err))
		return TransferStatusResult{Message: err.Error()}
	}
	if resp.Status != "success" {
		return TransferStatusResult{Message: resp.Message}
	}
	return TransferStatusResult{OK: true, Status: strings.ToUpper(resp.Data.Status)}
}

// Bank is one entry from the processor's bank directory.
type Bank struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ListBanks fetches the bank directory. Unlike the soft-fail operations
// this returns an error: callers only need it to resolve a bank code,
// and a failed lookup simply defers the transfer to the next cycle.
func (c *Client) ListBanks(ctx context.Context) ([]Bank, error) {
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    []Bank `json:"data"`
	}
	if err := c.get(ctx, "/banks/NG", &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("gateway: list banks: %s", resp.Message)
	}
	return resp.Data, nil
}

// ResolveBankCode maps a stored bank name to the processor's bank code,
// case-insensitively. The directory is cached after the first call.
func (c *Client) ResolveBankCode(ctx context.Context, bankName string) (string, error) {
	c.bankMu.Lock()
	defer c.bankMu.Unlock()

	if c.bankIdx == nil {
		banks, err := c.ListBanks(ctx)
		if err != nil {
			return "", err
		}
		c.bankIdx = make(map[string]string, len(banks))
		for _, b := range banks {
			c.bankIdx[strings.ToLower(strings.TrimSpace(b.Name))] = b.Code
		}
	}

	code, ok := c.bankIdx[strings.ToLower(strings.TrimSpace(bankName))]
	if !ok {
		return "", fmt.Errorf("gateway: unknown bank %q", bankName)
	}
	return code, nil
}

// minorToMajor renders minor units as an exact major-unit amount string
// for the wire ("190000" -> "1900").
func minorToMajor(minor int64) string {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)).String()
}

func majorToMinor(major decimal.Decimal) int64 {
	return major.Mul(decimal.NewFromInt(100)).IntPart()
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gateway: encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(buf), out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gateway: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway: %s %s: http %d: %s", method, path, resp.StatusCode, truncate(raw, 256))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
