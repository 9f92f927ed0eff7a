// internal/app/push/push.go

// Package push delivers in-app notifications through an HTTP push
// provider. Same soft-fail contract as the payment gateway: delivery
// problems are reported, never raised, because a missed push must not
// fail the notification job that triggered it.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	BaseURL   string
	ServerKey string
	Timeout   time.Duration
}

type Client struct {
	baseURL string
	key     string
	http    *http.Client
	log     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.ServerKey,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// Enabled reports whether a provider is configured. When it is not,
// callers fall back to email-only delivery.
func (c *Client) Enabled() bool { return c != nil && c.baseURL != "" }

// Send pushes one message to a device token. Returns false with a log
// line on any delivery problem.
func (c *Client) Send(ctx context.Context, deviceToken, title, body string) bool {
	if !c.Enabled() || deviceToken == "" {
		return false
	}

	payload, err := json.Marshal(map[string]any{
		"to": deviceToken,
		"notification": map[string]string{
			"title": title,
			"body":  body,
		},
	})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "key="+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("push: delivery failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("push: provider rejected message",
			zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// String implements fmt.Stringer without leaking the server key.
func (c *Client) String() string {
	return fmt.Sprintf("push.Client{baseURL: %q}", c.baseURL)
}
