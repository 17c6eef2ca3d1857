package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/oggyb/sms-forwarder/internal/domain/message"
	"github.com/oggyb/sms-forwarder/internal/request"
	"github.com/oggyb/sms-forwarder/internal/response"
)

// WebhookMessenger sends SMS through a gateway that exposes a webhook-style
// HTTP endpoint (an Android gateway app, a modem bridge, a provider).
type WebhookMessenger struct {
	endpoint   string
	authKey    string
	httpClient *http.Client
}

// NewWebhookMessenger creates a messenger for the given endpoint and auth key.
func NewWebhookMessenger(endpoint, authKey string, timeout time.Duration) *WebhookMessenger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookMessenger{
		endpoint: endpoint,
		authKey:  authKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// withTimeout wraps the context with a timeout if it doesn't already have one.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// Available performs a lightweight GET against the gateway.
func (c *WebhookMessenger) Available(ctx context.Context) bool {
	if c.endpoint == "" {
		return false
	}

	ctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return false
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Send posts a JSON payload to the gateway and maps the reply to an outcome.
func (c *WebhookMessenger) Send(ctx context.Context, to, body string) (message.Outcome, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(request.WebhookRequest{To: to, Content: body})
	if err != nil {
		return message.OutcomeFailedTransport, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return message.OutcomeFailedTransport, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return message.OutcomeCancelled, fmt.Errorf("webhook request timeout or canceled: %w", err)
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return message.OutcomeUnavailable, fmt.Errorf("gateway unreachable: %w", err)
		}
		return message.OutcomeFailedTransport, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return message.OutcomeFailedTransport, fmt.Errorf("failed to read webhook response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return message.OutcomeUnavailable, fmt.Errorf("gateway unavailable: %s", raw)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return message.OutcomeFailedTransport, fmt.Errorf("webhook returned non-2xx status: %d", resp.StatusCode)
	}

	var parsed response.WebhookResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return message.OutcomeFailedTransport, fmt.Errorf("failed to parse webhook response: %w", err)
	}
	if parsed.MessageID == "" {
		return message.OutcomeFailedTransport, fmt.Errorf("webhook response missing messageId")
	}

	return message.OutcomeSent, nil
}

func (c *WebhookMessenger) authorize(req *http.Request) {
	if c.authKey != "" {
		req.Header.Set("x-ins-auth-key", c.authKey)
	}
}

// compile-time check: WebhookMessenger satisfies the Messenger interface.
var _ Messenger = (*WebhookMessenger)(nil)
