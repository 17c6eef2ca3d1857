// Package syncapi talks to the backend that owns the pending SMS queue.
package syncapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/oggyb/sms-forwarder/internal/domain/message"
	"github.com/oggyb/sms-forwarder/internal/request"
	"github.com/oggyb/sms-forwarder/internal/response"
	"github.com/oggyb/sms-forwarder/internal/tokenstore"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
var ErrUnauthorized = errors.New("syncapi: unauthorized")

// StatusError is a non-2xx reply that is not an auth failure.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Code)
}

// Client is an HTTP client for the forwarding endpoints of the backend.
type Client struct {
	baseURL    string
	tokens     tokenstore.Store
	httpClient *http.Client
}

// New creates a client for baseURL (e.g. http://localhost:8000/api).
// The bearer token is read from tokens on every request so a logout takes
// effect immediately.
func New(baseURL string, tokens tokenstore.Store, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchPending returns the messages waiting for this device, in server order.
func (c *Client) FetchPending(ctx context.Context) ([]message.PendingMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, "/sms/pending", nil, true)
	if err != nil {
		return nil, fmt.Errorf("fetch pending messages: %w", err)
	}

	msgs, err := decodeList[message.PendingMessage](raw)
	if err != nil {
		return nil, fmt.Errorf("decode pending messages: %w", err)
	}
	return msgs, nil
}

// ReportSent acknowledges that message id was handed to the SMS capability.
func (c *Client) ReportSent(ctx context.Context, id int64) error {
	path := "/sms/update-status/" + strconv.FormatInt(id, 10)
	if _, err := c.do(ctx, http.MethodPatch, path, nil, true); err != nil {
		return fmt.Errorf("report message %d sent: %w", id, err)
	}
	return nil
}

// Heartbeat marks the device online.
func (c *Client) Heartbeat(ctx context.Context, deviceID, deviceName string) error {
	body := request.HeartbeatRequest{DeviceID: deviceID, Name: deviceName}
	if _, err := c.do(ctx, http.MethodPost, "/device/heartbeat", body, true); err != nil {
		return fmt.Errorf("heartbeat for %s: %w", deviceID, err)
	}
	return nil
}

// Login exchanges credentials for a bearer token. It does not store it.
func (c *Client) Login(ctx context.Context, email, password, code string) (string, error) {
	body := request.LoginRequest{Email: email, Password: password, Code: code}
	raw, err := c.do(ctx, http.MethodPost, "/login", body, false)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var parsed response.LoginResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if parsed.Token == "" {
		if parsed.TwoFactor {
			return "", errors.New("login: two-factor code required")
		}
		return "", errors.New("login: response carried no token")
	}
	return parsed.Token, nil
}

// Logout revokes the current token on the backend.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/logout", nil, true); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Stats returns the backend's pending/sent/failed counters for the user.
func (c *Client) Stats(ctx context.Context) (response.StatsPayload, error) {
	var stats response.StatsPayload

	raw, err := c.do(ctx, http.MethodGet, "/sms/stats", nil, true)
	if err != nil {
		return stats, fmt.Errorf("fetch stats: %w", err)
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		return stats, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

// RecentActivity returns the latest messages handled for the user.
func (c *Client) RecentActivity(ctx context.Context) ([]response.ActivityItem, error) {
	raw, err := c.do(ctx, http.MethodGet, "/sms/activity", nil, true)
	if err != nil {
		return nil, fmt.Errorf("fetch activity: %w", err)
	}
	return decodeList[response.ActivityItem](raw)
}

// BroadcastAuth signs a private or presence channel subscription for the
// realtime connection identified by socketID.
func (c *Client) BroadcastAuth(ctx context.Context, socketID, channel string) (response.BroadcastAuthResponse, error) {
	var out response.BroadcastAuthResponse

	body := request.BroadcastAuthRequest{SocketID: socketID, ChannelName: channel}
	raw, err := c.doURL(ctx, http.MethodPost, c.broadcastAuthURL(), body, true)
	if err != nil {
		return out, fmt.Errorf("authorize %s: %w", channel, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode channel auth: %w", err)
	}
	if out.Auth == "" {
		return out, fmt.Errorf("authorize %s: empty signature", channel)
	}
	return out, nil
}

// broadcastAuthURL mirrors Laravel's default: /broadcasting/auth next to the api prefix.
func (c *Client) broadcastAuthURL() string {
	return c.baseURL + "/broadcasting/auth"
}

func (c *Client) do(ctx context.Context, method, path string, body any, auth bool) ([]byte, error) {
	return c.doURL(ctx, method, c.baseURL+path, body, auth)
}

func (c *Client) doURL(ctx context.Context, method, url string, body any, auth bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if auth {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			if errors.Is(err, tokenstore.ErrNoToken) {
				return nil, ErrUnauthorized
			}
			return nil, fmt.Errorf("read token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == 419:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{Code: resp.StatusCode, Message: serverMessage(raw)}
	}

	return raw, nil
}

// decodeList accepts both a bare JSON array and Laravel's {"data": [...]} wrapper.
func decodeList[T any](raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Data, nil
}

func serverMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(bytes.TrimSpace(raw))
}
