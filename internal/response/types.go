package response

import (
	"time"

	domain "github.com/oggyb/sms-forwarder/internal/domain/message"
)

type WelcomePayload struct {
	Message string `json:"message"`
}

type HealthPayload struct {
	Status   string `json:"status"`
	LoggedIn bool   `json:"loggedIn"`
	Version  string `json:"version,omitempty"`
	Uptime   string `json:"uptime"`
}

type WelcomeResponse struct {
	Success   bool           `json:"success"`
	Data      WelcomePayload `json:"data"`
	Timestamp string         `json:"timestamp"`
}

type HealthResponse struct {
	Success   bool          `json:"success"`
	Data      HealthPayload `json:"data"`
	Timestamp string        `json:"timestamp"`
}

// ForwardingStatePayload is what the dashboard renders: the engine mode
// plus the last pass result.
type ForwardingStatePayload struct {
	Mode       string     `json:"mode"`
	Active     bool       `json:"active"`
	Processing bool       `json:"processing"`
	LastSync   *time.Time `json:"lastSync"`
	Error      *string    `json:"error"`
	DeviceID   string     `json:"deviceId,omitempty"`
	DeviceName string     `json:"deviceName,omitempty"`
}

type ForwardingStateResponse struct {
	Success   bool                   `json:"success"`
	Data      ForwardingStatePayload `json:"data"`
	Timestamp string                 `json:"timestamp"`
}

// SyncPayload reports whether a forced pass did any work.
type SyncPayload struct {
	Ran    bool                   `json:"ran"`
	Result string                 `json:"result"`
	State  ForwardingStatePayload `json:"state"`
}

type SyncResponse struct {
	Success   bool        `json:"success"`
	Data      SyncPayload `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// DeliveryDTO is a public-facing representation of a journal entry.
type DeliveryDTO struct {
	ID           string    `json:"id"`
	RemoteID     int64     `json:"remoteId"`
	To           string    `json:"to"`
	Body         string    `json:"body"`
	Outcome      string    `json:"outcome"`
	Acknowledged bool      `json:"acknowledged"`
	Error        string    `json:"error,omitempty"`
	AttemptedAt  time.Time `json:"attemptedAt"`
}

type DeliveriesPayload struct {
	Items []DeliveryDTO `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type DeliveriesResponse struct {
	Success   bool              `json:"success"`
	Data      DeliveriesPayload `json:"data"`
	Timestamp string            `json:"timestamp"`
}

// StatsPayload mirrors the backend's per-user counters.
type StatsPayload struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

type StatsResponse struct {
	Success   bool         `json:"success"`
	Data      StatsPayload `json:"data"`
	Timestamp string       `json:"timestamp"`
}

// FromDomainDeliveries converts journal entries into DTOs.
func FromDomainDeliveries(items []*domain.Delivery) []DeliveryDTO {
	out := make([]DeliveryDTO, len(items))
	for i, d := range items {
		out[i] = DeliveryDTO{
			ID:           d.ID.String(),
			RemoteID:     d.RemoteID,
			To:           d.To,
			Body:         d.Body,
			Outcome:      string(d.Outcome),
			Acknowledged: d.Acknowledged,
			Error:        d.Error,
			AttemptedAt:  d.AttemptedAt,
		}
	}
	return out
}

// WebhookResponse is the SMS gateway's reply to a send.
type WebhookResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

// LoginResponse is the backend's reply to a login.
type LoginResponse struct {
	Token     string `json:"token"`
	TwoFactor bool   `json:"two_factor,omitempty"`
	Message   string `json:"message,omitempty"`
}

// BroadcastAuthResponse carries a signed channel subscription.
type BroadcastAuthResponse struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// ActivityItem is one row of the backend's recent activity feed.
type ActivityItem struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	MessageBody string    `json:"message_body"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
