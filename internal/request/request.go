package request

// ForwardingRequest represents the JSON body for the forwarding toggle.
type ForwardingRequest struct {
	// Action controls forwarding. Allowed values:
	// - "start": activate forwarding for this device
	// - "stop":  deactivate forwarding
	Action string `json:"action"`
}

// WebhookRequest is the payload posted to the SMS gateway.
type WebhookRequest struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// HeartbeatRequest marks the device online on the backend.
type HeartbeatRequest struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name,omitempty"`
}

// LoginRequest authenticates against the backend.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

// BroadcastAuthRequest asks the backend to sign a channel subscription.
type BroadcastAuthRequest struct {
	SocketID    string `json:"socket_id"`
	ChannelName string `json:"channel_name"`
}
