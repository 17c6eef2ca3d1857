package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ProtocolVersion is the Pusher protocol revision Reverb speaks.
const ProtocolVersion = 7

// Version is reported to the server in the connect URL.
const Version = "1.0.0"

const (
	PresencePrefix = "presence-"
	PrivatePrefix  = "private-"
)

const (
	evConnectionEstablished = "pusher:connection_established"
	evError                 = "pusher:error"
	evPing                  = "pusher:ping"
	evPong                  = "pusher:pong"
	evSubscribe             = "pusher:subscribe"
	evUnsubscribe           = "pusher:unsubscribe"
	evSubscriptionError     = "pusher:subscription_error"
	evSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	evMemberAdded           = "pusher_internal:member_added"
	evMemberRemoved         = "pusher_internal:member_removed"
)

const (
	defaultActivityTimeout  = 120 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultPongWait         = 30 * time.Second
	writeWait               = 10 * time.Second
)

// Config locates the Reverb server.
type Config struct {
	Scheme           string
	Host             string
	Port             int
	AppKey           string
	HandshakeTimeout time.Duration

	// PongWait is how long a ping may go unanswered before the
	// connection counts as dead.
	PongWait time.Duration
}

// URL builds the websocket endpoint, ws:// unless the scheme asks for TLS.
func (c Config) URL() string {
	scheme := "ws"
	switch strings.ToLower(c.Scheme) {
	case "https", "wss":
		scheme = "wss"
	}

	q := url.Values{}
	q.Set("protocol", strconv.Itoa(ProtocolVersion))
	q.Set("client", "sms-forwarder")
	q.Set("version", Version)

	u := url.URL{
		Scheme:   scheme,
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/app/" + c.AppKey,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (c Config) handshakeTimeout() time.Duration {
	if c.HandshakeTimeout > 0 {
		return c.HandshakeTimeout
	}
	return defaultHandshakeTimeout
}

func (c Config) pongWait() time.Duration {
	if c.PongWait > 0 {
		return c.PongWait
	}
	return defaultPongWait
}

// keepalive derives the ping schedule from the server's activity timeout.
// A ping goes out once the connection has been idle for half the activity
// period, checked every quarter period, so the latest ping leaves at three
// quarters of the period and its pong is due well before the read deadline.
type keepalive struct {
	pingAfter time.Duration
	tick      time.Duration
	readWait  time.Duration
}

func newKeepalive(activity, pongWait time.Duration) keepalive {
	return keepalive{
		pingAfter: activity / 2,
		tick:      activity / 4,
		readWait:  activity + pongWait,
	}
}

// frame is one Pusher protocol message.
type frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type connectionEstablished struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

type subscribeData struct {
	Channel     string `json:"channel"`
	Auth        string `json:"auth,omitempty"`
	ChannelData string `json:"channel_data,omitempty"`
}

type unsubscribeData struct {
	Channel string `json:"channel"`
}

type serverError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type subscriptionError struct {
	Type   string `json:"type"`
	Error  string `json:"error"`
	Status int    `json:"status"`
}

type presenceData struct {
	Presence struct {
		IDs   []json.RawMessage          `json:"ids"`
		Hash  map[string]json.RawMessage `json:"hash"`
		Count int                        `json:"count"`
	} `json:"presence"`
}

type memberData struct {
	UserID   json.RawMessage `json:"user_id"`
	UserInfo json.RawMessage `json:"user_info"`
}

// Member is one participant of a presence channel.
type Member struct {
	ID   string
	Info json.RawMessage
}

// decodeData unmarshals a frame payload. Servers send data either as an
// object or as a JSON encoded string holding the object.
func decodeData(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(s)
	}
	return json.Unmarshal(raw, v)
}

// unwrapData returns the payload with one level of string encoding removed.
func unwrapData(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return json.RawMessage(s)
		}
	}
	return raw
}

// memberID renders a user id that may arrive as a string or a number.
func memberID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func (p presenceData) members() []Member {
	out := make([]Member, 0, len(p.Presence.IDs))
	for _, raw := range p.Presence.IDs {
		id := memberID(raw)
		out = append(out, Member{ID: id, Info: p.Presence.Hash[id]})
	}
	return out
}

// MatchEvent reports whether the broadcast event name got is the event want.
// A leading dot (Echo's custom name marker) is ignored on both sides, and a
// namespaced class name matches on its last segment.
func MatchEvent(got, want string) bool {
	got = strings.TrimPrefix(got, ".")
	want = strings.TrimPrefix(want, ".")
	if want == "" || got == "" {
		return false
	}
	if got == want {
		return true
	}
	if i := strings.LastIndex(got, `\`); i >= 0 && got[i+1:] == want {
		return true
	}
	if i := strings.LastIndex(want, `\`); i >= 0 && want[i+1:] == got {
		return true
	}
	return false
}

func (e serverError) String() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
	}
	return e.Message
}
