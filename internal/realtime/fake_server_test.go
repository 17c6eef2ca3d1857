package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/oggyb/sms-forwarder/internal/response"
)

// fakeReverb speaks just enough of the Pusher protocol for the client tests.
type fakeReverb struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	conn    *websocket.Conn
	reject  map[string]bool
	members []string

	received chan frame
}

func newFakeReverb(t *testing.T) *fakeReverb {
	t.Helper()
	return newFakeReverbActivity(t, 30)
}

// newFakeReverbActivity announces activityTimeout seconds in the handshake.
func newFakeReverbActivity(t *testing.T, activityTimeout int) *fakeReverb {
	t.Helper()

	f := &fakeReverb{
		t:        t,
		reject:   make(map[string]bool),
		members:  []string{"d1"},
		received: make(chan frame, 64),
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/app/test-key") || r.URL.Query().Get("protocol") != "7" {
			http.Error(w, "bad path", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()

		established := `{"socket_id":"123.456","activity_timeout":` + strconv.Itoa(activityTimeout) + `}`
		f.push(frame{Event: evConnectionEstablished, Data: stringData(established)})
		f.serve(conn)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeReverb) config() Config {
	u, _ := url.Parse(f.srv.URL)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)
	return Config{Scheme: "http", Host: host, Port: port, AppKey: "test-key", HandshakeTimeout: time.Second}
}

func (f *fakeReverb) serve(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in frame
		if err := json.Unmarshal(raw, &in); err != nil {
			continue
		}
		f.received <- in

		switch in.Event {
		case evPing:
			f.push(frame{Event: evPong, Data: json.RawMessage(`{}`)})
		case evSubscribe:
			var sd subscribeData
			_ = json.Unmarshal(in.Data, &sd)

			f.mu.Lock()
			rejected := f.reject[sd.Channel]
			members := append([]string(nil), f.members...)
			f.mu.Unlock()

			if rejected {
				f.push(frame{Event: evSubscriptionError, Channel: sd.Channel,
					Data: stringData(`{"type":"AuthError","error":"forbidden","status":403}`)})
				continue
			}

			data := `{}`
			if strings.HasPrefix(sd.Channel, PresencePrefix) {
				ids, _ := json.Marshal(members)
				data = `{"presence":{"ids":` + string(ids) + `,"hash":{},"count":` + strconv.Itoa(len(members)) + `}}`
			}
			f.push(frame{Event: evSubscriptionSucceeded, Channel: sd.Channel, Data: stringData(data)})
		}
	}
}

func (f *fakeReverb) push(fr frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, _ := json.Marshal(fr)
	if f.conn != nil {
		_ = f.conn.WriteMessage(websocket.TextMessage, raw)
	}
}

func (f *fakeReverb) rejectChannel(name string) {
	f.mu.Lock()
	f.reject[name] = true
	f.mu.Unlock()
}

func (f *fakeReverb) dropConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close()
	}
}

// expect waits for the next client frame with the given event.
func (f *fakeReverb) expect(event string) frame {
	f.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case fr := <-f.received:
			if fr.Event == event {
				return fr
			}
		case <-deadline:
			f.t.Fatalf("timed out waiting for %s", event)
			return frame{}
		}
	}
}

func (f *fakeReverb) dial(t *testing.T) *Client {
	t.Helper()
	c, err := Dial(context.Background(), f.config(), fakeAuth{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func stringData(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}

type fakeAuth struct {
	err error
}

func (a fakeAuth) BroadcastAuth(_ context.Context, socketID, channel string) (response.BroadcastAuthResponse, error) {
	if a.err != nil {
		return response.BroadcastAuthResponse{}, a.err
	}
	out := response.BroadcastAuthResponse{Auth: "test-key:" + socketID + ":" + channel}
	if strings.HasPrefix(channel, PresencePrefix) {
		out.ChannelData = `{"user_id":"d1","user_info":{"name":"Pixel"}}`
	}
	return out, nil
}
