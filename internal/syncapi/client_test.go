package syncapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oggyb/sms-forwarder/internal/request"
	"github.com/oggyb/sms-forwarder/internal/tokenstore"
)

func newTestClient(t *testing.T, token string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, tokenstore.NewMemoryStore(token), time.Second)
}

func TestFetchPending_WrappedAndBare(t *testing.T) {
	bodies := map[string]string{
		"wrapped": `{"data":[{"id":1,"phone_number":"+1","message_body":"a"},{"id":2,"phone_number":"+2","message_body":"b"}]}`,
		"bare":    `[{"id":1,"phone_number":"+1","message_body":"a"},{"id":2,"phone_number":"+2","message_body":"b"}]`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/sms/pending" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("Authorization = %q", got)
				}
				_, _ = w.Write([]byte(body))
			})

			msgs, err := c.FetchPending(context.Background())
			if err != nil {
				t.Fatalf("FetchPending: %v", err)
			}
			if len(msgs) != 2 || msgs[0].ID != 1 || msgs[1].PhoneNumber != "+2" || msgs[1].Body != "b" {
				t.Fatalf("unexpected messages %+v", msgs)
			}
		})
	}
}

func TestFetchPending_Empty(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	msgs, err := c.FetchPending(context.Background())
	if err != nil || len(msgs) != 0 {
		t.Fatalf("got %v, %v", msgs, err)
	}
}

func TestUnauthorizedStatuses(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, 419} {
		c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		})
		if _, err := c.FetchPending(context.Background()); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("status %d: expected ErrUnauthorized, got %v", code, err)
		}
	}
}

func TestNoTokenSkipsNetwork(t *testing.T) {
	called := false
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if err := c.ReportSent(context.Background(), 7); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if called {
		t.Fatalf("no request should be sent without a token")
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"already sent"}`))
	})

	err := c.ReportSent(context.Background(), 9)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusUnprocessableEntity || se.Message != "already sent" {
		t.Fatalf("unexpected status error %+v", se)
	}
}

func TestReportSent_Path(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/sms/update-status/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	if err := c.ReportSent(context.Background(), 42); err != nil {
		t.Fatalf("ReportSent: %v", err)
	}
}

func TestHeartbeat_Body(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		var got request.HeartbeatRequest
		_ = json.NewDecoder(r.Body).Decode(&got)
		if r.URL.Path != "/device/heartbeat" || got.DeviceID != "d1" || got.Name != "Pixel" {
			t.Errorf("unexpected heartbeat %s %+v", r.URL.Path, got)
		}
	})

	if err := c.Heartbeat(context.Background(), "d1", "Pixel"); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not send a bearer token")
		}
		var got request.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got.Code == "" {
			_, _ = w.Write([]byte(`{"two_factor":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"new-token"}`))
	})

	if _, err := c.Login(context.Background(), "a@b.c", "pw", ""); err == nil {
		t.Fatalf("expected two-factor error")
	}

	tok, err := c.Login(context.Background(), "a@b.c", "pw", "123456")
	if err != nil || tok != "new-token" {
		t.Fatalf("Login = %q, %v", tok, err)
	}
}

func TestBroadcastAuth(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		var got request.BroadcastAuthRequest
		_ = json.NewDecoder(r.Body).Decode(&got)
		if r.URL.Path != "/broadcasting/auth" || got.SocketID != "1.2" || got.ChannelName != "private-device.d1" {
			t.Errorf("unexpected auth request %s %+v", r.URL.Path, got)
		}
		_, _ = w.Write([]byte(`{"auth":"key:sig"}`))
	})

	out, err := c.BroadcastAuth(context.Background(), "1.2", "private-device.d1")
	if err != nil || out.Auth != "key:sig" {
		t.Fatalf("BroadcastAuth = %+v, %v", out, err)
	}
}

func TestStats(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pending":3,"sent":10,"failed":1}`))
	})

	s, err := c.Stats(context.Background())
	if err != nil || s.Pending != 3 || s.Sent != 10 || s.Failed != 1 {
		t.Fatalf("Stats = %+v, %v", s, err)
	}
}
