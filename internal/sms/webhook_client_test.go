package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oggyb/sms-forwarder/internal/domain/message"
	"github.com/oggyb/sms-forwarder/internal/request"
)

func TestWebhookMessenger_SendOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		want    message.Outcome
		wantErr bool
	}{
		{"accepted", http.StatusAccepted, `{"message":"Accepted","messageId":"abc"}`, message.OutcomeSent, false},
		{"missing id", http.StatusOK, `{"message":"Accepted"}`, message.OutcomeFailedTransport, true},
		{"server error", http.StatusInternalServerError, `oops`, message.OutcomeFailedTransport, true},
		{"gateway down", http.StatusServiceUnavailable, `no signal`, message.OutcomeUnavailable, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got request.WebhookRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("x-ins-auth-key") != "secret" {
					t.Errorf("missing auth header")
				}
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			m := NewWebhookMessenger(srv.URL, "secret", time.Second)
			outcome, err := m.Send(context.Background(), "+1555", "hi")

			if outcome != tc.want {
				t.Fatalf("outcome = %s, want %s", outcome, tc.want)
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got.To != "+1555" || got.Content != "hi" {
				t.Fatalf("unexpected payload %+v", got)
			}
		})
	}
}

func TestWebhookMessenger_UnreachableGateway(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := NewWebhookMessenger(url, "", time.Second)

	if m.Available(context.Background()) {
		t.Fatalf("closed gateway should not be available")
	}
	outcome, err := m.Send(context.Background(), "+1555", "hi")
	if outcome != message.OutcomeUnavailable || err == nil {
		t.Fatalf("expected unavailable with error, got %s / %v", outcome, err)
	}
}

func TestWebhookMessenger_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	m := NewWebhookMessenger(srv.URL, "", time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome, _ := m.Send(ctx, "+1555", "hi")
	if outcome != message.OutcomeCancelled {
		t.Fatalf("outcome = %s, want cancelled", outcome)
	}
}

func TestWebhookMessenger_Available(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("health should be a GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if !NewWebhookMessenger(srv.URL, "", time.Second).Available(context.Background()) {
		t.Fatalf("expected gateway to be available")
	}
	if NewWebhookMessenger("", "", time.Second).Available(context.Background()) {
		t.Fatalf("empty endpoint must not be available")
	}
}
