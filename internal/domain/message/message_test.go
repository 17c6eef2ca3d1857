package message

import (
	"errors"
	"testing"
)

func TestPendingMessage_Validate(t *testing.T) {
	cases := []struct {
		name string
		msg  PendingMessage
		want error
	}{
		{"ok", PendingMessage{ID: 1, PhoneNumber: "+1555", Body: "hi"}, nil},
		{"no recipient", PendingMessage{ID: 2, PhoneNumber: "  ", Body: "hi"}, ErrEmptyRecipient},
		{"no body", PendingMessage{ID: 3, PhoneNumber: "+1555"}, ErrEmptyBody},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.msg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestOutcome_Semantics(t *testing.T) {
	if !OutcomeSent.Acknowledgeable() {
		t.Fatalf("sent must be acknowledged")
	}
	for _, o := range []Outcome{OutcomeFailedTransport, OutcomeCancelled, OutcomeUnavailable} {
		if o.Acknowledgeable() {
			t.Fatalf("%s must not be acknowledged", o)
		}
	}
	if !OutcomeUnavailable.AbortsPass() || OutcomeFailedTransport.AbortsPass() {
		t.Fatalf("only unavailable aborts a pass")
	}
}

func TestDelivery_Lifecycle(t *testing.T) {
	d := NewDelivery(PendingMessage{ID: 7, PhoneNumber: "+1555", Body: "hi"}, OutcomeSent, "d1")
	if d.RemoteID != 7 || d.DeviceID != "d1" || d.Acknowledged {
		t.Fatalf("unexpected new delivery: %+v", d)
	}

	d.MarkFailed("ack failed")
	if d.Error != "ack failed" {
		t.Fatalf("error not recorded")
	}

	d.MarkAcknowledged()
	if !d.Acknowledged || d.Error != "" {
		t.Fatalf("acknowledge should clear the error: %+v", d)
	}
}
