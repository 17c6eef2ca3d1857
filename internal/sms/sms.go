// Package sms exposes the native messaging capability the forwarder sends
// through, plus an HTTP gateway implementation of it.
package sms

import (
	"context"

	"github.com/oggyb/sms-forwarder/internal/domain/message"
)

// Messenger is the contract for the device's SMS capability.
type Messenger interface {
	// Available reports whether the capability can send right now.
	Available(ctx context.Context) bool

	// Send hands one SMS to the capability. The outcome is always set;
	// err carries details for any outcome other than sent.
	Send(ctx context.Context, to, body string) (message.Outcome, error)
}
