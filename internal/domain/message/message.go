// Package message holds the domain model for forwarded SMS work.
package message

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyRecipient is returned when a pending message has no phone number.
	ErrEmptyRecipient = errors.New("recipient phone number is required")
	// ErrEmptyBody is returned when a pending message has no text.
	ErrEmptyBody = errors.New("message body is required")
)

// PendingMessage is a unit of outbound SMS work held by the backend until
// this device acknowledges it.
type PendingMessage struct {
	ID          int64  `json:"id"`
	PhoneNumber string `json:"phone_number"`
	Body        string `json:"message_body"`
}

// Validate checks the fields the device needs to attempt a send.
func (m PendingMessage) Validate() error {
	if strings.TrimSpace(m.PhoneNumber) == "" {
		return ErrEmptyRecipient
	}
	if strings.TrimSpace(m.Body) == "" {
		return ErrEmptyBody
	}
	return nil
}

// Outcome is the result of one native send attempt.
type Outcome string

const (
	OutcomeSent            Outcome = "sent"
	OutcomeFailedTransport Outcome = "failed-transport"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeUnavailable     Outcome = "unavailable"
)

// Acknowledgeable reports whether the backend should be told the message went out.
func (o Outcome) Acknowledgeable() bool {
	return o == OutcomeSent
}

// AbortsPass reports whether the rest of the current pass must be skipped.
func (o Outcome) AbortsPass() bool {
	return o == OutcomeUnavailable
}

func (o Outcome) String() string {
	return string(o)
}
