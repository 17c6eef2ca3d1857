package cache

import "fmt"

type Prefix string

const (
	// SentMessages holds the time a remote message id was handed to the gateway.
	SentMessages Prefix = "sent_messages"
	// FailedAttempts counts non-sent outcomes per remote message id.
	FailedAttempts Prefix = "failed_attempts"
)

func (p Prefix) Key(id string) string {
	return fmt.Sprintf("%s:%s", p, id)
}
