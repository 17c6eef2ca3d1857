package message

import (
	"time"

	"github.com/google/uuid"
)

// Delivery is a local journal entry describing one send attempt.
type Delivery struct {
	ID           uuid.UUID
	RemoteID     int64
	DeviceID     string
	To           string
	Body         string
	Outcome      Outcome
	Acknowledged bool
	Error        string
	AttemptedAt  time.Time
}

// NewDelivery records the outcome of sending msg from deviceID.
func NewDelivery(msg PendingMessage, outcome Outcome, deviceID string) *Delivery {
	return &Delivery{
		ID:          uuid.New(),
		RemoteID:    msg.ID,
		DeviceID:    deviceID,
		To:          msg.PhoneNumber,
		Body:        msg.Body,
		Outcome:     outcome,
		AttemptedAt: time.Now(),
	}
}

// MarkAcknowledged notes that the backend accepted the sent status.
func (d *Delivery) MarkAcknowledged() {
	d.Acknowledged = true
	d.Error = ""
}

// MarkFailed stores why the attempt (or its acknowledgment) did not succeed.
func (d *Delivery) MarkFailed(reason string) {
	d.Error = reason
}
