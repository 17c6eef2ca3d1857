package deliverygorm

import (
	"github.com/oggyb/sms-forwarder/internal/domain/message"
)

func toDomain(m *DeliveryModel) *message.Delivery {
	return &message.Delivery{
		ID:           m.ID,
		RemoteID:     m.RemoteID,
		DeviceID:     m.DeviceID,
		To:           m.To,
		Body:         m.Body,
		Outcome:      message.Outcome(m.Outcome),
		Acknowledged: m.Acknowledged,
		Error:        m.Error,
		AttemptedAt:  m.AttemptedAt,
	}
}

func toDomainMany(models []DeliveryModel) []*message.Delivery {
	out := make([]*message.Delivery, len(models))
	for i := range models {
		out[i] = toDomain(&models[i])
	}
	return out
}

func fromDomain(d *message.Delivery) *DeliveryModel {
	return &DeliveryModel{
		ID:           d.ID,
		RemoteID:     d.RemoteID,
		DeviceID:     d.DeviceID,
		To:           d.To,
		Body:         d.Body,
		Outcome:      string(d.Outcome),
		Acknowledged: d.Acknowledged,
		Error:        d.Error,
		AttemptedAt:  d.AttemptedAt,
	}
}
