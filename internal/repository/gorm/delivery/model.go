package deliverygorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryModel is the GORM persistence model for journal entries.
// It maps directly to the "deliveries" table in Postgres.
type DeliveryModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RemoteID     int64     `gorm:"not null;index"`
	DeviceID     string    `gorm:"size:100;index"`
	To           string    `gorm:"size:32;not null"`
	Body         string    `gorm:"type:text;not null"`
	Outcome      string    `gorm:"size:20;not null"`
	Acknowledged bool      `gorm:"not null;default:false"`
	Error        string    `gorm:"type:text"`
	AttemptedAt  time.Time `gorm:"not null;index"`
	CreatedAt    time.Time
}

// TableName overrides the default table name used by GORM.
func (DeliveryModel) TableName() string {
	return "deliveries"
}

// BeforeCreate ensures a UUID is set before inserting a new record.
func (m *DeliveryModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
