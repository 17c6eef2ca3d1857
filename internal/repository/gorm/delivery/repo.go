package deliverygorm

import (
	"context"

	"github.com/oggyb/sms-forwarder/internal/db"
	"github.com/oggyb/sms-forwarder/internal/domain/message"
	"gorm.io/gorm"
)

// Repository is a GORM-backed implementation of message.DeliveryRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a journal repository using the given DB adapter.
func NewRepository(d db.DB) *Repository {
	return &Repository{
		db: d.Conn().(*gorm.DB),
	}
}

// Save inserts a new journal entry.
func (r *Repository) Save(ctx context.Context, d *message.Delivery) error {
	return r.db.WithContext(ctx).Create(fromDomain(d)).Error
}

// List returns a page of journal entries, newest first, and the total count.
func (r *Repository) List(ctx context.Context, page, limit int) ([]*message.Delivery, int64, error) {
	var models []DeliveryModel
	var total int64

	query := r.db.WithContext(ctx).Model(&DeliveryModel{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	err := query.
		Order("attempted_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error

	if err != nil {
		return nil, 0, err
	}

	return toDomainMany(models), total, nil
}

// compile-time interface check
var _ message.DeliveryRepository = (*Repository)(nil)
