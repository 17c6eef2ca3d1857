package message

import "context"

// DeliveryRepository defines the persistence operations for the local journal.
//
// It is implemented by infrastructure layers (e.g. GORM) while the service
// layer depends only on this interface.
type DeliveryRepository interface {
	// Save persists a new journal entry.
	Save(ctx context.Context, d *Delivery) error

	// List returns a page of journal entries, newest first,
	// along with the total number of entries.
	List(ctx context.Context, page, limit int) ([]*Delivery, int64, error)
}
