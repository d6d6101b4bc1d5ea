package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
)

// Repository persists outbox rows. Insert runs on the caller's transaction so
// the event commits or rolls back with the domain change; the publisher-side
// methods run on the base connection.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("outbox insert requires a transaction")
	}
	return tx.Create(&event).Error
}

// FetchUnpublished returns the oldest pending rows, capped at limit.
func (r *Repository) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	var pending []models.OutboxEvent
	err := r.db.
		Where("published_at IS NULL").
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&pending).Error
	return pending, err
}

func (r *Repository) MarkPublished(id uuid.UUID) error {
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now(),
			"last_error":   nil,
		}).Error
}

func (r *Repository) MarkFailed(id uuid.UUID, cause error) error {
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    cause.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}
