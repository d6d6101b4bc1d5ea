package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

// Repository persists refund requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, refund *models.OrderRefund) (*models.OrderRefund, error)
	Save(ctx context.Context, refund *models.OrderRefund) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderRefund, error)
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	HasOpenRefund(ctx context.Context, orderID uuid.UUID) (bool, error)

	ListByRequester(ctx context.Context, userID uuid.UUID, page types.Page) ([]models.OrderRefund, int64, error)
	ListAll(ctx context.Context, page types.Page) ([]models.OrderRefund, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a refunds repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, refund *models.OrderRefund) (*models.OrderRefund, error) {
	if err := r.db.WithContext(ctx).Create(refund).Error; err != nil {
		return nil, err
	}
	return refund, nil
}

func (r *repository) Save(ctx context.Context, refund *models.OrderRefund) error {
	return r.db.WithContext(ctx).Save(refund).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderRefund, error) {
	var refund models.OrderRefund
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&refund).Error
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Model(&models.OrderRefund{}).
		Where("refund_number LIKE ?", prefix+"%").
		Order("refund_number DESC").
		Limit(1).
		Pluck("refund_number", &numbers).Error
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

func (r *repository) HasOpenRefund(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderRefund{}).
		Where("order_id = ? AND status IN ?", orderID, []string{"requested", "approved"}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByRequester(ctx context.Context, userID uuid.UUID, page types.Page) ([]models.OrderRefund, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderRefund{}).
		Where("requested_by_id = ?", userID)
	return r.paginate(query, page)
}

func (r *repository) ListAll(ctx context.Context, page types.Page) ([]models.OrderRefund, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderRefund{})
	return r.paginate(query, page)
}

func (r *repository) paginate(query *gorm.DB, page types.Page) ([]models.OrderRefund, int64, error) {
	page = page.Normalize()

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var refunds []models.OrderRefund
	err := query.
		Order("created_at DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&refunds).Error
	if err != nil {
		return nil, 0, err
	}
	return refunds, total, nil
}
