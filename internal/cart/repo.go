package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
)

// Repository persists carts, cart lines and saved items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindBySession(ctx context.Context, sessionID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	Delete(ctx context.Context, cartID uuid.UUID) error

	FindItem(ctx context.Context, cartID uuid.UUID, productID int64) (*models.CartItem, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID uuid.UUID, productID int64) error
	DeleteAllItems(ctx context.Context, cartID uuid.UUID) error

	FindSaved(ctx context.Context, userID uuid.UUID, productID int64) (*models.SavedItem, error)
	ListSaved(ctx context.Context, userID uuid.UUID) ([]models.SavedItem, error)
	CreateSaved(ctx context.Context, item *models.SavedItem) error
	DeleteSaved(ctx context.Context, userID uuid.UUID, productID int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("session_id = ?", sessionID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *repository) Delete(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", cartID).
		Delete(&models.Cart{}).Error
}

func (r *repository) FindItem(ctx context.Context, cartID uuid.UUID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return err
	}
	return r.touchCart(ctx, item.CartID)
}

func (r *repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return err
	}
	return r.touchCart(ctx, item.CartID)
}

func (r *repository) DeleteItem(ctx context.Context, cartID uuid.UUID, productID int64) error {
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return err
	}
	return r.touchCart(ctx, cartID)
}

func (r *repository) DeleteAllItems(ctx context.Context, cartID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return err
	}
	return r.touchCart(ctx, cartID)
}

// touchCart bumps the parent cart so updated_at tracks the last line change,
// not just edits to the cart row itself.
func (r *repository) touchCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", time.Now().UTC()).Error
}

func (r *repository) FindSaved(ctx context.Context, userID uuid.UUID, productID int64) (*models.SavedItem, error) {
	var item models.SavedItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListSaved(ctx context.Context, userID uuid.UUID) ([]models.SavedItem, error) {
	var items []models.SavedItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *repository) CreateSaved(ctx context.Context, item *models.SavedItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) DeleteSaved(ctx context.Context, userID uuid.UUID, productID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.SavedItem{}).Error
}
