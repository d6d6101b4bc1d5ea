package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
)

func setupCartDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`DROP TABLE IF EXISTS cart_items`,
		`DROP TABLE IF EXISTS carts`,
		`CREATE TABLE carts (
			id TEXT PRIMARY KEY,
			user_id TEXT UNIQUE,
			session_id TEXT UNIQUE,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE cart_items (
			id TEXT PRIMARY KEY,
			cart_id TEXT NOT NULL,
			product_id INTEGER NOT NULL,
			vendor_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			unit_price NUMERIC NOT NULL,
			quantity INTEGER NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedCart(t *testing.T, db *gorm.DB, userID uuid.UUID) *models.Cart {
	t.Helper()

	cart := &models.Cart{ID: uuid.New(), UserID: &userID}
	require.NoError(t, db.Create(cart).Error)
	return cart
}

func seedCartItem(t *testing.T, db *gorm.DB, cartID uuid.UUID, productID int64, quantity int) *models.CartItem {
	t.Helper()

	item := &models.CartItem{
		ID:          uuid.New(),
		CartID:      cartID,
		ProductID:   productID,
		VendorID:    uuid.New(),
		ProductName: "Ceramic Mug",
		UnitPrice:   decimal.NewFromInt(50),
		Quantity:    quantity,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

// backdateCart pushes the cart's updated_at into the past so a bump from a
// line mutation is observable.
func backdateCart(t *testing.T, db *gorm.DB, cartID uuid.UUID, to time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", to).Error)
}

func cartUpdatedAt(t *testing.T, db *gorm.DB, cartID uuid.UUID) time.Time {
	t.Helper()

	var cart models.Cart
	require.NoError(t, db.First(&cart, "id = ?", cartID).Error)
	return cart.UpdatedAt
}

func TestRepositoryCreateItemTouchesCart(t *testing.T) {
	db := setupCartDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := seedCart(t, db, uuid.New())
	stale := time.Now().UTC().Add(-time.Hour)
	backdateCart(t, db, cart.ID, stale)

	item := &models.CartItem{
		ID:          uuid.New(),
		CartID:      cart.ID,
		ProductID:   7,
		VendorID:    uuid.New(),
		ProductName: "Ceramic Mug",
		UnitPrice:   decimal.NewFromInt(50),
		Quantity:    2,
	}
	require.NoError(t, repo.CreateItem(ctx, item))

	assert.True(t, cartUpdatedAt(t, db, cart.ID).After(stale),
		"adding a line must bump the parent cart")
}

func TestRepositorySaveItemTouchesCart(t *testing.T) {
	db := setupCartDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := seedCart(t, db, uuid.New())
	item := seedCartItem(t, db, cart.ID, 7, 2)
	stale := time.Now().UTC().Add(-time.Hour)
	backdateCart(t, db, cart.ID, stale)

	item.Quantity = 5
	require.NoError(t, repo.SaveItem(ctx, item))

	assert.True(t, cartUpdatedAt(t, db, cart.ID).After(stale),
		"updating a line must bump the parent cart")
}

func TestRepositoryDeleteItemTouchesCart(t *testing.T) {
	db := setupCartDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := seedCart(t, db, uuid.New())
	seedCartItem(t, db, cart.ID, 7, 2)
	stale := time.Now().UTC().Add(-time.Hour)
	backdateCart(t, db, cart.ID, stale)

	require.NoError(t, repo.DeleteItem(ctx, cart.ID, 7))

	assert.True(t, cartUpdatedAt(t, db, cart.ID).After(stale),
		"removing a line must bump the parent cart")
}

func TestRepositoryDeleteAllItemsTouchesCart(t *testing.T) {
	db := setupCartDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := seedCart(t, db, uuid.New())
	seedCartItem(t, db, cart.ID, 7, 2)
	seedCartItem(t, db, cart.ID, 8, 1)
	stale := time.Now().UTC().Add(-time.Hour)
	backdateCart(t, db, cart.ID, stale)

	require.NoError(t, repo.DeleteAllItems(ctx, cart.ID))

	items, err := repo.ListItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.True(t, cartUpdatedAt(t, db, cart.ID).After(stale),
		"clearing the cart must bump the parent cart")
}
