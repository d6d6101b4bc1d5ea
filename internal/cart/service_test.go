package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
)

// memRepo is an in-memory Repository covering the paths the service exercises.
type memRepo struct {
	carts     map[uuid.UUID]*models.Cart
	byUser    map[uuid.UUID]uuid.UUID
	bySession map[string]uuid.UUID
	items     map[uuid.UUID]map[int64]*models.CartItem
	saved     map[uuid.UUID]map[int64]*models.SavedItem

	saveItemErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		carts:     map[uuid.UUID]*models.Cart{},
		byUser:    map[uuid.UUID]uuid.UUID{},
		bySession: map[string]uuid.UUID{},
		items:     map[uuid.UUID]map[int64]*models.CartItem{},
		saved:     map[uuid.UUID]map[int64]*models.SavedItem{},
	}
}

func (m *memRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	id, ok := m.byUser[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.loaded(id), nil
}

func (m *memRepo) FindBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	id, ok := m.bySession[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.loaded(id), nil
}

func (m *memRepo) loaded(id uuid.UUID) *models.Cart {
	cart := *m.carts[id]
	cart.Items = nil
	for _, item := range m.items[id] {
		cart.Items = append(cart.Items, *item)
	}
	return &cart
}

func (m *memRepo) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.ID = uuid.New()
	m.carts[cart.ID] = cart
	m.items[cart.ID] = map[int64]*models.CartItem{}
	if cart.UserID != nil {
		m.byUser[*cart.UserID] = cart.ID
	}
	if cart.SessionID != nil {
		m.bySession[*cart.SessionID] = cart.ID
	}
	return cart, nil
}

func (m *memRepo) Delete(ctx context.Context, cartID uuid.UUID) error {
	cart, ok := m.carts[cartID]
	if !ok {
		return nil
	}
	if cart.UserID != nil {
		delete(m.byUser, *cart.UserID)
	}
	if cart.SessionID != nil {
		delete(m.bySession, *cart.SessionID)
	}
	delete(m.carts, cartID)
	delete(m.items, cartID)
	return nil
}

func (m *memRepo) FindItem(ctx context.Context, cartID uuid.UUID, productID int64) (*models.CartItem, error) {
	item, ok := m.items[cartID][productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, item := range m.items[cartID] {
		out = append(out, *item)
	}
	return out, nil
}

func (m *memRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	m.items[item.CartID][item.ProductID] = item
	return nil
}

func (m *memRepo) SaveItem(ctx context.Context, item *models.CartItem) error {
	if m.saveItemErr != nil {
		return m.saveItemErr
	}
	m.items[item.CartID][item.ProductID] = item
	return nil
}

func (m *memRepo) DeleteItem(ctx context.Context, cartID uuid.UUID, productID int64) error {
	delete(m.items[cartID], productID)
	return nil
}

func (m *memRepo) DeleteAllItems(ctx context.Context, cartID uuid.UUID) error {
	m.items[cartID] = map[int64]*models.CartItem{}
	return nil
}

func (m *memRepo) FindSaved(ctx context.Context, userID uuid.UUID, productID int64) (*models.SavedItem, error) {
	item, ok := m.saved[userID][productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (m *memRepo) ListSaved(ctx context.Context, userID uuid.UUID) ([]models.SavedItem, error) {
	var out []models.SavedItem
	for _, item := range m.saved[userID] {
		out = append(out, *item)
	}
	return out, nil
}

func (m *memRepo) CreateSaved(ctx context.Context, item *models.SavedItem) error {
	if m.saved[item.UserID] == nil {
		m.saved[item.UserID] = map[int64]*models.SavedItem{}
	}
	m.saved[item.UserID][item.ProductID] = item
	return nil
}

func (m *memRepo) DeleteSaved(ctx context.Context, userID uuid.UUID, productID int64) error {
	delete(m.saved[userID], productID)
	return nil
}

type stubProducts struct {
	products map[int64]*models.Product
}

func (s *stubProducts) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

type stubTx struct{}

func (s *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newTestService(t *testing.T, repo Repository, products productLoader) Service {
	t.Helper()
	svc, err := NewService(repo, products, &stubTx{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func availableProduct(id int64, price int64) *models.Product {
	return &models.Product{
		ID:            id,
		VendorID:      uuid.New(),
		Name:          "Product",
		Price:         decimal.NewFromInt(price),
		StockQuantity: 100,
		IsActive:      true,
		IsAvailable:   true,
	}
}

func userOwner(id uuid.UUID) Owner { return Owner{UserID: &id} }

func TestAddItemCreatesCartAndLine(t *testing.T) {
	repo := newMemRepo()
	products := &stubProducts{products: map[int64]*models.Product{1: availableProduct(1, 50)}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	view, err := svc.AddItem(context.Background(), userOwner(userID), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ItemCount != 2 {
		t.Fatalf("expected 2 items, got %d", view.ItemCount)
	}
	if !view.Subtotal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected subtotal 100, got %s", view.Subtotal)
	}
}

func TestAddItemMergesQuantity(t *testing.T) {
	repo := newMemRepo()
	products := &stubProducts{products: map[int64]*models.Product{1: availableProduct(1, 50)}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, err := svc.AddItem(context.Background(), userOwner(userID), 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ItemCount != 5 {
		t.Fatalf("expected merged quantity 5, got %d", view.ItemCount)
	}
	if len(view.Cart.Items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(view.Cart.Items))
	}
}

func TestAddItemInsufficientStock(t *testing.T) {
	repo := newMemRepo()
	scarce := availableProduct(1, 100)
	scarce.StockQuantity = 1
	products := &stubProducts{products: map[int64]*models.Product{1: scarce}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	_, err := svc.AddItem(context.Background(), userOwner(userID), 1, 5)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	view, err := svc.Get(context.Background(), userOwner(userID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ItemCount != 0 {
		t.Fatalf("rejected add must not touch the cart, got %d items", view.ItemCount)
	}
}

func TestAddItemMergedQuantityExceedsStock(t *testing.T) {
	repo := newMemRepo()
	scarce := availableProduct(1, 50)
	scarce.StockQuantity = 3
	products := &stubProducts{products: map[int64]*models.Product{1: scarce}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.AddItem(context.Background(), userOwner(userID), 1, 2)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("merged line exceeds stock, expected rejection, got %v", err)
	}
	view, _ := svc.Get(context.Background(), userOwner(userID))
	if view.ItemCount != 2 {
		t.Fatalf("existing line must keep its quantity, got %d", view.ItemCount)
	}
}

func TestAddItemUnavailableProduct(t *testing.T) {
	repo := newMemRepo()
	inactive := availableProduct(1, 50)
	inactive.IsActive = false
	products := &stubProducts{products: map[int64]*models.Product{1: inactive}}
	svc := newTestService(t, repo, products)

	_, err := svc.AddItem(context.Background(), userOwner(uuid.New()), 1, 1)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeProductUnavailable {
		t.Fatalf("expected product unavailable, got %v", err)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &stubProducts{})
	_, err := svc.AddItem(context.Background(), userOwner(uuid.New()), 99, 1)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddItemRejectsZeroQuantity(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &stubProducts{})
	_, err := svc.AddItem(context.Background(), userOwner(uuid.New()), 1, 0)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetMissingCartReturnsEmptyView(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &stubProducts{})
	view, err := svc.Get(context.Background(), userOwner(uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ItemCount != 0 || !view.Subtotal.IsZero() {
		t.Fatalf("expected empty view, got %+v", view)
	}
}

func TestUpdateItemSetsQuantity(t *testing.T) {
	repo := newMemRepo()
	products := &stubProducts{products: map[int64]*models.Product{1: availableProduct(1, 50)}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, err := svc.UpdateItem(context.Background(), userOwner(userID), 1, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ItemCount != 7 {
		t.Fatalf("expected quantity 7, got %d", view.ItemCount)
	}
}

func TestUpdateItemInsufficientStock(t *testing.T) {
	repo := newMemRepo()
	scarce := availableProduct(1, 50)
	scarce.StockQuantity = 4
	products := &stubProducts{products: map[int64]*models.Product{1: scarce}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.UpdateItem(context.Background(), userOwner(userID), 1, 7)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	view, _ := svc.Get(context.Background(), userOwner(userID))
	if view.ItemCount != 2 {
		t.Fatalf("rejected update must keep the old quantity, got %d", view.ItemCount)
	}
}

func TestUpdateItemRevalidatesAvailability(t *testing.T) {
	repo := newMemRepo()
	product := availableProduct(1, 50)
	products := &stubProducts{products: map[int64]*models.Product{1: product}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The product goes off sale after the line was added.
	product.IsAvailable = false
	_, err := svc.UpdateItem(context.Background(), userOwner(userID), 1, 3)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeProductUnavailable {
		t.Fatalf("expected product unavailable, got %v", err)
	}
}

func TestRemoveItem(t *testing.T) {
	repo := newMemRepo()
	products := &stubProducts{products: map[int64]*models.Product{1: availableProduct(1, 50)}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, err := svc.RemoveItem(context.Background(), userOwner(userID), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ItemCount != 0 {
		t.Fatalf("expected empty cart, got %d items", view.ItemCount)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &stubProducts{})
	if err := svc.Clear(context.Background(), userOwner(uuid.New())); err != nil {
		t.Fatalf("clearing a missing cart must succeed, got %v", err)
	}
}

func TestMergeCombinesSessionIntoUserCart(t *testing.T) {
	repo := newMemRepo()
	products := &stubProducts{products: map[int64]*models.Product{
		1: availableProduct(1, 50),
		2: availableProduct(2, 30),
	}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	sessionID := "sess-1"
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), Owner{SessionID: &sessionID}, 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), Owner{SessionID: &sessionID}, 2, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Merge(context.Background(), sessionID, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("expected no failures, got %v", result.Failures)
	}
	// 1x50 + 2x50 merged + 1x30 = 180 across 4 units.
	if result.View.ItemCount != 4 {
		t.Fatalf("expected 4 units after merge, got %d", result.View.ItemCount)
	}
	if !result.View.Subtotal.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected subtotal 180, got %s", result.View.Subtotal)
	}
	if _, err := repo.FindBySession(context.Background(), sessionID); err != gorm.ErrRecordNotFound {
		t.Fatal("session cart must be deleted after merge")
	}
}

func TestMergeWithoutSessionCartReturnsUserCart(t *testing.T) {
	repo := newMemRepo()
	products := &stubProducts{products: map[int64]*models.Product{1: availableProduct(1, 50)}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := svc.Merge(context.Background(), "ghost-session", userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.View.ItemCount != 1 {
		t.Fatalf("expected user cart unchanged, got %d items", result.View.ItemCount)
	}
}

func TestMergeRecordsLineFailures(t *testing.T) {
	repo := newMemRepo()
	products := &stubProducts{products: map[int64]*models.Product{1: availableProduct(1, 50)}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	sessionID := "sess-2"
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), Owner{SessionID: &sessionID}, 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The merged line already exists in the user cart, so the failing save
	// path is the one the merge takes.
	repo.saveItemErr = errors.New("write conflict")
	result, err := svc.Merge(context.Background(), sessionID, userID)
	if err != nil {
		t.Fatalf("merge must survive line failures, got %v", err)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 recorded failure, got %v", result.Failures)
	}
}

func TestSaveForLaterMovesLineOut(t *testing.T) {
	repo := newMemRepo()
	products := &stubProducts{products: map[int64]*models.Product{1: availableProduct(1, 50)}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SaveForLater(context.Background(), userID, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := svc.Get(context.Background(), userOwner(userID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ItemCount != 0 {
		t.Fatalf("expected line moved out of cart, got %d items", view.ItemCount)
	}
	saved, err := svc.ListSaved(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 1 || saved[0].ProductID != 1 {
		t.Fatalf("expected product 1 saved, got %+v", saved)
	}
}

func TestMoveToCartRestoresLine(t *testing.T) {
	repo := newMemRepo()
	products := &stubProducts{products: map[int64]*models.Product{1: availableProduct(1, 50)}}
	svc := newTestService(t, repo, products)

	userID := uuid.New()
	if _, err := svc.AddItem(context.Background(), userOwner(userID), 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SaveForLater(context.Background(), userID, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := svc.MoveToCart(context.Background(), userID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ItemCount != 1 {
		t.Fatalf("expected 1 item back in cart, got %d", view.ItemCount)
	}
	saved, _ := svc.ListSaved(context.Background(), userID)
	if len(saved) != 0 {
		t.Fatalf("expected saved list empty, got %+v", saved)
	}
}

func TestMoveToCartMissingSavedItem(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &stubProducts{})
	_, err := svc.MoveToCart(context.Background(), uuid.New(), 1)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOwnerValidation(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &stubProducts{})
	if _, err := svc.Get(context.Background(), Owner{}); err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
