package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	"github.com/bowenSteve/kipsunya-biz/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
}

// Owner identifies who a cart belongs to: an account or an anonymous session.
type Owner struct {
	UserID    *uuid.UUID
	SessionID *string
}

func (o Owner) valid() bool {
	return (o.UserID != nil && *o.UserID != uuid.Nil) || (o.SessionID != nil && *o.SessionID != "")
}

// View is the cart presented to callers with computed totals.
type View struct {
	Cart      *models.Cart    `json:"cart"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
}

// MergeResult carries the merged cart plus per-line failures that were
// skipped rather than aborting the merge.
type MergeResult struct {
	View     *View    `json:"cart"`
	Failures []string `json:"failures,omitempty"`
}

// Service defines the cart operations.
type Service interface {
	Get(ctx context.Context, owner Owner) (*View, error)
	AddItem(ctx context.Context, owner Owner, productID int64, quantity int) (*View, error)
	UpdateItem(ctx context.Context, owner Owner, productID int64, quantity int) (*View, error)
	RemoveItem(ctx context.Context, owner Owner, productID int64) (*View, error)
	Clear(ctx context.Context, owner Owner) error
	Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*MergeResult, error)

	SaveForLater(ctx context.Context, userID uuid.UUID, productID int64) error
	MoveToCart(ctx context.Context, userID uuid.UUID, productID int64) (*View, error)
	ListSaved(ctx context.Context, userID uuid.UUID) ([]models.SavedItem, error)
	RemoveSaved(ctx context.Context, userID uuid.UUID, productID int64) error
}

type service struct {
	repo     Repository
	products productLoader
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, products productLoader, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: products, tx: tx, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, owner Owner) (*View, error) {
	if !owner.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner required")
	}
	cart, err := s.findCart(ctx, s.repo, owner)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return emptyView(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return buildView(cart), nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, productID int64, quantity int) (*View, error) {
	if !owner.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Purchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is not available")
	}

	var view *View
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.findOrCreateCart(ctx, repo, owner)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cart")
		}

		existing, err := repo.FindItem(ctx, cart.ID, productID)
		switch {
		case err == nil:
			// The stock check covers the merged line, not just the delta.
			if err := checkStock(product, existing.Quantity+quantity); err != nil {
				return err
			}
			existing.Quantity += quantity
			if err := repo.SaveItem(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart line")
			}
		case err == gorm.ErrRecordNotFound:
			if err := checkStock(product, quantity); err != nil {
				return err
			}
			item := &models.CartItem{
				CartID:      cart.ID,
				ProductID:   product.ID,
				VendorID:    product.VendorID,
				ProductName: product.Name,
				UnitPrice:   product.Price,
				Quantity:    quantity,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		return s.reloadView(ctx, repo, cart.ID, &view)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) UpdateItem(ctx context.Context, owner Owner, productID int64, quantity int) (*View, error) {
	if !owner.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Purchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is not available")
	}
	if err := checkStock(product, quantity); err != nil {
		return nil, err
	}

	var view *View
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.findCart(ctx, repo, owner)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		item, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
		item.Quantity = quantity
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return s.reloadView(ctx, repo, cart.ID, &view)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, productID int64) (*View, error) {
	if !owner.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner required")
	}

	var view *View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.findCart(ctx, repo, owner)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				view = emptyView()
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if err := repo.DeleteItem(ctx, cart.ID, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
		}
		return s.reloadView(ctx, repo, cart.ID, &view)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Clear empties the cart. Clearing a missing or already empty cart succeeds.
func (s *service) Clear(ctx context.Context, owner Owner) error {
	if !owner.valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner required")
	}
	cart, err := s.findCart(ctx, s.repo, owner)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.repo.DeleteAllItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Merge folds an anonymous session cart into the user's cart. Lines that fail
// are recorded and skipped; the rest of the merge proceeds.
func (s *service) Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*MergeResult, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	result := &MergeResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sessionCart, err := repo.FindBySession(ctx, sessionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				userOwner := Owner{UserID: &userID}
				cart, findErr := s.findOrCreateCart(ctx, repo, userOwner)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "resolve user cart")
				}
				return s.reloadView(ctx, repo, cart.ID, &result.View)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session cart")
		}

		userCart, err := s.findOrCreateCart(ctx, repo, Owner{UserID: &userID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve user cart")
		}

		var lineErrs error
		for _, line := range sessionCart.Items {
			if err := s.mergeLine(ctx, repo, userCart.ID, line); err != nil {
				lineErrs = multierr.Append(lineErrs, fmt.Errorf("product %d: %w", line.ProductID, err))
			}
		}
		for _, lineErr := range multierr.Errors(lineErrs) {
			result.Failures = append(result.Failures, lineErr.Error())
		}
		if lineErrs != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "failures", result.Failures), "cart merge skipped lines")
		}

		if err := repo.Delete(ctx, sessionCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop session cart")
		}
		return s.reloadView(ctx, repo, userCart.ID, &result.View)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) mergeLine(ctx context.Context, repo Repository, targetCartID uuid.UUID, line models.CartItem) error {
	existing, err := repo.FindItem(ctx, targetCartID, line.ProductID)
	switch {
	case err == nil:
		existing.Quantity += line.Quantity
		return repo.SaveItem(ctx, existing)
	case err == gorm.ErrRecordNotFound:
		item := &models.CartItem{
			CartID:      targetCartID,
			ProductID:   line.ProductID,
			VendorID:    line.VendorID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
		}
		return repo.CreateItem(ctx, item)
	default:
		return err
	}
}

func (s *service) SaveForLater(ctx context.Context, userID uuid.UUID, productID int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindByUser(ctx, userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		line, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		if _, err := repo.FindSaved(ctx, userID, productID); err == nil {
			// already saved, just drop the cart line
			return repo.DeleteItem(ctx, cart.ID, productID)
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load saved item")
		}

		saved := &models.SavedItem{
			UserID:      userID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
		}
		if err := repo.CreateSaved(ctx, saved); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save item for later")
		}
		return repo.DeleteItem(ctx, cart.ID, productID)
	})
}

func (s *service) MoveToCart(ctx context.Context, userID uuid.UUID, productID int64) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	saved, err := s.repo.FindSaved(ctx, userID, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "saved item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load saved item")
	}

	view, err := s.AddItem(ctx, Owner{UserID: &userID}, saved.ProductID, 1)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteSaved(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop saved item")
	}
	return view, nil
}

func (s *service) ListSaved(ctx context.Context, userID uuid.UUID) ([]models.SavedItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	items, err := s.repo.ListSaved(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list saved items")
	}
	return items, nil
}

func (s *service) RemoveSaved(ctx context.Context, userID uuid.UUID, productID int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := s.repo.DeleteSaved(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove saved item")
	}
	return nil
}

func (s *service) findCart(ctx context.Context, repo Repository, owner Owner) (*models.Cart, error) {
	if owner.UserID != nil && *owner.UserID != uuid.Nil {
		return repo.FindByUser(ctx, *owner.UserID)
	}
	return repo.FindBySession(ctx, *owner.SessionID)
}

func (s *service) findOrCreateCart(ctx context.Context, repo Repository, owner Owner) (*models.Cart, error) {
	cart, err := s.findCart(ctx, repo, owner)
	if err == nil {
		return cart, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	fresh := &models.Cart{UserID: owner.UserID, SessionID: owner.SessionID}
	return repo.Create(ctx, fresh)
}

func (s *service) reloadView(ctx context.Context, repo Repository, cartID uuid.UUID, out **View) error {
	items, err := repo.ListItems(ctx, cartID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	cart := &models.Cart{ID: cartID, Items: items}
	*out = buildView(cart)
	return nil
}

// checkStock rejects a requested line quantity the live catalog cannot cover.
func checkStock(product *models.Product, requested int) error {
	if requested <= product.StockQuantity {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("only %d of %q in stock", product.StockQuantity, product.Name)).
		WithDetails(map[string]any{
			"product_id": product.ID,
			"available":  product.StockQuantity,
			"requested":  requested,
		})
}

func emptyView() *View {
	return &View{Cart: &models.Cart{}, Subtotal: decimal.Zero}
}

func buildView(cart *models.Cart) *View {
	subtotal := decimal.Zero
	count := 0
	for _, item := range cart.Items {
		subtotal = subtotal.Add(item.LineTotal())
		count += item.Quantity
	}
	return &View{
		Cart:      cart,
		Subtotal:  money.Round(subtotal),
		ItemCount: count,
	}
}
