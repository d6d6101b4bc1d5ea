package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

// Service exposes the catalog read surface.
type Service interface {
	Get(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context, filter ListFilter, page types.Page) (types.Paginated[models.Product], error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, page types.Page) (types.Paginated[models.Product], error) {
	page = page.Normalize()
	products, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return types.Paginated[models.Product]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return types.Paginated[models.Product]{
		Items:      products,
		TotalCount: total,
		Page:       page.Number,
		PageSize:   page.Size,
	}, nil
}
