package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/markb/shopdash/internal/apperr"
)

const (
	MsgMissingFields       = "Missing required fields"
	MsgNameRequired        = "Name is required"
	MsgUnknownCategory     = "Unknown category"
	MsgProductNotFound     = "Product not found"
	MsgCategoryNotFound    = "Category not found"
	MsgFetchProducts       = "Failed to fetch products"
	MsgFetchCategories     = "Failed to fetch categories"
	MsgSaveProduct         = "Failed to save product"
	MsgSaveCategory        = "Failed to save category"
	MsgDeleteProductFailed = "Failed to delete product"
	MsgDeleteCategory      = "Failed to delete category"
)

// Service applies paging and maps store errors onto apperr kinds.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) ListProducts(ctx context.Context, req PageRequest, categoryID int64) (*ProductPage, error) {
	req = req.Normalize()

	products, total, err := s.store.ListProducts(ctx, Filter{
		CategoryID: categoryID,
		Offset:     req.Offset(),
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, apperr.Storage(MsgFetchProducts, err)
	}
	if products == nil {
		products = []Product{}
	}

	return &ProductPage{
		Data:       products,
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: TotalPages(total, req.Limit),
	}, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	return p, mapErr(err, MsgProductNotFound, MsgFetchProducts)
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if strings.TrimSpace(in.Name) == "" || in.Price <= 0 || in.StockQuantity < 0 {
		return nil, apperr.Validation(MsgMissingFields)
	}
	in.CategoryIDs = dedupe(in.CategoryIDs)

	p, err := s.store.CreateProduct(ctx, in)
	return p, mapErr(err, MsgProductNotFound, MsgSaveProduct)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*Product, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Validation(MsgMissingFields)
	}
	if patch.Price != nil && *patch.Price <= 0 {
		return nil, apperr.Validation(MsgMissingFields)
	}
	if patch.StockQuantity != nil && *patch.StockQuantity < 0 {
		return nil, apperr.Validation(MsgMissingFields)
	}
	if patch.CategoryIDs != nil {
		ids := dedupe(*patch.CategoryIDs)
		patch.CategoryIDs = &ids
	}

	p, err := s.store.UpdateProduct(ctx, id, patch)
	return p, mapErr(err, MsgProductNotFound, MsgSaveProduct)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return mapErr(s.store.DeleteProduct(ctx, id), MsgProductNotFound, MsgDeleteProductFailed)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Storage(MsgFetchCategories, err)
	}
	if categories == nil {
		categories = []Category{}
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	return c, mapErr(err, MsgCategoryNotFound, MsgFetchCategories)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation(MsgNameRequired)
	}
	c, err := s.store.CreateCategory(ctx, name)
	return c, mapErr(err, MsgCategoryNotFound, MsgSaveCategory)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, name string) (*Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation(MsgNameRequired)
	}
	c, err := s.store.UpdateCategory(ctx, id, name)
	return c, mapErr(err, MsgCategoryNotFound, MsgSaveCategory)
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return mapErr(s.store.DeleteCategory(ctx, id), MsgCategoryNotFound, MsgDeleteCategory)
}

func mapErr(err error, notFound, failed string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, ErrUnknownCategory):
		return apperr.Validation(MsgUnknownCategory)
	default:
		return apperr.Storage(failed, err)
	}
}
