// Package catalog stores products, categories and the links between them.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownCategory = errors.New("unknown category")
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductCategory is one product-to-category link.
type ProductCategory struct {
	ProductID  int64    `json:"productId"`
	CategoryID int64    `json:"categoryId"`
	Category   Category `json:"category"`
}

type Product struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Description   *string           `json:"description"`
	Price         float64           `json:"price"`
	StockQuantity int               `json:"stockQuantity"`
	ImageURL      *string           `json:"imageUrl"`
	CreatedAt     time.Time         `json:"createdAt"`
	Categories    []ProductCategory `json:"categories"`
}

// ProductInput holds the fields of a new product.
type ProductInput struct {
	Name          string
	Description   *string
	Price         float64
	StockQuantity int
	ImageURL      *string
	CategoryIDs   []int64
}

// ProductPatch holds the fields to change; nil fields are left alone.
// A non-nil CategoryIDs replaces every link of the product.
type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *float64
	StockQuantity *int
	ImageURL      *string
	CategoryIDs   *[]int64
}

// Filter restricts and windows a product listing.
type Filter struct {
	CategoryID int64 // 0 means all categories
	Offset     int
	Limit      int
}

// Store persists the catalog. Lookups by id return ErrNotFound when the
// row does not exist; links to missing categories return ErrUnknownCategory.
type Store interface {
	ListProducts(ctx context.Context, f Filter) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, p ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// dedupe returns ids without repeats, keeping first-seen order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
