// Package repofake is an in-memory catalog.Store.
package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/markb/shopdash/internal/catalog"
)

type FakeCatalogRepo struct {
	mu             sync.RWMutex
	nextProductID  int64
	nextCategoryID int64
	products       map[int64]*catalog.Product
	categories     map[int64]*catalog.Category
	links          map[int64][]int64 // product id -> category ids

	// FailWith, when set, is returned by every method.
	FailWith error
}

var _ catalog.Store = (*FakeCatalogRepo)(nil)

func NewFakeCatalogRepo() *FakeCatalogRepo {
	return &FakeCatalogRepo{
		products:   make(map[int64]*catalog.Product),
		categories: make(map[int64]*catalog.Category),
		links:      make(map[int64][]int64),
	}
}

func (r *FakeCatalogRepo) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.FailWith != nil {
		return nil, 0, r.FailWith
	}

	var matched []catalog.Product
	for _, id := range r.sortedProductIDs() {
		if f.CategoryID != 0 && !contains(r.links[id], f.CategoryID) {
			continue
		}
		matched = append(matched, r.view(id))
	}

	total := len(matched)
	start := min(max(f.Offset, 0), total)
	end := min(start+f.Limit, total)
	return matched[start:end], total, nil
}

func (r *FakeCatalogRepo) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	if _, ok := r.products[id]; !ok {
		return nil, catalog.ErrNotFound
	}
	p := r.view(id)
	return &p, nil
}

func (r *FakeCatalogRepo) CreateProduct(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	if !r.categoriesExist(in.CategoryIDs) {
		return nil, catalog.ErrUnknownCategory
	}

	r.nextProductID++
	id := r.nextProductID
	r.products[id] = &catalog.Product{
		ID:            id,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		ImageURL:      in.ImageURL,
		CreatedAt:     time.Now(),
	}
	r.links[id] = append([]int64(nil), in.CategoryIDs...)

	p := r.view(id)
	return &p, nil
}

func (r *FakeCatalogRepo) UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	p, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	if patch.CategoryIDs != nil && !r.categoriesExist(*patch.CategoryIDs) {
		return nil, catalog.ErrUnknownCategory
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	if patch.ImageURL != nil {
		p.ImageURL = patch.ImageURL
	}
	if patch.CategoryIDs != nil {
		r.links[id] = append([]int64(nil), (*patch.CategoryIDs)...)
	}

	updated := r.view(id)
	return &updated, nil
}

func (r *FakeCatalogRepo) DeleteProduct(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return r.FailWith
	}
	if _, ok := r.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(r.products, id)
	delete(r.links, id)
	return nil
}

func (r *FakeCatalogRepo) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	categories := make([]catalog.Category, 0, len(r.categories))
	for _, c := range r.categories {
		categories = append(categories, *c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

func (r *FakeCatalogRepo) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	c, ok := r.categories[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *FakeCatalogRepo) CreateCategory(ctx context.Context, name string) (*catalog.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	r.nextCategoryID++
	c := &catalog.Category{ID: r.nextCategoryID, Name: name}
	r.categories[c.ID] = c
	copied := *c
	return &copied, nil
}

func (r *FakeCatalogRepo) UpdateCategory(ctx context.Context, id int64, name string) (*catalog.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	c, ok := r.categories[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	c.Name = name
	copied := *c
	return &copied, nil
}

func (r *FakeCatalogRepo) DeleteCategory(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return r.FailWith
	}
	if _, ok := r.categories[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(r.categories, id)
	for pid, ids := range r.links {
		r.links[pid] = remove(ids, id)
	}
	return nil
}

// view copies a product with its categories resolved. Caller holds mu.
func (r *FakeCatalogRepo) view(id int64) catalog.Product {
	p := *r.products[id]
	ids := append([]int64(nil), r.links[id]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	p.Categories = make([]catalog.ProductCategory, 0, len(ids))
	for _, cid := range ids {
		p.Categories = append(p.Categories, catalog.ProductCategory{
			ProductID:  id,
			CategoryID: cid,
			Category:   *r.categories[cid],
		})
	}
	return p
}

func (r *FakeCatalogRepo) sortedProductIDs() []int64 {
	ids := make([]int64, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *FakeCatalogRepo) categoriesExist(ids []int64) bool {
	for _, id := range ids {
		if _, ok := r.categories[id]; !ok {
			return false
		}
	}
	return true
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
