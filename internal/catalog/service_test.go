package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markb/shopdash/internal/apperr"
	"github.com/markb/shopdash/internal/catalog"
	"github.com/markb/shopdash/internal/catalog/repofake"
)

func newService(t *testing.T) (*catalog.Service, *repofake.FakeCatalogRepo) {
	t.Helper()
	repo := repofake.NewFakeCatalogRepo()
	return catalog.NewService(repo), repo
}

func ptr[T any](v T) *T { return &v }

func TestCreateProduct_Validation(t *testing.T) {
	svc, repo := newService(t)
	repo.FailWith = errors.New("store must not be reached")
	ctx := context.Background()

	tests := []struct {
		name string
		in   catalog.ProductInput
	}{
		{"missing name", catalog.ProductInput{Price: 1, StockQuantity: 1}},
		{"blank name", catalog.ProductInput{Name: "  ", Price: 1, StockQuantity: 1}},
		{"zero price", catalog.ProductInput{Name: "Mug", StockQuantity: 1}},
		{"negative price", catalog.ProductInput{Name: "Mug", Price: -2, StockQuantity: 1}},
		{"negative stock", catalog.ProductInput{Name: "Mug", Price: 2, StockQuantity: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, catalog.MsgMissingFields, apperr.PublicMessage(err, ""))
		})
	}
}

func TestCreateProduct_WithCategories(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	mugs, err := svc.CreateCategory(ctx, "Mugs")
	require.NoError(t, err)
	gifts, err := svc.CreateCategory(ctx, "Gifts")
	require.NoError(t, err)

	p, err := svc.CreateProduct(ctx, catalog.ProductInput{
		Name:          "Mug",
		Description:   ptr("Blue"),
		Price:         9.5,
		StockQuantity: 0,
		CategoryIDs:   []int64{gifts.ID, mugs.ID, gifts.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Blue", *p.Description)
	require.Len(t, p.Categories, 2)
	assert.Equal(t, mugs.ID, p.Categories[0].CategoryID)
	assert.Equal(t, "Mugs", p.Categories[0].Category.Name)
	assert.Equal(t, p.ID, p.Categories[0].ProductID)
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateProduct(context.Background(), catalog.ProductInput{
		Name: "Mug", Price: 1, StockQuantity: 1, CategoryIDs: []int64{42},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, catalog.MsgUnknownCategory, apperr.PublicMessage(err, ""))
}

func TestListProducts_Paging(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "P", Price: 1, StockQuantity: i})
		require.NoError(t, err)
	}

	page, err := svc.ListProducts(ctx, catalog.PageRequest{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Data, 5)
	assert.Equal(t, int64(1), page.Data[0].ID)

	last, err := svc.ListProducts(ctx, catalog.PageRequest{Page: 3, Limit: 5}, 0)
	require.NoError(t, err)
	require.Len(t, last.Data, 2)
	assert.Equal(t, int64(11), last.Data[0].ID)

	beyond, err := svc.ListProducts(ctx, catalog.PageRequest{Page: 9, Limit: 5}, 0)
	require.NoError(t, err)
	assert.NotNil(t, beyond.Data)
	assert.Empty(t, beyond.Data)
	assert.Equal(t, 12, beyond.Total)
}

func TestListProducts_PageBeyondRange(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Mug", Price: 3, StockQuantity: 1})
	require.NoError(t, err)

	page, err := svc.ListProducts(ctx, catalog.PageRequest{Page: (1 << 61) + 1, Limit: 4}, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
	assert.Equal(t, 1, page.Total)
}

func TestListProducts_CategoryFilter(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, "Tea")
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, catalog.ProductInput{Name: "Plain", Price: 1, StockQuantity: 1})
	require.NoError(t, err)
	tagged, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Tagged", Price: 1, StockQuantity: 1, CategoryIDs: []int64{c.ID}})
	require.NoError(t, err)

	page, err := svc.ListProducts(ctx, catalog.PageRequest{}, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, tagged.ID, page.Data[0].ID)
}

func TestUpdateProduct(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.CreateCategory(ctx, "A")
	require.NoError(t, err)
	b, err := svc.CreateCategory(ctx, "B")
	require.NoError(t, err)
	p, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Mug", Price: 3, StockQuantity: 4, CategoryIDs: []int64{a.ID}})
	require.NoError(t, err)

	t.Run("partial update keeps other fields", func(t *testing.T) {
		got, err := svc.UpdateProduct(ctx, p.ID, catalog.ProductPatch{Price: ptr(4.25)})
		require.NoError(t, err)
		assert.Equal(t, 4.25, got.Price)
		assert.Equal(t, "Mug", got.Name)
		assert.Equal(t, 4, got.StockQuantity)
		require.Len(t, got.Categories, 1)
	})

	t.Run("category ids replace links", func(t *testing.T) {
		got, err := svc.UpdateProduct(ctx, p.ID, catalog.ProductPatch{CategoryIDs: &[]int64{b.ID}})
		require.NoError(t, err)
		require.Len(t, got.Categories, 1)
		assert.Equal(t, b.ID, got.Categories[0].CategoryID)
	})

	t.Run("empty category ids clear links", func(t *testing.T) {
		got, err := svc.UpdateProduct(ctx, p.ID, catalog.ProductPatch{CategoryIDs: &[]int64{}})
		require.NoError(t, err)
		assert.Empty(t, got.Categories)
	})

	t.Run("invalid values", func(t *testing.T) {
		for _, patch := range []catalog.ProductPatch{
			{Name: ptr("")},
			{Price: ptr(0.0)},
			{StockQuantity: ptr(-1)},
		} {
			_, err := svc.UpdateProduct(ctx, p.ID, patch)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "patch %+v", patch)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := svc.UpdateProduct(ctx, 999, catalog.ProductPatch{Name: ptr("x")})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		assert.Equal(t, catalog.MsgProductNotFound, apperr.PublicMessage(err, ""))
	})
}

func TestDeleteProduct(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Mug", Price: 3, StockQuantity: 4})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))

	_, err = svc.GetProduct(ctx, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(svc.DeleteProduct(ctx, p.ID), apperr.KindNotFound))
}

func TestCategories(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, " ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, catalog.MsgNameRequired, apperr.PublicMessage(err, ""))

	empty, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	c, err := svc.CreateCategory(ctx, "Tea")
	require.NoError(t, err)

	renamed, err := svc.UpdateCategory(ctx, c.ID, "Coffee")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", renamed.Name)

	_, err = svc.UpdateCategory(ctx, c.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	p, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Bean", Price: 1, StockQuantity: 1, CategoryIDs: []int64{c.ID}})
	require.NoError(t, err)
	require.Len(t, p.Categories, 1)

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Categories, "deleting a category unlinks it")

	_, err = svc.GetCategory(ctx, c.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, catalog.MsgCategoryNotFound, apperr.PublicMessage(err, ""))
}

func TestStorageErrors(t *testing.T) {
	svc, repo := newService(t)
	repo.FailWith = errors.New("connection reset")
	ctx := context.Background()

	_, err := svc.ListProducts(ctx, catalog.PageRequest{}, 0)
	assert.True(t, apperr.Is(err, apperr.KindStorage))
	assert.Equal(t, catalog.MsgFetchProducts, apperr.PublicMessage(err, ""))
	assert.ErrorIs(t, err, repo.FailWith)

	_, err = svc.ListCategories(ctx)
	assert.True(t, apperr.Is(err, apperr.KindStorage))

	err = svc.DeleteCategory(ctx, 1)
	assert.True(t, apperr.Is(err, apperr.KindStorage))
	assert.Equal(t, catalog.MsgDeleteCategory, apperr.PublicMessage(err, ""))
}
