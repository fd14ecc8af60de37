package dashboard

import (
	"net/http"

	"github.com/markb/shopdash/internal/catalog"
)

const (
	msgProductDeleted  = "Product deleted"
	msgCategoryDeleted = "Category deleted"
)

type createProductRequest struct {
	Name          string   `json:"name" validate:"required"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price" validate:"required,gt=0"`
	StockQuantity *int     `json:"stockQuantity" validate:"required,gte=0"`
	ImageURL      *string  `json:"imageUrl"`
	CategoryIDs   []int64  `json:"categoryIds"`
}

// updateProductRequest fields are all optional; a present categoryIds
// replaces the product's links.
type updateProductRequest struct {
	Name          *string  `json:"name" validate:"omitnil,min=1"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price" validate:"omitnil,gt=0"`
	StockQuantity *int     `json:"stockQuantity" validate:"omitnil,gte=0"`
	ImageURL      *string  `json:"imageUrl"`
	CategoryIDs   *[]int64 `json:"categoryIds"`
}

type categoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// GET /api/products?page=1&limit=5&categoryId=2
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := s.catalog.ListProducts(r.Context(), catalog.PageRequest{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}, int64(queryInt(r, "categoryId")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GET /api/products/{id}
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// POST /api/products
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := bind(w, r, &req, catalog.MsgMissingFields); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.catalog.CreateProduct(r.Context(), catalog.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		StockQuantity: *req.StockQuantity,
		ImageURL:      req.ImageURL,
		CategoryIDs:   req.CategoryIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// PUT /api/products/{id}
func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateProductRequest
	if err := bind(w, r, &req, catalog.MsgMissingFields); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.catalog.UpdateProduct(r.Context(), id, catalog.ProductPatch{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		CategoryIDs:   req.CategoryIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DELETE /api/products/{id}
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, msgProductDeleted)
}

// GET /api/categories
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// GET /api/categories/{id}
func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// POST /api/categories
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := bind(w, r, &req, catalog.MsgNameRequired); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.catalog.CreateCategory(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// PUT /api/categories/{id}
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req categoryRequest
	if err := bind(w, r, &req, catalog.MsgNameRequired); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.catalog.UpdateCategory(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DELETE /api/categories/{id}
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, msgCategoryDeleted)
}
