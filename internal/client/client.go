// Package client talks to the shopdash HTTP API and keeps the local login
// session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/markb/shopdash/internal/admin"
	"github.com/markb/shopdash/internal/catalog"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client is a shopdash API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a client for the server at baseURL. A nil httpClient gets a
// client with a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	Admin   admin.PublicView `json:"admin"`
}

// ProductFields is the body of product create and update calls. Nil
// fields are omitted.
type ProductFields struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	StockQuantity *int     `json:"stockQuantity,omitempty"`
	ImageURL      *string  `json:"imageUrl,omitempty"`
	CategoryIDs   *[]int64 `json:"categoryIds,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (c *Client) Register(ctx context.Context, username, email, password string) (admin.PublicView, error) {
	var out struct {
		Admin admin.PublicView `json:"admin"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return admin.PublicView{}, fmt.Errorf("register: %w", err)
	}
	return out.Admin, nil
}

// Login exchanges credentials for a token. The client does not keep the
// token; pass it to SetToken or a Session.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (admin.PublicView, error) {
	var out struct {
		Admin admin.PublicView `json:"admin"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return admin.PublicView{}, fmt.Errorf("me: %w", err)
	}
	return out.Admin, nil
}

// ListProducts fetches one page. Zero values leave the server defaults.
func (c *Client) ListProducts(ctx context.Context, page, limit int, categoryID int64) (*catalog.ProductPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if categoryID > 0 {
		q.Set("categoryId", strconv.FormatInt(categoryID, 10))
	}
	path := "/api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out catalog.ProductPage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	var out catalog.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, fields ProductFields) (*catalog.Product, error) {
	var out catalog.Product
	if err := c.do(ctx, http.MethodPost, "/api/products", fields, &out); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, fields ProductFields) (*catalog.Product, error) {
	var out catalog.Product
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/products/%d", id), fields, &out); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/products/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &out); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, name string) (*catalog.Category, error) {
	var out catalog.Category
	if err := c.do(ctx, http.MethodPost, "/api/categories", map[string]string{"name": name}, &out); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, name string) (*catalog.Category, error) {
	var out catalog.Category
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/categories/%d", id), map[string]string{"name": name}, &out); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/categories/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// do sends in as JSON (if non-nil) and decodes a 2xx body into out (if
// non-nil). Other statuses become an *APIError with the server's message.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var msg messageBody
		if json.Unmarshal(data, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
