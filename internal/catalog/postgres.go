package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/markb/shopdash/internal/pg"
)

// PostgresStore is the Store backed by the products, categories and
// product_categories tables.
type PostgresStore struct {
	db pg.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db pg.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const productColumns = `p.id, p.name, p.description, p.price::float8, p.stock_quantity, p.image_url, p.created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Categories = []ProductCategory{}
	return &p, nil
}

// ListProducts returns one window of products ordered by id, plus the total
// number of products matching the filter.
func (s *PostgresStore) ListProducts(ctx context.Context, f Filter) ([]Product, int, error) {
	where := `WHERE ($1::bigint = 0 OR EXISTS (
		SELECT 1 FROM product_categories pc
		WHERE pc.product_id = p.id AND pc.category_id = $1
	))`

	var total int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM products p `+where, f.CategoryID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+productColumns+` FROM products p `+where+` ORDER BY p.id LIMIT $2 OFFSET $3`,
		f.CategoryID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := loadCategories(ctx, s.db, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return getProduct(ctx, s.db, id)
}

// CreateProduct inserts the product and its category links in one
// transaction.
func (s *PostgresStore) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var created *Product
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO products (name, description, price, stock_quantity, image_url)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, in.Name, in.Description, in.Price, in.StockQuantity, in.ImageURL).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		if err := linkCategories(ctx, tx, id, in.CategoryIDs); err != nil {
			return err
		}

		created, err = getProduct(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateProduct applies patch in one transaction.
func (s *PostgresStore) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*Product, error) {
	var updated *Product
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE products SET
				name           = COALESCE($2, name),
				description    = COALESCE($3, description),
				price          = COALESCE($4, price),
				stock_quantity = COALESCE($5, stock_quantity),
				image_url      = COALESCE($6, image_url)
			WHERE id = $1
		`, id, patch.Name, patch.Description, patch.Price, patch.StockQuantity, patch.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		if patch.CategoryIDs != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, id); err != nil {
				return fmt.Errorf("failed to clear product categories: %w", err)
			}
			if err := linkCategories(ctx, tx, id, *patch.CategoryIDs); err != nil {
				return err
			}
		}

		updated, err = getProduct(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct removes the product; its links go with it.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PostgresStore) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := s.db.QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := s.db.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id, name`, name).
		Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, id int64, name string) (*Category, error) {
	var c Category
	err := s.db.QueryRow(ctx, `UPDATE categories SET name = $2 WHERE id = $1 RETURNING id, name`, id, name).
		Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return &c, nil
}

// DeleteCategory removes the category and unlinks it from every product.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getProduct(ctx context.Context, q querier, id int64) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	products := []Product{*p}
	if err := loadCategories(ctx, q, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func linkCategories(ctx context.Context, tx pgx.Tx, productID int64, categoryIDs []int64) error {
	for _, categoryID := range categoryIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2)`,
			productID, categoryID)
		if err != nil {
			if pg.IsForeignKeyViolation(err) {
				return ErrUnknownCategory
			}
			return fmt.Errorf("failed to link category %d: %w", categoryID, err)
		}
	}
	return nil
}

// loadCategories fills Categories on every product with a single query.
func loadCategories(ctx context.Context, q querier, products []Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = i
		products[i].Categories = []ProductCategory{}
	}

	rows, err := q.Query(ctx, `
		SELECT pc.product_id, c.id, c.name
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.product_id = ANY($1)
		ORDER BY pc.product_id, c.id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load product categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var link ProductCategory
		if err := rows.Scan(&link.ProductID, &link.Category.ID, &link.Category.Name); err != nil {
			return err
		}
		link.CategoryID = link.Category.ID
		i := index[link.ProductID]
		products[i].Categories = append(products[i].Categories, link)
	}
	return rows.Err()
}
