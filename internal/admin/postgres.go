package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/markb/shopdash/internal/pg"
)

// PostgresStore is the Store backed by the admins table.
type PostgresStore struct {
	db pg.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db pg.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new admin user into the database
func (s *PostgresStore) Create(ctx context.Context, username, email, passwordHash string) (*Admin, error) {
	query := `
		INSERT INTO admins (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, email, password_hash, created_at
	`

	var a Admin
	err := s.db.QueryRow(ctx, query, username, email, passwordHash).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return &a, nil
}

// FindByEmail looks up an admin by email address
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM admins
		WHERE email = $1
	`

	var a Admin
	err := s.db.QueryRow(ctx, query, email).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}

	return &a, nil
}

// List returns all admin users
func (s *PostgresStore) List(ctx context.Context) ([]Admin, error) {
	query := `
		SELECT id, username, email, created_at
		FROM admins
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var admins []Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}

	return admins, rows.Err()
}
