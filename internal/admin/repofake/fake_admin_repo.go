// Package repofake is an in-memory admin.Store.
package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/markb/shopdash/internal/admin"
)

type FakeAdminRepo struct {
	mu      sync.RWMutex
	nextID  int64
	byEmail map[string]*admin.Admin
	order   []string

	// FailWith, when set, is returned by every method.
	FailWith error
}

var _ admin.Store = (*FakeAdminRepo)(nil)

func NewFakeAdminRepo() *FakeAdminRepo {
	return &FakeAdminRepo{byEmail: make(map[string]*admin.Admin)}
}

// Create checks and inserts under one lock, so concurrent callers with the
// same email get exactly one success.
func (r *FakeAdminRepo) Create(ctx context.Context, username, email, passwordHash string) (*admin.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	if _, ok := r.byEmail[email]; ok {
		return nil, admin.ErrDuplicateEmail
	}

	r.nextID++
	a := &admin.Admin{
		ID:           r.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	r.byEmail[email] = a
	r.order = append(r.order, email)

	copied := *a
	return &copied, nil
}

func (r *FakeAdminRepo) FindByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	a, ok := r.byEmail[email]
	if !ok {
		return nil, admin.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *FakeAdminRepo) List(ctx context.Context) ([]admin.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}
	admins := make([]admin.Admin, 0, len(r.order))
	for _, email := range r.order {
		admins = append(admins, *r.byEmail[email])
	}
	return admins, nil
}
