package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/markb/shopdash/internal/admin"
	"github.com/markb/shopdash/internal/log"
)

// StorageKey is the entry the session lives under.
const StorageKey = "auth"

// ErrLoginRequired is returned by ProtectedRoute without a session.
var ErrLoginRequired = errors.New("login required")

// Storage is a durable key/value store for client state.
type Storage interface {
	// Get returns ok=false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	// Remove does not fail on an absent key.
	Remove(key string) error
}

// FileStorage keeps one file per key in a directory.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// DefaultStorageDir is the per-user config directory for shopdash.
func DefaultStorageDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "shopdash"), nil
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStorage) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set writes through a temp file and a rename, so readers see the old or
// the new value, never a partial one.
func (s *FileStorage) Set(key string, value []byte) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

func (s *FileStorage) Remove(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStorage is a Storage held in a map.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return append([]byte(nil), v...), ok, nil
}

func (s *MemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// sessionEntry is what is written under StorageKey.
type sessionEntry struct {
	Admin *admin.PublicView `json:"admin"`
	Token *string           `json:"token"`
}

// Session is the logged-in admin and token, mirrored to Storage.
//
// It only decides what the client shows. The server's guard is what
// actually protects data.
type Session struct {
	mu      sync.RWMutex
	storage Storage
	admin   *admin.PublicView
	token   string
}

// NewSession loads the session from storage. A missing or unreadable
// entry yields an empty session.
func NewSession(storage Storage) *Session {
	s := &Session{storage: storage}
	if err := s.Reload(); err != nil {
		log.Warn("discarding stored session", "error", err)
	}
	return s
}

// Reload replaces the in-memory state with what storage holds. On error
// the session is left empty.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admin, s.token = nil, ""

	data, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil
	}

	var entry sessionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	if entry.Admin == nil || entry.Token == nil || *entry.Token == "" {
		return nil
	}

	a := *entry.Admin
	s.admin, s.token = &a, *entry.Token
	return nil
}

// Login records admin and token in memory and in storage with a single
// write.
func (s *Session) Login(a admin.PublicView, token string) error {
	data, err := json.Marshal(sessionEntry{Admin: &a, Token: &token})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(StorageKey, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.admin, s.token = &a, token
	return nil
}

// Logout clears the session and removes the stored entry.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admin, s.token = nil, ""
	if err := s.storage.Remove(StorageKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Current returns the admin and token, or nil and "" when logged out.
func (s *Session) Current() (*admin.PublicView, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.admin == nil {
		return nil, s.token
	}
	a := *s.admin
	return &a, s.token
}

// Authenticated reports whether both an admin and a token are present.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin != nil && s.token != ""
}

// ProtectedRoute runs view with the current admin and token, or returns
// ErrLoginRequired without running it.
func (s *Session) ProtectedRoute(view func(a admin.PublicView, token string) error) error {
	a, token := s.Current()
	if a == nil || token == "" {
		return ErrLoginRequired
	}
	return view(*a, token)
}
