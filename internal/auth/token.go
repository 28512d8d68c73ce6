package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const tokenFileName = "token"

// CookieName is the cookie that carries the session token to same-site services.
const CookieName = "token"

// ErrNoToken is returned by TokenStore.Get when no session token is stored.
var ErrNoToken = errors.New("no session token")

// TokenStore persists the session token.
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Remove() error
}

// FileTokenStore keeps the token in dir/token with owner-only permissions.
type FileTokenStore struct {
	dir string
}

func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{dir: dir}
}

func (s *FileTokenStore) path() string {
	return filepath.Join(s.dir, tokenFileName)
}

func (s *FileTokenStore) Get() (string, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *FileTokenStore) Set(token string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path(), []byte(token), 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Remove() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// MemoryTokenStore is an in-process TokenStore.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

func (s *MemoryTokenStore) Set(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Remove() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
