package iceapi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CredentialStore holds the opaque session token attached to every
// authenticated request. Implementations must be safe for concurrent use; the
// token is shared mutable state read at dispatch time, so a token cleared
// mid-flight can still ride along on requests that already copied it into
// their headers.
type CredentialStore interface {
	Token() string
	SetToken(token string) error
	Clear() error
}

// MemoryCredentials keeps the token in memory. Suitable for tests and
// short-lived processes.
type MemoryCredentials struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryCredentials returns an empty in-memory store.
func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{}
}

func (m *MemoryCredentials) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryCredentials) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryCredentials) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// FileCredentials persists the token to a file so it survives process
// restarts, mirroring how the browser portal kept it in durable storage.
type FileCredentials struct {
	mu   sync.Mutex
	path string
}

// NewFileCredentials creates a file-backed store at path. The parent
// directory is created on first write.
func NewFileCredentials(path string) (*FileCredentials, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("iceapi: credential file path is required")
	}
	return &FileCredentials{path: path}, nil
}

func (f *FileCredentials) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (f *FileCredentials) SetToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("iceapi: create credential dir: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("iceapi: write credential file: %w", err)
	}
	return nil
}

func (f *FileCredentials) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("iceapi: remove credential file: %w", err)
	}
	return nil
}
