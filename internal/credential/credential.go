// Package credential stores the single session token the achievement client
// presents. At most one token exists at a time; Set always overwrites.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/marcus/dailygate/internal/config"
)

// ErrNotFound is returned by Get when no token is stored
var ErrNotFound = errors.New("no credential stored")

// Store is a single-slot secret store
type Store interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}

// Open returns the store selected by cfg.CredentialBackend
func Open(cfg *config.Config) (Store, error) {
	switch cfg.CredentialBackend {
	case config.BackendKeyring, "":
		return NewKeyring(cfg.KeyringService, cfg.KeyringAccount), nil
	case config.BackendFile:
		return NewFile(cfg.CredentialPath), nil
	}
	return nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
}

// Keyring keeps the token in the OS keychain (Secret Service, macOS
// Keychain, Windows Credential Manager) under a fixed service/account.
type Keyring struct {
	service string
	account string
}

// NewKeyring returns a keychain-backed store
func NewKeyring(service, account string) *Keyring {
	return &Keyring{service: service, account: account}
}

func (k *Keyring) Get() (string, error) {
	token, err := keyring.Get(k.service, k.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

func (k *Keyring) Set(token string) error {
	if err := keyring.Set(k.service, k.account, token); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// Clear removes the token. Clearing an empty slot is not an error.
func (k *Keyring) Clear() error {
	err := keyring.Delete(k.service, k.account)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("keyring delete: %w", err)
}

// File keeps the token in a 0600 file, for machines without a keychain
type File struct {
	path string
}

// NewFile returns a file-backed store
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Get() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read credential: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

func (f *File) Set(token string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "credential-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	return os.Rename(tmpName, f.path)
}

func (f *File) Clear() error {
	err := os.Remove(f.path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf("remove credential: %w", err)
}

// Memory is an in-process store
type Memory struct {
	mu    sync.Mutex
	token string
}

// NewMemory returns a store holding token (empty means none)
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNotFound
	}
	return m.token, nil
}

func (m *Memory) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// Mask returns a short printable prefix of a token for status output
func Mask(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "..." + fmt.Sprintf("(%d chars)", len(token))
}
