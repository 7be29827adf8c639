// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for panelq.
// Dataset endpoints carry plaintext database passwords, so they are stored in the
// OS credential store (macOS Keychain, Windows Credential Manager, Secret Service or
// KWallet on Linux, pass as a fallback) under one key per dataset.
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	mu            sync.Mutex
)

// ErrNotFound is returned when no secret is stored under a key.
var ErrNotFound = errors.New("key not found")

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "panelq"

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// DatasetKey returns the keychain key holding the endpoint of a dataset.
func DatasetKey(datasetID int64) string {
	return fmt.Sprintf("dataset_%d", datasetID)
}

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// The security CLI avoids the keychain prompts the cgo backend triggers.
	if runtime.GOOS == "darwin" {
		if backend, err := newSecurityBackend(); err == nil {
			return &Manager{backend: backend}, nil
		}
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing wraps an already opened keyring, such as keyring.NewArrayKeyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{backend: ringBackend{ring: ring}}
}

// GetManager returns the global keychain manager instance.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only. There is no
// encrypted-file fallback.
func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		// pass requires: brew install pass gnupg
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, fmt.Errorf("secure storage not supported on %s", runtime.GOOS)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
		KWalletAppID:    ServiceName,
		KWalletFolder:   ServiceName,
	})
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. On macOS 26.0+, install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

// SaveDatasetEndpoint stores the connection endpoint of a dataset.
// This method is thread-safe.
func (m *Manager) SaveDatasetEndpoint(datasetID int64, endpoint string) error {
	if endpoint == "" {
		return errors.New("empty endpoint")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Set(DatasetKey(datasetID), endpoint)
}

// LoadDatasetEndpoint retrieves the connection endpoint of a dataset. It returns
// ErrNotFound when nothing is stored.
// This method is thread-safe.
func (m *Manager) LoadDatasetEndpoint(datasetID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	endpoint, err := m.backend.Get(DatasetKey(datasetID))
	if err != nil {
		return "", err
	}
	if endpoint == "" {
		return "", ErrNotFound
	}
	return endpoint, nil
}

// ClearDatasetEndpoint removes the endpoint of a dataset. Missing keys are not an error.
// This method is thread-safe.
func (m *Manager) ClearDatasetEndpoint(datasetID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Delete(DatasetKey(datasetID))
}

// ringBackend adapts a keyring.Keyring to keychainBackend.
type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	if err := r.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
