// Package secrets holds notifier credentials in memory and supports
// reloading them while the service runs.
package secrets

import (
	"fmt"
	"sync"
)

// Loader retrieves secrets from a source, keyed by setting name.
type Loader func() (map[string]string, error)

// Vault holds secret values and swaps them atomically on reload.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{values: vals, loader: loader}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Reload calls the loader and swaps in the new values.
// If the loader fails, existing values are kept.
func (v *Vault) Reload() error {
	vals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = vals
	v.mu.Unlock()
	return nil
}

// Resolver returns a lookup that prefers vault values and falls back to
// plain settings.
func (v *Vault) Resolver(settings map[string]string) func(key string) string {
	return func(key string) string {
		if s := v.Get(key); s != "" {
			return s
		}
		return settings[key]
	}
}

// Redacted returns a masked form of the secret for logs.
func (v *Vault) Redacted(key string) string {
	s := v.Get(key)
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + "****"
	}
}
