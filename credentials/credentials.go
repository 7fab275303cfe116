// Package credentials provides Store implementations for resolving storage
// account keys at runtime.
package credentials

import (
	"errors"
	"fmt"

	"github.com/sagarc03/azstore"
)

// ErrAccountNotFound is returned when the account does not exist in the store.
var ErrAccountNotFound = errors.New("storage account not found")

// Store resolves a storage account name to its shared account key.
type Store interface {
	Lookup(account string) (string, error)
}

// MapStore resolves account keys from an in-memory map. Suitable for
// configuration file-based key storage.
type MapStore struct {
	keys map[string]string
}

// NewMapStore creates a map-based store from an account name to account key
// mapping.
func NewMapStore(keys map[string]string) *MapStore {
	return &MapStore{keys: keys}
}

// Lookup retrieves the account key for the given account name from the map.
func (s *MapStore) Lookup(account string) (string, error) {
	key, found := s.keys[account]
	if !found {
		return "", fmt.Errorf("lookup %s: %w", account, ErrAccountNotFound)
	}
	return key, nil
}

// Resolve builds shared-key client credentials for account through a store.
func Resolve(store Store, account string) (azstore.Credentials, error) {
	key, err := store.Lookup(account)
	if err != nil {
		return azstore.Credentials{}, fmt.Errorf("resolve credentials: %w: %w", azstore.ErrCredentialConfig, err)
	}
	return azstore.SharedKeyCredentials(account, key), nil
}
