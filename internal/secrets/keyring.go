// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"

	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// KeyringStore implements Store using the OS keyring via zalando/go-keyring:
// Keychain on macOS, secret-service on Linux, Credential Manager on Windows.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := validate(service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return llerr.Wrapf(err, llerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := validate(service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", llerr.Errorf(llerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", llerr.Wrapf(err, llerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := validate(service, key); err != nil {
		return err
	}

	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return llerr.Errorf(llerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return llerr.Wrapf(err, llerr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return nil
}

func validate(service, key string) error {
	if service == "" {
		return llerr.New(llerr.CodeSecretInvalidInput, "secret store: service must not be empty")
	}
	if key == "" {
		return llerr.New(llerr.CodeSecretInvalidInput, "secret store: key must not be empty")
	}
	return nil
}
