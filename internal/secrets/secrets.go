// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package secrets keeps provider API keys out of config files. Config values
// may use the keyring://service/key URI scheme, resolved against the OS
// keyring after the config is loaded.
package secrets

// Store provides secure secret storage operations.
type Store interface {
	// Store saves a secret value under the given service and key.
	Store(service, key, value string) error

	// Retrieve fetches the secret value for the given service and key.
	// Returns a not-found-coded error if the key does not exist.
	Retrieve(service, key string) (string, error)

	// Delete removes the secret for the given service and key.
	Delete(service, key string) error
}
