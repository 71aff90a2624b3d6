// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package secrets_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/loglens-dev/loglens/internal/secrets"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

func mockStore(t *testing.T) *secrets.KeyringStore {
	t.Helper()
	keyring.MockInit()
	return secrets.NewKeyringStore()
}

func TestIsKeyringURI(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"keyring://loglens/google-api-key", true},
		{"keyring://my-svc/my-key", true},
		{"${GOOGLE_API_KEY}", false},
		{"sk-abc123", false},
		{"", false},
		{"keyring://", true},
		{"vault://secret/key", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, secrets.IsKeyringURI(tt.value), tt.value)
	}
}

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://loglens/api-key", "loglens", "api-key", false},
		{"slashes in key", "keyring://loglens/path/to/key", "loglens", "path/to/key", false},
		{"not a keyring URI", "vault://secret/key", "", "", true},
		{"missing key", "keyring://loglens/", "", "", true},
		{"missing service", "keyring:///key", "", "", true},
		{"no path", "keyring://loglens", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, llerr.HasCode(err, llerr.CodeSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, svc)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestResolveKeyringURI(t *testing.T) {
	ks := mockStore(t)
	require.NoError(t, ks.Store("loglens", "test-key", "resolved-secret"))

	val, err := secrets.ResolveKeyringURI(ks, "keyring://loglens/test-key")
	require.NoError(t, err)
	assert.Equal(t, "resolved-secret", val)

	val, err = secrets.ResolveKeyringURI(ks, "literal-value")
	require.NoError(t, err)
	assert.Equal(t, "literal-value", val)

	_, err = secrets.ResolveKeyringURI(ks, "keyring://loglens/nonexistent")
	require.Error(t, err)
	assert.True(t, llerr.HasCode(err, llerr.CodeSecretResolveFailure))
}

func TestResolveViperSecrets(t *testing.T) {
	ks := mockStore(t)
	require.NoError(t, ks.Store("loglens", "google-api-key", "goog-secret"))
	require.NoError(t, ks.Store("loglens", "openai-api-key", "sk-oai-secret"))

	v := viper.New()
	v.Set("providers.google.api_key", "keyring://loglens/google-api-key")
	v.Set("providers.openai.api_key", "keyring://loglens/openai-api-key")
	v.Set("server.listen", "127.0.0.1:8750")

	require.NoError(t, secrets.ResolveViperSecrets(v, ks))

	assert.Equal(t, "goog-secret", v.GetString("providers.google.api_key"))
	assert.Equal(t, "sk-oai-secret", v.GetString("providers.openai.api_key"))
	assert.Equal(t, "127.0.0.1:8750", v.GetString("server.listen"))
}

func TestResolveViperSecrets_MissingSecret(t *testing.T) {
	ks := mockStore(t)

	v := viper.New()
	v.Set("providers.google.api_key", "keyring://loglens/nonexistent-key")

	err := secrets.ResolveViperSecrets(v, ks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.google.api_key")
}
