// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Config is the top-level LogLens configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Roles     RolesConfig               `mapstructure:"roles"`
	Search    SearchConfig              `mapstructure:"search"`
	Pipeline  PipelineConfig            `mapstructure:"pipeline"`
	Caches    CachesConfig              `mapstructure:"caches"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// StorageConfig locates the SQLite databases.
type StorageConfig struct {
	Dir              string `mapstructure:"dir"`
	VectorDimensions int    `mapstructure:"vector_dimensions"`
}

// ProviderConfig holds credentials and endpoint for one LLM vendor. API keys
// may be keyring:// URIs, resolved at load time.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// RoleConfig selects the vendor and model serving one pipeline role.
type RoleConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// RolesConfig assigns a vendor and model to each of the three pipeline
// roles. Roles are independent: the embedder can come from a different
// vendor than the normalizer.
type RolesConfig struct {
	Normalizer RoleConfig `mapstructure:"normalizer"`
	Embedder   RoleConfig `mapstructure:"embedder"`
	Reasoner   RoleConfig `mapstructure:"reasoner"`
}

// SearchConfig controls the similarity pipeline.
type SearchConfig struct {
	TopN               int  `mapstructure:"top_n"`
	WriteBackThreshold int  `mapstructure:"write_back_threshold"`
	IncludeSelf        bool `mapstructure:"include_self"`
}

// PipelineConfig controls provider call behavior.
type PipelineConfig struct {
	RetryAttempts int `mapstructure:"retry_attempts"`
}

// CacheConfig sizes one cache. Capacity 0 disables it.
type CacheConfig struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// CachesConfig sizes the three result caches independently.
type CachesConfig struct {
	Records  CacheConfig `mapstructure:"records"`
	Searches CacheConfig `mapstructure:"searches"`
	Insights CacheConfig `mapstructure:"insights"`
}

// roleVendors lists which vendors can serve each role. Anthropic has no
// embedding endpoint; the OpenAI adapter implements no normalizer.
var roleVendors = map[string][]string{
	"normalizer": {"google", "anthropic"},
	"embedder":   {"google", "openai"},
	"reasoner":   {"google", "openai", "anthropic"},
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix LOGLENS_).
func Load(path string) (*Config, error) {
	v := NewViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, llerr.Errorf(llerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// NewViper builds a Viper instance with LogLens defaults and environment
// overrides applied.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.listen", "127.0.0.1:8750")
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.vector_dimensions", 768)
	v.SetDefault("roles.normalizer.provider", "google")
	v.SetDefault("roles.normalizer.model", "gemini-2.5-flash")
	v.SetDefault("roles.embedder.provider", "google")
	v.SetDefault("roles.embedder.model", "gemini-embedding-001")
	v.SetDefault("roles.reasoner.provider", "google")
	v.SetDefault("roles.reasoner.model", "gemini-2.5-flash")
	v.SetDefault("search.top_n", 5)
	v.SetDefault("search.write_back_threshold", 70)
	v.SetDefault("search.include_self", false)
	v.SetDefault("pipeline.retry_attempts", 3)
	v.SetDefault("caches.records.capacity", 1024)
	v.SetDefault("caches.records.ttl", "10m")
	v.SetDefault("caches.searches.capacity", 256)
	v.SetDefault("caches.searches.ttl", "5m")
	v.SetDefault("caches.insights.capacity", 512)
	v.SetDefault("caches.insights.ttl", "10m")

	v.SetEnvPrefix("LOGLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// FromViper unmarshals and validates a prepared Viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, llerr.Errorf(llerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, llerr.Errorf(llerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting every
// issue rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateRoles()...)
	errs = append(errs, c.validateSearch()...)
	errs = append(errs, c.validateCaches()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
		return errs
	}

	host, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
		return errs
	}
	if host == "" {
		errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue, "config: server.listen must include a host"))
	}
	if port, err := strconv.Atoi(portStr); err != nil || port < 1 || port > 65535 {
		errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %q", portStr))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	if c.Storage.Dir == "" {
		errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue, "config: storage.dir must not be empty"))
	}
	if c.Storage.VectorDimensions < 1 {
		errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
			"config: storage.vector_dimensions must be positive, got %d", c.Storage.VectorDimensions))
	}

	return errs
}

func (c *Config) validateRoles() []error {
	var errs []error

	check := func(role string, rc RoleConfig, required bool) {
		if rc.Provider == "" {
			if required {
				errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
					"config: roles.%s.provider must be set", role))
			}
			return
		}

		allowed := roleVendors[role]
		found := false
		for _, vendor := range allowed {
			if rc.Provider == vendor {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
				"config: roles.%s.provider must be one of %v, got %q", role, allowed, rc.Provider))
			return
		}

		if rc.Model == "" {
			errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
				"config: roles.%s.model must be set", role))
		}
		if pc, ok := c.Providers[rc.Provider]; !ok || pc.APIKey == "" {
			errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
				"config: providers.%s.api_key must be set to serve roles.%s", rc.Provider, role))
		}
	}

	check("normalizer", c.Roles.Normalizer, true)
	check("embedder", c.Roles.Embedder, true)
	// The reasoner is optional: without one every search is degraded but
	// still functional.
	check("reasoner", c.Roles.Reasoner, false)

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	if c.Search.TopN < 1 || c.Search.TopN > 50 {
		errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
			"config: search.top_n must be between 1 and 50, got %d", c.Search.TopN))
	}
	if c.Search.WriteBackThreshold < 0 || c.Search.WriteBackThreshold > 100 {
		errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
			"config: search.write_back_threshold must be between 0 and 100, got %d", c.Search.WriteBackThreshold))
	}

	return errs
}

func (c *Config) validateCaches() []error {
	var errs []error

	for name, cc := range map[string]CacheConfig{
		"records":  c.Caches.Records,
		"searches": c.Caches.Searches,
		"insights": c.Caches.Insights,
	} {
		if cc.Capacity < 0 {
			errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
				"config: caches.%s.capacity must not be negative, got %d", name, cc.Capacity))
		}
		if cc.Capacity > 0 && cc.TTL <= 0 {
			errs = append(errs, llerr.Errorf(llerr.CodeConfigValidateInvalidValue,
				"config: caches.%s.ttl must be positive when the cache is enabled", name))
		}
	}

	return errs
}
