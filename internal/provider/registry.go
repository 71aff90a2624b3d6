// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package provider

import (
	"sync"

	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Registry holds the named provider implementations for each role. Vendors
// register whichever roles they support; configuration selects one
// implementation per role at wiring time.
type Registry struct {
	mu          sync.RWMutex
	normalizers map[string]Normalizer
	embedders   map[string]Embedder
	reasoners   map[string]Reasoner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		normalizers: make(map[string]Normalizer),
		embedders:   make(map[string]Embedder),
		reasoners:   make(map[string]Reasoner),
	}
}

// RegisterNormalizer adds a normalizer under the vendor name.
func (r *Registry) RegisterNormalizer(name string, n Normalizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalizers[name] = n
}

// RegisterEmbedder adds an embedder under the vendor name.
func (r *Registry) RegisterEmbedder(name string, e Embedder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedders[name] = e
}

// RegisterReasoner adds a reasoner under the vendor name.
func (r *Registry) RegisterReasoner(name string, c Reasoner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasoners[name] = c
}

// Normalizer returns the registered normalizer for name.
func (r *Registry) Normalizer(name string) (Normalizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.normalizers[name]
	if !ok {
		return nil, llerr.Errorf(llerr.CodeProviderNotFound, "no normalizer registered for provider %q", name)
	}
	return n, nil
}

// Embedder returns the registered embedder for name.
func (r *Registry) Embedder(name string) (Embedder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.embedders[name]
	if !ok {
		return nil, llerr.Errorf(llerr.CodeProviderNotFound, "no embedder registered for provider %q", name)
	}
	return e, nil
}

// Reasoner returns the registered reasoner for name.
func (r *Registry) Reasoner(name string) (Reasoner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.reasoners[name]
	if !ok {
		return nil, llerr.Errorf(llerr.CodeProviderNotFound, "no reasoner registered for provider %q", name)
	}
	return c, nil
}
