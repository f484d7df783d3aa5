// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/fieldplot/plotcore"
)

// ErrNoBackend is returned by Open when no registered backend is
// available on this system.
var ErrNoBackend = errors.New("backend: no device backend available")

// Options configures device creation.
type Options struct {
	// FrameWidth is the output surface width in pixels.
	// Defaults to DefaultFrameSize.
	FrameWidth int

	// FrameHeight is the output surface height in pixels.
	// Defaults to DefaultFrameSize.
	FrameHeight int
}

// DefaultFrameSize is the default output surface edge length in pixels.
const DefaultFrameSize = 500

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.FrameWidth <= 0 {
		o.FrameWidth = DefaultFrameSize
	}
	if o.FrameHeight <= 0 {
		o.FrameHeight = DefaultFrameSize
	}
	return o
}

// DeviceFactory creates a new device with the given options.
// Implementations should validate options and return descriptive errors.
type DeviceFactory func(opts Options) (plotcore.Device, error)

// RegistryEntry represents a registered device backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: GPU backends
	//   - 10: pure software backends
	Priority int

	// Factory creates device instances.
	Factory DeviceFactory

	// Available reports if the backend is usable on this system.
	Available func() bool
}

// globalRegistry is the default registry.
var globalRegistry = NewRegistry()

// Registry manages registered device backends.
//
// The registry enables GPU backends to register themselves from init()
// without the core library importing them.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and Open.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a backend to the global registry.
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory DeviceFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered backend names sorted by priority
// (highest first).
func List() []string {
	return globalRegistry.List()
}

// Get returns information about a specific backend.
func Get(name string) (*RegistryEntry, bool) {
	return globalRegistry.Get(name)
}

// Open creates a device using the best available backend.
func Open(opts Options) (plotcore.Device, error) {
	return globalRegistry.Open(opts)
}

// OpenByName creates a device using a specific backend.
func OpenByName(name string, opts Options) (plotcore.Device, error) {
	return globalRegistry.OpenByName(name, opts)
}

// Register adds a backend to the registry.
func (r *Registry) Register(name string, priority int, factory DeviceFactory, available func() bool) {
	if available == nil {
		available = func() bool { return true }
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Get returns information about a specific backend.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// sorted returns all entries sorted by priority, highest first.
// Names break ties so selection is deterministic.
func (r *Registry) sorted() []*RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// List returns all registered backend names sorted by priority
// (highest first).
func (r *Registry) List() []string {
	entries := r.sorted()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Open creates a device using the highest-priority available backend.
// Unavailable backends are skipped; a factory error aborts the search,
// since a registered-and-available backend that fails to open indicates
// a real problem rather than a missing capability.
func (r *Registry) Open(opts Options) (plotcore.Device, error) {
	for _, e := range r.sorted() {
		if !e.Available() {
			continue
		}
		dev, err := e.Factory(opts.withDefaults())
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", e.Name, err)
		}
		return dev, nil
	}
	return nil, ErrNoBackend
}

// OpenByName creates a device using a specific backend, bypassing the
// availability probe.
func (r *Registry) OpenByName(name string, opts Options) (plotcore.Device, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q not registered", ErrNoBackend, name)
	}
	dev, err := e.Factory(opts.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("backend %q: %w", name, err)
	}
	return dev, nil
}
