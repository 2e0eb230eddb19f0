// Package inmemory provides a process-local storage.Driver.
package inmemory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/vellum/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	mu       sync.RWMutex
	sections map[string][]byte
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		sections: make(map[string][]byte),
	}
}

// Get returns a copy of the section contents.
func (d *Driver) Get(_ context.Context, section string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	data, ok := d.sections[section]
	if !ok {
		return nil, storage.ErrNotFound{Section: section}
	}
	return slices.Clone(data), nil
}

// Set stores a copy of data.
func (d *Driver) Set(_ context.Context, section string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sections[section] = slices.Clone(data)
	return nil
}

// Sections lists written sections in lexical order.
func (d *Driver) Sections(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.sections)), nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
