// SPDX-License-Identifier: MPL-2.0

package mounts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// registryFileName is the TOML document recording active mounts, stored
// under the driftfs data directory.
const registryFileName = "mounts.toml"

type (
	// Mount is one active virtual repository.
	Mount struct {
		Path string `toml:"path"`
	}

	// registryDocument is the wire format of mounts.toml.
	registryDocument struct {
		Mounts []Mount `toml:"mounts"`
	}

	// Registry persists the set of active virtual repository mounts.
	Registry struct {
		path string
	}
)

// NewRegistry creates a Registry backed by the given file path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// DefaultRegistry creates a Registry rooted at the user config directory.
func DefaultRegistry() (*Registry, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	return NewRegistry(filepath.Join(dir, "driftfs", registryFileName)), nil
}

// List returns the recorded mounts. A missing registry file means no mounts.
func (r *Registry) List() ([]Mount, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading mount registry %s: %w", r.path, err)
	}

	var doc registryDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding mount registry %s: %w", r.path, err)
	}
	return doc.Mounts, nil
}

// Add records a mount point. Recording the same path twice is a no-op.
func (r *Registry) Add(path string) error {
	mounts, err := r.List()
	if err != nil {
		return err
	}

	for _, m := range mounts {
		if m.Path == path {
			return nil
		}
	}
	return r.write(append(mounts, Mount{Path: path}))
}

// Remove deletes a mount point from the registry. Removing an unrecorded
// path is a no-op.
func (r *Registry) Remove(path string) error {
	mounts, err := r.List()
	if err != nil {
		return err
	}

	kept := mounts[:0]
	for _, m := range mounts {
		if m.Path != path {
			kept = append(kept, m)
		}
	}
	return r.write(kept)
}

func (r *Registry) write(mounts []Mount) error {
	data, err := toml.Marshal(registryDocument{Mounts: mounts})
	if err != nil {
		return fmt.Errorf("encoding mount registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("writing mount registry %s: %w", r.path, err)
	}
	return nil
}
