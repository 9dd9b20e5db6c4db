// SPDX-License-Identifier: MPL-2.0

package ring

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// upgradeFileName is the TOML document holding the configured ring, stored
// under the driftfs config directory.
const upgradeFileName = "upgrade.toml"

// upgradeDocument is the wire format of upgrade.toml.
type upgradeDocument struct {
	Ring string `toml:"ring"`
}

// Store reads and writes the persisted ring setting.
type Store struct {
	path string
}

// NewStore creates a Store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore creates a Store rooted at the user config directory
// (e.g., ~/.config/driftfs/upgrade.toml).
func DefaultStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	return NewStore(filepath.Join(dir, "driftfs", upgradeFileName)), nil
}

// Load returns the configured ring. A missing file means no ring is
// configured (None). An unknown ring value parses to Invalid without error so
// the caller can emit the invalid-ring guidance. A file that exists but
// cannot be read or decoded is a hard error: the config is unreadable.
func (s *Store) Load() (Ring, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return None, nil
		}
		return None, fmt.Errorf("reading ring config %s: %w", s.path, err)
	}

	var doc upgradeDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return None, fmt.Errorf("decoding ring config %s: %w", s.path, err)
	}

	return Parse(doc.Ring), nil
}

// Save persists the ring, creating the config directory as needed. Saving
// None or Invalid is rejected; use a named channel.
func (s *Store) Save(r Ring) error {
	if !r.Valid() {
		return fmt.Errorf("ring %q is not a named channel", r)
	}

	data, err := toml.Marshal(upgradeDocument{Ring: r.String()})
	if err != nil {
		return fmt.Errorf("encoding ring config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing ring config %s: %w", s.path, err)
	}
	return nil
}
