// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"driftfs-cli/internal/mounts"
)

func testRegistry(t *testing.T) *mounts.Registry {
	t.Helper()
	return mounts.NewRegistry(filepath.Join(t.TempDir(), "mounts.toml"))
}

func TestRunMountRecordsRepository(t *testing.T) {
	registry := testRegistry(t)
	repo := t.TempDir()
	var out bytes.Buffer

	if err := runMount(&out, registry, repo); err != nil {
		t.Fatalf("runMount() error = %v", err)
	}

	recorded, err := registry.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recorded) != 1 || recorded[0].Path != repo {
		t.Errorf("registry = %+v, want single entry %s", recorded, repo)
	}
}

func TestRunMountRejectsMissingPath(t *testing.T) {
	registry := testRegistry(t)
	var out bytes.Buffer

	if err := runMount(&out, registry, filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("runMount() = nil error for missing path, want failure")
	}

	recorded, err := registry.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recorded) != 0 {
		t.Errorf("registry = %+v, want empty after rejected mount", recorded)
	}
}

func TestRunUnmountKeepsRegistryEntryByDefault(t *testing.T) {
	registry := testRegistry(t)
	repo := t.TempDir()
	var out bytes.Buffer

	if err := runMount(&out, registry, repo); err != nil {
		t.Fatalf("runMount() error = %v", err)
	}
	if err := runUnmount(&out, registry, repo, false); err != nil {
		t.Fatalf("runUnmount() error = %v", err)
	}

	recorded, err := registry.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recorded) != 1 {
		t.Errorf("registry = %+v, want entry kept for remount", recorded)
	}
}

func TestRunUnmountForgetRemovesEntry(t *testing.T) {
	registry := testRegistry(t)
	repo := t.TempDir()
	var out bytes.Buffer

	if err := runMount(&out, registry, repo); err != nil {
		t.Fatalf("runMount() error = %v", err)
	}
	if err := runUnmount(&out, registry, repo, true); err != nil {
		t.Fatalf("runUnmount() error = %v", err)
	}

	recorded, err := registry.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recorded) != 0 {
		t.Errorf("registry = %+v, want empty after --forget", recorded)
	}
}
