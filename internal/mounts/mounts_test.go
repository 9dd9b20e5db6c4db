// SPDX-License-Identifier: MPL-2.0

package mounts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"driftfs-cli/internal/installer"
)

// fakeLauncher returns canned subprocess results and records invocations.
type fakeLauncher struct {
	exitCode int
	calls    *[][]string
}

func (f *fakeLauncher) Start(path string, args ...string) bool {
	*f.calls = append(*f.calls, append([]string{path}, args...))
	return true
}
func (f *fakeLauncher) Exited() bool  { return true }
func (f *fakeLauncher) ExitCode() int { return f.exitCode }

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "mounts.toml"))

	mounts, err := r.List()
	if err != nil {
		t.Fatalf("List() on missing registry error = %v", err)
	}
	if len(mounts) != 0 {
		t.Fatalf("List() = %v, want empty", mounts)
	}

	if err := r.Add("/srv/repo-a"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add("/srv/repo-b"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add("/srv/repo-a"); err != nil { // duplicate is a no-op
		t.Fatalf("Add(duplicate) error = %v", err)
	}

	mounts, err = r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(mounts) != 2 {
		t.Fatalf("len(mounts) = %d, want 2", len(mounts))
	}

	if err := r.Remove("/srv/repo-a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	mounts, err = r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(mounts) != 1 || mounts[0].Path != "/srv/repo-b" {
		t.Fatalf("mounts after Remove = %v", mounts)
	}
}

func TestRegistryCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mounts.toml")
	if err := os.WriteFile(path, []byte("mounts = [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewRegistry(path).List(); err == nil {
		t.Fatal("List() error = nil, want decode error")
	}
}

func newRegistryWith(t *testing.T, paths ...string) *Registry {
	t.Helper()

	r := NewRegistry(filepath.Join(t.TempDir(), "mounts.toml"))
	for _, p := range paths {
		if err := r.Add(p); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestManagerUnmountAllDrivesHelperPerRepo(t *testing.T) {
	reg := newRegistryWith(t, "/srv/repo-a", "/srv/repo-b")

	var calls [][]string
	m := NewManager(reg, "/usr/bin/driftfs", WithManagerLauncherFactory(func() installer.Launcher {
		return &fakeLauncher{calls: &calls}
	}))

	if err := m.UnmountAll(); err != nil {
		t.Fatalf("UnmountAll() error = %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("helper invoked %d times, want 2", len(calls))
	}
	want := []string{"/usr/bin/driftfs", "unmount", "/srv/repo-a"}
	if strings.Join(calls[0], " ") != strings.Join(want, " ") {
		t.Errorf("calls[0] = %v, want %v", calls[0], want)
	}
}

func TestManagerMountAllHelperFailure(t *testing.T) {
	reg := newRegistryWith(t, "/srv/repo-a", "/srv/repo-b")

	var calls [][]string
	m := NewManager(reg, "/usr/bin/driftfs", WithManagerLauncherFactory(func() installer.Launcher {
		return &fakeLauncher{calls: &calls, exitCode: 1}
	}))

	err := m.MountAll()
	if err == nil {
		t.Fatal("MountAll() error = nil, want helper failure")
	}
	if !strings.Contains(err.Error(), "/srv/repo-a") {
		t.Errorf("error %q does not name the failing repo", err)
	}
	// First failure short-circuits the walk.
	if len(calls) != 1 {
		t.Errorf("helper invoked %d times, want 1", len(calls))
	}
}

func TestManagerNoMountsIsANoOp(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "mounts.toml"))

	m := NewManager(reg, "/usr/bin/driftfs", WithManagerLauncherFactory(func() installer.Launcher {
		t.Fatal("launcher must not be created with no mounts recorded")
		return nil
	}))

	if err := m.UnmountAll(); err != nil {
		t.Fatalf("UnmountAll() error = %v", err)
	}
}

func TestPreflightCheckPasses(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "staging")
	p := NewPreflight(staging)
	p.minFree = 1 // avoid coupling the test to the host's disk usage

	if err := p.Check("'driftfs upgrade'"); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	t.Cleanup(p.Unlock)

	if _, err := os.Stat(p.lockPath); err != nil {
		t.Errorf("lock file missing after Check: %v", err)
	}
}

func TestPreflightConcurrentRunBlocked(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "staging")

	first := NewPreflight(staging)
	first.minFree = 1
	if err := first.Check("'driftfs upgrade'"); err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
	t.Cleanup(first.Unlock)

	second := NewPreflight(staging)
	second.minFree = 1
	err := second.Check("'driftfs upgrade'")
	if err == nil {
		t.Fatal("second Check() error = nil, want lock conflict")
	}
	if !strings.Contains(err.Error(), "'driftfs upgrade'") {
		t.Errorf("error %q does not carry the retry hint", err)
	}
}

func TestPreflightUnlockAllowsRetry(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "staging")

	p := NewPreflight(staging)
	p.minFree = 1
	if err := p.Check("'driftfs upgrade'"); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	p.Unlock()
	p.Unlock() // second Unlock is safe

	retry := NewPreflight(staging)
	retry.minFree = 1
	if err := retry.Check("'driftfs upgrade'"); err != nil {
		t.Fatalf("Check() after Unlock error = %v", err)
	}
	retry.Unlock()
}

func TestPreflightInsufficientDiskSpace(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "staging")
	p := NewPreflight(staging)
	p.minFree = ^uint64(0) // no host has this much free space

	err := p.Check("'driftfs upgrade'")
	if err == nil {
		t.Fatal("Check() error = nil, want disk space failure")
	}
	if !strings.Contains(err.Error(), "free disk space") {
		t.Errorf("error %q does not mention disk space", err)
	}
}
