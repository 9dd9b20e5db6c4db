// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"driftfs-cli/internal/ring"
)

func testRingStore(t *testing.T) *ring.Store {
	t.Helper()
	return ring.NewStore(filepath.Join(t.TempDir(), "upgrade.toml"))
}

func TestConfigGetDefaultRing(t *testing.T) {
	var out bytes.Buffer

	if err := runConfigGet(&out, testRingStore(t), ringKey); err != nil {
		t.Fatalf("runConfigGet() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "None" {
		t.Errorf("ring = %q, want None before any set", got)
	}
}

func TestConfigSetThenGetRoundTrips(t *testing.T) {
	store := testRingStore(t)
	var out bytes.Buffer

	if err := runConfigSet(&out, store, ringKey, "slow"); err != nil {
		t.Fatalf("runConfigSet() error = %v", err)
	}

	out.Reset()
	if err := runConfigGet(&out, store, ringKey); err != nil {
		t.Fatalf("runConfigGet() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Slow" {
		t.Errorf("ring = %q, want Slow", got)
	}
}

func TestConfigSetRejectsUnknownRing(t *testing.T) {
	store := testRingStore(t)
	var out bytes.Buffer

	if err := runConfigSet(&out, store, ringKey, "Ludicrous"); err == nil {
		t.Fatal("runConfigSet() = nil error for unknown ring, want failure")
	}

	rg, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rg != ring.None {
		t.Errorf("ring = %v after rejected set, want None", rg)
	}
}

func TestConfigRejectsUnknownKey(t *testing.T) {
	store := testRingStore(t)
	var out bytes.Buffer

	if err := runConfigGet(&out, store, "github.owner"); err == nil {
		t.Fatal("runConfigGet() = nil error for unknown key, want failure")
	}
	if err := runConfigSet(&out, store, "github.owner", "acme"); err == nil {
		t.Fatal("runConfigSet() = nil error for unknown key, want failure")
	}
}
