// SPDX-License-Identifier: MPL-2.0

package release

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func TestParseChecksums(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	input := hash + "  driftfs_2.1.0_linux_amd64.run\n" +
		"\n" +
		"not a checksum line\n" +
		strings.ToUpper(hash) + "  git_2.40.0_linux_amd64.run\n"

	entries, err := ParseChecksums(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseChecksums() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	// Hashes are normalized to lowercase.
	if entries[1].Hash != hash {
		t.Errorf("entries[1].Hash = %q, want %q", entries[1].Hash, hash)
	}
}

func TestParseChecksumsNoEntries(t *testing.T) {
	if _, err := ParseChecksums(strings.NewReader("junk\n\n")); err == nil {
		t.Fatal("ParseChecksums() error = nil, want no-valid-entries error")
	}
}

func TestFindChecksum(t *testing.T) {
	entries := []ChecksumEntry{
		{Hash: strings.Repeat("aa", 32), Filename: "a.run"},
		{Hash: strings.Repeat("bb", 32), Filename: "b.run"},
	}

	got, err := FindChecksum(entries, "b.run")
	if err != nil {
		t.Fatalf("FindChecksum() error = %v", err)
	}
	if got != strings.Repeat("bb", 32) {
		t.Errorf("FindChecksum() = %q", got)
	}

	if _, err := FindChecksum(entries, "missing.run"); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("FindChecksum(missing) error = %v, want ErrAssetNotFound", err)
	}
}

func TestVerifyFile(t *testing.T) {
	content := []byte("installer payload")
	path := filepath.Join(t.TempDir(), "asset.run")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := VerifyFile(path, sha256Hex(content)); err != nil {
		t.Errorf("VerifyFile() with matching hash error = %v", err)
	}
	if err := VerifyFile(path, strings.ToUpper(sha256Hex(content))); err != nil {
		t.Errorf("VerifyFile() is case-sensitive: %v", err)
	}

	err := VerifyFile(path, strings.Repeat("00", 32))
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("VerifyFile() error = %v, want ErrChecksumMismatch", err)
	}
	var ce *ChecksumError
	if !errors.As(err, &ce) {
		t.Fatalf("VerifyFile() error = %T, want *ChecksumError", err)
	}
	if ce.Got != sha256Hex(content) {
		t.Errorf("ChecksumError.Got = %q, want %q", ce.Got, sha256Hex(content))
	}
}
