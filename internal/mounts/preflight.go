// SPDX-License-Identifier: MPL-2.0

package mounts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// minFreeBytes is the free-space floor for the staging volume (2 GiB).
// Release archives plus both extracted installers fit comfortably below it.
const minFreeBytes = 2 << 30

// lockFileName guards against two concurrent upgrade runs on one machine.
const lockFileName = "upgrade.lock"

// Preflight validates the machine can take an upgrade right now: the staging
// volume is writable with enough free space, and no other upgrade run holds
// the lock. Unlock releases the lock once the run finishes.
type Preflight struct {
	stagingDir string
	lockPath   string
	minFree    uint64
	lockHeld   bool
}

// NewPreflight creates a Preflight for the given staging directory.
func NewPreflight(stagingDir string) *Preflight {
	return &Preflight{
		stagingDir: stagingDir,
		lockPath:   filepath.Join(filepath.Dir(stagingDir), lockFileName),
		minFree:    minFreeBytes,
	}
}

// Check runs the pre-upgrade validation. retryHint is the command suggested
// to the operator once the blocking condition clears.
func (p *Preflight) Check(retryHint string) error {
	if err := os.MkdirAll(p.stagingDir, 0o755); err != nil {
		return fmt.Errorf("staging directory %s is not writable: %w", p.stagingDir, err)
	}

	probe := filepath.Join(p.stagingDir, ".probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return fmt.Errorf("staging directory %s is not writable: %w", p.stagingDir, err)
	}
	_ = os.Remove(probe)

	free, err := freeDiskBytes(p.stagingDir)
	if err != nil {
		return fmt.Errorf("checking free disk space for %s: %w", p.stagingDir, err)
	}
	if free < p.minFree {
		return fmt.Errorf("not enough free disk space in %s (%d bytes free, %d required); free space and run %s",
			p.stagingDir, free, p.minFree, retryHint)
	}

	if err := p.acquireLock(retryHint); err != nil {
		return err
	}
	return nil
}

// Unlock releases the upgrade lock taken by Check. Safe to call when no lock
// is held.
func (p *Preflight) Unlock() {
	if !p.lockHeld {
		return
	}
	_ = os.Remove(p.lockPath)
	p.lockHeld = false
}

// acquireLock creates the lock file exclusively, recording this process's
// PID for diagnostics. An existing lock means another upgrade is running.
func (p *Preflight) acquireLock(retryHint string) error {
	f, err := os.OpenFile(p.lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("another driftfs upgrade appears to be running (lock %s); wait for it to finish and run %s",
				p.lockPath, retryHint)
		}
		return fmt.Errorf("acquiring upgrade lock %s: %w", p.lockPath, err)
	}

	_, _ = f.WriteString(strconv.Itoa(os.Getpid())) //nolint:errcheck // PID is advisory.
	_ = f.Close()
	p.lockHeld = true
	return nil
}
