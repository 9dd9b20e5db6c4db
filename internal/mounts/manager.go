// SPDX-License-Identifier: MPL-2.0

package mounts

import (
	"fmt"

	"driftfs-cli/internal/installer"
)

// Manager unmounts and remounts every recorded virtual repository by driving
// the mount helper binary once per repository. The helper path is recorded at
// construction because the running binary may be replaced mid-upgrade.
type Manager struct {
	registry    *Registry
	helperPath  string
	newLauncher func() installer.Launcher
}

// ManagerOption configures a Manager during construction.
type ManagerOption func(*Manager)

// WithManagerLauncherFactory overrides how helper subprocesses are created,
// so tests can substitute canned exit codes.
func WithManagerLauncherFactory(f func() installer.Launcher) ManagerOption {
	return func(m *Manager) {
		m.newLauncher = f
	}
}

// NewManager creates a Manager driving helperPath for mount operations.
func NewManager(registry *Registry, helperPath string, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry:    registry,
		helperPath:  helperPath,
		newLauncher: func() installer.Launcher { return installer.NewExecLauncher() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// UnmountAll unmounts every recorded repository. The first failure aborts
// with the repository path in the error, leaving earlier repositories
// unmounted; the caller decides whether to remount them.
func (m *Manager) UnmountAll() error {
	return m.forEach("unmount")
}

// MountAll remounts every recorded repository.
func (m *Manager) MountAll() error {
	return m.forEach("mount")
}

func (m *Manager) forEach(verb string) error {
	mounts, err := m.registry.List()
	if err != nil {
		return err
	}

	for _, mt := range mounts {
		if err := m.runHelper(verb, mt.Path); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) runHelper(verb, repoPath string) error {
	l := m.newLauncher()
	if !l.Start(m.helperPath, verb, repoPath) {
		return fmt.Errorf("failed to launch mount helper for %s", repoPath)
	}
	if !l.Exited() {
		return fmt.Errorf("mount helper did not complete for %s", repoPath)
	}
	if code := l.ExitCode(); code != 0 {
		return fmt.Errorf("failed to %s %s: helper exited with code %d", verb, repoPath, code)
	}
	return nil
}
