// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"io"
	"os/exec"
)

// Launcher is the subprocess capability installers and mount helpers run
// through. Start launches the process and blocks until it finishes; Exited
// and ExitCode report the result. Production code always calls through this
// interface so tests can substitute canned outcomes.
type Launcher interface {
	// Start runs the program at path with args and waits for it to finish.
	// It returns false when the process could not be launched at all.
	Start(path string, args ...string) bool
	// Exited reports whether a started process ran to completion.
	Exited() bool
	// ExitCode returns the exit code of the completed process, or -1 when
	// no process completed.
	ExitCode() int
}

// ExecLauncher runs subprocesses with os/exec. Output is discarded; the
// installers report through their exit codes.
type ExecLauncher struct {
	cmd *exec.Cmd
}

// NewExecLauncher creates a Launcher backed by os/exec.
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

// Start runs path with args to completion. A failure to spawn returns false;
// a spawned process that exits non-zero returns true and is reported via
// ExitCode.
func (l *ExecLauncher) Start(path string, args ...string) bool {
	l.cmd = exec.Command(path, args...)
	l.cmd.Stdout = io.Discard
	l.cmd.Stderr = io.Discard

	if err := l.cmd.Start(); err != nil {
		l.cmd = nil
		return false
	}

	// Run to completion or failure; the upgrade flow imposes no timeout.
	_ = l.cmd.Wait()
	return true
}

// Exited reports whether a launched process ran to completion.
func (l *ExecLauncher) Exited() bool {
	return l.cmd != nil && l.cmd.ProcessState != nil && l.cmd.ProcessState.Exited()
}

// ExitCode returns the completed process's exit code, or -1.
func (l *ExecLauncher) ExitCode() int {
	if l.cmd == nil || l.cmd.ProcessState == nil {
		return -1
	}
	return l.cmd.ProcessState.ExitCode()
}
