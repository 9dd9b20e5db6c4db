// SPDX-License-Identifier: MPL-2.0

package upgrade

const (
	// OutcomeSuccess means a newer release was installed.
	OutcomeSuccess Outcome = iota
	// OutcomeNoRingConfigured means no upgrade ring is configured; nothing
	// was checked or installed.
	OutcomeNoRingConfigured
	// OutcomeInvalidRingConfigured means the configured ring value is not a
	// known channel; nothing was checked or installed.
	OutcomeInvalidRingConfigured
	// OutcomeFailed means the install sequence aborted; the recorded
	// StageError says where.
	OutcomeFailed
)

type (
	// Outcome is the terminal result of one orchestrator run. It drives both
	// the process exit status and the final operator-facing message.
	Outcome int

	// StageError ties a failure to the upgrade stage it happened in. The
	// operator sees only the underlying message; the stage name travels
	// with the structured diagnostics.
	StageError struct {
		Stage string
		Err   error
	}
)

// String names the outcome for diagnostics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoRingConfigured:
		return "no-ring-configured"
	case OutcomeInvalidRingConfigured:
		return "invalid-ring-configured"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// ExitCode maps the outcome to a process exit status. The ring-related
// outcomes are informational, not failures.
func (o Outcome) ExitCode() int {
	if o == OutcomeFailed {
		return 1
	}
	return 0
}

// Error returns the operator-facing message: the underlying error text,
// without the stage name.
func (e *StageError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *StageError) Unwrap() error {
	return e.Err
}
