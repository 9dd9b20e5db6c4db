// SPDX-License-Identifier: MPL-2.0

package upgrade

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"driftfs-cli/internal/release"
	"driftfs-cli/internal/ring"
	"driftfs-cli/internal/tui"
)

// Stage names attached to failure diagnostics.
const (
	stageLoadRing       = "load-ring"
	stageCheckVersion   = "check-version"
	stageResolveGit     = "resolve-git-version"
	stagePreflight      = "preflight"
	stageDownload       = "download"
	stageUnmount        = "unmount"
	stageInstallGit     = "install-git"
	stageInstallProduct = "install-product"
	stageRemount        = "remount"
	stageCleanup        = "cleanup"
)

// retryHint is the command suggested to the operator when a blocking
// condition clears.
const retryHint = "'driftfs upgrade'"

// Operator-facing messages for the ring-related terminal outcomes.
const (
	msgNoRing       = `Upgrade ring is set to "None". No upgrade check was performed.`
	msgInvalidRing  = "Invalid upgrade ring configured."
	msgRingGuidance = "Set a ring with 'driftfs config upgrade.ring Fast' to receive upgrades."
)

type (
	// RingLoader resolves the release channel this install is subscribed to.
	RingLoader interface {
		Load() (ring.Ring, error)
	}

	// ReleaseResolver reports the newest release offered to a ring that is
	// newer than the current install, or nil when there is none.
	ReleaseResolver interface {
		NewestVersion(ctx context.Context, rg ring.Ring) (*release.Release, error)
	}

	// DependencyResolver reports the version of the Git installer bundled
	// with a release.
	DependencyResolver interface {
		GitVersion(rel *release.Release) (string, error)
	}

	// GitVersionFunc adapts a plain function to DependencyResolver.
	GitVersionFunc func(rel *release.Release) (string, error)

	// PreflightChecker validates the machine can upgrade now and owns the
	// unmount/remount of every active virtual repository.
	PreflightChecker interface {
		Check(retryHint string) error
		UnmountAll() error
		MountAll() error
	}

	// AssetInstaller stages release assets and runs the two installers.
	AssetInstaller interface {
		DownloadAssets(ctx context.Context, rel *release.Release) error
		InstallGit(version string) error
		InstallProduct(version string) error
		Cleanup() error
	}

	// ProgressFunc renders progress around a long-running step. It must be
	// transparent: the step's own error comes back unchanged.
	ProgressFunc func(out io.Writer, label string, op func() error) error

	// Collaborators bundles everything the orchestrator drives.
	Collaborators struct {
		Rings     RingLoader
		Releases  ReleaseResolver
		Deps      DependencyResolver
		Preflight PreflightChecker
		Installer AssetInstaller
	}

	// Orchestrator runs one upgrade transaction. Create a fresh instance per
	// run; its fields track state for exactly one Execute call and are never
	// accessed concurrently.
	Orchestrator struct {
		c        Collaborators
		progress ProgressFunc
		logger   *log.Logger

		in          io.Reader
		out         io.Writer
		interactive bool

		ring          ring.Ring
		remountNeeded bool
		lastErr       *StageError
	}

	// Option configures an Orchestrator during construction.
	Option func(*Orchestrator)
)

// GitVersion implements DependencyResolver.
func (f GitVersionFunc) GitVersion(rel *release.Release) (string, error) {
	return f(rel)
}

// WithStreams injects the input and output streams. Injected streams are
// treated as a test harness: the exit acknowledgement prompt is skipped so
// the caller can inspect the outcome instead.
func WithStreams(in io.Reader, out io.Writer) Option {
	return func(o *Orchestrator) {
		o.in = in
		o.out = out
		o.interactive = false
	}
}

// WithConsole wires the real process console and enables the blocking
// acknowledgement prompt when that console is an interactive terminal.
func WithConsole() Option {
	return func(o *Orchestrator) {
		o.in = os.Stdin
		o.out = os.Stdout
		o.interactive = tui.ReaderIsTerminal(os.Stdin) && tui.IsInteractive(os.Stdout)
	}
}

// WithLogger overrides the diagnostics logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithProgress overrides how long-running steps render progress.
func WithProgress(p ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = p
	}
}

// New creates an Orchestrator for one upgrade run. Defaults: injected-stream
// behavior on stdin/stdout, plain-text progress, and a logger writing to
// stderr.
func New(c Collaborators, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		c:        c,
		progress: plainProgress,
		logger:   log.New(os.Stderr),
		in:       os.Stdin,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs the whole upgrade transaction and reports the outcome to the
// operator. The remount/cleanup tail runs exactly once on every path that
// gets past ring validation, no matter which stage aborted.
func (o *Orchestrator) Execute(ctx context.Context) Outcome {
	outcome := o.run(ctx)
	o.report(outcome)
	if o.interactive {
		o.waitForAck()
	}
	return outcome
}

// LastStageError returns the failure recorded for the run, if any.
func (o *Orchestrator) LastStageError() *StageError {
	return o.lastErr
}

// RemountState reports whether this run unmounted repositories and therefore
// owed a remount. It is set at most once per run and never reset.
func (o *Orchestrator) RemountState() bool {
	return o.remountNeeded
}

func (o *Orchestrator) run(ctx context.Context) Outcome {
	rg, err := o.c.Rings.Load()
	if err != nil {
		o.recordFailure(stageLoadRing, err)
		return OutcomeFailed
	}
	if rg == ring.None {
		return OutcomeNoRingConfigured
	}
	if !rg.Valid() {
		return OutcomeInvalidRingConfigured
	}
	o.ring = rg

	outcome := OutcomeFailed
	func() {
		// The deferred tail is the guarantee: it runs on normal return, on
		// early abort, and on a panic escaping a collaborator.
		defer o.runTail()
		outcome = o.installSequence(ctx)
	}()
	return outcome
}

// installSequence is stages 2-8: everything between ring validation and the
// always-run tail. The first failure short-circuits the rest.
func (o *Orchestrator) installSequence(ctx context.Context) Outcome {
	var rel *release.Release
	err := o.progress(o.out, "Checking for a new driftfs version", func() error {
		var queryErr error
		rel, queryErr = o.c.Releases.NewestVersion(ctx, o.ring)
		return queryErr
	})
	if err != nil {
		return o.fail(stageCheckVersion, err)
	}
	if rel == nil {
		return o.fail(stageCheckVersion, fmt.Errorf("no upgrades available in ring %s", o.ring))
	}

	gitVersion, err := o.c.Deps.GitVersion(rel)
	if err != nil {
		return o.fail(stageResolveGit, err)
	}

	if err := o.c.Preflight.Check(retryHint); err != nil {
		return o.fail(stagePreflight, err)
	}

	err = o.progress(o.out, "Downloading", func() error {
		return o.c.Installer.DownloadAssets(ctx, rel)
	})
	if err != nil {
		return o.fail(stageDownload, err)
	}

	if err := o.progress(o.out, "Unmounting repositories", o.c.Preflight.UnmountAll); err != nil {
		return o.fail(stageUnmount, err)
	}
	// Repositories are down from here on; the tail owes a remount no matter
	// what the installers do.
	o.remountNeeded = true

	err = o.progress(o.out, "Installing git version: "+gitVersion, func() error {
		return o.c.Installer.InstallGit(gitVersion)
	})
	if err != nil {
		return o.fail(stageInstallGit, err)
	}

	err = o.progress(o.out, "Installing driftfs version: "+rel.TagName, func() error {
		return o.c.Installer.InstallProduct(rel.TagName)
	})
	if err != nil {
		return o.fail(stageInstallProduct, err)
	}

	return OutcomeSuccess
}

// runTail remounts repositories when this run unmounted them and always
// cleans up staged assets. A remount failure is downgraded to a warning: the
// payload is already installed, so the install result stays the dominant
// signal. Cleanup failures are logged and never surface.
func (o *Orchestrator) runTail() {
	if o.remountNeeded {
		err := o.progress(o.out, "Remounting repositories", o.c.Preflight.MountAll)
		if err != nil {
			o.logger.Warn("remount failed after install", "stage", stageRemount, "error", err)
			fmt.Fprintf(o.out, "WARNING: failed to remount repositories: %v\n", err)
			fmt.Fprintln(o.out, "Run 'driftfs mount <path>' for each repository to remount manually.")
		}
	}

	if err := o.c.Installer.Cleanup(); err != nil {
		o.logger.Error("cleanup of staged assets failed", "stage", stageCleanup, "error", err)
	}
}

// report writes the final operator-facing message for the outcome.
func (o *Orchestrator) report(outcome Outcome) {
	switch outcome {
	case OutcomeNoRingConfigured:
		fmt.Fprintln(o.out, msgNoRing)
		fmt.Fprintln(o.out, msgRingGuidance)
	case OutcomeInvalidRingConfigured:
		fmt.Fprintln(o.out, msgInvalidRing)
		fmt.Fprintln(o.out, msgRingGuidance)
	case OutcomeSuccess:
		fmt.Fprintln(o.out, "Upgrade completed successfully!")
	case OutcomeFailed:
		msg := "upgrade failed"
		if o.lastErr != nil {
			msg = o.lastErr.Error()
		}
		fmt.Fprintf(o.out, "ERROR: %s\n", msg)
	}
}

// waitForAck blocks for one line of input so the console window does not
// vanish before the operator reads the report.
func (o *Orchestrator) waitForAck() {
	fmt.Fprintln(o.out, "Press Enter to exit.")
	_, _ = bufio.NewReader(o.in).ReadString('\n') //nolint:errcheck // Best-effort acknowledgement.
}

func (o *Orchestrator) fail(stage string, err error) Outcome {
	o.recordFailure(stage, err)
	return OutcomeFailed
}

func (o *Orchestrator) recordFailure(stage string, err error) {
	o.lastErr = &StageError{Stage: stage, Err: err}
	o.logger.Error("upgrade stage failed", "stage", stage, "error", err)
}

// plainProgress prints the label once and runs the step, for callers that
// did not inject a richer renderer.
func plainProgress(out io.Writer, label string, op func() error) error {
	fmt.Fprintf(out, "%s...\n", label)
	return op()
}
