// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"driftfs-cli/internal/config"
	"driftfs-cli/internal/installer"
	"driftfs-cli/internal/mounts"
	"driftfs-cli/internal/release"
	"driftfs-cli/internal/ring"
	"driftfs-cli/internal/tui"
	"driftfs-cli/internal/upgrade"
)

// upgradeDeps bundles the real collaborators wired into one upgrade run.
type upgradeDeps struct {
	collab    upgrade.Collaborators
	preflight *mounts.Preflight
	resolver  *release.Resolver
	rings     *ring.Store
}

// newUpgradeCommand creates the `driftfs upgrade` command, which installs the
// newest release offered to the configured ring along with its bundled git.
func newUpgradeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Install the newest driftfs release for your upgrade ring",
		Long: `Install the newest driftfs release for your upgrade ring.

The upgrade command downloads the release assets from GitHub Releases,
verifies their SHA256 checksums, unmounts every recorded repository,
runs the bundled git installer and then the driftfs installer, and
finally remounts repositories and cleans up staged assets.

Repositories are always remounted and staged assets always removed,
no matter how far the install got.`,
		Example: `  # Install the newest release for your ring
  driftfs upgrade

  # Check for updates without installing
  driftfs upgrade --check

  # Validate the machine can upgrade, without touching mounts
  driftfs upgrade --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			checkFlag, _ := cmd.Flags().GetBool("check")
			dryRunFlag, _ := cmd.Flags().GetBool("dry-run")

			deps, err := buildUpgradeDeps()
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			if checkFlag {
				if err := runUpgradeCheck(cmd.Context(), cmd.OutOrStdout(), deps.rings, deps.resolver); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "ERROR: %v\n", err)
					return &ExitError{Code: 1, Err: err}
				}
				return nil
			}

			if dryRunFlag {
				defer deps.preflight.Unlock()
				if err := runUpgradeDryRun(cmd.Context(), cmd.OutOrStdout(), deps); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "ERROR: %v\n", err)
					return &ExitError{Code: 1, Err: err}
				}
				return nil
			}

			orch := upgrade.New(deps.collab,
				upgrade.WithConsole(),
				upgrade.WithProgress(tui.Spin),
				upgrade.WithLogger(newLogger()),
			)
			defer deps.preflight.Unlock()

			outcome := orch.Execute(cmd.Context())
			if code := outcome.ExitCode(); code != 0 {
				var err error
				if se := orch.LastStageError(); se != nil {
					err = se
				}
				return &ExitError{Code: code, Err: err}
			}
			return nil
		},
	}

	cmd.Flags().Bool("check", false, "Check for an available upgrade without installing")
	cmd.Flags().Bool("dry-run", false, "Run preflight validation only; no download, unmount, or install")

	return cmd
}

// buildUpgradeDeps wires the production collaborators: ring store, GitHub
// release client, asset installer, and the mount registry driven through the
// current binary as mount helper.
func buildUpgradeDeps() (*upgradeDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	rings, err := ring.DefaultStore()
	if err != nil {
		return nil, err
	}

	// Source builds carry no comparable version; treat them as older than
	// every published release.
	currentVersion := Version
	if currentVersion == "dev" {
		currentVersion = "0.0.0"
	}

	clientOpts := []release.ClientOption{
		release.WithRepo(cfg.GitHub.Owner, cfg.GitHub.Repo),
		release.WithUserAgent("driftfs/" + Version),
	}
	if cfg.GitHub.APIBase != "" {
		clientOpts = append(clientOpts, release.WithBaseURL(cfg.GitHub.APIBase))
	}
	// A token raises the API rate limit (5000/hour vs 60/hour unauthenticated).
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		clientOpts = append(clientOpts, release.WithToken(token))
	}
	client := release.NewClient(clientOpts...)
	resolver := release.NewResolver(client, currentVersion)

	stagingDir, err := cfg.StagingDir()
	if err != nil {
		return nil, err
	}
	inst := installer.New(client, stagingDir)
	// Preflight validates the same volume the installer stages into.
	preflight := mounts.NewPreflight(inst.StagingDir())

	registry, err := mounts.DefaultRegistry()
	if err != nil {
		return nil, err
	}
	// The helper path is resolved now: the running binary is replaced
	// mid-upgrade, and the remount must use the same helper the unmount did.
	helperPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving mount helper path: %w", err)
	}
	manager := mounts.NewManager(registry, helperPath)

	return &upgradeDeps{
		collab: upgrade.Collaborators{
			Rings:     rings,
			Releases:  resolver,
			Deps:      upgrade.GitVersionFunc(release.GitVersion),
			Preflight: &machinePreflight{checks: preflight, mgr: manager},
			Installer: inst,
		},
		preflight: preflight,
		resolver:  resolver,
		rings:     rings,
	}, nil
}

// machinePreflight joins disk/lock validation with mount control to satisfy
// the orchestrator's preflight contract.
type machinePreflight struct {
	checks *mounts.Preflight
	mgr    *mounts.Manager
}

func (m *machinePreflight) Check(retryHint string) error { return m.checks.Check(retryHint) }
func (m *machinePreflight) UnmountAll() error            { return m.mgr.UnmountAll() }
func (m *machinePreflight) MountAll() error              { return m.mgr.MountAll() }

// runUpgradeCheck reports upgrade availability for the configured ring
// without installing anything, rendering the release notes when present.
func runUpgradeCheck(ctx context.Context, w io.Writer, rings upgrade.RingLoader, releases upgrade.ReleaseResolver) error {
	rg, err := rings.Load()
	if err != nil {
		return err
	}
	if rg == ring.None {
		fmt.Fprintln(w, `Upgrade ring is set to "None". No upgrade check was performed.`)
		return nil
	}
	if !rg.Valid() {
		fmt.Fprintln(w, "Invalid upgrade ring configured.")
		return nil
	}

	rel, err := releases.NewestVersion(ctx, rg)
	if err != nil {
		return err
	}
	if rel == nil {
		fmt.Fprintf(w, "driftfs is up to date for ring %s.\n", rg)
		return nil
	}

	fmt.Fprintf(w, "An upgrade is available in ring %s: %s\n", rg, rel.TagName)
	fmt.Fprintln(w, "Run 'driftfs upgrade' to install.")
	if rel.Body != "" {
		fmt.Fprint(w, renderReleaseNotes(rel.Body))
	}
	return nil
}

// runUpgradeDryRun resolves the release and runs preflight validation, then
// stops before anything touches mounts or disk beyond the staging probe.
func runUpgradeDryRun(ctx context.Context, w io.Writer, deps *upgradeDeps) error {
	rg, err := deps.rings.Load()
	if err != nil {
		return err
	}
	if !rg.Valid() {
		fmt.Fprintln(w, "No valid upgrade ring configured; nothing to validate.")
		return nil
	}

	rel, err := deps.resolver.NewestVersion(ctx, rg)
	if err != nil {
		return err
	}
	if rel == nil {
		fmt.Fprintf(w, "driftfs is up to date for ring %s.\n", rg)
		return nil
	}

	gitVersion, err := release.GitVersion(rel)
	if err != nil {
		return err
	}
	if err := deps.preflight.Check("'driftfs upgrade'"); err != nil {
		return err
	}

	fmt.Fprintf(w, "Dry run OK: driftfs %s (git %s) would be installed.\n", rel.TagName, gitVersion)
	return nil
}

// renderReleaseNotes renders markdown release notes for the terminal,
// falling back to the raw text when rendering fails.
func renderReleaseNotes(body string) string {
	rendered, err := glamour.Render(body, "auto")
	if err != nil {
		return body + "\n"
	}
	return rendered
}
