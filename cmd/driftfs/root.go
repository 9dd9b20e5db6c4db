// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for driftfs.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"driftfs-cli/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgDir allows specifying a custom config directory
	cfgDir string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "driftfs",
		Short: "A virtualized filesystem client with staged self-upgrades",
		Long: TitleStyle.Render("driftfs") + SubtitleStyle.Render(" - A virtualized filesystem client with staged self-upgrades") + `

driftfs projects large repositories as virtual filesystems and keeps
itself and its bundled git current through ring-based staged upgrades.

Repositories are mounted with 'driftfs mount' and recorded in a local
registry so upgrades can take them down and bring them back atomically.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Mount a repository:      driftfs mount /repos/widgets
  2. Pick an upgrade ring:    driftfs config upgrade.ring Fast
  3. Stay current:            driftfs upgrade

` + SubtitleStyle.Render("Examples:") + `
  driftfs upgrade            Install the newest release for your ring
  driftfs upgrade --check    Report availability without installing
  driftfs config upgrade.ring Slow   Only take releases aged two weeks`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config-dir", "", "config directory (default is $HOME/.config/driftfs)")

	// Add subcommands
	rootCmd.AddCommand(newUpgradeCommand())
	rootCmd.AddCommand(newMountCommand())
	rootCmd.AddCommand(newUnmountCommand())
	rootCmd.AddCommand(newConfigCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads in the config file and ENV variables if set.
func initRootConfig() {
	if cfgDir != "" {
		config.SetConfigDirOverride(cfgDir)
	}

	cfg, err := config.Load()
	if err != nil {
		// Surface config loading problems but keep going on defaults.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+err.Error())
	}

	// Apply verbose from config if not set via flag
	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}
}

// newLogger builds the diagnostics logger, honoring --verbose.
func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}
