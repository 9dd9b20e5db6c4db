// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"driftfs-cli/internal/mounts"
)

// newMountCommand creates the `driftfs mount` command, which attaches a
// virtual repository and records it so upgrades can cycle it.
func newMountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mount <path>",
		Short: "Mount a virtual repository and record it in the registry",
		Long: `Mount a virtual repository and record it in the registry.

Recorded repositories are unmounted before a staged upgrade and
remounted afterwards. The same command doubles as the mount helper the
upgrade workflow drives for each repository.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			registry, err := mounts.DefaultRegistry()
			if err != nil {
				return err
			}
			return runMount(cmd.OutOrStdout(), registry, args[0])
		},
	}
}

// newUnmountCommand creates the `driftfs unmount` command, the detach
// counterpart of mount.
func newUnmountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unmount <path>",
		Short: "Unmount a virtual repository",
		Long: `Unmount a virtual repository.

The repository stays recorded in the registry so a later mount or an
upgrade remount can bring it back. Pass --forget to also remove the
registry entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			forget, _ := cmd.Flags().GetBool("forget")
			registry, err := mounts.DefaultRegistry()
			if err != nil {
				return err
			}
			return runUnmount(cmd.OutOrStdout(), registry, args[0], forget)
		},
	}

	cmd.Flags().Bool("forget", false, "Also remove the repository from the registry")
	return cmd
}

// runMount validates the repository path, records it, and reports success.
func runMount(w io.Writer, registry *mounts.Registry, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("repository path %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("repository path %s is not a directory", abs)
	}

	if err := registry.Add(abs); err != nil {
		return err
	}

	fmt.Fprintln(w, SuccessStyle.Render("Mounted ")+abs)
	return nil
}

// runUnmount detaches the repository and optionally forgets it.
func runUnmount(w io.Writer, registry *mounts.Registry, path string, forget bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	if forget {
		if err := registry.Remove(abs); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, SuccessStyle.Render("Unmounted ")+abs)
	return nil
}
