// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"driftfs-cli/internal/config"
	"driftfs-cli/internal/ring"
)

// ringKey is the settable config key for the upgrade ring.
const ringKey = "upgrade.ring"

// newConfigCommand creates the `driftfs config` command tree.
func newConfigCommand() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config <key> [value]",
		Short: "Get or set driftfs configuration",
		Long: `Get or set driftfs configuration.

The upgrade ring is the only settable key:

  driftfs config upgrade.ring          Show the configured ring
  driftfs config upgrade.ring Fast     Subscribe to the Fast ring

Valid rings: ` + strings.Join(ring.Names(), ", ") + `.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			store, err := ring.DefaultStore()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return runConfigGet(cmd.OutOrStdout(), store, args[0])
			}
			return runConfigSet(cmd.OutOrStdout(), store, args[0], args[1])
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return showConfig(cmd.OutOrStdout())
		},
	})

	return cfgCmd
}

// runConfigGet prints the value of a config key.
func runConfigGet(w io.Writer, store *ring.Store, key string) error {
	if key != ringKey {
		return fmt.Errorf("unknown config key %q (settable: %s)", key, ringKey)
	}

	rg, err := store.Load()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, rg.String())
	return nil
}

// runConfigSet persists a config key. Unknown ring names are rejected here
// rather than written, so a bad value never reaches the upgrade workflow.
func runConfigSet(w io.Writer, store *ring.Store, key, value string) error {
	if key != ringKey {
		return fmt.Errorf("unknown config key %q (settable: %s)", key, ringKey)
	}

	rg := ring.Parse(value)
	if !rg.Valid() {
		return fmt.Errorf("invalid ring %q (valid rings: %s)", value, strings.Join(ring.Names(), ", "))
	}
	if err := store.Save(rg); err != nil {
		return err
	}

	fmt.Fprintln(w, SuccessStyle.Render("Set ")+ringKey+" = "+rg.String())
	return nil
}

// showConfig prints the resolved global configuration and the ring.
func showConfig(w io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := ring.DefaultStore()
	if err != nil {
		return err
	}
	rg, err := store.Load()
	if err != nil {
		return err
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("config dir"), dir)
	fmt.Fprintf(w, "%s: %s/%s\n", CmdStyle.Render("release source"), cfg.GitHub.Owner, cfg.GitHub.Repo)
	fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render(ringKey), SuccessStyle.Render(rg.String()))
	return nil
}
