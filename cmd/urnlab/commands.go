package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r3d91ll/urnlab/pkg/config"
	"github.com/r3d91ll/urnlab/pkg/design"
	"github.com/r3d91ll/urnlab/pkg/ledger"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		_, statErr := os.Stat(path)
		existed := statErr == nil

		if err := config.InitConfig(path, forceInit); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if existed && !forceInit {
			fmt.Fprintf(out, "Config already exists at: %s (use --force to overwrite)\n", path)
			return nil
		}
		fmt.Fprintf(out, "Config initialized at: %s\n", path)
		fmt.Fprintln(out, "Edit this file to set the design, the urns of each condition, and the ledger location.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ledger and the next participant's assignment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		cfg, err := config.LoadOrDefault(path)
		if err != nil {
			return err
		}
		printStatus(cmd, path, cfg)
		return nil
	},
}

func printStatus(cmd *cobra.Command, cfgPath string, cfg *config.Config) {
	out := cmd.OutOrStdout()
	mode := design.Mode(cfg.Experiment.Design)
	conditions := cfg.Experiment.Conditions

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Fprintf(out, "Config:  %s\n", cfgPath)
	} else {
		fmt.Fprintln(out, "Config:  (using defaults, run 'urnlab init' to create)")
	}
	fmt.Fprintf(out, "Design:  %s, %d conditions\n", mode, len(conditions))

	ledgerPath := cfg.LedgerPath()
	existing, err := ledger.CountRows(ledgerPath)
	switch {
	case os.IsNotExist(err):
		fmt.Fprintf(out, "Ledger:  %s (not created yet)\n", ledgerPath)
	case err != nil:
		fmt.Fprintf(out, "Ledger:  %s ✗ unreadable (%v), counting from zero\n", ledgerPath, err)
	default:
		fmt.Fprintf(out, "Ledger:  %s ✓\n", ledgerPath)
	}
	fmt.Fprintf(out, "Participants recorded: %d\n", existing)
	fmt.Fprintf(out, "Next sequence: %d\n", existing+1)

	if mode == design.ModeBetween && len(conditions) > 0 {
		i := existing % len(conditions)
		fmt.Fprintf(out, "Next assignment: %s (index %d)\n", conditions[i].Name, i)
	} else {
		names := make([]string, len(conditions))
		for i, c := range conditions {
			names[i] = c.Name
		}
		fmt.Fprintf(out, "Next assignment: all conditions (%s)\n", strings.Join(names, ", "))
	}

	slots := design.SlotsPerParticipant(mode, len(conditions))
	fmt.Fprintf(out, "Row layout: %d columns, %d trial slots\n", len(ledger.Header(slots)), slots)

	if cfg.Ledger.SQLitePath != "" {
		mirror, err := ledger.OpenSQLite(cfg.Ledger.SQLitePath)
		if err != nil {
			fmt.Fprintf(out, "Mirror:  %s ✗ %v\n", cfg.Ledger.SQLitePath, err)
			return
		}
		defer mirror.Close()
		n, err := mirror.Count()
		if err != nil {
			fmt.Fprintf(out, "Mirror:  %s ✗ %v\n", cfg.Ledger.SQLitePath, err)
			return
		}
		fmt.Fprintf(out, "Mirror:  %s ✓ %d participants\n", cfg.Ledger.SQLitePath, n)
		if counts, err := mirror.ChoiceCounts(); err == nil {
			for _, c := range conditions {
				for _, urnName := range slices.Sorted(maps.Keys(counts[c.Name])) {
					fmt.Fprintf(out, "  %-10s %-18s chosen %d times\n", c.Name, urnName, counts[c.Name][urnName])
				}
			}
		}
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "urnlab %s\n", version)
	},
}
