// urnlab - urn choice experiment runner
//
// urnlab shows participants urns of colored marbles, some with a disclosed
// mixture and some with a hidden random one, asks which urn they want a
// marble drawn from, and appends one row per participant to a CSV ledger.
//
// Commands:
//   - run:     run one participant session (default)
//   - init:    write a default config file
//   - status:  show the ledger and the next assignment
//   - version: print the version
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/r3d91ll/urnlab/pkg/config"
	"github.com/r3d91ll/urnlab/pkg/errors"
)

const version = "1.0.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "urnlab",
	Short: "Run urn choice experiments in the terminal",
	Long: `urnlab runs an ambiguity-aversion urn experiment: each participant
chooses between urns with known and unknown marble mixtures, and the
choices, drawn colors, and demographics are appended to a CSV ledger.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSession,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: urnlab.yaml)")
	rootCmd.AddCommand(runCmd, initCmd, statusCmd, versionCmd)
	addRunFlags(rootCmd)
	addRunFlags(runCmd)
	initCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errors.Display(err)
		os.Exit(1)
	}
}

// resolveConfigPath returns --config or the default location.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}
