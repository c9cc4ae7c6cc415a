// Package cmd wires the CLI surface: scan, analyze, rules, fix, and
// version subcommands.
package cmd

import (
	"github.com/spf13/cobra"

	"go.uber.org/zap"

	"vigil/internal/logging"
)

var (
	verbose bool
	log     *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:           "vigil",
	Short:         "vigil - static vulnerability scanner for WordPress code",
	Long:          "Vigil scans PHP and template sources for SQL injection, XSS, and other vulnerability classes using curated signature rules.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		log, err = logging.New(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging and verbose output")
}

// Execute runs the CLI and returns the first command error.
func Execute() error {
	return rootCmd.Execute()
}
