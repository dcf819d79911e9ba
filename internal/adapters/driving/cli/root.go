// Package cli provides the command-line interface of the tap.
//
// The root command follows the Singer tap conventions: with --discover it
// prints the catalog, otherwise it replicates the selected streams and
// writes SCHEMA, RECORD and STATE messages to stdout. Logs go to stderr.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tap-freshcaller/internal/connectors/freshcaller"
)

// version is set at build time.
var version = freshcaller.Version

var (
	configPath  string
	statePath   string
	catalogPath string
	discover    bool
	dryRun      bool
	verbose     bool
	logFormat   string
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "tap-freshcaller",
	Short: "Singer tap for the Freshcaller API",
	Long: `Extracts teams, users, calls and call metrics from a Freshcaller account
and writes them to stdout as Singer messages.

Incremental streams are read one day at a time. State is emitted after
every day, so an interrupted run resumes from the last completed day.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runTap,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to the config file (.json or .toml)")
	flags.StringVarP(&statePath, "state", "s", "", "path to a state file from a previous run")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&logFormat, "log-format", "console", "log encoding: console or json")

	rootCmd.Flags().StringVar(&catalogPath, "catalog", "", "path to a catalog with selected streams")
	rootCmd.Flags().BoolVarP(&discover, "discover", "d", false, "print the catalog and exit")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the planned windows and exit")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
