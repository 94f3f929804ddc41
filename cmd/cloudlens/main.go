// Command cloudlens drives a declarative pipeline defined in YAML: it
// loads the pipeline definition, builds it into a Stream, runs it to
// completion, and reports progress and a final summary. Logging is
// rooted here with log/slog; library packages never log directly,
// returning errors instead — this is the only place that converts an
// error into a logged fatal exit, per the reference architecture's own
// single fail-fast boundary at main.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile  string
	debugConfig bool
	logger      *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cloudlens",
	Short: "Analyze machine-generated text through a declarative pipeline",
	Long: `cloudlens runs a pull-based pipeline of pattern-matching stages over a
stream of records, drawn from an inline message list, a line-delimited
text file, or a JSON file.

Pipelines are defined declaratively in YAML: an ordered list of stages,
each optionally guarded by a key or a regular expression pattern with
named, typed capture groups, paired with a small fixed action
(print, count, drop, set_field).

EXAMPLES:
  # Run a pipeline defined in cloudlens.yaml, searching standard locations
  cloudlens run

  # Run a pipeline from an explicit file, printing config resolution
  cloudlens run --config ./pipelines/errors.yaml --debug-config

  # Lint a pipeline definition without running it
  cloudlens validate --config ./pipelines/errors.yaml

  # Show recent run history
  cloudlens history --limit 10`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the pipeline definition file")
	rootCmd.PersistentFlags().BoolVar(&debugConfig, "debug-config", false, "print which source resolved each configuration value")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newHistoryCommand())
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
