package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudlens/cloudlens/pkg/config"
	"github.com/cloudlens/cloudlens/pkg/history"
	"github.com/cloudlens/cloudlens/pkg/metrics"
	"github.com/cloudlens/cloudlens/pkg/pattern"
	"github.com/cloudlens/cloudlens/pkg/ui"
)

// resolvePipelinePath finds the pipeline definition to load, preferring
// an explicit --config flag and otherwise searching the working
// directory and the user's home directory, mirroring the reference
// architecture's own loadConfiguration search order.
func resolvePipelinePath() string {
	if configFile != "" {
		return configFile
	}

	if cwd, err := os.Getwd(); err == nil {
		if found := config.FindConfigFile(cwd); found != "" {
			return found
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		if found := config.FindConfigFile(homeDir); found != "" {
			return found
		}
	}

	return ""
}

func loadPipeline() (*config.PipelineConfig, string, error) {
	path := resolvePipelinePath()
	if path == "" {
		return nil, "", fmt.Errorf("no pipeline definition found; pass --config or place a cloudlens.yaml in the working or home directory")
	}

	cfg, debugInfo, err := config.LoadWithPrecedence(path, "", debugConfig)
	if err != nil {
		return nil, path, err
	}

	if debugConfig && debugInfo != nil {
		debugInfo.PrintDebugInfo()
		fmt.Println()
	}

	return cfg, path, nil
}

func newRunCommand() *cobra.Command {
	var historyPath string
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a declarative pipeline to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadPipeline()
			if err != nil {
				fatal("failed to load pipeline", err)
				return nil
			}

			collector := metrics.NewCollector()
			started := time.Now()

			s, err := config.Build(cfg, collector)
			if err != nil {
				fatal("failed to build pipeline", err)
				return nil
			}

			reporter := ui.NewReporter(os.Stderr)

			n := 0
			for {
				rec, ok := s.Next()
				if !ok {
					break
				}
				n++
				reporter.RecordProcessed(n, rec.String())
			}

			runMetrics := collector.Finish(time.Since(started))
			reporter.RunSummary(runMetrics)

			if !noHistory {
				recordRunHistory(historyPath, path, cfg.Input.Type, started, time.Since(started), runMetrics, nil)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&historyPath, "history-db", history.DefaultPath(), "path to the run history database")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "skip recording this run in history")

	return cmd
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a pipeline definition without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadPipeline()
			if err != nil {
				fatal("failed to load pipeline", err)
				return nil
			}

			for i, st := range cfg.Stages {
				if st.Pattern == "" {
					continue
				}
				if _, err := pattern.Compile(st.Pattern, st.CaseInsensitive); err != nil {
					fatal(fmt.Sprintf("stage %d has an invalid pattern", i), err)
					return nil
				}
			}

			switch cfg.Input.Type {
			case "text", "json":
				if _, err := os.Stat(cfg.Input.Path); err != nil {
					fatal("input path is not accessible", err)
					return nil
				}
			}

			fmt.Println("pipeline definition is valid")
			return nil
		},
	}
}

func newHistoryCommand() *cobra.Command {
	var limit int
	var historyPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent cloudlens run invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(historyPath)
			if err != nil {
				fatal("failed to open history database", err)
				return nil
			}
			defer store.Close()

			runs, err := store.ListRuns(limit)
			if err != nil {
				fatal("failed to list run history", err)
				return nil
			}

			for _, run := range runs {
				status := "ok"
				if !run.Success {
					status = "failed: " + run.ErrorText
				}
				fmt.Printf("%s  %-30s  in=%-5d out=%-5d  %-8s  %s\n",
					run.StartedAt.Format(time.RFC3339), run.ConfigPath, run.RecordsIn, run.RecordsOut, run.Duration, status)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	cmd.Flags().StringVar(&historyPath, "history-db", history.DefaultPath(), "path to the run history database")

	return cmd
}

func recordRunHistory(historyPath, configPath, inputType string, started time.Time, duration time.Duration, m *metrics.RunMetrics, runErr error) {
	store, err := history.Open(historyPath)
	if err != nil {
		logger.Warn("failed to open history database", "error", err)
		return
	}
	defer store.Close()

	run := &history.Run{
		StartedAt:  started,
		Duration:   duration,
		ConfigPath: configPath,
		InputType:  inputType,
		RecordsIn:  m.RecordsIn,
		RecordsOut: m.RecordsOut,
		Suppressed: m.Suppressed,
		Expanded:   m.Expanded,
		Success:    runErr == nil,
	}
	if runErr != nil {
		run.ErrorText = runErr.Error()
	}

	if err := store.RecordRun(run); err != nil {
		logger.Warn("failed to record run history", "error", err)
	}
}
