package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pgindex/pgindex/internal/config"
)

var (
	importInput            string
	importThreads          int
	importTimeoutHours     int
	importStatementTimeout time.Duration
	importQueueSize        int
	importExtension        string
	importValidate         bool
	importConcurrently     bool
	importFailOnStatement  bool
	importReport           string
)

func init() {
	rootCmd.AddCommand(importCmd)

	flags := importCmd.Flags()
	flags.StringVarP(&importInput, "input", "I", "INPUT", "Directory tree of statement files")
	flags.IntVarP(&importThreads, "threads", "r", 2, "Number of workers and pooled connections (1-10)")
	flags.IntVarP(&importTimeoutHours, "timeout", "T", 24, "Hours a worker may wait for a free connection (1-72)")
	flags.DurationVar(&importStatementTimeout, "statement-timeout", 0, "Timeout for each statement (0 means none)")
	flags.IntVar(&importQueueSize, "queue-size", 0, "Bound the work queue (0 queues every statement up front)")
	flags.StringVar(&importExtension, "extension", ".sql", "Extension of statement files")
	flags.BoolVar(&importValidate, "validate", false, "Parse every statement with the PostgreSQL parser before replaying")
	flags.BoolVar(&importConcurrently, "concurrently", false, "Build plain indexes with CREATE INDEX CONCURRENTLY (PostgreSQL targets)")
	flags.BoolVar(&importFailOnStatement, "fail-on-statement-error", false, "Exit non-zero when any statement fails")
	flags.StringVar(&importReport, "report", "", "Write a JSON summary of the run to this file")
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replay statement files against the target database",
	Long: `Import collects every statement file under the input directory and replays
them against the target with a fixed number of workers. Each worker borrows a
pooled connection per statement.

A failing statement is reported and the batch continues. The run exits
non-zero when a worker could not obtain a connection within the timeout, or
with --fail-on-statement-error when any statement failed.`,
	Example: `  # Replay OUTPUT with four workers
  pgindex import -I OUTPUT -r 4

  # Check statements first and keep a summary
  pgindex import --validate --report summary.json

  # Keep the target writable while indexes build
  pgindex import --concurrently`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	conns, err := s.connections()
	if err != nil {
		return err
	}

	mode := importModeFromFlags(cmd, s.config)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	_, err = s.app.RunImport(ctx, mode, conns.TargetURL)
	return err
}

// importModeFromFlags starts from the config file and applies flags that
// were set explicitly.
func importModeFromFlags(cmd *cobra.Command, cfg *config.Config) config.ImportMode {
	mode := cfg.ImportMode()
	flags := cmd.Flags()
	if flags.Changed("input") {
		mode.InputDir = importInput
	}
	if flags.Changed("threads") {
		mode.Threads = importThreads
	}
	if flags.Changed("timeout") {
		mode.TimeoutHours = importTimeoutHours
	}
	if flags.Changed("statement-timeout") {
		mode.StatementTimeout = importStatementTimeout
	}
	if flags.Changed("queue-size") {
		mode.QueueSize = importQueueSize
	}
	if flags.Changed("extension") {
		mode.Extension = importExtension
	}
	if flags.Changed("concurrently") {
		mode.Concurrently = importConcurrently
	}
	mode.ValidateFirst = importValidate
	mode.FailOnStatementError = importFailOnStatement
	mode.ReportPath = importReport
	return mode
}
