package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pgindex/pgindex/internal/report"
)

var (
	configPath string
	envFile    string
	verbose    bool
	logFormat  string
	progress   string
)

var rootCmd = &cobra.Command{
	Use:   "pgindex",
	Short: "Copy index definitions from SQL Server to PostgreSQL",
	Long: `pgindex exports every index of a SQL Server database as one statement file
per index, laid out as <output>/<schema>/<table>/<index>.sql, and replays a
tree of statement files against a target database with a pool of workers.

Settings are read from pg_index_import.toml (found by walking up from the
current directory) and can be overridden with flags. Connection secrets can
also come from a .env file or the SOURCE_URL, SOURCE_PASSWORD, TARGET_URL and
TARGET_PASSWORD environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "f", "", "Path to pg_index_import.toml (default: search upwards from the current directory)")
	flags.StringVar(&envFile, "env-file", "", "Path to a .env file with connection overrides (default: .env next to the config file)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and per-statement progress")
	flags.StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	flags.StringVar(&progress, "progress", "console", "Progress display: console, log or tui (tui applies to import)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		report.NewConsole(os.Stderr, false).Fail("Error: " + err.Error())
		os.Exit(1)
	}
}
