package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pgindex/pgindex/internal/catalog/sqlserver"
	"github.com/pgindex/pgindex/internal/config"
)

var (
	exportSchema       string
	exportTable        string
	exportOutput       string
	exportQueryTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(exportCmd)

	flags := exportCmd.Flags()
	flags.StringVarP(&exportSchema, "schema", "s", config.Wildcard, "Source schema, or '*' for all schemas")
	flags.StringVarP(&exportTable, "table", "t", config.Wildcard, "Source table, or '*' for all tables")
	flags.StringVarP(&exportOutput, "output", "o", "OUTPUT", "Output directory")
	flags.DurationVar(&exportQueryTimeout, "query-timeout", 0, "Timeout for each catalog query (0 means none)")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write one statement file per source index",
	Long: `Export reads schemas, tables and indexes from the SQL Server catalog and
writes each index's creation statement to <output>/<schema>/<table>/<index>.sql.

Regular files already present in each schema and table directory are removed
first; subdirectories are left alone. The first failure stops the export.`,
	Example: `  # Export every index
  pgindex export

  # Export one table
  pgindex export -s sales -t orders -o OUTPUT`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	conns, err := s.connections()
	if err != nil {
		return err
	}

	mode := exportModeFromFlags(cmd, s.config)
	reader := sqlserver.NewReader(conns.SourceDSN, sqlserver.WithQueryTimeout(exportQueryTimeout))

	ctx, cancel := signalContext(cmd)
	defer cancel()

	_, err = s.app.RunExport(ctx, mode, reader)
	return err
}

// exportModeFromFlags starts from the config file and applies flags that
// were set explicitly.
func exportModeFromFlags(cmd *cobra.Command, cfg *config.Config) config.ExportMode {
	mode := cfg.ExportMode()
	flags := cmd.Flags()
	if flags.Changed("schema") {
		mode.Schema = exportSchema
	}
	if flags.Changed("table") {
		mode.Table = exportTable
	}
	if flags.Changed("output") {
		mode.OutputDir = exportOutput
	}
	return mode
}
