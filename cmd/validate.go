package cmd

import (
	"github.com/spf13/cobra"
)

var (
	validateExtension string
	validateLocks     bool
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateExtension, "extension", "", "Extension of statement files (default: from config, .sql)")
	validateCmd.Flags().BoolVar(&validateLocks, "locks", false, "Also list statements that block writes on a PostgreSQL target")
}

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check statement files with the PostgreSQL parser",
	Long: `Validate parses every statement file under a directory with the PostgreSQL
parser and reports syntax errors with file, line and column. Nothing is
executed. Without an argument the import input directory is checked.`,
	Example: `  # Check the exported tree before importing it
  pgindex validate OUTPUT`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	mode := s.config.ImportMode()
	dir := mode.InputDir
	if len(args) > 0 {
		dir = args[0]
	}
	ext := mode.Extension
	if validateExtension != "" {
		ext = validateExtension
	}

	_, err = s.app.RunValidate(dir, ext, validateLocks)
	return err
}
