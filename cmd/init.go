package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgindex/pgindex/internal/report"
	"github.com/pgindex/pgindex/internal/scaffold"
)

var (
	initForce bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter pg_index_import.toml",
	Long: `Init writes pg_index_import.toml with the default settings, adds the
connection variables to .env.example and makes sure .env is git-ignored.
Credentials are never written to the config file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing pg_index_import.toml")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to initialize")
}

func runInit(cmd *cobra.Command, args []string) error {
	res, err := scaffold.Init(initDir, initForce)
	if err != nil {
		return err
	}

	console := report.NewConsole(cmd.OutOrStdout(), false)
	if res.ConfigCreated {
		console.Done(fmt.Sprintf("Created %s", res.ConfigPath))
	} else {
		console.Done(fmt.Sprintf("Overwrote %s", res.ConfigPath))
	}
	switch {
	case res.EnvExampleCreated:
		console.Done(fmt.Sprintf("Created %s", res.EnvExamplePath))
	case res.EnvExampleUpdated:
		console.Done(fmt.Sprintf("Added connection variables to %s", res.EnvExamplePath))
	}
	if res.GitignoreUpdated {
		console.Done("Added .env to .gitignore")
	}
	return nil
}
