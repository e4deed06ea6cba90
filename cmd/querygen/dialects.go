package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/querygen/internal/cli"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List the supported dialects",
	Example: `  # List dialect names
  querygen dialects

  # Include quoting and notable features
  querygen dialects -v`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.WriteDialects(os.Stdout, verbose > 0)
	},
}
