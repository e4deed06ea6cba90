package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/querygen/internal/cli"
)

var (
	compileDialect     string
	compileTimezone    string
	compileFormat      string
	compileConcurrency int
	compileReadOnly    bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <document>...",
	Short: "Compile descriptor documents into SQL",
	Long: `Compile descriptor documents into SQL.

Documents are compiled concurrently. Every failing document is reported and
nothing is written unless all of them compile.`,
	Example: `  # Compile a document for the dialect it names
  querygen compile queries.yaml

  # Compile for MySQL regardless of the document
  querygen compile --dialect mysql queries.yaml

  # Emit YAML and refuse any write
  querygen compile --format yaml --read-only queries/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cfg.Options(logger)
		opts.Dialect = compileDialect
		opts.Timezone = compileTimezone
		if compileConcurrency > 0 {
			opts.Concurrency = compileConcurrency
		}
		if compileReadOnly {
			policy := cfg.Policy
			policy.ReadOnly = true
			opts.Policy = policy.Policy()
		}

		results, err := cli.CompileFiles(cmd.Context(), args, opts)
		if err != nil {
			return cli.CompileFailure("compiling", err)
		}
		if quiet {
			return nil
		}
		format := resolveString(compileFormat, cfg.Compile.Format, cli.FormatSQL)
		if err := cli.WriteResults(os.Stdout, results, format); err != nil {
			return cli.GeneralError("writing output", err)
		}
		return nil
	},
}

func init() {
	compileCmd.Flags().StringVarP(&compileDialect, "dialect", "d", "", "target dialect (overrides the document)")
	compileCmd.Flags().StringVar(&compileTimezone, "timezone", "", "timezone dates are rendered in (overrides the document)")
	compileCmd.Flags().StringVarP(&compileFormat, "format", "f", "", "output format: sql or yaml")
	compileCmd.Flags().IntVarP(&compileConcurrency, "concurrency", "j", 0, "documents compiled at once")
	compileCmd.Flags().BoolVar(&compileReadOnly, "read-only", false, "reject every operation that writes")
}
