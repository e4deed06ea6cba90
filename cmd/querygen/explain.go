package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/internal/cli"
)

var (
	explainDSN     string
	explainDialect string
	explainStats   bool
)

var explainCmd = &cobra.Command{
	Use:   "explain <document>",
	Short: "Show the query plans of compiled statements",
	Long: `Compile a descriptor document and ask a live database for the query plan
of every SELECT, INSERT, UPDATE and DELETE statement. Nothing is executed
beyond the EXPLAIN statements.`,
	Example: `  # Explain against PostgreSQL
  querygen explain --dsn postgres://localhost/app queries.yaml

  # Explain against a SQLite file
  querygen explain -d sqlite --dsn app.db queries.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts := cfg.Options(logger)
		opts.Dialect = explainDialect

		res, err := cli.CompileFile(ctx, args[0], opts)
		if err != nil {
			return cli.CompileFailure("compiling", err)
		}
		if _, err := cli.ExplainPrefix(res.Dialect); err != nil {
			return cli.GeneralError("explain", err)
		}

		dsn := resolveString(explainDSN, cfg.DSN)
		drv, err := cli.OpenExplainDriver(res.Dialect, dsn, cfg.Explain.SlowThreshold, logger, sql.WithLogger(logger))
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = drv.Close() }()

		plans, err := cli.Explain(ctx, drv, res.Dialect, res.Statements)
		if err != nil {
			return cli.GeneralError("explaining", err)
		}
		if err := cli.WritePlans(os.Stdout, plans); err != nil {
			return cli.GeneralError("writing output", err)
		}
		if explainStats {
			fmt.Fprintln(os.Stderr, drv.QueryStats().Stats())
		}
		return nil
	},
}

func init() {
	explainCmd.Flags().StringVar(&explainDSN, "dsn", "", "data source name (default from config or QUERYGEN_DSN)")
	explainCmd.Flags().StringVarP(&explainDialect, "dialect", "d", "", "target dialect (overrides the document)")
	explainCmd.Flags().BoolVar(&explainStats, "stats", false, "print statement statistics to stderr")
}
