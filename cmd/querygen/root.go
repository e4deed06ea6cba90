package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string
	logger     *slog.Logger

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "querygen",
	Short: "Dialect-aware SQL query generation",
	Long: `querygen - Dialect-aware SQL query generation

querygen compiles declarative operation descriptors (selects, mutations,
DDL and transaction control) into SQL text for PostgreSQL, MySQL, SQLite
and MSSQL.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		logger, err = cli.NewLogger(os.Stderr, cfg.Log, verbose, quiet)
		if err != nil {
			return cli.ConfigError("configuring logger", err)
		}
		aliases, err := cfg.Aliases()
		if err != nil {
			return cli.ConfigError("operator aliases", err)
		}
		if err := sql.SetOperatorAliases(aliases); err != nil {
			return cli.ConfigError("operator aliases", err)
		}
		if configPath != "" {
			logger.Debug("loaded configuration", slog.String("path", configPath))
		}
		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupQuery   = "query"
	groupUtility = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover querygen.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupQuery, Title: "Queries:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	compileCmd.GroupID = groupQuery
	explainCmd.GroupID = groupQuery
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(explainCmd)

	dialectsCmd.GroupID = groupUtility
	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(dialectsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
