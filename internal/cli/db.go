package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/skillindex/pkg/config"
	"github.com/matzehuels/skillindex/pkg/store"
)

// dbCommand creates the database management command.
func (c *CLI) dbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the skill index store",
	}
	cmd.AddCommand(c.dbInitCommand())
	return cmd
}

// dbInitCommand creates the "db init" subcommand.
func (c *CLI) dbInitCommand() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the skills and audit tables or collections",
		Long: `Init creates the schema of the store named by --dsn or DATABASE_URL:
tables for postgres, sqlite and mysql, indexes for mongodb. It is safe to run
more than once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dsn == "" {
				cfg, err := config.Load(c.env)
				if err != nil {
					return err
				}
				dsn = cfg.DatabaseURL
			}
			if dsn == "" {
				return fmt.Errorf("no store configured: set %s or --dsn", config.EnvDatabaseURL)
			}

			s, err := store.Open(ctx, dsn)
			if err != nil {
				return fmt.Errorf("open store %s: %w", store.Redact(dsn), err)
			}
			defer s.Close()

			prog := newProgress(c.Logger)
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			prog.done("Schema ready")
			printSuccess(c.stdout(cmd), "Initialized %s", store.Redact(dsn))
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "store DSN (default: $DATABASE_URL)")
	return cmd
}
