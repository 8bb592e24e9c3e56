package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/ent0n29/switchboard/internal/database"
	"github.com/ent0n29/switchboard/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:       "migrate up|down|version",
		Short:     "Manage the postgres schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required")
			}
			db, err := database.OpenSQL(cmd.Context(), databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			switch args[0] {
			case "up":
				return database.Migrate(db, logging.New("migrate"))
			case "down":
				if err := database.MigrateDown(db); err != nil {
					return err
				}
				fmt.Fprintln(out, "All migrations rolled back.")
				return nil
			default:
				v, dirty, err := database.MigrationVersion(db)
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(out, "No migrations applied.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "version %d (dirty=%t)\n", v, dirty)
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection URL")
	return cmd
}
