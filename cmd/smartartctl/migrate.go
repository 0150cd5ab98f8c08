package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/smartart/internal/adapters/repository"
	"github.com/okian/smartart/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite store schema",
	}
	migrateCmd.PersistentFlags().String("db", "", "SQLite file (default: sqlite_path)")

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrate("up"),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the latest migration",
		RunE:  runMigrate("down"),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE:  runMigrate("version"),
	})
	return migrateCmd
}

func runMigrate(action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("db")
		if path == "" {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path = cfg.SQLitePath
		}

		db, err := repository.OpenSQLite(ctx, path)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		l := logger.Get().Named("migrate")
		switch action {
		case "up":
			err = repository.MigrateUp(db, l)
		case "down":
			err = repository.MigrateDown(db, l)
		}
		if err != nil {
			return err
		}

		version, dirty, err := repository.MigrateVersion(db, l)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
		return err
	}
}
