package main

import (
	"github.com/kojileo/datebank/pkg/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := database.Open(&cfg.DB)
			if err != nil {
				return err
			}
			defer database.Close(db) //nolint:errcheck

			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info("Database migrated", zap.String("driver", cfg.DB.Driver))
			return nil
		},
	}
}
