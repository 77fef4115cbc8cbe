package main

import (
	"errors"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/config"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/database"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.StoragePostgres {
				return errors.New("migrate needs STORAGE_DRIVER=postgres")
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)

			db, err := database.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}
