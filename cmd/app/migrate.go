package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/collab-board/internal/repo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema for the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		// Open применяет схему сам
		backend, err := repo.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		backend.Close()

		logger.Info("Schema applied", zap.String("store", cfg.Store))
		return nil
	},
}
