package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/storeAuth/internal/logger"
	"github.com/MrEthical07/storeAuth/internal/userstore/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the user directory schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Database.URL) == "" {
				return errors.New("DATABASE_URL is required")
			}
			log, err := logger.New(cfg.Log.Level, cfg.Environment)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := openDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
