package main

import (
	"context"
	"fmt"

	"github.com/MrEthical07/storeAuth/internal/config"
	"github.com/MrEthical07/storeAuth/internal/logger"
	"github.com/MrEthical07/storeAuth/internal/userstore/postgres"
	"github.com/MrEthical07/storeAuth/session"
	"github.com/spf13/cobra"
)

func newUserCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer accounts in the user directory",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "grant <user-id> <role>",
		Short: "Assign a role to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd.Context(), root, func(ctx context.Context, _ config.Config, store *postgres.Store) error {
				if err := store.AssignRole(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", args[1], args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enable <user-id>",
		Short: "Re-activate a disabled account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd.Context(), root, func(ctx context.Context, _ config.Config, store *postgres.Store) error {
				if err := store.SetActive(ctx, args[0], true); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enabled %s\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disable <user-id>",
		Short: "Deactivate an account and revoke its refresh sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd.Context(), root, func(ctx context.Context, cfg config.Config, store *postgres.Store) error {
				if err := store.SetActive(ctx, args[0], false); err != nil {
					return err
				}

				rdb, err := openRedis(cfg)
				if err != nil {
					return err
				}
				defer func() { _ = rdb.Close() }()

				auth := cfg.AuthConfig()
				n, err := session.NewStore(rdb, auth.Session.RedisPrefix).RevokeAllForUser(ctx, args[0])
				if err != nil {
					return fmt.Errorf("account disabled but session revocation failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "disabled %s, revoked %d sessions\n", args[0], n)
				return nil
			})
		},
	})

	return cmd
}

func withDirectory(ctx context.Context, root *rootOptions, fn func(context.Context, config.Config, *postgres.Store) error) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return fn(ctx, cfg, postgres.New(db, postgres.DefaultRole))
}
