package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MrEthical07/storeAuth/internal/config"
	"github.com/MrEthical07/storeAuth/internal/userstore/postgres"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "storeauth",
		Short: "Authentication service for the bookstore",
		Long: `storeauth issues and validates JWT access tokens backed by Redis refresh
sessions and a Postgres user directory.

Configuration is read from an optional YAML file, then an optional .env
file, then the process environment.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to a dotenv file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newUserCmd(opts))
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openRedis(cfg config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if cfg.Redis.MaxConnections > 0 {
		opts.PoolSize = cfg.Redis.MaxConnections
	}
	return redis.NewClient(opts), nil
}

func openDatabase(ctx context.Context, cfg config.Config, log *zap.Logger) (*sql.DB, error) {
	db, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := waitFor(ctx, log, "postgres", db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// waitFor retries ping with exponential backoff until it succeeds, ctx ends
// or a minute has passed.
func waitFor(ctx context.Context, log *zap.Logger, name string, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	err := backoff.RetryNotify(
		func() error { return ping(ctx) },
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			log.Warn("dependency not ready, retrying",
				zap.String("dependency", name),
				zap.Duration("next", next),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		return fmt.Errorf("%s unavailable: %w", name, err)
	}
	return nil
}
