package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	storeAuth "github.com/MrEthical07/storeAuth"
	"github.com/MrEthical07/storeAuth/internal/httpapi"
	"github.com/MrEthical07/storeAuth/internal/logger"
	"github.com/MrEthical07/storeAuth/internal/userstore/postgres"
	otelexport "github.com/MrEthical07/storeAuth/metrics/export/otel"
	promexport "github.com/MrEthical07/storeAuth/metrics/export/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server.

With TRUST_PROXY=true (the default) the rate limit and login lockout key on
the leftmost X-Forwarded-For address, then X-Real-IP. Deploy behind a proxy
that overwrites those headers, or set TRUST_PROXY=false when clients reach
the service directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, migrate bool) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	rdb, err := openRedis(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()
	if err := waitFor(ctx, log, "redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	engine, err := storeAuth.New().
		WithConfig(cfg.AuthConfig()).
		WithRedis(rdb).
		WithUserProvider(postgres.New(db, postgres.DefaultRole)).
		WithAuditSink(storeAuth.NewZapSink(log.Named("audit"))).
		WithLogger(log.Named("engine")).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()
	report := engine.SecurityReport()
	report.NoteProxyTrust(cfg.Server.TrustProxy)
	logSecurityReport(log, report)

	otelExporter, err := otelexport.NewExporter(otel.Meter("github.com/MrEthical07/storeAuth"), engine)
	if err != nil {
		return err
	}
	defer func() { _ = otelExporter.Close() }()

	router := httpapi.NewRouter(httpapi.Dependencies{
		Auth:    engine,
		Metrics: promexport.NewExporter(engine).Handler(),
		Logger:  log,
		Options: httpapi.OptionsFromConfig(cfg),
	})
	srv := httpapi.NewServer(cfg.Server.Port, router, cfg.RequestTimeout())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server started",
			zap.String("addr", srv.Addr),
			zap.String("environment", string(cfg.Env())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func logSecurityReport(log *zap.Logger, r storeAuth.SecurityReport) {
	log.Info("security posture",
		zap.Bool("production_mode", r.ProductionMode),
		zap.String("signing_algorithm", r.SigningAlgorithm),
		zap.Duration("access_ttl", r.AccessTTL),
		zap.Duration("refresh_ttl", r.RefreshTTL),
		zap.Uint32("argon2_memory_kib", r.Argon2.Memory),
		zap.Uint32("argon2_time", r.Argon2.Time),
		zap.Bool("rate_limiting", r.RateLimitingActive),
		zap.Bool("lockout", r.LockoutActive),
		zap.Bool("register_throttle", r.RegisterThrottleActive),
		zap.Bool("trust_proxy", r.ForwardedHeadersTrusted),
	)
	for _, w := range r.Warnings {
		log.Warn("security posture warning", zap.String("warning", w))
	}
}
