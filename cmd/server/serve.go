package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mic/internal/auth"
	claimshandler "mic/internal/claims/handler"
	claimsservice "mic/internal/claims/service"
	claimsstore "mic/internal/claims/store"
	"mic/internal/health"
	"mic/internal/idempotency"
	idemmetrics "mic/internal/idempotency/metrics"
	idemstore "mic/internal/idempotency/store"
	"mic/internal/ledger"
	ledgerhandler "mic/internal/ledger/handler"
	ledgermetrics "mic/internal/ledger/metrics"
	"mic/internal/ledger/outbox"
	ledgerstore "mic/internal/ledger/store"
	"mic/internal/platform/config"
	"mic/internal/platform/httpserver"
	"mic/internal/platform/logger"
	"mic/internal/platform/metrics"
	"mic/internal/platform/otel"
	"mic/internal/platform/postgres"
	platformredis "mic/internal/platform/redis"
	ratelimitmetrics "mic/internal/ratelimit/metrics"
	ratelimitmw "mic/internal/ratelimit/middleware"
	ratelimitstore "mic/internal/ratelimit/store"
	sanctionshandler "mic/internal/sanctions/handler"
	sanctionsservice "mic/internal/sanctions/service"
	sanctionsstore "mic/internal/sanctions/store"
	sourcesstore "mic/internal/sources/store"
	httptransport "mic/internal/transport/http"
	verdicthandler "mic/internal/verdict/handler"
	verdictmetrics "mic/internal/verdict/metrics"
	verdictservice "mic/internal/verdict/service"
	verdictstore "mic/internal/verdict/store"
	"mic/pkg/platform/tx"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when Kafka is configured, the outbox relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	shutdownTracing, err := otel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			return err
		}
		log.Info("migrations applied", "count", applied)
	}

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	keys, err := auth.ParseKeyRing(cfg.Auth.APIKeys)
	if err != nil {
		return fmt.Errorf("parse MIC_API_KEYS: %w", err)
	}
	var tokens *auth.TokenService
	if cfg.Auth.JWTSigningKey != "" {
		tokens = auth.NewTokenService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
	}
	if keys.Len() == 0 && tokens == nil {
		log.Warn("no credentials configured; every write will be rejected")
	}

	runner := tx.NewSQLRunner(db, cfg.Database.TxTimeout)
	ledgerMetrics := ledgermetrics.New()

	events := ledger.NewWriter(ledgerstore.NewPostgres(db), ledgerMetrics)
	coordinator := idempotency.New(idemstore.NewPostgres(db), runner, log,
		idempotency.WithPendingTTL(cfg.Idempotency.PendingTTL),
		idempotency.WithMetrics(idemmetrics.New()),
	)
	claims := claimsservice.New(claimsstore.NewPostgres(db), events, runner, log)
	verdicts := verdictservice.New(verdictstore.NewPostgres(db), claims, sourcesstore.NewPostgres(db),
		events, runner, verdictmetrics.New(), log)
	screener := sanctionsservice.NewScreener(sanctionsstore.NewPostgresLists(db), claims, events, log)

	var limiter ratelimitmw.Limiter = ratelimitstore.NoopLimiter{}
	var redisHealth health.Checker
	if rdb != nil {
		limiter = ratelimitstore.NewRedisLimiter(rdb.Client, cfg.RateLimit.PostsPerMinute)
		redisHealth = rdb
	} else {
		log.Info("redis not configured; write rate limiting disabled")
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		HTTPMetrics: metrics.NewHTTP(),
		Prometheus:  httptransport.PrometheusHandler(),
		Resolver:    auth.NewResolver(keys, tokens),
		RateLimit:   ratelimitmw.New(limiter, log, ratelimitmw.WithMetrics(ratelimitmetrics.New())),
		Claims:      claimshandler.New(claims, coordinator, log),
		Verdicts:    verdicthandler.New(verdicts, log),
		Sanctions:   sanctionshandler.New(screener, coordinator, log),
		Events:      ledgerhandler.New(events, log),
		Health:      health.New(db, redisHealth, log),
	})
	srv := httpserver.New(cfg.Server.Addr, router, log)

	var relay *outbox.Relay
	if cfg.KafkaEnabled() {
		r, closeKafka, err := newRelay(ctx, cfg, db, ledgerMetrics, log)
		if err != nil {
			return err
		}
		defer closeKafka()
		relay = r
	} else {
		log.Info("kafka not configured; outbox relay disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting mic", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	return g.Wait()
}
