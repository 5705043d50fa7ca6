package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/spf13/cobra"

	ledgermetrics "mic/internal/ledger/metrics"
	"mic/internal/ledger/outbox"
	ledgerstore "mic/internal/ledger/store"
	"mic/internal/platform/config"
	"mic/internal/platform/kafka"
	"mic/internal/platform/logger"
	"mic/internal/platform/otel"
	"mic/internal/platform/postgres"
	"mic/pkg/platform/tx"
)

func newRelayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Publish committed ledger events from the outbox to Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runRelay(cmd.Context(), cfg)
		},
	}
}

func runRelay(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	shutdownTracing, err := otel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	relay, closeKafka, err := newRelay(ctx, cfg, db, ledgermetrics.New(), log)
	if err != nil {
		return err
	}
	defer closeKafka()

	log.Info("starting outbox relay", "topic", cfg.Kafka.LedgerTopic)
	return relay.Run(ctx)
}

// newRelay connects to Kafka, ensures the ledger topic exists and builds the
// outbox relay over the Postgres ledger store.
func newRelay(ctx context.Context, cfg config.Config, db *sql.DB, m *ledgermetrics.Metrics, log *slog.Logger) (*outbox.Relay, func(), error) {
	client, err := kafka.NewClient(cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	if err := kafka.Health(ctx, client); err != nil {
		client.Close()
		return nil, nil, err
	}
	// -1 partitions and replication defer to the broker's defaults.
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.LedgerTopic, -1, -1); err != nil {
		client.Close()
		return nil, nil, err
	}
	relay := outbox.NewRelay(
		ledgerstore.NewPostgres(db),
		tx.NewSQLRunner(db, cfg.Database.TxTimeout),
		outbox.NewKafkaPublisher(client, cfg.Kafka.LedgerTopic),
		log,
		outbox.WithBatchSize(cfg.Kafka.BatchSize),
		outbox.WithPollInterval(cfg.Kafka.PollInterval),
		outbox.WithMetrics(m),
	)
	return relay, client.Close, nil
}
