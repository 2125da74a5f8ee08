package main

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajayykmr/notifications-service/internal/config"
	kafkafactory "github.com/ajayykmr/notifications-service/internal/kafka/factory"
	"github.com/ajayykmr/notifications-service/internal/kafka/publisher"
	"github.com/ajayykmr/notifications-service/internal/logger"
	"github.com/ajayykmr/notifications-service/internal/metrics"
	providerfactory "github.com/ajayykmr/notifications-service/internal/providers/factory"
	"github.com/ajayykmr/notifications-service/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume appointment events and send notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			base, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg, base.With().Str("service", "notifications-worker").Logger(), cmd.OutOrStdout())
		},
	}
}

func runWorker(ctx context.Context, cfg *config.Config, log zerolog.Logger, out io.Writer) error {
	cons, err := kafkafactory.NewConsumer(cfg.Kafka, logger.Component(log, "kafka_consumer"))
	if err != nil {
		return err
	}
	defer func() {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	var deadLetters worker.DeadLetterPublisher
	var readyProducer metrics.ReadinessChecker
	if cfg.DLQ.Enabled {
		prod, err := kafkafactory.NewProducer(cfg.Kafka, logger.Component(log, "kafka_producer"))
		if err != nil {
			return err
		}
		defer func() {
			if err := prod.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close kafka producer")
			}
		}()
		deadLetters = publisher.NewDLQPublisher(prod, cfg.DLQ.Topic, cfg.DLQ.SendTimeout, logger.Component(log, "dlq_publisher"))
		readyProducer, _ = prod.(metrics.ReadinessChecker)
	}

	senders, err := providerfactory.Senders(cfg.Providers, logger.Component(log, "providers"), out)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)
	if err := collector.Register(); err != nil {
		return err
	}

	runtime, err := worker.NewRuntime(worker.Config{
		PollTimeout:       cfg.Kafka.PollTimeout,
		MaxRecordsPerPoll: cfg.Kafka.MaxRecordsPerPoll,
		ForceSMSDisabled:  cfg.Worker.ForceSMSDisabled,
		DeadLetterEnabled: cfg.DLQ.Enabled,
	}, worker.Dependencies{
		Consumer:    cons,
		DeadLetters: deadLetters,
		Senders:     senders,
		Observer:    collector,
		Logger:      log,
		Now:         time.Now,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("topic", cfg.Kafka.Topic).
		Str("group_id", cfg.Kafka.GroupID).
		Str("client", cfg.Kafka.Client).
		Str("dlq_topic", cfg.DLQ.Topic).
		Msg("notifications worker starting")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, registry, logger.Component(log, "metrics_server"))
		if rc, ok := cons.(metrics.ReadinessChecker); ok {
			srv.AddChecker("consumer", rc)
		}
		srv.AddChecker("producer", readyProducer)
		g.Go(func() error { return srv.Run(gctx) })
	}
	g.Go(func() error {
		err := runtime.Run(gctx)
		if err != nil {
			log.Error().Err(err).Msg("worker stopped on broker failure")
			return err
		}
		if ctx.Err() != nil {
			log.Info().Msg("shutdown signal received")
		}
		return nil
	})

	return g.Wait()
}
