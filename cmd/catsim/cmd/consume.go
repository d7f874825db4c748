package cmd

import (
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/consumer"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/dispatch"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/kafka"
)

func newConsumeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Answer commands read from the Kafka commands topic",
		Long: `Consume joins the consumer group on kafka.topics.commands, runs every
message as a command and publishes the outcome, keyed by the message id, to
kafka.topics.results.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if len(cfg.Kafka.Brokers) == 0 {
				return errors.New("kafka.brokers is empty")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := openEngine(ctx, cfg, prometheus.DefaultRegisterer, true)
			if err != nil {
				return err
			}
			defer e.Close()

			svc, err := startServices(ctx, cfg, e)
			if err != nil {
				return err
			}
			defer svc.Close()

			results := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Results)
			defer results.Close()

			// Bus commands are trusted producers; k is not limited here.
			d := dispatch.New(e.executor, svc.cache, svc.tracker, 0)
			c := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Commands, consumer.HandleMessage(d, results))
			slog.Info("command consumer starting",
				"commands", cfg.Kafka.Topics.Commands,
				"results", cfg.Kafka.Topics.Results,
			)
			return c.Start(ctx)
		},
	}
}
