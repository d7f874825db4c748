// Package cmd provides the catsim subcommands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/export"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/postgres"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd creates the root command for the catsim CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "catsim",
		Short: "Category and term similarity over a labelled corpus",
		Long: `catsim indexes a corpus of category labels (qrels), document term
vectors and a stem table, then scores categories against terms with the
Jaccard index of their document sets.

Commands:
  @ <category> <k>        top k terms for a category
  # <stem> <k>            top k categories for a term
  $ <stem> <category>     similarity of one pair
  * <destination>         full matrix to .xlsx, .json, pg:<table> or postgres://
  P <doc> -c|-t           categories or terms of a document
  C <doc> -c|-t           how many of them`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			// Logs go to stderr so results on stdout stay machine-readable.
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "configs/development.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newConsumeCmd(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// engine is the loaded corpus with an executor wired to its sinks.
type engine struct {
	corpus   *indexer.Corpus
	executor *executor.Executor
	metrics  *metrics.Metrics
	pg       *postgres.Client
}

func (e *engine) Close() {
	if e.pg != nil {
		e.pg.Close()
	}
}

// openEngine loads the corpus (snapshot first, rebuilding when absent or
// stale) and wires the matrix sinks. remote engines serve HTTP and Kafka
// callers: they share one PostgreSQL connection for pg: destinations and
// write files only under export.dir. Local engines take any destination.
func openEngine(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, remote bool) (*engine, error) {
	m := metrics.New(reg)
	corpus, err := indexer.NewBuilder(cfg.Corpus, cfg.Output, m).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	e := &engine{corpus: corpus, metrics: m}
	if remote {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, pg: exports will connect on demand", "error", err)
		} else {
			e.pg = pg
		}
	}

	registry := export.NewRegistry(cfg.Export, cfg.Postgres, e.pg)
	var sinks executor.SinkOpener = registry
	if remote {
		sinks = registry.Confine(cfg.Export.Dir)
	}
	e.executor = executor.New(corpus,
		executor.WithMetrics(m),
		executor.WithSinks(sinks),
		executor.WithWorkers(cfg.Export.Workers),
	)
	return e, nil
}

// cacheNamespace keeps results of different corpora apart in a shared Redis.
// Corpora restored from a snapshot without a source manifest fall back to
// their shape.
func cacheNamespace(c *indexer.Corpus) string {
	s := c.Stats()
	shape := fmt.Sprintf("c%d-t%d-s%d-d%d", s.Categories, s.Terms, s.Stems, s.Documents)
	if fp := c.Fingerprint(); fp != "" {
		return fp + "-" + shape
	}
	return shape
}
