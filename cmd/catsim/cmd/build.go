package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/metrics"
)

type buildOptions struct {
	lineLimit int
	noPersist bool
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Index the corpus and write JSON dumps and the snapshot",
		Long: `Build reads the qrels file, the vector part files and the stem map,
builds both inverted indices and replaces the JSON dumps and binary snapshot.
The corpus statistics are printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("line-limit") {
				cfg.Corpus.LineLimit = opts.lineLimit
			}

			b := indexer.NewBuilder(cfg.Corpus, cfg.Output, metrics.New(prometheus.NewRegistry()))
			corpus, err := b.Build(cmd.Context())
			if err != nil {
				return err
			}
			if !opts.noPersist {
				if err := b.Persist(corpus); err != nil {
					return fmt.Errorf("persisting corpus: %w", err)
				}
			}
			slog.Info("build finished", "persisted", !opts.noPersist)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(corpus.Stats())
		},
	}

	cmd.Flags().IntVar(&opts.lineLimit, "line-limit", -1, "read at most this many lines of each file (negative reads all)")
	cmd.Flags().BoolVar(&opts.noPersist, "no-persist", false, "build only, do not write dumps or snapshot")

	return cmd
}
