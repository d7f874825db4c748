package executor

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/export"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

// Matrix scores every (category, term) pair and hands each row to emit:
// categories in discovery order, and terms in discovery order within each
// category. Up to the configured number of workers score categories at
// once; rows still reach emit in order. ctx is checked between categories.
func (e *Executor) Matrix(ctx context.Context, emit func(export.MatrixRow) error) (int, error) {
	termKeys := e.corpus.Terms.Keys()
	stems := make([]string, len(termKeys))
	for i, key := range termKeys {
		stem, err := e.corpus.Stems.StemOf(key)
		if err != nil {
			return 0, err
		}
		stems[i] = stem
	}

	categories := e.corpus.Categories.Keys()
	rows := 0
	for start := 0; start < len(categories); start += e.workers {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		end := min(start+e.workers, len(categories))
		batch := make([][]export.MatrixRow, end-start)

		g, gctx := errgroup.WithContext(ctx)
		for i := range batch {
			category := categories[start+i]
			g.Go(func() error {
				row, err := e.scoreCategory(gctx, category, termKeys, stems)
				batch[i] = row
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return rows, err
		}

		for _, cells := range batch {
			for _, cell := range cells {
				if err := emit(cell); err != nil {
					return rows, err
				}
				rows++
			}
		}
	}
	return rows, nil
}

func (e *Executor) scoreCategory(ctx context.Context, category string, termKeys, stems []string) ([]export.MatrixRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	catSet, _ := e.corpus.Categories.Set(category)
	catSize := int(catSet.GetCardinality())
	cells := make([]export.MatrixRow, 0, len(termKeys))
	for i, key := range termKeys {
		termSet, _ := e.corpus.Terms.Set(key)
		score, err := ranker.Score(int(termSet.GetCardinality()), catSize, int(termSet.AndCardinality(catSet)))
		if err != nil {
			return nil, fmt.Errorf("scoring %s against category %s: %w", key, category, err)
		}
		cells = append(cells, export.MatrixRow{Stem: stems[i], Category: category, Score: score})
	}
	return cells, nil
}

// Export streams the full matrix into the sink chosen for destination. On
// any failure the sink is aborted and the destination keeps its old content.
func (e *Executor) Export(ctx context.Context, destination string) (*ExportSummary, error) {
	command := "* " + destination
	if e.sinks == nil {
		return nil, apperrors.Invalid(command, "matrix export is not enabled")
	}
	sink, matched, err := e.sinks.Open(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("opening matrix sink %s: %w", Redact(destination), err)
	}
	if !matched {
		return nil, apperrors.Invalid(command, "unsupported destination %q: use a .xlsx or .json file, pg:<table>, or a postgres:// URL", destination)
	}

	rows, err := e.Matrix(ctx, func(row export.MatrixRow) error {
		return sink.WriteRow(ctx, row)
	})
	if err != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			e.logger.Warn("aborting matrix sink failed", "destination", Redact(destination), "error", abortErr)
		}
		return nil, fmt.Errorf("exporting matrix to %s: %w", Redact(destination), err)
	}
	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("finishing matrix export to %s: %w", Redact(destination), err)
	}

	kind, _ := export.Detect(destination)
	summary := &ExportSummary{
		Destination: Redact(destination),
		Sink:        string(kind),
		Rows:        rows,
		Written:     sink.Written(),
		Dropped:     rows - sink.Written(),
	}
	e.metrics.ObserveMatrix(summary.Sink, summary.Written, summary.Dropped)
	if summary.Dropped > 0 {
		e.logger.Warn("matrix export truncated by sink row cap",
			"destination", summary.Destination,
			"written", summary.Written,
			"dropped", summary.Dropped,
		)
	}
	return summary, nil
}

// Redact hides credentials in a postgres:// destination.
func Redact(destination string) string {
	scheme, rest, ok := strings.Cut(destination, "://")
	if !ok {
		return destination
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return destination
}
