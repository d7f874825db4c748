// Package executor is the similarity engine: it scores category and term
// document sets against each other over a loaded Corpus and dispatches parsed
// commands to the matching operation.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/export"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/metrics"
)

// SinkOpener resolves a matrix destination to a row sink. matched is false
// when no sink handles the destination.
type SinkOpener interface {
	Open(ctx context.Context, destination string) (export.RowSink, bool, error)
}

// Executor runs commands against one immutable Corpus. It is safe for
// concurrent use.
type Executor struct {
	corpus  *indexer.Corpus
	sinks   SinkOpener
	metrics *metrics.Metrics
	workers int
	logger  *slog.Logger
}

type Option func(*Executor)

// WithMetrics records per-command metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithSinks enables the full-matrix export.
func WithSinks(s SinkOpener) Option {
	return func(e *Executor) { e.sinks = s }
}

// WithWorkers sets how many categories the matrix export scores at once.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

func New(c *indexer.Corpus, opts ...Option) *Executor {
	e := &Executor{
		corpus:  c,
		workers: 1,
		logger:  slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Corpus() *indexer.Corpus {
	return e.corpus
}

// TopTerms scores category against every term and returns the k best as
// (stem, score) entries in ascending score order.
func (e *Executor) TopTerms(category string, k int) ([]ranker.Scored, error) {
	catSet, ok := e.corpus.Categories.Set(category)
	if !ok {
		return nil, apperrors.UnknownCategory(category)
	}
	catSize := int(catSet.GetCardinality())

	terms := e.corpus.Terms
	entries := make([]ranker.Scored, 0, terms.Len())
	for _, key := range terms.Keys() {
		termSet, _ := terms.Set(key)
		termSize := int(termSet.GetCardinality())
		if termSize == 0 {
			continue
		}
		stem, err := e.corpus.Stems.StemOf(key)
		if err != nil {
			return nil, err
		}
		score, err := ranker.Score(catSize, termSize, int(catSet.AndCardinality(termSet)))
		if err != nil {
			return nil, fmt.Errorf("scoring %s against term %s: %w", category, key, err)
		}
		entries = append(entries, ranker.Scored{Key: stem, Score: score})
	}
	return ranker.TopK(entries, k), nil
}

// TopCategories scores the term behind stem against every category and
// returns the k best as (category, score) entries in ascending score order.
func (e *Executor) TopCategories(stem string, k int) ([]ranker.Scored, error) {
	termKey, err := e.termKey(stem)
	if err != nil {
		return nil, err
	}
	termSet, _ := e.corpus.Terms.Set(termKey)
	termSize := int(termSet.GetCardinality())

	categories := e.corpus.Categories
	entries := make([]ranker.Scored, 0, categories.Len())
	for _, category := range categories.Keys() {
		catSet, _ := categories.Set(category)
		catSize := int(catSet.GetCardinality())
		if catSize == 0 {
			continue
		}
		score, err := ranker.Score(termSize, catSize, int(termSet.AndCardinality(catSet)))
		if err != nil {
			return nil, fmt.Errorf("scoring %s against category %s: %w", stem, category, err)
		}
		entries = append(entries, ranker.Scored{Key: category, Score: score})
	}
	return ranker.TopK(entries, k), nil
}

// Pair returns the formatted Jaccard score of one stem and one category. The
// stem is resolved before the category.
func (e *Executor) Pair(stem, category string) (string, error) {
	termKey, err := e.termKey(stem)
	if err != nil {
		return "", err
	}
	catSet, ok := e.corpus.Categories.Set(category)
	if !ok {
		return "", apperrors.UnknownCategory(category)
	}
	termSet, _ := e.corpus.Terms.Set(termKey)
	return ranker.Score(
		int(termSet.GetCardinality()),
		int(catSet.GetCardinality()),
		int(termSet.AndCardinality(catSet)),
	)
}

// Members lists the categories (ModeCategory) or stems (ModeTerm) whose
// document set contains docID, in index discovery order. An unknown document
// yields an empty list.
func (e *Executor) Members(docID string, mode parser.Mode) ([]string, error) {
	members := make([]string, 0)
	if mode == parser.ModeCategory {
		for _, category := range e.corpus.Categories.Keys() {
			if e.corpus.Categories.Contains(category, docID) {
				members = append(members, category)
			}
		}
		return members, nil
	}
	for _, key := range e.corpus.Terms.Keys() {
		if !e.corpus.Terms.Contains(key, docID) {
			continue
		}
		stem, err := e.corpus.Stems.StemOf(key)
		if err != nil {
			return nil, err
		}
		members = append(members, stem)
	}
	return members, nil
}

// MemberCount is len(Members) without building the list.
func (e *Executor) MemberCount(docID string, mode parser.Mode) int {
	ix := e.corpus.Categories
	if mode == parser.ModeTerm {
		ix = e.corpus.Terms
	}
	n := 0
	for _, key := range ix.Keys() {
		if ix.Contains(key, docID) {
			n++
		}
	}
	return n
}

// termKey resolves stem to its first term id and checks that the term has
// indexed documents.
func (e *Executor) termKey(stem string) (string, error) {
	id, err := e.corpus.Stems.TermID(stem)
	if err != nil {
		return "", err
	}
	key := strconv.Itoa(id)
	if e.corpus.Terms.Cardinality(key) == 0 {
		return "", apperrors.UnknownTerm(id)
	}
	return key, nil
}

// Run parses raw and executes it.
func (e *Executor) Run(ctx context.Context, raw string) (*Result, error) {
	cmd, err := parser.Parse(raw)
	if err != nil {
		e.metrics.ObserveQuery("invalid", apperrors.Kind(err), 0, 0)
		return nil, err
	}
	return e.Execute(ctx, cmd)
}

// Execute dispatches cmd to its operation.
func (e *Executor) Execute(ctx context.Context, cmd parser.Command) (*Result, error) {
	start := time.Now()
	res, err := e.execute(ctx, cmd)
	elapsed := time.Since(start)

	size := 0
	if res != nil {
		size = res.Count
	}
	e.metrics.ObserveQuery(string(cmd.Symbol()), apperrors.Kind(err), elapsed, size)

	log := logger.FromContext(ctx).With("component", "query-executor")
	if err != nil {
		log.Info("command failed", "command", Redact(cmd.String()), "error", err, "duration", elapsed)
		return nil, err
	}
	log.Info("command executed", "command", Redact(cmd.String()), "results", size, "duration", elapsed)
	return res, nil
}

func (e *Executor) execute(ctx context.Context, cmd parser.Command) (*Result, error) {
	res := &Result{Command: Redact(cmd.String()), Symbol: cmd.Symbol()}
	switch c := cmd.(type) {
	case parser.TopTerms:
		ranked, err := e.TopTerms(c.Category, c.K)
		if err != nil {
			return nil, err
		}
		res.Kind, res.Ranked, res.Count = KindRanked, ranked, len(ranked)
	case parser.TopCategories:
		ranked, err := e.TopCategories(c.Stem, c.K)
		if err != nil {
			return nil, err
		}
		res.Kind, res.Ranked, res.Count = KindRanked, ranked, len(ranked)
	case parser.PairScore:
		score, err := e.Pair(c.Stem, c.Category)
		if err != nil {
			return nil, err
		}
		res.Kind, res.Score, res.Count = KindScore, score, 1
	case parser.Matrix:
		summary, err := e.Export(ctx, c.Destination)
		if err != nil {
			return nil, err
		}
		res.Kind, res.Export, res.Count = KindExport, summary, summary.Written
	case parser.Members:
		members, err := e.Members(c.DocID, c.Mode)
		if err != nil {
			return nil, err
		}
		res.Kind, res.Members, res.Count = KindMembers, members, len(members)
	case parser.MemberCount:
		res.Kind, res.Count = KindCount, e.MemberCount(c.DocID, c.Mode)
	default:
		return nil, apperrors.Invalid(cmd.String(), "unsupported command")
	}
	return res, nil
}
