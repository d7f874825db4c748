// Package indexer turns the raw corpus into the immutable Corpus that every
// query runs against, and persists it as JSON dumps and binary segments.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/export"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/stems"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/metrics"
)

// File names used for JSON dumps and snapshots.
const (
	CategoryDump = "cat_dict.json"
	TermDump     = "term_dict.json"
	StemDump     = "stem_terms.json"

	CategorySegment = "categories.spdx"
	TermSegment     = "terms.spdx"
	StemSnapshot    = "stems.json"
)

// Corpus is the read-only query context: both inverted indices over a shared
// document universe, plus the stem table. Nothing mutates it after Build or
// LoadSnapshot returns.
type Corpus struct {
	Categories *index.Inverted
	Terms      *index.Inverted
	Stems      *stems.Table
	// Source is nil when the corpus was assembled without known inputs.
	Source *Source
}

// Fingerprint identifies the inputs of the corpus, or is "" when unknown.
func (c *Corpus) Fingerprint() string {
	if c.Source == nil {
		return ""
	}
	return c.Source.Fingerprint()
}

// Stats summarises a corpus.
type Stats struct {
	Categories int `json:"categories"`
	Terms      int `json:"terms"`
	Stems      int `json:"stems"`
	Documents  int `json:"documents"`
}

func (c *Corpus) Stats() Stats {
	return Stats{
		Categories: c.Categories.Len(),
		Terms:      c.Terms.Len(),
		Stems:      c.Stems.Len(),
		Documents:  c.Categories.Universe().Len(),
	}
}

// NewCorpus assembles a Corpus from already-built parts. Both indices must
// share one universe.
func NewCorpus(categories, terms *index.Inverted, table *stems.Table) (*Corpus, error) {
	if categories.Universe() != terms.Universe() {
		return nil, errors.New("category and term indices use different document universes")
	}
	return &Corpus{Categories: categories, Terms: terms, Stems: table}, nil
}

// Builder reads the configured corpus files and builds a Corpus.
type Builder struct {
	cfg     config.CorpusConfig
	out     config.OutputConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBuilder(cfg config.CorpusConfig, out config.OutputConfig, m *metrics.Metrics) *Builder {
	return &Builder{
		cfg:     cfg,
		out:     out,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// Build reads the stem map, the category qrels and the term vectors. The
// stem table loads while the category index is built; the term index follows
// so that document ordinals, and with them the dumps, are reproducible. Any
// malformed record aborts the whole build.
func (b *Builder) Build(ctx context.Context) (*Corpus, error) {
	start := time.Now()
	src, err := Describe(b.cfg)
	if err != nil {
		return nil, err
	}
	universe := index.NewUniverse()

	var (
		categories *index.Inverted
		table      *stems.Table
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ix, err := index.BuildCategories(cancellable(gctx, corpus.Categories(b.cfg.QrelsPath, b.cfg.LineLimit)), universe)
		if err != nil {
			return fmt.Errorf("building category index: %w", err)
		}
		categories = ix
		b.logger.Info("category index built", "categories", ix.Len(), "source", b.cfg.QrelsPath)
		return nil
	})
	g.Go(func() error {
		list, err := corpus.Stems(b.cfg.StemsPath)
		if err != nil {
			return fmt.Errorf("loading stems: %w", err)
		}
		table = stems.New(list)
		b.logger.Info("stem table loaded", "stems", table.Len(), "source", b.cfg.StemsPath)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	terms, err := index.BuildTerms(cancellable(ctx, corpus.Terms(b.cfg.VectorPaths, b.cfg.LineLimit)), universe, table.Len())
	if err != nil {
		return nil, fmt.Errorf("building term index: %w", err)
	}
	b.logger.Info("term index built", "terms", terms.Len(), "parts", len(b.cfg.VectorPaths))

	c, err := NewCorpus(categories, terms, table)
	if err != nil {
		return nil, err
	}
	c.Source = &src
	b.observe(c, start)
	return c, nil
}

// Persist writes the JSON dumps (when a JSON directory is configured) and the
// binary snapshot (when a snapshot directory is configured). Existing files
// are replaced.
func (b *Builder) Persist(c *Corpus) error {
	if b.out.JSONDir != "" {
		if err := WriteDumps(b.out.JSONDir, c); err != nil {
			return err
		}
		b.logger.Info("json dumps written", "dir", b.out.JSONDir)
	}
	if b.out.SnapshotDir != "" {
		if c.Categories.Len() == 0 || c.Terms.Len() == 0 {
			b.logger.Warn("skipping snapshot of empty index", "dir", b.out.SnapshotDir)
			return nil
		}
		if err := WriteSnapshot(b.out.SnapshotDir, c); err != nil {
			return err
		}
		if err := b.writeSource(c); err != nil {
			return err
		}
		b.logger.Info("snapshot written", "dir", b.out.SnapshotDir)
	}
	return nil
}

// writeSource records the inputs of c next to its snapshot. A corpus with
// unknown inputs removes any older manifest so it cannot vouch for c.
func (b *Builder) writeSource(c *Corpus) error {
	if c.Source != nil {
		return writeManifest(b.out.SnapshotDir, *c.Source)
	}
	err := os.Remove(filepath.Join(b.out.SnapshotDir, SourceManifest))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale source manifest: %w", err)
	}
	return nil
}

// Load restores the corpus from the snapshot directory when the snapshot was
// built from the configured sources, and otherwise builds it from the raw
// files and persists it. When the sources cannot be read at all, an existing
// snapshot is used as is.
func (b *Builder) Load(ctx context.Context) (*Corpus, error) {
	if b.out.SnapshotDir != "" && SnapshotExists(b.out.SnapshotDir) && b.snapshotCurrent() {
		start := time.Now()
		c, err := LoadSnapshot(b.out.SnapshotDir)
		if err != nil {
			return nil, err
		}
		b.logger.Info("corpus loaded from snapshot", "dir", b.out.SnapshotDir)
		b.observe(c, start)
		return c, nil
	}
	c, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.Persist(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *Builder) snapshotCurrent() bool {
	current, err := Describe(b.cfg)
	if err != nil {
		b.logger.Warn("corpus sources unreadable, using existing snapshot", "error", err)
		return true
	}
	stored := readManifest(b.out.SnapshotDir)
	if stored == nil || stored.Fingerprint() != current.Fingerprint() {
		b.logger.Info("snapshot does not match corpus sources, rebuilding", "dir", b.out.SnapshotDir)
		return false
	}
	return true
}

func (b *Builder) observe(c *Corpus, start time.Time) {
	s := c.Stats()
	b.metrics.ObserveBuild(s.Categories, s.Terms, s.Stems, s.Documents, time.Since(start))
	b.logger.Info("corpus ready",
		"categories", s.Categories,
		"terms", s.Terms,
		"stems", s.Stems,
		"documents", s.Documents,
		"duration", time.Since(start),
	)
}

// WriteDumps writes cat_dict.json, term_dict.json and stem_terms.json.
func WriteDumps(dir string, c *Corpus) error {
	dumps := []struct {
		name string
		v    any
	}{
		{CategoryDump, c.Categories},
		{TermDump, c.Terms},
		{StemDump, c.Stems},
	}
	for _, d := range dumps {
		if err := export.SaveJSON(filepath.Join(dir, d.name), d.v); err != nil {
			return fmt.Errorf("writing %s: %w", d.name, err)
		}
	}
	return nil
}

// LoadDumps restores a corpus from the JSON dumps written by WriteDumps.
func LoadDumps(dir string) (*Corpus, error) {
	universe := index.NewUniverse()
	categories, err := loadInvertedJSON(filepath.Join(dir, CategoryDump), universe)
	if err != nil {
		return nil, err
	}
	terms, err := loadInvertedJSON(filepath.Join(dir, TermDump), universe)
	if err != nil {
		return nil, err
	}
	table := &stems.Table{}
	if err := export.LoadJSON(filepath.Join(dir, StemDump), table); err != nil {
		return nil, err
	}
	return NewCorpus(categories, terms, table)
}

func loadInvertedJSON(path string, universe *index.Universe) (*index.Inverted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	ix, err := index.FromJSON(data, universe)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return ix, nil
}

// WriteSnapshot stores both indices as segments and the stem table as JSON.
func WriteSnapshot(dir string, c *Corpus) error {
	w := segment.NewWriter(dir)
	for name, ix := range map[string]*index.Inverted{
		CategorySegment: c.Categories,
		TermSegment:     c.Terms,
	} {
		if _, err := w.Write(name, ix); err != nil {
			return fmt.Errorf("writing segment %s: %w", name, err)
		}
	}
	if err := export.SaveJSON(filepath.Join(dir, StemSnapshot), c.Stems); err != nil {
		return fmt.Errorf("writing stem snapshot: %w", err)
	}
	return nil
}

// SnapshotExists reports whether every snapshot file is present in dir.
func SnapshotExists(dir string) bool {
	for _, name := range []string{CategorySegment, TermSegment, StemSnapshot} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// LoadSnapshot restores a corpus written by WriteSnapshot.
func LoadSnapshot(dir string) (*Corpus, error) {
	universe := index.NewUniverse()
	categories, err := loadSegment(filepath.Join(dir, CategorySegment), universe)
	if err != nil {
		return nil, err
	}
	terms, err := loadSegment(filepath.Join(dir, TermSegment), universe)
	if err != nil {
		return nil, err
	}
	table := &stems.Table{}
	if err := export.LoadJSON(filepath.Join(dir, StemSnapshot), table); err != nil {
		return nil, err
	}
	c, err := NewCorpus(categories, terms, table)
	if err != nil {
		return nil, err
	}
	c.Source = readManifest(dir)
	return c, nil
}

func loadSegment(path string, universe *index.Universe) (*index.Inverted, error) {
	r, err := segment.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()
	ix, err := r.Load(universe)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return ix, nil
}

// cancellable stops a record stream once ctx is done.
func cancellable(ctx context.Context, records index.Stream) index.Stream {
	return func(yield func(index.Record, error) bool) {
		n := 0
		for rec, err := range records {
			n++
			if n%4096 == 0 {
				if cerr := ctx.Err(); cerr != nil {
					yield(index.Record{}, cerr)
					return
				}
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}
