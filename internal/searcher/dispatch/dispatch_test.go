package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/stems"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

type recorder struct {
	events []analytics.QueryEvent
}

func (r *recorder) Track(e analytics.QueryEvent) { r.events = append(r.events, e) }

func newExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	u := index.NewUniverse()
	cats, err := index.BuildCategories(index.Pairs("qrels", [][]string{
		{"E14", "1"}, {"E14", "2"}, {"E14", "3"}, {"E21", "2"}, {"E21", "3"}, {"E21", "4"},
	}), u)
	if err != nil {
		t.Fatal(err)
	}
	terms, err := index.BuildTerms(index.Pairs("vectors", [][]string{
		{"1", "5"}, {"2", "5"}, {"3", "6"}, {"4", "6"}, {"5", "6"},
	}), u, 6)
	if err != nil {
		t.Fatal(err)
	}
	c, err := indexer.NewCorpus(cats, terms, stems.New([]string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}))
	if err != nil {
		t.Fatal(err)
	}
	return executor.New(c)
}

func TestDispatchKeepsLargeK(t *testing.T) {
	rec := &recorder{}
	d := New(newExecutor(t), nil, rec, 0)
	res, _, err := d.DispatchString(context.Background(), "# epsilon 10", analytics.SourceCLI)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Ranked) != 2 || res.Command != "# epsilon 10" {
		t.Errorf("result = %+v, want both candidate categories", res)
	}
	if len(rec.events) != 1 || rec.events[0].Outcome != "ok" || rec.events[0].Source != analytics.SourceCLI {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestDispatchRejectsKOverLimit(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr bool
	}{
		{name: "top terms over limit", command: "@ E14 3", wantErr: true},
		{name: "top categories over limit", command: "# epsilon 3", wantErr: true},
		{name: "at limit", command: "# epsilon 2"},
		{name: "unranked command", command: "$ epsilon E14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			d := New(newExecutor(t), nil, rec, 2)
			res, _, err := d.DispatchString(context.Background(), tt.command, analytics.SourceHTTP)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidCommand) || res != nil {
					t.Fatalf("err = %v res = %+v, want ErrInvalidCommand", err, res)
				}
				if len(rec.events) != 1 || rec.events[0].Outcome != "invalid_command" {
					t.Errorf("events = %+v", rec.events)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDispatchUsesCache(t *testing.T) {
	c, err := cache.New(16, nil, time.Minute, "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	d := New(newExecutor(t), c, rec, 0)
	for _, want := range []cache.Tier{cache.TierNone, cache.TierLocal} {
		res, tier, err := d.DispatchString(context.Background(), "$ epsilon E14", analytics.SourceHTTP)
		if err != nil {
			t.Fatal(err)
		}
		if tier != want || res.Score != "0.66667" {
			t.Errorf("tier = %q score = %s, want tier %q", tier, res.Score, want)
		}
	}
	if rec.events[1].CacheTier != string(cache.TierLocal) {
		t.Errorf("second event = %+v", rec.events[1])
	}
}

func TestDispatchTracksFailures(t *testing.T) {
	rec := &recorder{}
	d := New(newExecutor(t), nil, rec, 0)

	if _, _, err := d.DispatchString(context.Background(), "? nothing", analytics.SourceKafka); !errors.Is(err, apperrors.ErrInvalidCommand) {
		t.Errorf("err = %v, want ErrInvalidCommand", err)
	}
	if _, _, err := d.DispatchString(context.Background(), "@ X99 3", analytics.SourceKafka); !errors.Is(err, apperrors.ErrUnknownCategory) {
		t.Errorf("err = %v, want ErrUnknownCategory", err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("events = %d, want 2", len(rec.events))
	}
	if rec.events[0].Outcome != "invalid_command" || rec.events[1].Outcome != "unknown_category" {
		t.Errorf("outcomes = %s, %s", rec.events[0].Outcome, rec.events[1].Outcome)
	}
}
