package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/postgres"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *recordingPublisher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollectorBatchesAndFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 100, 2, time.Hour)
	c.Start(context.Background())

	for _, cmd := range []string{"@ E14 5", "# epsilon 3", "C 3 -c"} {
		c.Track(QueryEvent{Command: cmd, Symbol: cmd[:1], Outcome: "ok"})
	}
	c.Close()

	if got := pub.total(); got != 3 {
		t.Fatalf("published %d events, want 3", got)
	}
	first := pub.batches[0]
	if len(first) != 2 || first[0].Key != "@" {
		t.Errorf("first batch = %+v", first)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(&recordingPublisher{}, 1, 10, time.Hour)
	c.Track(QueryEvent{Command: "a"})
	c.Track(QueryEvent{Command: "b"})
	if c.dropped != 1 {
		t.Errorf("dropped = %d, want 1", c.dropped)
	}
}

func TestCollectorTrackAfterClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 10, 10, time.Hour)
	c.Start(context.Background())
	c.Track(QueryEvent{Command: "a"})
	c.Close()

	// Late requests finishing during shutdown still report their events.
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() { c.Track(QueryEvent{Command: "late"}) })
	}
	wg.Wait()
	c.Close()

	if got := pub.total(); got != 1 {
		t.Errorf("published %d events, want 1", got)
	}
}

func TestCollectorCloseWithoutStart(t *testing.T) {
	c := NewCollector(&recordingPublisher{}, 10, 10, time.Hour)
	c.Track(QueryEvent{Command: "a"})
	c.Close()
}

func TestAggregator(t *testing.T) {
	a := NewAggregator()
	events := []QueryEvent{
		{Command: "@ E14 5", Symbol: "@", Outcome: "ok", LatencyMs: 4},
		{Command: "@ E14 5", Symbol: "@", Outcome: "ok", LatencyMs: 1, CacheTier: "local"},
		{Command: "# omega 3", Symbol: "#", Outcome: "unknown_stem", LatencyMs: 1},
		{Command: "C 3 -c", Symbol: "C", Outcome: "ok", LatencyMs: 2},
	}
	handle := HandleEvent(a)
	for _, e := range events {
		data, _ := json.Marshal(e)
		if err := handle(context.Background(), []byte(e.Symbol), data); err != nil {
			t.Fatal(err)
		}
	}
	if err := handle(context.Background(), nil, []byte("not json")); err != nil {
		t.Errorf("undecodable message should be skipped, got %v", err)
	}

	s := a.Stats()
	if s.TotalQueries != 4 || s.CacheHits != 1 {
		t.Errorf("total=%d cacheHits=%d", s.TotalQueries, s.CacheHits)
	}
	if s.BySymbol["@"] != 2 || s.ByOutcome["unknown_stem"] != 1 {
		t.Errorf("BySymbol=%v ByOutcome=%v", s.BySymbol, s.ByOutcome)
	}
	if len(s.TopCommands) == 0 || s.TopCommands[0] != (CommandCount{Command: "@ E14 5", Count: 2}) {
		t.Errorf("TopCommands = %v", s.TopCommands)
	}
	if len(s.FailingCommands) != 1 || s.FailingCommands[0].Command != "# omega 3" {
		t.Errorf("FailingCommands = %v", s.FailingCommands)
	}
	if s.P50LatencyMs != 2 || s.AvgLatencyMs != 2 {
		t.Errorf("p50=%d avg=%v", s.P50LatencyMs, s.AvgLatencyMs)
	}
}

func TestHandlerStats(t *testing.T) {
	a := NewAggregator()
	a.Record(QueryEvent{Command: "$ epsilon E14", Symbol: "$", Outcome: "ok"})
	rec := httptest.NewRecorder()
	NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	var s Stats
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.TotalQueries != 1 || s.BySymbol["$"] != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := postgres.New(ctx, config.Default().Postgres)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	a := NewAggregator()
	a.Record(QueryEvent{Command: "P 3 -c", Symbol: "P", Outcome: "ok"})
	if err := store.SaveSnapshot(ctx, a.Stats()); err != nil {
		t.Fatal(err)
	}
	latest, err := store.LatestSnapshot(ctx)
	if err != nil || latest == nil {
		t.Fatalf("LatestSnapshot() = %v, %v", latest, err)
	}
	if latest.BySymbol["P"] < 1 {
		t.Errorf("latest snapshot = %+v", latest)
	}
}
