package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type Stats struct {
	TotalQueries     int64            `json:"total_queries"`
	BySymbol         map[string]int64 `json:"by_symbol"`
	ByOutcome        map[string]int64 `json:"by_outcome"`
	CacheHits        int64            `json:"cache_hits"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	P99LatencyMs     int64            `json:"p99_latency_ms"`
	TopCommands      []CommandCount   `json:"top_commands"`
	FailingCommands  []CommandCount   `json:"failing_commands"`
	QueriesPerMinute float64          `json:"queries_per_minute"`
}

type CommandCount struct {
	Command string `json:"command"`
	Count   int64  `json:"count"`
}

// Aggregator folds query events into Stats.
type Aggregator struct {
	mu        sync.Mutex
	total     int64
	bySymbol  map[string]int64
	byOutcome map[string]int64
	cacheHits int64
	latencies []int64
	next      int
	commands  map[string]int64
	failing   map[string]int64
	startTime time.Time
	logger    *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		bySymbol:  make(map[string]int64),
		byOutcome: make(map[string]int64),
		latencies: make([]int64, 0, 1024),
		commands:  make(map[string]int64),
		failing:   make(map[string]int64),
		startTime: time.Now(),
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record adds one event.
func (a *Aggregator) Record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.bySymbol[event.Symbol]++
	a.byOutcome[event.Outcome]++
	if event.CacheTier != "" {
		a.cacheHits++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	a.commands[event.Command]++
	if event.Outcome != "ok" {
		a.failing[event.Command]++
	}
}

// Track records event directly, for deployments that run without Kafka.
func (a *Aggregator) Track(event QueryEvent) {
	a.Record(event)
}

// HandleEvent decodes query events from Kafka into a. Undecodable messages
// are logged and skipped.
func HandleEvent(a *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			a.logger.Error("failed to decode query event", "error", err)
			return nil
		}
		a.Record(event)
		return nil
	}
}

func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		TotalQueries: a.total,
		BySymbol:     copyCounts(a.bySymbol),
		ByOutcome:    copyCounts(a.byOutcome),
		CacheHits:    a.cacheHits,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopCommands = topN(a.commands, 10)
	stats.FailingCommands = topN(a.failing, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent commands, ties broken alphabetically.
func topN(counts map[string]int64, n int) []CommandCount {
	result := make([]CommandCount, 0, len(counts))
	for command, count := range counts {
		result = append(result, CommandCount{Command: command, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Command < result[j].Command
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
