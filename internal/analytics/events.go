package analytics

import "time"

// Source names the surface a command arrived on.
type Source string

const (
	SourceHTTP  Source = "http"
	SourceKafka Source = "kafka"
	SourceCLI   Source = "cli"
)

// QueryEvent describes one executed command. Outcome is "ok" or the error
// kind of the failure.
type QueryEvent struct {
	Command   string    `json:"command"`
	Symbol    string    `json:"symbol"`
	Outcome   string    `json:"outcome"`
	Results   int       `json:"results"`
	LatencyMs int64     `json:"latency_ms"`
	CacheTier string    `json:"cache_tier,omitempty"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
