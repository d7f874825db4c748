// Package analytics publishes query events to Kafka and aggregates them
// back into usage statistics.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/kafka"
)

// Publisher is the subset of kafka.Producer the collector needs.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers query events and publishes them in batches, when a batch
// fills up or when the flush interval elapses. Track never blocks; events
// are dropped when the buffer is full or the collector is closed.
type Collector struct {
	publisher     Publisher
	events        chan QueryEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	// mu orders sends against close(events).
	mu      sync.Mutex
	dropped int64
	started bool
	closed  bool
	done    chan struct{}
}

func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		events:        make(chan QueryEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start runs the publish loop until ctx is cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				return
			}
			if err := c.publisher.PublishBatch(ctx, batch); err != nil {
				c.logger.Error("failed to publish query events", "count", len(batch), "error", err)
			}
			batch = batch[:0]
		}

		for {
			select {
			case event, ok := <-c.events:
				if !ok {
					flush(context.Background())
					return
				}
				batch = append(batch, kafka.Event{Key: event.Symbol, Value: event})
				if len(batch) >= c.batchSize {
					flush(ctx)
				}
			case <-ticker.C:
				flush(ctx)
			case <-ctx.Done():
				c.drain(&batch)
				flush(context.Background())
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.events), "batch_size", c.batchSize)
}

func (c *Collector) drain(batch *[]kafka.Event) {
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return
			}
			*batch = append(*batch, kafka.Event{Key: event.Symbol, Value: event})
		default:
			return
		}
	}
}

// Track queues an event for publishing.
func (c *Collector) Track(event QueryEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.events <- event:
		c.mu.Unlock()
	default:
		c.dropped++
		n := c.dropped
		c.mu.Unlock()
		c.logger.Warn("query event dropped, buffer full", "dropped_total", n)
	}
}

// Close stops accepting events and waits for the final flush. It is safe to
// call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.events)
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}
