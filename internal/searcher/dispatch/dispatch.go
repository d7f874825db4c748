// Package dispatch is the single entry point shared by the HTTP, Kafka and
// CLI surfaces: it enforces the request limit on k, consults the result
// cache, runs the executor and reports a query event for every command.
package dispatch

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/logger"
)

// Tracker receives query events; *analytics.Collector implements it.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

type Dispatcher struct {
	exec    *executor.Executor
	cache   *cache.Cache
	tracker Tracker
	maxK    int
}

// New creates a Dispatcher. cache and tracker may be nil. maxK > 0 rejects
// ranked commands asking for more than maxK results; maxK <= 0 accepts any k.
func New(exec *executor.Executor, c *cache.Cache, tracker Tracker, maxK int) *Dispatcher {
	return &Dispatcher{exec: exec, cache: c, tracker: tracker, maxK: maxK}
}

func (d *Dispatcher) Executor() *executor.Executor { return d.exec }

// Cache returns the result cache, or nil when caching is off.
func (d *Dispatcher) Cache() *cache.Cache { return d.cache }

// DispatchString parses raw and dispatches it.
func (d *Dispatcher) DispatchString(ctx context.Context, raw string, source analytics.Source) (*executor.Result, cache.Tier, error) {
	cmd, err := parser.Parse(raw)
	if err != nil {
		d.track(ctx, executor.Redact(raw), "invalid", err, nil, cache.TierNone, source, 0)
		return nil, cache.TierNone, err
	}
	return d.Dispatch(ctx, cmd, source)
}

// Dispatch runs cmd, answering from the cache when possible.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd parser.Command, source analytics.Source) (*executor.Result, cache.Tier, error) {
	start := time.Now()
	if err := d.check(cmd); err != nil {
		d.track(ctx, executor.Redact(cmd.String()), string(cmd.Symbol()), err, nil, cache.TierNone, source, 0)
		return nil, cache.TierNone, err
	}

	var (
		res  *executor.Result
		tier = cache.TierNone
		err  error
	)
	if d.cache != nil {
		res, tier, err = d.cache.GetOrCompute(ctx, cmd, func() (*executor.Result, error) {
			return d.exec.Execute(ctx, cmd)
		})
	} else {
		res, err = d.exec.Execute(ctx, cmd)
	}
	d.track(ctx, executor.Redact(cmd.String()), string(cmd.Symbol()), err, res, tier, source, time.Since(start))
	return res, tier, err
}

// check refuses ranked commands whose k exceeds maxK.
func (d *Dispatcher) check(cmd parser.Command) error {
	if d.maxK <= 0 {
		return nil
	}
	var k int
	switch c := cmd.(type) {
	case parser.TopTerms:
		k = c.K
	case parser.TopCategories:
		k = c.K
	default:
		return nil
	}
	if k > d.maxK {
		return apperrors.Invalid(cmd.String(), "k %d exceeds the limit of %d", k, d.maxK)
	}
	return nil
}

func (d *Dispatcher) track(ctx context.Context, command, symbol string, err error, res *executor.Result, tier cache.Tier, source analytics.Source, elapsed time.Duration) {
	if d.tracker == nil {
		return
	}
	event := analytics.QueryEvent{
		Command:   command,
		Symbol:    symbol,
		Outcome:   apperrors.Kind(err),
		LatencyMs: elapsed.Milliseconds(),
		CacheTier: string(tier),
		Source:    source,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	}
	if res != nil {
		event.Command = res.Command
		event.Results = res.Count
	}
	d.tracker.Track(event)
}
