// Package cache memoises command results in two tiers: an in-process LRU in
// front of an optional shared Redis cache. Concurrent misses on the same
// command are coalesced into one execution.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/redis"
)

const keyPrefix = "catsim:"

// Tier reports where a result came from.
type Tier string

const (
	TierLocal Tier = "local"
	TierRedis Tier = "redis"
	TierNone  Tier = ""
)

// Stats are the cumulative cache counters.
type Stats struct {
	LocalHits int64 `json:"local_hits"`
	RedisHits int64 `json:"redis_hits"`
	Misses    int64 `json:"misses"`
	Entries   int   `json:"local_entries"`
	Redis     bool  `json:"redis"`
}

// Cache is safe for concurrent use. Cached results are shared and must not
// be modified by callers.
type Cache struct {
	local     *lru.Cache[string, *executor.Result]
	remote    *pkgredis.Client
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	metrics   *metrics.Metrics
	logger    *slog.Logger

	localHits atomic.Int64
	redisHits atomic.Int64
	misses    atomic.Int64
}

// New creates a cache holding up to size local entries. remote may be nil.
// namespace separates results of different corpora sharing one Redis.
func New(size int, remote *pkgredis.Client, ttl time.Duration, namespace string, m *metrics.Metrics) (*Cache, error) {
	if size <= 0 {
		size = 1024
	}
	local, err := lru.New[string, *executor.Result](size)
	if err != nil {
		return nil, fmt.Errorf("creating local result cache: %w", err)
	}
	return &Cache{
		local:     local,
		remote:    remote,
		ttl:       ttl,
		namespace: namespace,
		metrics:   m,
		logger:    slog.Default().With("component", "result-cache"),
	}, nil
}

// Cacheable reports whether results of cmd may be cached. Matrix exports
// have side effects and are always executed.
func Cacheable(cmd parser.Command) bool {
	return cmd.Symbol() != parser.SymbolMatrix
}

// GetOrCompute returns the cached result of cmd or runs compute once for all
// concurrent callers asking for the same command. Errors are not cached.
func (c *Cache) GetOrCompute(ctx context.Context, cmd parser.Command, compute func() (*executor.Result, error)) (*executor.Result, Tier, error) {
	if !Cacheable(cmd) {
		res, err := compute()
		return res, TierNone, err
	}
	key := c.key(cmd)
	if res, tier, ok := c.get(ctx, key); ok {
		return res, tier, nil
	}

	type outcome struct {
		res  *executor.Result
		tier Tier
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if res, tier, ok := c.get(ctx, key); ok {
			return outcome{res, tier}, nil
		}
		c.misses.Add(1)
		c.metrics.CacheMiss()
		res, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, res)
		return outcome{res, TierNone}, nil
	})
	if err != nil {
		return nil, TierNone, err
	}
	o := v.(outcome)
	return o.res, o.tier, nil
}

func (c *Cache) get(ctx context.Context, key string) (*executor.Result, Tier, bool) {
	if res, ok := c.local.Get(key); ok {
		c.localHits.Add(1)
		c.metrics.CacheHit(string(TierLocal))
		return res, TierLocal, true
	}
	if c.remote == nil {
		return nil, TierNone, false
	}
	data, err := c.remote.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNil(err) {
			c.logger.Warn("redis get failed", "key", key, "error", err)
		}
		return nil, TierNone, false
	}
	var res executor.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("discarding undecodable cached result", "key", key, "error", err)
		return nil, TierNone, false
	}
	c.local.Add(key, &res)
	c.redisHits.Add(1)
	c.metrics.CacheHit(string(TierRedis))
	return &res, TierRedis, true
}

func (c *Cache) set(ctx context.Context, key string, res *executor.Result) {
	c.local.Add(key, res)
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Error("marshaling result for redis", "key", key, "error", err)
		return
	}
	if err := c.remote.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("redis set failed", "key", key, "error", err)
	}
}

// Invalidate empties the local tier and deletes this namespace from Redis.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.local.Purge()
	if c.remote == nil {
		return nil
	}
	deleted, err := c.remote.DeletePrefix(ctx, keyPrefix+c.namespace+":")
	if err != nil {
		return fmt.Errorf("invalidating redis results: %w", err)
	}
	c.logger.Info("result cache invalidated", "redis_keys_deleted", deleted)
	return nil
}

func (c *Cache) Stats() Stats {
	return Stats{
		LocalHits: c.localHits.Load(),
		RedisHits: c.redisHits.Load(),
		Misses:    c.misses.Load(),
		Entries:   c.local.Len(),
		Redis:     c.remote != nil,
	}
}

// key hashes the canonical command text, so "@  E14   5" and "@ E14 5" share
// an entry.
func (c *Cache) key(cmd parser.Command) string {
	sum := sha256.Sum256([]byte(cmd.String()))
	return keyPrefix + c.namespace + ":" + hex.EncodeToString(sum[:16])
}
