package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/user-management-api/pkg/helpers"
)

// JSONCache stores values of T as JSON under a key prefix.
// Every key has a generation counter bumped by Delete; SetIfGeneration only writes when
// the counter still matches, so a reader that loaded before an invalidation cannot repopulate stale data.
// A nil client turns every call into a miss.
type JSONCache[T any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewJSONCache[T any](rdb *redis.Client, prefix string, ttl time.Duration) *JSONCache[T] {
	return &JSONCache[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *JSONCache[T]) key(k string) string    { return c.prefix + k }
func (c *JSONCache[T]) genKey(k string) string { return c.prefix + "gen:" + k }

// the counter outlives the value it guards
func (c *JSONCache[T]) genTTL() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	return 2 * c.ttl
}

func (c *JSONCache[T]) Get(ctx context.Context, k string) (*T, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	var v T
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, c.key(k), &v)
	if err != nil || !ok {
		return nil, false, err
	}
	return &v, true, nil
}

// Generation returns the current invalidation counter of k; a missing counter is 0.
func (c *JSONCache[T]) Generation(ctx context.Context, k string) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, nil
	}
	n, err := c.rdb.Get(ctx, c.genKey(k)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// KEYS[1] value, KEYS[2] generation; ARGV[1] expected generation, ARGV[2] payload, ARGV[3] ttl ms
var setIfGenerationScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if not cur then cur = '0' end
if cur ~= ARGV[1] then
  return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// SetIfGeneration stores v unless k was invalidated after gen was read. It reports whether v was stored.
func (c *JSONCache[T]) SetIfGeneration(ctx context.Context, k string, v *T, gen int64) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encode cache value: %w", err)
	}
	n, err := setIfGenerationScript.Run(ctx, c.rdb,
		[]string{c.key(k), c.genKey(k)},
		gen, b, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete drops the value and bumps its generation in one transaction.
func (c *JSONCache[T]) Delete(ctx context.Context, k string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, c.genKey(k))
		if ttl := c.genTTL(); ttl > 0 {
			p.Expire(ctx, c.genKey(k), ttl)
		}
		p.Del(ctx, c.key(k))
		return nil
	})
	return err
}
