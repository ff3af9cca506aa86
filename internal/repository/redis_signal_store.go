package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	pkgcache "SignalGate/pkg/cache"
)

// fingerprintTTL bounds how long a published evidence fingerprint blocks
// re-publication. Comfortably longer than any analyzer retry horizon.
const fingerprintTTL = 24 * time.Hour

// RedisSignalStore persists signals in Redis hashes. The immutable creation
// payload lives in one hash field; the mutable lifecycle fields (state,
// result, timestamps) are separate fields so a Lua script can apply the
// "update iff state == expected" contract atomically, making every transition
// linearizable per signal without any in-process lock.
//
// Index keys per asset: active:{asset} holds the id occupying the asset's
// anti-overlap slot, last:{asset} the most recent generated_at, and fp:{hash}
// the dedupe marker for an evidence window already published.
type RedisSignalStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSignalStore builds the store on the shared Redis client.
func NewRedisSignalStore(c *pkgcache.RedisCache, prefix string) *RedisSignalStore {
	return &RedisSignalStore{client: c.Client(), prefix: prefix}
}

func (s *RedisSignalStore) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// createScript claims the fingerprint and the asset's active slot, then
// writes the signal hash, in one atomic step.
//
// KEYS: [1] fp, [2] active, [3] signal hash, [4] last, [5] active_ids
// ARGV: [1] id, [2] doc json, [3] state, [4] generated_at, [5] fp ttl seconds
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 'dup'
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 'overlap'
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[5])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('HSET', KEYS[3], 'doc', ARGV[2], 'state', ARGV[3])
redis.call('SET', KEYS[4], ARGV[4])
redis.call('SADD', KEYS[5], ARGV[1])
return 'ok'
`)

// transitionScript applies the conditional state write.
//
// KEYS: [1] signal hash, [2] active, [3] active_ids
// ARGV: [1] expected, [2] next, [3] entry_hit_at, [4] result, [5] closed_at,
//       [6] terminal ("1"/"0"), [7] id
var transitionScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'state')
if cur ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'state', ARGV[2])
if ARGV[3] ~= '' then
  redis.call('HSET', KEYS[1], 'entry_hit_at', ARGV[3])
end
if ARGV[4] ~= '' then
  redis.call('HSET', KEYS[1], 'result', ARGV[4])
end
if ARGV[5] ~= '' then
  redis.call('HSET', KEYS[1], 'closed_at', ARGV[5])
end
if ARGV[6] == '1' then
  if redis.call('GET', KEYS[2]) == ARGV[7] then
    redis.call('DEL', KEYS[2])
  end
  redis.call('SREM', KEYS[3], ARGV[7])
end
return 1
`)

// Create persists a new waiting signal, enforcing fingerprint dedupe and the
// per-asset active slot at the store level. This is the per-asset
// serialization point that closes the gatekeeper's approval race.
func (s *RedisSignalStore) Create(ctx context.Context, sig *models.Signal) error {
	doc, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	keys := []string{
		s.key("fp", sig.Fingerprint),
		s.key("active", sig.Asset),
		s.key("signal", sig.ID),
		s.key("last", sig.Asset),
		s.key("active_ids"),
	}
	res, err := createScript.Run(ctx, s.client, keys,
		sig.ID, string(doc), string(sig.State),
		sig.GeneratedAt.UTC().Format(time.RFC3339Nano),
		int(fingerprintTTL.Seconds()),
	).Text()
	if err != nil {
		return fmt.Errorf("create signal: %w", err)
	}
	switch res {
	case "dup":
		return drepo.ErrDuplicate
	case "overlap":
		return drepo.ErrOverlap
	}
	return nil
}

// Transition applies expected → next iff the persisted state still matches.
// Returns (false, nil) on a lost race; that is a normal outcome.
func (s *RedisSignalStore) Transition(ctx context.Context, id string, expected, next models.SignalState, patch drepo.TransitionPatch) (bool, error) {
	sig, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if sig == nil {
		return false, fmt.Errorf("transition: signal %s not found", id)
	}

	var entryHit, closed string
	if patch.EntryHitAt != nil {
		entryHit = patch.EntryHitAt.UTC().Format(time.RFC3339Nano)
	}
	if patch.ClosedAt != nil {
		closed = patch.ClosedAt.UTC().Format(time.RFC3339Nano)
	}
	terminal := "0"
	if next.IsTerminal() {
		terminal = "1"
	}

	keys := []string{
		s.key("signal", id),
		s.key("active", sig.Asset),
		s.key("active_ids"),
	}
	n, err := transitionScript.Run(ctx, s.client, keys,
		string(expected), string(next),
		entryHit, string(patch.Result), closed,
		terminal, id,
	).Int()
	if err != nil {
		return false, fmt.Errorf("transition signal: %w", err)
	}
	return n == 1, nil
}

// Get loads one signal, merging the mutable hash fields over the creation doc.
func (s *RedisSignalStore) Get(ctx context.Context, id string) (*models.Signal, error) {
	vals, err := s.client.HGetAll(ctx, s.key("signal", id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get signal: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return hydrate(vals)
}

func hydrate(vals map[string]string) (*models.Signal, error) {
	var sig models.Signal
	if err := json.Unmarshal([]byte(vals["doc"]), &sig); err != nil {
		return nil, fmt.Errorf("unmarshal signal doc: %w", err)
	}
	if st, ok := vals["state"]; ok {
		sig.State = models.SignalState(st)
	}
	if v, ok := vals["result"]; ok && v != "" {
		sig.Result = models.SignalResult(v)
	}
	if v, ok := vals["entry_hit_at"]; ok && v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parse entry_hit_at: %w", err)
		}
		sig.EntryHitAt = &t
	}
	if v, ok := vals["closed_at"]; ok && v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parse closed_at: %w", err)
		}
		sig.ClosedAt = &t
	}
	return &sig, nil
}

// ActiveByAsset returns the signal holding the asset's slot, or nil.
func (s *RedisSignalStore) ActiveByAsset(ctx context.Context, asset string) (*models.Signal, error) {
	id, err := s.client.Get(ctx, s.key("active", asset)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active id: %w", err)
	}
	return s.Get(ctx, id)
}

// ListActive returns every non-terminal signal.
func (s *RedisSignalStore) ListActive(ctx context.Context) ([]*models.Signal, error) {
	ids, err := s.client.SMembers(ctx, s.key("active_ids")).Result()
	if err != nil {
		return nil, fmt.Errorf("list active ids: %w", err)
	}
	out := make([]*models.Signal, 0, len(ids))
	for _, id := range ids {
		sig, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sig != nil && !sig.State.IsTerminal() {
			out = append(out, sig)
		}
	}
	return out, nil
}

// LastGeneratedAt returns the asset's most recent generation time.
func (s *RedisSignalStore) LastGeneratedAt(ctx context.Context, asset string) (time.Time, error) {
	v, err := s.client.Get(ctx, s.key("last", asset)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("get last generated: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last generated: %w", err)
	}
	return t, nil
}

// Health pings the store.
func (s *RedisSignalStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the shared client is owned by pkg/cache.
func (s *RedisSignalStore) Close() error { return nil }
