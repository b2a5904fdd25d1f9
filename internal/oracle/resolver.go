package oracle

import (
	"context"

	"minionwar/internal/api"
)

// Resolver is the public entry point the tick loop adjudicates through: it
// combines the persistent cache with the HTTP client and the in-flight
// backpressure queue into the single call collision resolution needs. The
// tick loop never talks to Cache or Client directly.
type Resolver struct {
	cache  *Cache
	client *Client
	queue  *Queue
}

// NewResolver wires a cache, client, and bounded adjudication queue into one
// resolver. queue may be nil in tests that don't care about backpressure.
func NewResolver(cache *Cache, client *Client, queue *Queue) *Resolver {
	return &Resolver{cache: cache, client: client, queue: queue}
}

// Resolve returns the verdict for a collision between a and b. The tick loop
// reaches it through Submit, which runs it off the tick loop and hands the
// verdict to a callback instead of blocking the current tick.
func (r *Resolver) Resolve(ctx context.Context, a, b string) Verdict {
	if v, ok := r.cache.Lookup(a, b); ok {
		api.RecordOracleCacheHit()
		return v
	}

	key := pairKey(a, b)
	v, _ := r.cache.coalesce(key, func() (Verdict, error) {
		if v, ok := r.cache.Lookup(a, b); ok {
			api.RecordOracleCacheHit()
			return v, nil
		}
		api.RecordOracleCacheMiss()

		winner, loser := r.client.Adjudicate(ctx, a, b)
		source := SourceOracle
		if !r.client.Enabled() {
			source = SourceRandom
		}

		if err := r.cache.Store(a, b, winner, loser); err != nil {
			// Persistence failure doesn't invalidate the in-memory answer;
			// the next run just re-resolves this pair from scratch.
			return Verdict{Winner: winner, Loser: loser, Source: source}, nil
		}
		return Verdict{Winner: winner, Loser: loser, Source: source}, nil
	})
	return v
}

// Submit enqueues a collision for asynchronous adjudication, invoking done
// with the result once available. With a queue it never blocks the caller
// beyond the queue's backpressure bound (§5); with a nil queue, Resolve runs
// inline and done is called before Submit returns.
func (r *Resolver) Submit(ctx context.Context, a, b string, done func(Verdict)) bool {
	if r.queue == nil {
		done(r.Resolve(ctx, a, b))
		return true
	}
	return r.queue.Submit(func() {
		done(r.Resolve(ctx, a, b))
	})
}

// CheckName reports whether a player-chosen name passes moderation.
func (r *Resolver) CheckName(ctx context.Context, name string) bool {
	return r.client.CheckAppropriate(ctx, name)
}
