// Package oracle implements the cached AI-adjudication pipeline: a persistent
// answer cache in front of a slow external text-generation oracle, plus the
// name-moderation side-channel that uses the same oracle.
package oracle

import (
	"encoding/json"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Verdict is the outcome of an adjudicated pair: who won, who lost, and how
// the answer was produced. Distinguishing the three sources lets callers and
// tests tell a cache hit apart from a live oracle call or a random fallback,
// rather than duck-typing a plain (winner, loser) tuple.
type Verdict struct {
	Winner string
	Loser  string
	Source Source
}

// Source identifies how a Verdict was produced.
type Source int

const (
	// SourceCache means the pair was already resolved and served from the
	// persistent cache without any I/O.
	SourceCache Source = iota
	// SourceOracle means the external AI oracle was called and returned a
	// validated answer.
	SourceOracle
	// SourceRandom means the oracle was disabled, errored, timed out, or
	// returned an answer that didn't match either candidate name.
	SourceRandom
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceOracle:
		return "oracle"
	case SourceRandom:
		return "random"
	default:
		return "unknown"
	}
}

// pairKey normalizes two names into an orderless cache key by sorting them
// lexicographically, so (a, b) and (b, a) collide onto the same entry.
func pairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "\x1f")
}

// cacheEntry is the in-memory representation of one resolved pair; on disk
// each pair is stored as a two-element [winner, loser] array.
type cacheEntry struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

// Cache is the persistent, orderless-pair answer cache described in spec §3
// and §4.4. It is safe for concurrent use; writes are coalesced so that
// concurrent misses on the same key only hit the oracle once (§9).
type Cache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]cacheEntry

	inflightMu sync.Mutex
	inflight   map[string]*sync.WaitGroup
}

// NewCache loads the cache from path if it exists. A missing or malformed
// file yields an empty cache rather than an error — the cache is a
// performance optimization, not a source of truth.
func NewCache(path string) *Cache {
	c := &Cache{
		path:     path,
		entries:  make(map[string]cacheEntry),
		inflight: make(map[string]*sync.WaitGroup),
	}
	c.load()
	return c
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return // no cache file yet
	}

	var raw map[string][2]string
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("⚠️ oracle cache at %s is malformed, starting empty: %v", c.path, err)
		return
	}

	for k, v := range raw {
		c.entries[k] = cacheEntry{Winner: v[0], Loser: v[1]}
	}
	log.Printf("📂 Loaded %d cached adjudications from %s", len(c.entries), c.path)
}

// Len reports the number of cached adjudications, for periodic stat logging.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Lookup returns the cached verdict for (a, b), if any.
func (c *Cache) Lookup(a, b string) (Verdict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[pairKey(a, b)]
	if !ok {
		return Verdict{}, false
	}
	return Verdict{Winner: entry.Winner, Loser: entry.Loser, Source: SourceCache}, true
}

// Store records a resolved pair and persists the cache to disk. It never
// loses an entry that was already served: writes happen synchronously under
// the cache lock before returning.
func (c *Cache) Store(a, b, winner, loser string) error {
	key := pairKey(a, b)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{Winner: winner, Loser: loser}

	if err := c.persist(c.snapshotLocked()); err != nil {
		return errors.Wrapf(err, "persisting oracle cache to %s", c.path)
	}
	return nil
}

func (c *Cache) snapshotLocked() map[string][2]string {
	out := make(map[string][2]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = [2]string{v.Winner, v.Loser}
	}
	return out
}

// persist writes the cache atomically: serialize to a temp file in the same
// directory, then rename over the destination, so a crash mid-write never
// corrupts the existing cache.
func (c *Cache) persist(snapshot map[string][2]string) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling oracle cache")
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "writing oracle cache temp file")
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return errors.Wrap(err, "renaming oracle cache temp file")
	}
	return nil
}

// coalesce ensures only the first caller for a given pair key performs the
// supplied work; concurrent callers for the same pair block until the first
// finishes and then re-check the cache. This prevents a flurry of
// simultaneous collisions between the same two names from firing N oracle
// calls and N redundant cache writes for one answer.
func (c *Cache) coalesce(key string, work func() (Verdict, error)) (Verdict, error) {
	c.inflightMu.Lock()
	for {
		leader, ok := c.inflight[key]
		if !ok {
			break
		}
		c.inflightMu.Unlock()
		leader.Wait()
		if v, ok := c.lookupKey(key); ok {
			return v, nil
		}
		// The leader's work failed to persist a result; re-acquire the lock
		// and become the new leader rather than returning an empty Verdict.
		c.inflightMu.Lock()
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.inflight[key] = wg
	c.inflightMu.Unlock()

	defer func() {
		c.inflightMu.Lock()
		delete(c.inflight, key)
		c.inflightMu.Unlock()
		wg.Done()
	}()

	return work()
}

func (c *Cache) lookupKey(key string) (Verdict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return Verdict{}, false
	}
	return Verdict{Winner: entry.Winner, Loser: entry.Loser, Source: SourceCache}, true
}
