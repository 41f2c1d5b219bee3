package cache

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/golang/glog"
	"github.com/rohmanhakim/prompt-loader/pkg/hashutil"
)

// Client is the subset of *memcache.Client used by MemcacheCache.
type Client interface {
	Get(key string) (*memcache.Item, error)
	GetMulti(keys []string) (map[string]*memcache.Item, error)
	Set(item *memcache.Item) error
	Add(item *memcache.Item) error
	Delete(key string) error
	Increment(key string, delta uint64) (uint64, error)
}

/*
MemcacheCache stores template content in memcached so several processes
can share one warm cache.

Entry keys have the form <prefix>:<generation>:<blake3(key)>. Template keys
are paths and may exceed the 250 byte key limit or contain characters
memcached rejects; hashing keeps every key valid.

Clear does not flush the server. It bumps the generation counter stored
under <prefix>:gen, which makes every older entry unreachable; memcached
evicts them through its own LRU.

The counter itself can be evicted. Whenever it is missing it is recreated
from the clock (nanoseconds, and never below the last value this instance
saw plus one), so a generation that scoped entries before is not reused.

Get reads the counter and the entry under the last known generation in one
GetMulti round trip. Only when the counter moved (a Clear elsewhere) does it
need a second round trip. Put and Delete read the counter first; they only
run on misses and explicit invalidation.

Backend failures never surface to the store: ErrCacheMiss is a plain miss,
any other error is logged and treated as a miss (Get) or dropped (Put).
*/
type MemcacheCache struct {
	client Client
	prefix string
	now    func() time.Time

	mu         sync.Mutex
	generation uint64
	loaded     bool
}

type MemcacheOption func(*MemcacheCache)

// WithClock replaces the clock used to seed a missing generation counter.
func WithClock(now func() time.Time) MemcacheOption {
	return func(c *MemcacheCache) {
		c.now = now
	}
}

func NewMemcacheCache(client Client, prefix string, opts ...MemcacheOption) *MemcacheCache {
	c := &MemcacheCache{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewMemcacheCacheFromServers dials nothing up front; gomemcache connects lazily.
func NewMemcacheCacheFromServers(servers []string, prefix string) *MemcacheCache {
	return NewMemcacheCache(memcache.New(servers...), prefix)
}

func (c *MemcacheCache) Get(key string) (string, bool) {
	if guess, known := c.knownGeneration(); known {
		genKey := c.generationKey()
		guessKey := c.entryKey(guess, key)
		items, err := c.client.GetMulti([]string{genKey, guessKey})
		if err != nil {
			glog.Errorf("memcache get %q failed: %+v", key, err)
			return "", false
		}
		if genItem, ok := items[genKey]; ok {
			if gen, ok := c.observe(genItem); ok && gen == guess {
				item, found := items[guessKey]
				if !found {
					return "", false
				}
				return string(item.Value), true
			}
		}
	}

	gen, ok := c.currentGeneration()
	if !ok {
		return "", false
	}
	item, err := c.client.Get(c.entryKey(gen, key))
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			glog.Errorf("memcache get %q failed: %+v", key, err)
		}
		return "", false
	}
	return string(item.Value), true
}

func (c *MemcacheCache) Put(key string, value string) {
	gen, ok := c.currentGeneration()
	if !ok {
		return
	}
	err := c.client.Set(&memcache.Item{
		Key:        c.entryKey(gen, key),
		Value:      []byte(value),
		Expiration: 0,
	})
	if err != nil {
		glog.Errorf("memcache set %q failed: %+v", key, err)
	}
}

func (c *MemcacheCache) Delete(key string) {
	gen, ok := c.currentGeneration()
	if !ok {
		return
	}
	err := c.client.Delete(c.entryKey(gen, key))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		glog.Errorf("memcache delete %q failed: %+v", key, err)
	}
}

func (c *MemcacheCache) Clear() {
	genKey := c.generationKey()

	next, err := c.client.Increment(genKey, 1)
	if errors.Is(err, memcache.ErrCacheMiss) {
		next = c.seed()
		err = c.client.Add(&memcache.Item{Key: genKey, Value: []byte(strconv.FormatUint(next, 10))})
		if errors.Is(err, memcache.ErrNotStored) {
			// Recreated concurrently; entries may already sit under it.
			next, err = c.client.Increment(genKey, 1)
		}
	}
	if err != nil {
		glog.Errorf("memcache clear (prefix %q) failed: %+v", c.prefix, err)
		return
	}

	c.setGeneration(next)
}

// Generation is the counter value entry keys are currently scoped to.
// It is zero while the counter cannot be read or created.
func (c *MemcacheCache) Generation() uint64 {
	gen, _ := c.currentGeneration()
	return gen
}

func (c *MemcacheCache) entryKey(gen uint64, key string) string {
	return c.prefix + ":" + strconv.FormatUint(gen, 10) + ":" + hashutil.Blake3Hex([]byte(key))
}

func (c *MemcacheCache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *MemcacheCache) knownGeneration() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, c.loaded
}

func (c *MemcacheCache) setGeneration(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation = gen
	c.loaded = true
}

// observe records the counter value held in item.
func (c *MemcacheCache) observe(item *memcache.Item) (uint64, bool) {
	gen, err := strconv.ParseUint(string(item.Value), 10, 64)
	if err != nil {
		glog.Errorf("memcache generation %q is not a number: %+v", item.Value, err)
		return 0, false
	}
	c.setGeneration(gen)
	return gen, true
}

// seed is the value a missing counter restarts from.
func (c *MemcacheCache) seed() uint64 {
	seed := uint64(c.now().UnixNano())
	if last, known := c.knownGeneration(); known && seed <= last {
		seed = last + 1
	}
	return seed
}

// currentGeneration reads the shared counter so a Clear issued by another
// process is observed, recreating it when it is missing. When the counter
// is missing and cannot be recreated, or when nothing is known yet, the
// cache is bypassed. Other read errors fall back to the last known value.
func (c *MemcacheCache) currentGeneration() (uint64, bool) {
	genKey := c.generationKey()

	item, err := c.client.Get(genKey)
	if errors.Is(err, memcache.ErrCacheMiss) {
		seed := c.seed()
		err = c.client.Add(&memcache.Item{Key: genKey, Value: []byte(strconv.FormatUint(seed, 10))})
		if err == nil {
			c.setGeneration(seed)
			return seed, true
		}
		if !errors.Is(err, memcache.ErrNotStored) {
			// The last known generation may predate a Clear that was lost
			// with the counter.
			glog.Errorf("memcache generation create failed: %+v", err)
			return 0, false
		}
		item, err = c.client.Get(genKey)
	}
	if err == nil {
		if gen, ok := c.observe(item); ok {
			return gen, true
		}
	} else {
		glog.Errorf("memcache generation read failed: %+v", err)
	}
	return c.knownGeneration()
}
