package routing

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"couriertrack/geo"
)

// Provider resolves and caches route geometry per delivery. Entries are
// treated as immutable for the lifetime of an order: routes are created on
// first need and never invalidated, which is acceptable because the working
// set is bounded by concurrently active deliveries.
//
// Lookups go memory -> redis -> routing backend. The redis tier is shared
// between devices and optional; when it is unreachable the provider runs
// memory-only. Concurrent fetches for different keys are independent; a
// duplicate in-flight fetch for the same key is not deduplicated
// (last write wins on the cache).
type Provider struct {
	client *Client
	redis  *redis.Client

	mu     sync.RWMutex
	routes map[string]*Route
}

func NewProvider(client *Client, redisClient *redis.Client) *Provider {
	return &Provider{
		client: client,
		redis:  redisClient,
		routes: make(map[string]*Route),
	}
}

func redisKey(key string) string { return "couriertrack:route:" + key }

// Cached returns the route for key if one is already held in memory.
func (p *Provider) Cached(key string) (*Route, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.routes[key]
	return r, ok
}

// Get returns the planned route for key, fetching it from the routing
// backend on a cache miss. The error means "no route available" and is
// safe to treat as non-fatal.
func (p *Provider) Get(ctx context.Context, key string, origin, dest geo.Point) (*Route, error) {
	if r, ok := p.Cached(key); ok {
		return r, nil
	}

	if r := p.fromRedis(ctx, key); r != nil {
		p.put(key, r, false)
		return r, nil
	}

	r, err := p.client.Route(ctx, origin, dest)
	if err != nil {
		return nil, err
	}
	p.put(key, r, true)
	return r, nil
}

// Forget drops the in-memory entry for key, for when a delivery leaves the
// active set.
func (p *Provider) Forget(key string) {
	p.mu.Lock()
	delete(p.routes, key)
	p.mu.Unlock()
}

// Size returns the number of in-memory cached routes.
func (p *Provider) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.routes)
}

func (p *Provider) put(key string, r *Route, writeRedis bool) {
	p.mu.Lock()
	p.routes[key] = r
	p.mu.Unlock()

	if !writeRedis || p.redis == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.redis.Set(ctx, redisKey(key), data, 24*time.Hour).Err(); err != nil {
		log.Printf("routing: redis cache write %s: %v", key, err)
	}
}

func (p *Provider) fromRedis(ctx context.Context, key string) *Route {
	if p.redis == nil {
		return nil
	}
	data, err := p.redis.Get(ctx, redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Printf("routing: redis cache read %s: %v", key, err)
		return nil
	}
	var r Route
	if err := json.Unmarshal(data, &r); err != nil {
		return nil
	}
	return &r
}
