// middleware/auth/keyset.go
package auth

import (
	"context"
	"crypto"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SigningKey is one trusted public key from the realm JWKS.
type SigningKey struct {
	Kid string
	Alg string
	Key crypto.PublicKey
}

// KeySetSnapshot is an immutable kid -> key mapping stamped with its fetch
// time. Refresh always builds a new snapshot and swaps it in; in-flight
// validations keep reading the one they started with.
type KeySetSnapshot struct {
	keys      map[string]SigningKey
	fetchedAt time.Time
	etag      string
}

func newKeySetSnapshot(keys map[string]SigningKey, at time.Time, etag string) *KeySetSnapshot {
	return &KeySetSnapshot{keys: keys, fetchedAt: at, etag: etag}
}

func (s *KeySetSnapshot) Get(kid string) (SigningKey, bool) {
	k, ok := s.keys[kid]
	return k, ok
}

func (s *KeySetSnapshot) Len() int             { return len(s.keys) }
func (s *KeySetSnapshot) FetchedAt() time.Time { return s.fetchedAt }

// revalidated returns a copy sharing the same keys with a fresh fetch stamp
// (304 Not Modified path).
func (s *KeySetSnapshot) revalidated(at time.Time) *KeySetSnapshot {
	return &KeySetSnapshot{keys: s.keys, fetchedAt: at, etag: s.etag}
}

// RefreshObserver is notified after every refresh attempt. trigger is one of
// "startup", "interval", "reactive", "manual".
type RefreshObserver func(trigger string, keys int, err error)

// KeySetCache owns the trusted signing keys for one realm. Reads are
// lock-free; only the snapshot swap is atomic. A failed refresh keeps the
// previous snapshot so the cache is never emptied by an outage.
type KeySetCache struct {
	httpClient HTTPDoer
	jwksURL    string
	interval   time.Duration
	debounce   time.Duration
	observe    RefreshObserver
	log        *zap.Logger

	snap  atomic.Pointer[KeySetSnapshot]
	group singleflight.Group

	done     chan struct{}
	stopOnce sync.Once
}

// reactiveDebounce bounds how often a burst of unknown-kid misses may hit
// the network: a snapshot younger than this is taken at its word.
const reactiveDebounce = 10 * time.Second

type KeySetOption func(*KeySetCache)

func WithHTTPClient(hc HTTPDoer) KeySetOption {
	return func(c *KeySetCache) { c.httpClient = hc }
}

func WithRefreshObserver(fn RefreshObserver) KeySetOption {
	return func(c *KeySetCache) {
		if fn != nil {
			c.observe = fn
		}
	}
}

func WithReactiveDebounce(d time.Duration) KeySetOption {
	return func(c *KeySetCache) { c.debounce = d }
}

func NewKeySetCache(jwksURL string, interval time.Duration, log *zap.Logger, opts ...KeySetOption) *KeySetCache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &KeySetCache{
		httpClient: defaultHTTPClient(),
		jwksURL:    jwksURL,
		interval:   interval,
		debounce:   reactiveDebounce,
		observe:    func(string, int, error) {},
		log:        log,
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *KeySetCache) snapshot() *KeySetSnapshot { return c.snap.Load() }

// Ready reports whether at least one JWKS fetch has ever succeeded.
func (c *KeySetCache) Ready() bool { return c.snapshot() != nil }

// Get returns the key for kid from the current snapshot. No side effects.
func (c *KeySetCache) Get(kid string) (SigningKey, bool) {
	snap := c.snapshot()
	if snap == nil {
		return SigningKey{}, false
	}
	return snap.Get(kid)
}

// Refresh fetches the JWKS document and atomically installs a new snapshot.
// On failure the previous snapshot stays in effect.
func (c *KeySetCache) Refresh(ctx context.Context) error {
	return c.refresh(ctx, "manual")
}

// Resolve returns the key for kid, triggering at most one debounced reactive
// refresh on a miss. Concurrent misses share a single in-flight fetch; if the
// caller's context ends while waiting, the fetch still completes and updates
// the cache for future requests.
func (c *KeySetCache) Resolve(ctx context.Context, kid string) (SigningKey, error) {
	if snap := c.snapshot(); snap != nil {
		if k, ok := snap.Get(kid); ok {
			return k, nil
		}
		if time.Since(snap.FetchedAt()) < c.debounce {
			return SigningKey{}, ErrUnknownKey
		}
	}

	ch := c.group.DoChan("jwks", func() (any, error) {
		return nil, c.refresh(context.Background(), "reactive")
	})

	select {
	case <-ctx.Done():
		return SigningKey{}, ctx.Err()
	case <-ch:
	}

	snap := c.snapshot()
	if snap == nil {
		return SigningKey{}, ErrKeySetUnavailable
	}
	if k, ok := snap.Get(kid); ok {
		return k, nil
	}
	return SigningKey{}, ErrUnknownKey
}

// Start launches the scheduled refresh loop. Stop ends it; both are safe to
// call once each from lifecycle hooks.
func (c *KeySetCache) Start() {
	go c.refreshLoop()
}

func (c *KeySetCache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *KeySetCache) refreshLoop() {
	interval := c.interval
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			if err := c.refresh(context.Background(), "interval"); err != nil {
				c.log.Warn("scheduled jwks refresh failed",
					zap.String("url", c.jwksURL),
					zap.Error(err),
				)
			}
		}
	}
}
