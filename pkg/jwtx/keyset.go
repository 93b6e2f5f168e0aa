package jwtx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySource resolves a kid to an RSA public key.
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

// KeySet holds a fixed set of public verification keys in memory.
type KeySet struct {
	mu  sync.RWMutex
	pub map[string]any
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]any)}
}

// AddJWK adds a JWK to the KeySet.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := j.PublicKey()
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[j.Kid] = key
	return nil
}

// ResetFromJWKS replaces all keys from a JWKS.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	next := make(map[string]any, len(jwks.Keys))
	for _, j := range jwks.Keys {
		key, err := j.PublicKey()
		if err != nil {
			return err
		}
		next[j.Kid] = key
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = next
	return nil
}

func (k *KeySet) Key(_ context.Context, kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// RemoteKeySet fetches a JWKS document over HTTP and caches the parsed keys.
// An unknown kid triggers a refetch, but at most once per MinRefresh so a
// flood of forged tokens cannot hammer the issuer.
type RemoteKeySet struct {
	url        string
	client     *http.Client
	cache      *gocache.Cache
	ttl        time.Duration
	minRefresh time.Duration
	group      singleflight.Group

	mu        sync.Mutex
	lastFetch time.Time
}

type RemoteOption func(*RemoteKeySet)

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteKeySet) { r.client = c }
}

func WithCacheTTL(ttl time.Duration) RemoteOption {
	return func(r *RemoteKeySet) { r.ttl = ttl }
}

func WithMinRefresh(d time.Duration) RemoteOption {
	return func(r *RemoteKeySet) { r.minRefresh = d }
}

// NewRemoteKeySet returns a key source backed by the JWKS at url.
func NewRemoteKeySet(url string, opts ...RemoteOption) *RemoteKeySet {
	r := &RemoteKeySet{
		url:        url,
		client:     &http.Client{Timeout: 5 * time.Second},
		ttl:        10 * time.Minute,
		minRefresh: time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = gocache.New(r.ttl, time.Minute)
	return r
}

func (r *RemoteKeySet) Key(ctx context.Context, kid string) (any, error) {
	if key, ok := r.cache.Get(kid); ok {
		return key, nil
	}

	if err := r.refresh(ctx); err != nil {
		return nil, err
	}

	if key, ok := r.cache.Get(kid); ok {
		return key, nil
	}
	return nil, ErrNoKey
}

// Refresh forces a fetch of the JWKS document, ignoring MinRefresh.
func (r *RemoteKeySet) Refresh(ctx context.Context) error {
	_, err, _ := r.group.Do("jwks", func() (any, error) {
		return nil, r.fetch(ctx)
	})
	return err
}

func (r *RemoteKeySet) refresh(ctx context.Context) error {
	r.mu.Lock()
	recent := !r.lastFetch.IsZero() && time.Since(r.lastFetch) < r.minRefresh
	r.mu.Unlock()
	if recent {
		return nil
	}
	return r.Refresh(ctx)
}

func (r *RemoteKeySet) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("jwtx: build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwtx: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwtx: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("jwtx: decode jwks: %w", err)
	}

	for _, j := range jwks.Keys {
		key, err := j.PublicKey()
		if err != nil {
			// Skip keys we cannot use rather than failing the whole set.
			continue
		}
		r.cache.Set(j.Kid, key, r.ttl)
	}

	r.mu.Lock()
	r.lastFetch = time.Now()
	r.mu.Unlock()
	return nil
}
