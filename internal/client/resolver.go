package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
)

// DefaultResolverCacheTTL is the default TTL for cached bind passwords. The
// TTL is deliberately short: it absorbs the burst of reconciles an
// integrator change triggers without letting a rotated password linger.
const DefaultResolverCacheTTL = 10 * time.Second

// passwordCacheEntry holds a resolved bind password with its timestamp.
// Entries only ever live in memory.
type passwordCacheEntry struct {
	password   string
	resolvedAt time.Time
}

// CachingResolver wraps a SecretResolver with a short-TTL in-memory cache.
//
// A single integrator change fans out into one reconcile per binding, each
// of which needs the bind password; the cache collapses those lookups into
// one secret read. Concurrent lookups for the same secret are deduplicated.
type CachingResolver struct {
	delegate SecretResolver

	cacheMu sync.RWMutex
	cache   map[string]*passwordCacheEntry
	ttl     time.Duration

	group singleflight.Group
}

// ResolverOption configures a CachingResolver.
type ResolverOption func(*CachingResolver)

// WithCacheTTL sets the password cache TTL.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *CachingResolver) {
		r.ttl = ttl
	}
}

// NewCachingResolver creates a caching resolver around delegate.
func NewCachingResolver(delegate SecretResolver, opts ...ResolverOption) *CachingResolver {
	r := &CachingResolver{
		delegate: delegate,
		cache:    make(map[string]*passwordCacheEntry),
		ttl:      DefaultResolverCacheTTL,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ResolveBindPassword returns the plaintext bind password for ref, serving
// from cache when a fresh entry exists. Errors are never cached; a failed
// lookup is retried on the next call.
func (r *CachingResolver) ResolveBindPassword(ctx context.Context, ref v1alpha1.SecretReference, defaultNamespace string) (string, error) {
	key := r.cacheKey(ref, defaultNamespace)

	r.cacheMu.RLock()
	if entry, ok := r.cache[key]; ok {
		if time.Since(entry.resolvedAt) < r.ttl {
			r.cacheMu.RUnlock()
			return entry.password, nil
		}
	}
	r.cacheMu.RUnlock()

	result, err, _ := r.group.Do(key, func() (interface{}, error) {
		// Double-check after acquiring the singleflight slot; another
		// caller may have refreshed the entry.
		r.cacheMu.RLock()
		if entry, ok := r.cache[key]; ok {
			if time.Since(entry.resolvedAt) < r.ttl {
				r.cacheMu.RUnlock()
				return entry.password, nil
			}
		}
		r.cacheMu.RUnlock()

		password, err := r.delegate.ResolveBindPassword(ctx, ref, defaultNamespace)
		if err != nil {
			return "", err
		}

		r.cacheMu.Lock()
		r.cache[key] = &passwordCacheEntry{password: password, resolvedAt: time.Now()}
		r.cacheMu.Unlock()

		return password, nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

// Invalidate drops the cached entry for ref, forcing the next lookup to hit
// the backend. Called when a watched secret changes.
func (r *CachingResolver) Invalidate(ref v1alpha1.SecretReference, defaultNamespace string) {
	r.cacheMu.Lock()
	delete(r.cache, r.cacheKey(ref, defaultNamespace))
	r.cacheMu.Unlock()
}

// InvalidateAll drops every cached entry.
func (r *CachingResolver) InvalidateAll() {
	r.cacheMu.Lock()
	r.cache = make(map[string]*passwordCacheEntry)
	r.cacheMu.Unlock()
}

func (r *CachingResolver) cacheKey(ref v1alpha1.SecretReference, defaultNamespace string) string {
	namespace := ref.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	secretKey := ref.Key
	if secretKey == "" {
		secretKey = defaultSecretKey
	}

	return fmt.Sprintf("%s/%s/%s", namespace, ref.Name, secretKey)
}
