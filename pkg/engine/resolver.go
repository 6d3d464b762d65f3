package engine

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/apembroke/switchboard/pkg/observability"
	"github.com/apembroke/switchboard/pkg/storage"
)

// DefaultResolveCacheSize bounds the resolution memo. Entries are cheap, so
// the bound exists to keep hostile path scans from growing memory without
// limit rather than to tune hit rates.
const DefaultResolveCacheSize = 4096

// Resolution is the outcome of matching a request against the catalog.
type Resolution struct {
	Project    *storage.Project
	Definition *storage.EndpointDefinition

	// TrailingID is the final path segment when the request matched the
	// definition's path plus one extra segment, e.g. GET /widgets/42
	// against a definition for /widgets. Empty on exact matches.
	TrailingID string
}

// Resolver matches method+path pairs against the persisted endpoint
// catalog. Lookups are memoized in an LRU keyed by the normalized request;
// both hits and misses are cached, and the memo is purged whenever the
// catalog changes.
type Resolver struct {
	store   storage.ProjectStore
	prefix  string
	metrics *observability.Metrics
	cache   *lru.Cache[string, *resolveEntry]
}

type resolveEntry struct {
	resolution *Resolution
	noMatch    bool
}

// NewResolver builds a resolver over the given project store. metrics may
// be nil.
func NewResolver(store storage.ProjectStore, prefix string, cacheSize int, metrics *observability.Metrics) (*Resolver, error) {
	if prefix == "" {
		prefix = DefaultRoutePrefix
	}
	if cacheSize <= 0 {
		cacheSize = DefaultResolveCacheSize
	}
	cache, err := lru.New[string, *resolveEntry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating resolve cache: %w", err)
	}
	return &Resolver{
		store:   store,
		prefix:  prefix,
		metrics: metrics,
		cache:   cache,
	}, nil
}

// Resolve matches an HTTP method and raw request path against the catalog.
// It returns ErrNoMatch when no definition matches; any other error means
// the catalog could not be read.
//
// Matching is two-phase: first the normalized path is compared against
// definition paths exactly, then, for item-addressable methods, the final
// segment is treated as a candidate identifier and the remaining path is
// compared again. Definitions are scanned in project creation order so two
// projects claiming the same route resolve deterministically to the older
// one.
func (r *Resolver) Resolve(ctx context.Context, method, rawPath string) (*Resolution, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	normalized := NormalizePathPrefix(rawPath, r.prefix)
	key := method + " " + normalized

	if entry, ok := r.cache.Get(key); ok {
		if r.metrics != nil {
			r.metrics.ResolveCacheHits.Inc()
		}
		if entry.noMatch {
			return nil, ErrNoMatch
		}
		return entry.resolution, nil
	}
	if r.metrics != nil {
		r.metrics.ResolveCacheMisses.Inc()
	}

	resolution, err := r.scan(ctx, method, normalized)
	if err == ErrNoMatch {
		r.cache.Add(key, &resolveEntry{noMatch: true})
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, &resolveEntry{resolution: resolution})
	return resolution, nil
}

func (r *Resolver) scan(ctx context.Context, method, normalized string) (*Resolution, error) {
	projects, err := r.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	// Phase one: exact path match.
	for _, project := range projects {
		for i := range project.Endpoints {
			def := &project.Endpoints[i]
			if !strings.EqualFold(def.Method, method) {
				continue
			}
			if NormalizePathPrefix(def.Path, r.prefix) == normalized {
				return &Resolution{Project: project, Definition: def}, nil
			}
		}
	}

	// Phase two: treat the final segment as an identifier and match the
	// parent path. POST endpoints never address items this way.
	if !itemAddressable(method) {
		return nil, ErrNoMatch
	}
	idx := strings.LastIndex(normalized, "/")
	if idx <= 0 {
		return nil, ErrNoMatch
	}
	parent, id := normalized[:idx], normalized[idx+1:]
	if id == "" {
		return nil, ErrNoMatch
	}
	for _, project := range projects {
		for i := range project.Endpoints {
			def := &project.Endpoints[i]
			if !strings.EqualFold(def.Method, method) {
				continue
			}
			if NormalizePathPrefix(def.Path, r.prefix) == parent {
				return &Resolution{Project: project, Definition: def, TrailingID: id}, nil
			}
		}
	}
	return nil, ErrNoMatch
}

func itemAddressable(method string) bool {
	switch method {
	case "GET", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

// Invalidate drops the entire resolution memo. Called whenever the endpoint
// catalog changes; the next request for each route re-scans the store.
func (r *Resolver) Invalidate() {
	r.cache.Purge()
}

// CacheLen reports the number of memoized resolutions, for tests and
// diagnostics.
func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}
