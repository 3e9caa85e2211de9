package artcache

import (
	"context"
	"time"

	"github.com/ericselin/artcache/cache"
	"github.com/rs/zerolog"
)

// Source names a catalog resource and what to show when it cannot be read.
type Source struct {
	// Key the resource is stored under.
	Key string
	// URL of the resource at the origin.
	Endpoint string
	// Items to show if neither the store nor the origin can provide any.
	Default []Item
}

type ResolverConfig struct {
	Store   *cache.Store
	Fetcher *FetchClient
	// Entries older than this are fetched again (conditionally).
	// Zero trusts stored entries until they are evicted by a mutation.
	MaxAge time.Duration
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// Resolver is the read entry point for views.
// It tries the store, then the origin, then the source's default items,
// and never fails.
type Resolver struct {
	store   *cache.Store
	fetcher *FetchClient
	maxAge  time.Duration
	log     zerolog.Logger
}

func NewResolver(config ResolverConfig) *Resolver {
	return &Resolver{
		store:   config.Store,
		fetcher: config.Fetcher,
		maxAge:  config.MaxAge,
		log:     ClientConfig{Logger: config.Logger}.logger("resolver"),
	}
}

// Resolve returns the catalog for src.
// A stored entry is returned without revalidation.
func (r *Resolver) Resolve(ctx context.Context, src Source) ResolvedCatalog {
	logger := r.log.With().Str("key", src.Key).Logger()

	if e, ok := r.store.Get(src.Key); ok && r.fresh(src.Key) {
		logger.Trace().Str("etag", e.Validator).Msg("Cache hit")
		return ResolvedCatalog{
			Items:      Normalize(e.Data),
			Provenance: ProvenanceCache,
			Validator:  e.Validator,
		}
	}

	result, err := r.fetcher.fetch(ctx, src.Key, src.Endpoint)
	if err == nil {
		logger.Trace().Str("etag", result.validator).Bool("stored", result.stored).Msg("Resolved from origin")
		return ResolvedCatalog{
			Items:      Normalize(result.data),
			Provenance: ProvenanceNetwork,
			Validator:  result.validator,
			Stored:     result.stored,
		}
	}

	logger.Warn().Err(err).Int("items", len(src.Default)).Msg("Falling back to default catalog")
	return ResolvedCatalog{
		Items:      append(make([]Item, 0, len(src.Default)), src.Default...),
		Provenance: ProvenanceFallback,
		Err:        err,
	}
}

// ResolveOne returns the item with the given id from the resolved catalog.
func (r *Resolver) ResolveOne(ctx context.Context, src Source, id string) (Item, bool) {
	return r.Resolve(ctx, src).Find(id)
}

// fresh applies the optional age limit to the stored entry.
func (r *Resolver) fresh(key string) bool {
	if r.maxAge <= 0 {
		return true
	}
	age, ok := r.store.AgeOf(key)
	if !ok || age > r.maxAge {
		r.log.Trace().Str("key", key).Dur("age", age).Msg("Stored entry too old")
		return false
	}
	return true
}
