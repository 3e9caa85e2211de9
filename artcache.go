// Package artcache is the read path of the artwork storefront.
//
// Catalog reads go through a Resolver, which serves the stored snapshot if
// there is one, otherwise fetches it conditionally from the origin, otherwise
// shows a static default catalog. Writes go through a Gateway, which evicts
// the stored snapshot whenever the origin accepts a mutation.
package artcache

import (
	"context"
	"net/http"
	"time"

	"github.com/ericselin/artcache/cache"
	"github.com/rs/zerolog"
)

// DefaultKey is the key the catalog is stored under.
const DefaultKey = "artworks"

type Config struct {
	// Storage for the catalog. An in-memory store is used if nil.
	Store *cache.Store
	// URL of the catalog collection at the origin.
	Endpoint string
	// Key the catalog is stored under. DefaultKey is used if empty.
	Key string
	// Items shown when the catalog cannot be read. DefaultCatalog is used if nil.
	Fallback []Item
	// Client used for origin requests. http.DefaultClient is used if nil.
	HTTPClient *http.Client
	// Optional function for mutating every origin request,
	// e.g. BearerToken for attaching the user's credential.
	RequestModifier func(*http.Request)
	// Refetch stored catalogs older than this. Zero disables age checks.
	MaxAge time.Duration
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// Catalog wires the store, fetch client, resolver and gateway for one catalog resource.
type Catalog struct {
	store    *cache.Store
	resolver *Resolver
	gateway  *Gateway
	source   Source
	log      zerolog.Logger
}

// New creates the catalog described by config.
func New(config Config) *Catalog {
	clientConfig := ClientConfig{
		Store:           config.Store,
		HTTPClient:      config.HTTPClient,
		RequestModifier: config.RequestModifier,
		Logger:          config.Logger,
	}
	logger := clientConfig.logger("catalog")
	if clientConfig.Store == nil {
		clientConfig.Store = cache.NewStore(cache.Config{Logger: &logger})
	}
	key := config.Key
	if key == "" {
		key = DefaultKey
	}
	fallback := config.Fallback
	if fallback == nil {
		fallback = DefaultCatalog()
	}

	return &Catalog{
		store: clientConfig.Store,
		resolver: NewResolver(ResolverConfig{
			Store:   clientConfig.Store,
			Fetcher: NewFetchClient(clientConfig),
			MaxAge:  config.MaxAge,
			Logger:  config.Logger,
		}),
		gateway: NewGateway(clientConfig, key, config.Endpoint),
		source: Source{
			Key:      key,
			Endpoint: config.Endpoint,
			Default:  fallback,
		},
		log: logger.With().Str("endpoint", config.Endpoint).Logger(),
	}
}

func (c *Catalog) List(ctx context.Context) ResolvedCatalog {
	return c.resolver.Resolve(ctx, c.source)
}

func (c *Catalog) Get(ctx context.Context, id string) (Item, bool) {
	return c.resolver.ResolveOne(ctx, c.source, id)
}

func (c *Catalog) Create(ctx context.Context, item Item) (Item, error) {
	return c.gateway.Create(ctx, item)
}

func (c *Catalog) Update(ctx context.Context, id string, item Item) (Item, error) {
	return c.gateway.Update(ctx, id, item)
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	return c.gateway.Delete(ctx, id)
}

// Evict drops the stored catalog so the next read goes to the origin.
func (c *Catalog) Evict() {
	c.log.Debug().Str("key", c.source.Key).Msg("Evicting stored catalog")
	c.store.Remove(c.source.Key)
}

// Age returns how long ago the stored catalog was written.
func (c *Catalog) Age() (time.Duration, bool) {
	return c.store.AgeOf(c.source.Key)
}
