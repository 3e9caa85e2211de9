package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/ericselin/artcache"
	"github.com/ericselin/artcache/cache"
	"github.com/ericselin/artcache/storefront"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	// CLI flags
	configFilenameFlag string
	verbosityTraceFlag bool
	logFilenameFlag    string
	overrides          Config

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "YAML config file")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stderr)")
	bindFlags(flag.CommandLine, &overrides)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] serve|list|get <id>|warm|evict\n", os.Args[0])
		flag.PrintDefaults()
	}

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// log to stderr so list and get output stays clean
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stderr})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	config, err := loadConfig(configFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}
	applyFlags(&config, overrides, flag.Visit)
	if config.Endpoint == "" {
		log.Fatal().Msg("Please specify endpoint")
	}

	storage, err := openStorage(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open storage")
	}
	if closer, ok := storage.(io.Closer); ok {
		defer closer.Close()
	}
	store := cache.NewStore(cache.Config{
		Storage:   storage,
		Namespace: config.Namespace,
		Logger:    &log.Logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"serve"}
	}
	switch args[0] {
	case "serve":
		err = serve(ctx, config, newCatalog(config, store))
	case "list":
		err = list(ctx, os.Stdout, newCatalog(config, store))
	case "get":
		if len(args) < 2 {
			flag.Usage()
			os.Exit(2)
		}
		err = get(ctx, os.Stdout, newCatalog(config, store), args[1])
	case "warm":
		err = warm(ctx, os.Stdout, config, store)
	case "evict":
		err = evict(os.Stdout, newCatalog(config, store))
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Msgf("Command %s failed", args[0])
		os.Exit(1)
	}
}

func openStorage(config Config) (cache.Storage, error) {
	if config.Provider == "memory" {
		return cache.NewMemStorage(), nil
	}
	dbFilename := config.DB
	if dbFilename == "memory" {
		dbFilename = ""
	}
	return cache.NewSQLiteStorage(dbFilename)
}

func httpClient(config Config) *http.Client {
	return &http.Client{Timeout: config.Timeout}
}

func newCatalog(config Config, store *cache.Store) *artcache.Catalog {
	return artcache.New(artcache.Config{
		Store:           store,
		Endpoint:        config.Endpoint,
		Key:             config.Key,
		Fallback:        config.Fallback,
		HTTPClient:      httpClient(config),
		RequestModifier: artcache.BearerToken(config.Token),
		MaxAge:          config.MaxAge,
		Logger:          &log.Logger,
	})
}

func serve(ctx context.Context, config Config, catalog *artcache.Catalog) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: storefront.New(storefront.Config{Catalog: catalog, Logger: &log.Logger}),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("Serving storefront on port %v from %s", config.Port, config.Endpoint)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func list(ctx context.Context, out io.Writer, catalog *artcache.Catalog) error {
	resolved := catalog.List(ctx)
	if resolved.Err != nil {
		log.Warn().Err(resolved.Err).Msg("Showing fallback catalog")
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tCATEGORY\tPRICE\n")
	for _, it := range resolved.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", it.ID, it.Title, it.Category, it.Price)
	}
	fmt.Fprintf(w, "\n%d artworks from %s\n", len(resolved.Items), resolved.Provenance)
	return w.Flush()
}

func get(ctx context.Context, out io.Writer, catalog *artcache.Catalog, id string) error {
	it, ok := catalog.Get(ctx, id)
	if !ok {
		return fmt.Errorf("artwork %s not found", id)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(it)
}

// warm resolves the main catalog and every configured source concurrently,
// leaving them in the store for the next reads.
func warm(ctx context.Context, out io.Writer, config Config, store *cache.Store) error {
	clientConfig := artcache.ClientConfig{
		Store:           store,
		HTTPClient:      httpClient(config),
		RequestModifier: artcache.BearerToken(config.Token),
		Logger:          &log.Logger,
	}
	resolver := artcache.NewResolver(artcache.ResolverConfig{
		Store:   store,
		Fetcher: artcache.NewFetchClient(clientConfig),
		MaxAge:  config.MaxAge,
		Logger:  &log.Logger,
	})

	sources := []artcache.Source{{Key: config.Key, Endpoint: config.Endpoint}}
	for _, src := range config.Sources {
		sources = append(sources, artcache.Source{Key: src.Key, Endpoint: src.Endpoint})
	}
	results := make([]artcache.ResolvedCatalog, len(sources))

	var g errgroup.Group
	g.SetLimit(4)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = resolver.Resolve(ctx, src)
			if results[i].Provenance == artcache.ProvenanceFallback {
				return fmt.Errorf("warm %s: %w", src.Key, results[i].Err)
			}
			return nil
		})
	}
	err := g.Wait()

	for i, src := range sources {
		fmt.Fprintf(out, "%s: %d artworks from %s\n", src.Key, len(results[i].Items), results[i].Provenance)
	}
	if v, ok := store.LastValidator(); ok {
		fmt.Fprintf(out, "last validator: %s\n", v)
	}
	return err
}

// evict drops the stored catalog so the next read goes to the origin.
func evict(out io.Writer, catalog *artcache.Catalog) error {
	age, ok := catalog.Age()
	if !ok {
		fmt.Fprintln(out, "nothing stored")
		return nil
	}
	catalog.Evict()
	fmt.Fprintf(out, "evicted catalog stored %s ago\n", age.Round(time.Second))
	return nil
}
