// Package storefront serves the resolved artwork catalog to the storefront views.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ericselin/artcache"
	"github.com/ericselin/artcache/rfc9211"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Catalog is the read and write surface the views need.
// It is implemented by *artcache.Catalog.
type Catalog interface {
	List(ctx context.Context) artcache.ResolvedCatalog
	Create(ctx context.Context, item artcache.Item) (artcache.Item, error)
	Update(ctx context.Context, id string, item artcache.Item) (artcache.Item, error)
	Delete(ctx context.Context, id string) error
	// Age of the stored snapshot.
	Age() (time.Duration, bool)
}

type Config struct {
	Catalog Catalog
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

type server struct {
	catalog Catalog
	log     zerolog.Logger
}

type listResponse struct {
	Items      []artcache.Item     `json:"items"`
	Provenance artcache.Provenance `json:"provenance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New returns the storefront API handler.
func New(config Config) http.Handler {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	s := &server{
		catalog: config.Catalog,
		log:     logger.With().Str("component", "storefront").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Sending response to client")
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/categories", s.categories)
	r.Route("/artworks", func(r chi.Router) {
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Get("/{id}", s.get)
		r.Put("/{id}", s.update)
		r.Delete("/{id}", s.delete)
	})
	return r
}

func (s *server) list(w http.ResponseWriter, r *http.Request) {
	resolved := s.catalog.List(r.Context())
	s.setCacheHeaders(w, resolved)
	writeJSON(w, http.StatusOK, listResponse{
		Items:      resolved.InCategory(r.URL.Query().Get("category")),
		Provenance: resolved.Provenance,
	})
}

func (s *server) get(w http.ResponseWriter, r *http.Request) {
	resolved := s.catalog.List(r.Context())
	s.setCacheHeaders(w, resolved)
	it, ok := resolved.Find(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "artwork not found"})
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *server) categories(w http.ResponseWriter, r *http.Request) {
	resolved := s.catalog.List(r.Context())
	s.setCacheHeaders(w, resolved)
	writeJSON(w, http.StatusOK, map[string][]string{"categories": resolved.Categories()})
}

func (s *server) create(w http.ResponseWriter, r *http.Request) {
	setMutationStatus(w)
	var it artcache.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid artwork"})
		return
	}
	created, err := s.catalog.Create(r.Context(), it)
	if err != nil {
		s.writeMutationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) update(w http.ResponseWriter, r *http.Request) {
	setMutationStatus(w)
	var it artcache.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid artwork"})
		return
	}
	updated, err := s.catalog.Update(r.Context(), chi.URLParam(r, "id"), it)
	if err != nil {
		s.writeMutationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) delete(w http.ResponseWriter, r *http.Request) {
	setMutationStatus(w)
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeMutationError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeMutationError reports a failed write to the client.
// Rejections by the origin keep their status, anything else is a bad gateway.
func (s *server) writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Warn().Err(err).Msg("Mutation failed")
	status := http.StatusBadGateway
	message := "could not reach the catalog"
	var mErr *artcache.MutationError
	if errors.As(err, &mErr) && mErr.StatusCode >= 400 && mErr.StatusCode < 500 {
		status = mErr.StatusCode
		message = mErr.Message
		if message == "" {
			message = http.StatusText(status)
		}
	}
	writeJSON(w, status, errorResponse{Error: message})
}

// cacheStatus describes how the catalog was obtained, see RFC 9211.
func cacheStatus(resolved artcache.ResolvedCatalog) rfc9211.CacheStatus {
	cs := rfc9211.CacheStatus{}
	switch resolved.Provenance {
	case artcache.ProvenanceCache:
		cs.Hit()
	case artcache.ProvenanceNetwork:
		cs.Forward(rfc9211.FwdReasonUriMiss)
		cs.Stored = resolved.Stored
	default:
		cs.Forward(rfc9211.FwdReasonMiss)
		cs.Detail = string(resolved.Provenance)
	}
	return cs
}

// setCacheHeaders sets Cache-Status, and Age for answers from the store.
func (s *server) setCacheHeaders(w http.ResponseWriter, resolved artcache.ResolvedCatalog) {
	w.Header().Add("Cache-Status", cacheStatus(resolved).String())
	if resolved.Provenance != artcache.ProvenanceCache {
		return
	}
	if age, ok := s.catalog.Age(); ok {
		w.Header().Set("Age", strconv.Itoa(int(age.Seconds())))
	}
}

// setMutationStatus marks writes as always forwarded to the origin.
func setMutationStatus(w http.ResponseWriter) {
	cs := rfc9211.CacheStatus{}
	cs.Forward(rfc9211.FwdReasonMethod)
	w.Header().Add("Cache-Status", cs.String())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
