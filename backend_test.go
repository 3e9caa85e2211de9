package artcache

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ericselin/artcache/cache"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// testBackend is a catalog origin honoring If-None-Match.
type testBackend struct {
	mu       sync.Mutex
	items    []Item
	version  int
	envelope string
	// respond with this status to every GET, if set
	getStatus int
	// do not send an ETag
	noETag bool
	// reject mutations with this status, if set
	rejectStatus int

	gets        int
	conditional int
	lastAuth    string

	server *httptest.Server
}

func newTestBackend(t *testing.T, items ...Item) *testBackend {
	b := &testBackend{items: append([]Item(nil), items...), version: 1, envelope: "%s"}
	r := chi.NewRouter()
	r.Get("/artworks", b.list)
	r.Post("/artworks", b.create)
	r.Put("/artworks/{id}", b.update)
	r.Delete("/artworks/{id}", b.delete)
	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

func (b *testBackend) endpoint() string {
	return b.server.URL + "/artworks"
}

func (b *testBackend) etag() string {
	return fmt.Sprintf(`"v%d"`, b.version)
}

func (b *testBackend) getCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

func (b *testBackend) conditionalCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conditional
}

func (b *testBackend) auth() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

func (b *testBackend) list(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	b.lastAuth = r.Header.Get("Authorization")
	if r.Header.Get("If-None-Match") != "" {
		b.conditional++
	}
	if b.getStatus != 0 {
		w.WriteHeader(b.getStatus)
		return
	}
	if match := r.Header.Get("If-None-Match"); match != "" && match == b.etag() {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if !b.noETag {
		w.Header().Set("ETag", b.etag())
	}
	list, _ := json.Marshal(b.items)
	w.Header().Set("Content-Type", "application/json")
	if strings.Contains(b.envelope, "%s") {
		fmt.Fprintf(w, b.envelope, list)
	} else {
		io.WriteString(w, b.envelope)
	}
}

func (b *testBackend) reject(w http.ResponseWriter) bool {
	if b.rejectStatus == 0 {
		return false
	}
	w.WriteHeader(b.rejectStatus)
	w.Write([]byte(`{"success":false,"message":"title is required"}`))
	return true
}

func (b *testBackend) create(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reject(w) {
		return
	}
	var it Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	it.ID = fmt.Sprintf("%d", 100+len(b.items))
	b.items = append(b.items, it)
	b.version++
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": it})
}

func (b *testBackend) update(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reject(w) {
		return
	}
	var it Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	for i := range b.items {
		if b.items[i].ID == id {
			it.ID = id
			b.items[i] = it
			b.version++
			json.NewEncoder(w).Encode(it)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":{"message":"artwork not found"}}`))
}

func (b *testBackend) delete(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reject(w) {
		return
	}
	id := chi.URLParam(r, "id")
	for i := range b.items {
		if b.items[i].ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			b.version++
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func nopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func newTestStore() (*cache.Store, *testClock) {
	clock := &testClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	return cache.NewStore(cache.Config{Logger: nopLogger(), Now: clock.now}), clock
}

var twoItems = []Item{
	{ID: "1", Title: "Harbor", Price: 100, Category: "Painting", Image: "/a.jpg", Description: "Oil"},
	{ID: "2", Title: "Forms", Price: 200, Category: "Sculpture", Image: "/b.jpg", Description: "Clay"},
}
