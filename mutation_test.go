package artcache

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestUpdateForcesNetworkRead(t *testing.T) {
	backend := newTestBackend(t, twoItems...)
	catalog := New(Config{Endpoint: backend.endpoint(), Logger: nopLogger()})
	ctx := context.Background()
	catalog.List(ctx)
	if resolved := catalog.List(ctx); resolved.Provenance != ProvenanceCache {
		t.Fatalf("Second read provenance %s", resolved.Provenance)
	}

	updated, err := catalog.Update(ctx, "1", Item{Title: "Harbor (reframed)", Price: 150})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != "1" || updated.Title != "Harbor (reframed)" {
		t.Fatalf("Updated item %+v", updated)
	}

	resolved := catalog.List(ctx)
	if resolved.Provenance == ProvenanceCache {
		t.Fatal("Read after update served from cache")
	}
	if n := backend.getCount(); n != 2 {
		t.Fatalf("Origin called %d times", n)
	}
	if it, _ := resolved.Find("1"); it.Price != 150 {
		t.Fatalf("Read after update returned %+v", it)
	}
}

func TestCreateReturnsSavedItem(t *testing.T) {
	backend := newTestBackend(t, twoItems...)
	store, _ := newTestStore()
	store.Set("catalog", []byte(`[]`), `"v0"`)
	gateway := NewGateway(ClientConfig{Store: store, Logger: nopLogger()}, "catalog", backend.endpoint()+"/")

	created, err := gateway.Create(context.Background(), Item{Title: "New", Price: 10, Category: "Print"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "102" || created.Title != "New" {
		t.Fatalf("Created %+v", created)
	}
	if store.Has("catalog") {
		t.Fatal("Catalog not evicted after create")
	}
}

func TestMutationFailureKeepsCache(t *testing.T) {
	backend := newTestBackend(t, twoItems...)
	backend.rejectStatus = http.StatusUnprocessableEntity
	store, _ := newTestStore()
	store.Set("catalog", []byte(`[]`), `"v0"`)
	gateway := NewGateway(ClientConfig{Store: store, Logger: nopLogger()}, "catalog", backend.endpoint())

	_, err := gateway.Create(context.Background(), Item{})

	var mErr *MutationError
	if !errors.As(err, &mErr) {
		t.Fatalf("Error is %v", err)
	}
	if mErr.Op != "create" || mErr.StatusCode != http.StatusUnprocessableEntity || mErr.Message != "title is required" {
		t.Fatalf("Mutation error %+v", mErr)
	}
	if !store.Has("catalog") {
		t.Fatal("Catalog evicted after failed mutation")
	}
}

func TestUpdateMissingItem(t *testing.T) {
	backend := newTestBackend(t, twoItems...)
	store, _ := newTestStore()
	store.Set("catalog", []byte(`[]`), `"v0"`)
	gateway := NewGateway(ClientConfig{Store: store, Logger: nopLogger()}, "catalog", backend.endpoint())

	_, err := gateway.Update(context.Background(), "404", Item{Title: "Nope"})

	var mErr *MutationError
	if !errors.As(err, &mErr) || mErr.StatusCode != http.StatusNotFound || mErr.Message != "artwork not found" {
		t.Fatalf("Error is %v", err)
	}
	if !store.Has("catalog") {
		t.Fatal("Catalog evicted after failed update")
	}
}

func TestDeleteEvicts(t *testing.T) {
	backend := newTestBackend(t, twoItems...)
	store, _ := newTestStore()
	store.Set("catalog", []byte(`[]`), `"v0"`)
	gateway := NewGateway(ClientConfig{Store: store, Logger: nopLogger()}, "catalog", backend.endpoint())

	if err := gateway.Delete(context.Background(), "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Has("catalog") {
		t.Fatal("Catalog not evicted after delete")
	}
}

func TestMutationUnreachableOrigin(t *testing.T) {
	backend := newTestBackend(t, twoItems...)
	endpoint := backend.endpoint()
	backend.server.Close()
	store, _ := newTestStore()
	store.Set("catalog", []byte(`[]`), `"v0"`)
	gateway := NewGateway(ClientConfig{Store: store, Logger: nopLogger()}, "catalog", endpoint)

	err := gateway.Delete(context.Background(), "1")

	var mErr *MutationError
	if !errors.As(err, &mErr) || mErr.StatusCode != 0 || mErr.Err == nil {
		t.Fatalf("Error is %v", err)
	}
	if !store.Has("catalog") {
		t.Fatal("Catalog evicted after failed delete")
	}
}
