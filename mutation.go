package artcache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ericselin/artcache/cache"
	"github.com/ericselin/artcache/rfc9111"
	"github.com/rs/zerolog"
)

// Gateway performs catalog mutations.
// Every successful mutation evicts the whole stored catalog, so the next
// read goes to the origin and observes the write.
type Gateway struct {
	store         *cache.Store
	client        *http.Client
	modifyRequest func(*http.Request)
	log           zerolog.Logger
	key           string
	endpoint      string
}

// NewGateway creates a gateway for the catalog stored under key and served at endpoint.
// Items are created at the endpoint itself and addressed as endpoint/{id}.
func NewGateway(config ClientConfig, key, endpoint string) *Gateway {
	return &Gateway{
		store:         config.Store,
		client:        config.httpClient(),
		modifyRequest: config.RequestModifier,
		log:           config.logger("mutation").With().Str("key", key).Logger(),
		key:           key,
		endpoint:      strings.TrimRight(endpoint, "/"),
	}
}

func (g *Gateway) Create(ctx context.Context, item Item) (Item, error) {
	return g.mutate(ctx, "create", http.MethodPost, g.endpoint, "", &item)
}

func (g *Gateway) Update(ctx context.Context, id string, item Item) (Item, error) {
	id = strings.TrimSpace(id)
	if item.ID == "" {
		item.ID = id
	}
	return g.mutate(ctx, "update", http.MethodPut, g.itemURL(id), id, &item)
}

func (g *Gateway) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	_, err := g.mutate(ctx, "delete", http.MethodDelete, g.itemURL(id), id, nil)
	return err
}

func (g *Gateway) itemURL(id string) string {
	return g.endpoint + "/" + url.PathEscape(id)
}

// mutate sends the write and evicts the stored catalog on success.
// On failure the store is left untouched.
func (g *Gateway) mutate(ctx context.Context, op, method, target, id string, item *Item) (Item, error) {
	var body io.Reader
	if item != nil {
		b, err := json.Marshal(item)
		if err != nil {
			return Item{}, &MutationError{Op: op, ID: id, Err: fmt.Errorf("encode item: %w", err)}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Item{}, &MutationError{Op: op, ID: id, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if item != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.modifyRequest != nil {
		g.modifyRequest(req)
	}

	g.log.Debug().Str("method", method).Str("url", target).Msg("Sending mutation to origin")
	res, err := g.client.Do(req)
	if err != nil {
		g.log.Warn().Err(err).Str("op", op).Msg("Mutation failed")
		return Item{}, &MutationError{Op: op, ID: id, Err: err}
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		// the write itself may have happened, do not trust the stored catalog
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			g.store.Remove(g.key)
		}
		return Item{}, &MutationError{Op: op, ID: id, StatusCode: res.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		mErr := &MutationError{
			Op:         op,
			ID:         id,
			StatusCode: res.StatusCode,
			Message:    errorMessage(resBody),
			Err:        &StatusError{StatusCode: res.StatusCode},
		}
		g.log.Warn().Err(mErr).Str("op", op).Msg("Mutation rejected by origin")
		return Item{}, mErr
	}

	if rfc9111.MustInvalidate(req, res) {
		g.store.Remove(g.key)
		g.log.Trace().Str("op", op).Msg("Evicted stored catalog after mutation")
	}

	if item == nil {
		return Item{}, nil
	}
	if saved, ok := extractItem(resBody); ok {
		return saved, nil
	}
	return *item, nil
}
