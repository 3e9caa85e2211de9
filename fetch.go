package artcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ericselin/artcache/cache"
	"github.com/ericselin/artcache/rfc9111"
	"github.com/rs/zerolog"
)

// ClientConfig is shared by the components talking to the catalog origin.
type ClientConfig struct {
	// Store for conditional request results. Required.
	Store *cache.Store
	// Client used for origin requests. http.DefaultClient is used if nil.
	HTTPClient *http.Client
	// Optional function for mutating every origin request.
	// Use it e.g. for attaching credentials, see BearerToken.
	RequestModifier func(*http.Request)
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

func (c ClientConfig) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c ClientConfig) logger(component string) zerolog.Logger {
	var logger zerolog.Logger
	if c.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *c.Logger
	}
	return logger.With().Str("component", component).Logger()
}

// BearerToken returns a request modifier attaching the given credential.
func BearerToken(token string) func(*http.Request) {
	return func(r *http.Request) {
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// FetchClient performs conditional GETs and folds 304 and error outcomes into stored data.
type FetchClient struct {
	store         *cache.Store
	client        *http.Client
	modifyRequest func(*http.Request)
	log           zerolog.Logger
}

func NewFetchClient(config ClientConfig) *FetchClient {
	return &FetchClient{
		store:         config.Store,
		client:        config.httpClient(),
		modifyRequest: config.RequestModifier,
		log:           config.logger("fetch"),
	}
}

// Fetch returns the payload of the resource at endpoint, stored under key.
//
// A 2xx response is returned as is, and stored if it carries an entity tag.
// A 304 response returns the stored payload, or ErrProtocolViolation if there
// is none. Any other outcome returns the stored payload if there is one,
// otherwise a *NetworkError.
func (c *FetchClient) Fetch(ctx context.Context, key, endpoint string) ([]byte, error) {
	result, err := c.fetch(ctx, key, endpoint)
	return result.data, err
}

// fetchResult describes the payload a fetch produced.
type fetchResult struct {
	data []byte
	// entity tag of data, if known
	validator string
	// true if this fetch wrote the stored entry
	stored bool
}

func (c *FetchClient) fetch(ctx context.Context, key, endpoint string) (fetchResult, error) {
	logger := c.log.With().Str("key", key).Str("endpoint", endpoint).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fetchResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.modifyRequest != nil {
		c.modifyRequest(req)
	}
	etag, conditional := c.store.GetValidator(key)
	rfc9111.AddValidationHeaders(req, etag)

	logger.Debug().Bool("conditional", conditional).Str("etag", etag).Msg("Requesting catalog from origin")
	res, err := c.client.Do(req)
	if err != nil {
		return c.degrade(key, &NetworkError{Endpoint: endpoint, Err: err}, logger)
	}
	defer res.Body.Close()

	switch rfc9111.HandleValidationResponse(res) {
	case rfc9111.ValidationNotModified:
		if e, ok := c.store.Get(key); ok {
			logger.Trace().Str("etag", e.Validator).Msg("Origin confirmed stored payload")
			return fetchResult{data: e.Data, validator: e.Validator}, nil
		}
		logger.Error().Msg("Origin answered not modified but nothing is stored")
		return fetchResult{}, fmt.Errorf("%w: %s", ErrProtocolViolation, key)

	case rfc9111.ValidationFull:
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return c.degrade(key, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}, logger)
		}
		if !json.Valid(body) {
			return c.degrade(key, &NetworkError{Endpoint: endpoint, Err: ErrInvalidPayload}, logger)
		}
		result := fetchResult{data: body, validator: res.Header.Get("ETag")}
		if result.validator == "" {
			logger.Trace().Msg("Response without validator, not storing")
			return result, nil
		}
		c.store.Set(key, body, result.validator)
		// the store fails open, check that the write happened
		if e, ok := c.store.Get(key); ok && e.Validator == result.validator && bytes.Equal(e.Data, body) {
			result.stored = true
		}
		return result, nil

	default:
		_, _ = io.Copy(io.Discard, res.Body)
		return c.degrade(key, &NetworkError{Endpoint: endpoint, Err: &StatusError{StatusCode: res.StatusCode}}, logger)
	}
}

// degrade serves the stored payload in place of a failed origin request.
func (c *FetchClient) degrade(key string, err *NetworkError, logger zerolog.Logger) (fetchResult, error) {
	if e, ok := c.store.Get(key); ok {
		logger.Warn().Err(err).Msg("Origin failed, serving stored payload")
		return fetchResult{data: e.Data, validator: e.Validator}, nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		logger.Warn().Int("status", statusErr.StatusCode).Msg("Origin failed and nothing is stored")
	} else {
		logger.Warn().Err(err.Err).Msg("Origin unreachable and nothing is stored")
	}
	return fetchResult{}, err
}
