// Package cache keeps the last known copy of conditionally fetched resources.
//
// A Store holds one Entry per resource key: the response payload together
// with the entity tag the origin sent for it. Every failure of the underlying
// Storage is logged and treated as a miss, so a broken cache degrades the
// caller to network-only behavior instead of failing the read.
package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one cached resource snapshot.
type Entry struct {
	Key       string
	Data      []byte
	Validator string
	StoredAt  time.Time
}

// record is the serialized form of an Entry.
type record struct {
	Data      []byte    `json:"data"`
	Validator string    `json:"validator"`
	StoredAt  time.Time `json:"storedAt"`
}

type Config struct {
	// Backend the records are persisted in. A MemStorage is used if nil.
	Storage Storage
	// Namespace prefixed to all record keys. DefaultNamespace is used if empty.
	Namespace string
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Clock used for timestamps. time.Now is used if nil.
	Now func() time.Time
}

type Store struct {
	storage Storage
	keyer   Keyer
	log     zerolog.Logger
	now     func() time.Time
	// serializes the multi-record writes of Set and Remove
	writeMutex *sync.Mutex
}

func NewStore(config Config) *Store {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	s := &Store{
		storage: config.Storage,
		keyer:   NewKeyer(config.Namespace),
		now:        config.Now,
		writeMutex: &sync.Mutex{},
	}
	if s.storage == nil {
		s.storage = NewMemStorage()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.log = logger.With().
		Str("component", "cache").
		Str("namespace", s.keyer.Namespace).
		Logger()
	return s
}

// Set stores data and its validator under key.
// Data without a validator (or the other way around) is not stored.
// Serialization and storage failures are logged and otherwise ignored.
func (s *Store) Set(key string, data []byte, validator string) {
	if len(data) == 0 || validator == "" {
		s.log.Trace().Str("key", key).Msg("Not storing entry without data and validator")
		return
	}
	if !json.Valid(data) {
		s.log.Warn().Str("key", key).Msg("Not storing payload that is not valid JSON")
		return
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	storedAt := s.now()
	// never move the timestamp backwards, even if the clock does
	if prev, ok, _ := s.load(key); ok && prev.StoredAt.After(storedAt) {
		storedAt = prev.StoredAt
	}
	b, err := json.Marshal(record{
		Data:      data,
		Validator: validator,
		StoredAt:  storedAt,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Could not serialize cache entry")
		return
	}
	if err := s.storage.Put(s.keyer.EntryKey(key), b); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Could not write to cache")
		return
	}
	// mirror of the validator in the entry record, which stays authoritative
	if err := s.storage.Put(s.keyer.ValidatorKey(key), []byte(validator)); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Could not write validator")
	}
	if err := s.storage.Put(s.keyer.LastValidatorKey(), []byte(validator)); err != nil {
		s.log.Warn().Err(err).Msg("Could not write last validator")
	}
	s.log.Trace().Str("key", key).Str("etag", validator).Time("storedAt", storedAt).Msg("Cache write")
}

// Get returns the entry stored under key.
// The boolean is false if there is no usable entry.
func (s *Store) Get(key string) (Entry, bool) {
	e, ok, corrupt := s.load(key)
	if corrupt {
		// in case we have a corrupted entry, we delete it and report a miss
		s.Remove(key)
	}
	return e, ok
}

// load reads and decodes the entry record for key.
// corrupt is true if a record exists but cannot be decoded.
func (s *Store) load(key string) (e Entry, ok bool, corrupt bool) {
	b, ok, err := s.storage.Get(s.keyer.EntryKey(key))
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Could not read from cache")
		return Entry{}, false, false
	}
	if !ok {
		return Entry{}, false, false
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Could not decode cache entry")
		return Entry{}, false, true
	}
	if len(rec.Data) == 0 || rec.Validator == "" {
		return Entry{}, false, false
	}
	return Entry{
		Key:       key,
		Data:      rec.Data,
		Validator: rec.Validator,
		StoredAt:  rec.StoredAt,
	}, true, false
}

// GetValidator returns the validator to send when revalidating key.
// It is always the one stored together with the data it validates.
func (s *Store) GetValidator(key string) (string, bool) {
	e, ok := s.Get(key)
	if !ok {
		return "", false
	}
	return e.Validator, true
}

// LastValidator returns the most recently stored validator for any key.
func (s *Store) LastValidator() (string, bool) {
	b, ok, err := s.storage.Get(s.keyer.LastValidatorKey())
	if err != nil {
		s.log.Warn().Err(err).Msg("Could not read last validator")
		return "", false
	}
	if !ok || len(b) == 0 {
		return "", false
	}
	return string(b), true
}

// Remove deletes the entry for key. Removing a missing key is a no-op.
func (s *Store) Remove(key string) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	prev, _, _ := s.load(key)
	if prev.Validator == "" {
		// the entry may be unreadable, its mirror tells which validator it had
		if b, ok, err := s.storage.Get(s.keyer.ValidatorKey(key)); err == nil && ok {
			prev.Validator = string(b)
		}
	}
	if err := s.storage.Purge(s.keyer.EntryKey(key)); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Could not purge cache entry")
	}
	if err := s.storage.Purge(s.keyer.ValidatorKey(key)); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Could not purge validator")
	}
	if prev.Validator != "" {
		if last, ok := s.LastValidator(); ok && last == prev.Validator {
			if err := s.storage.Purge(s.keyer.LastValidatorKey()); err != nil {
				s.log.Warn().Err(err).Msg("Could not purge last validator")
			}
		}
	}
	s.log.Trace().Str("key", key).Msg("Cache purge")
}

// Has checks if there is a usable entry for key.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// AgeOf returns how long ago the entry for key was stored.
func (s *Store) AgeOf(key string) (time.Duration, bool) {
	e, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	return s.now().Sub(e.StoredAt), true
}
