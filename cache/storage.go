package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// Storage is the string-keyed record store behind a Store.
// It knows nothing about validators or timestamps, it only persists bytes.
// In a browser this is the origin-scoped storage, here it is either a map or
// an SQLite table.
//
// Implementations must be thread-safe!
type Storage interface {
	// Get returns the record stored under the given key.
	// The boolean is false if there is no such record.
	Get(key string) ([]byte, bool, error)
	// Put stores the record under the given key, replacing any previous one.
	Put(key string, value []byte) error
	// Purge removes the record for the given key.
	// Purging a missing key is not an error.
	Purge(key string) error
}

type MemStorage struct {
	mutex *sync.RWMutex
	db    map[string][]byte
}

func NewMemStorage() MemStorage {
	return MemStorage{
		mutex: &sync.RWMutex{},
		db:    make(map[string][]byte),
	}
}

func (m MemStorage) Get(key string) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	value, ok := m.db[key]
	if !ok {
		return nil, false, nil
	}
	// hand out a copy so callers cannot mutate the stored record
	return append([]byte(nil), value...), true, nil
}

func (m MemStorage) Put(key string, value []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.db[key] = append([]byte(nil), value...)
	return nil
}

func (m MemStorage) Purge(key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.db, key)
	return nil
}

type SQLiteStorage struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStorage opens the storage with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteStorage(filename string) (SQLiteStorage, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return SQLiteStorage{}, fmt.Errorf("open sqlite db: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		value BLOB
	)`)
	if err != nil {
		_ = db.Close()
		return SQLiteStorage{}, fmt.Errorf("create records table: %w", err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		_ = db.Close()
		return SQLiteStorage{}, fmt.Errorf("enable wal: %w", err)
	}
	return SQLiteStorage{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

// Close releases the underlying database handle.
func (s SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s SQLiteStorage) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM records WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get record: %w", err)
	}
	return value, true, nil
}

func (s SQLiteStorage) Put(key string, value []byte) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("INSERT OR REPLACE INTO records (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

func (s SQLiteStorage) Purge(key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM records WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("purge record: %w", err)
	}
	return nil
}
