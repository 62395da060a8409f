// Package store persists fetched rankings in BoltDB.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/osa030/19wave/internal/domain/trend"
)

const dbFile = "19wave.db"

// Bucket names
var (
	bucketRankings = []byte("rankings")
	bucketContexts = []byte("contexts")
)

// Store implements trendcache.Store using BoltDB.
// With an empty directory it keeps records in memory only.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// Open opens (creating if needed) the store under dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return &Store{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache dir %s", dir)
	}

	path := filepath.Join(dir, dbFile)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bolt db %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRankings, bucketContexts} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create buckets")
	}

	zlog.Debug().Msgf("store: opened %s", path)
	return &Store{db: db, cache: make(map[string][]byte)}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Persistent reports whether records survive a restart.
func (s *Store) Persistent() bool {
	return s.db != nil
}

// LoadRanking returns the stored record for period.
func (s *Store) LoadRanking(period trend.Period) (trend.Record, bool) {
	var rec trend.Record
	ok := s.get(bucketRankings, period.String(), &rec)
	return rec, ok
}

// SaveRanking stores rec for period, replacing any previous record.
func (s *Store) SaveRanking(period trend.Period, rec trend.Record) error {
	rec.Period = period
	return s.set(bucketRankings, period.String(), rec)
}

// DeleteRanking removes the record for period.
func (s *Store) DeleteRanking(period trend.Period) error {
	return s.delete(bucketRankings, period.String())
}

// LoadContext returns the stored track list for a context key (genre).
func (s *Store) LoadContext(key string) (trend.Record, bool) {
	var rec trend.Record
	ok := s.get(bucketContexts, key, &rec)
	return rec, ok
}

// SaveContext stores the track list for a context key.
func (s *Store) SaveContext(key string, rec trend.Record) error {
	return s.set(bucketContexts, key, rec)
}

func (s *Store) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		zlog.Warn().Msgf("store: read %s failed: %v", cacheKey, err)
		return false
	}
	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *Store) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to encode record")
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
	return errors.Wrapf(err, "failed to write %s", cacheKey)
}

func (s *Store) delete(bucket []byte, key string) error {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
	return errors.Wrapf(err, "failed to delete %s", cacheKey)
}
