package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fieldtone/fieldtone/internal/domain"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketMeta      = []byte("meta")
	bucketSelection = []byte("selection")
	bucketContent   = []byte("content")
	bucketDocs      = []byte("docs")
)

const (
	keyDeviceID    = "device_id"
	keyContentInfo = "files_info"

	// docVersion prefixes every docs key so a format change invalidates
	// old cached documents instead of misparsing them.
	docVersion = "v1"
)

// BoltStore implements domain.Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// New opens (or creates) the database under dataDir. An empty dataDir gives
// a memory-only store with no persistence, used by tests.
func New(dataDir string) (*BoltStore, error) {
	if dataDir == "" {
		return &BoltStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "fieldtone.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketMeta, bucketSelection, bucketContent, bucketDocs} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, cache: make(map[string][]byte)}, nil
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *BoltStore) get(bucket []byte, key string, dest any) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	// Read from BoltDB
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
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

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *BoltStore) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	// Update memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	// Write to BoltDB
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

// === Device identity ===

// DeviceID returns the stable device identifier, generating one on first
// call.
func (s *BoltStore) DeviceID() (string, error) {
	var id string
	if s.get(bucketMeta, keyDeviceID, &id) && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.set(bucketMeta, keyDeviceID, id); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}

// === Selection state ===

// SaveSelection writes one entry per option id. Entries saved earlier but
// absent from the map stay in place, so a later restore keeps the recorded
// state of options the current catalog does not mention.
func (s *BoltStore) SaveSelection(state map[int]bool) error {
	for id, on := range state {
		if err := s.set(bucketSelection, strconv.Itoa(id), on); err != nil {
			return err
		}
	}
	return nil
}

// LoadSelection returns every recorded option entry. A store with no saved
// selection returns an empty map.
func (s *BoltStore) LoadSelection() (map[int]bool, error) {
	out := make(map[int]bool)
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		prefix := string(bucketSelection) + ":"
		for k, data := range s.cache {
			if len(k) <= len(prefix) || k[:len(prefix)] != prefix {
				continue
			}
			id, err := strconv.Atoi(k[len(prefix):])
			if err != nil {
				continue
			}
			var on bool
			if json.Unmarshal(data, &on) == nil {
				out[id] = on
			}
		}
		return out, nil
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSelection)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			id, err := strconv.Atoi(string(k))
			if err != nil {
				return nil
			}
			var on bool
			if json.Unmarshal(v, &on) == nil {
				out[id] = on
			}
			return nil
		})
	})
	return out, err
}

// === Content bundle bookkeeping ===

func (s *BoltStore) ContentInfo() (domain.ContentFilesInfo, bool, error) {
	var info domain.ContentFilesInfo
	ok := s.get(bucketContent, keyContentInfo, &info)
	return info, ok, nil
}

func (s *BoltStore) SaveContentInfo(info domain.ContentFilesInfo) error {
	return s.set(bucketContent, keyContentInfo, info)
}

// === Namespaced documents (cached server responses) ===

func docKey(ns, key string) string {
	return docVersion + ":" + ns + ":" + key
}

func (s *BoltStore) GetDoc(ns, key string, v any) error {
	if !s.get(bucketDocs, docKey(ns, key), v) {
		return fmt.Errorf("doc %s/%s: %w", ns, key, domain.ErrNotFound)
	}
	return nil
}

func (s *BoltStore) PutDoc(ns, key string, v any) error {
	return s.set(bucketDocs, docKey(ns, key), v)
}

// IsNotFound reports whether err is the store's missing-key error.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
