// Package bbolt implements the ports.Storage interface using bbolt (embedded B+ tree).
// Every dictionary gets its own bucket under a top-level "dictionaries" bucket,
// holding the meta JSON, both FST blobs, the postings and the record ids.
// Writes are transactional: a crash mid-save leaves the previous dictionary intact.
package bbolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corey/tagger/internal/ports"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// ErrLocked is returned when another process holds the database lock past
// the open timeout.
var ErrLocked = errors.New("store is locked by another process")

// Bucket keys
var (
	bucketDictionaries = []byte("dictionaries")
	keyMeta            = []byte("meta")
	keyVocab           = []byte("vocab")
	keyPhrases         = []byte("phrases")
	keyPostings        = []byte("postings")
	keyRecords         = []byte("records")
)

// Store implements ports.Storage backed by bbolt.
type Store struct {
	db *bolt.DB
}

// DefaultTimeout bounds the wait for the file lock held by another process.
const DefaultTimeout = 1 * time.Second

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	return NewStoreWithTimeout(path, DefaultTimeout)
}

// NewStoreWithTimeout is NewStore with an explicit lock timeout. A
// non-positive timeout selects DefaultTimeout.
func NewStoreWithTimeout(path string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if errors.Is(err, berrors.ErrTimeout) {
		return nil, fmt.Errorf("bbolt open %s: %w (%w)", path, ErrLocked, err)
	}
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDictionary persists a compiled dictionary, replacing any previous one
// of the same name.
func (s *Store) SaveDictionary(d *ports.StoredDictionary) error {
	if d == nil {
		return fmt.Errorf("nil dictionary")
	}
	if d.Meta.Name == "" {
		return fmt.Errorf("dictionary has no name")
	}

	metaJSON, err := json.Marshal(d.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	postings, err := encodeBlobs(d.Postings)
	if err != nil {
		return fmt.Errorf("encode postings: %w", err)
	}
	records, err := encodeStrings(d.RecordIDs)
	if err != nil {
		return fmt.Errorf("encode record ids: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(bucketDictionaries)
		if err != nil {
			return err
		}
		name := []byte(d.Meta.Name)
		if err := root.DeleteBucket(name); err != nil && !errors.Is(err, berrors.ErrBucketNotFound) {
			return err
		}
		db, err := root.CreateBucket(name)
		if err != nil {
			return err
		}
		for _, kv := range []struct{ k, v []byte }{
			{keyMeta, metaJSON},
			{keyVocab, d.Vocab},
			{keyPhrases, d.Phrases},
			{keyPostings, postings},
			{keyRecords, records},
		} {
			if err := db.Put(kv.k, kv.v); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadDictionary retrieves a dictionary by name.
// Returns nil, nil if no dictionary of that name exists.
func (s *Store) LoadDictionary(name string) (*ports.StoredDictionary, error) {
	var metaJSON, vocab, phrases, postings, records []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketDictionaries)
		if root == nil {
			return nil
		}
		db := root.Bucket([]byte(name))
		if db == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		metaJSON = copyValue(db.Get(keyMeta))
		vocab = copyValue(db.Get(keyVocab))
		phrases = copyValue(db.Get(keyPhrases))
		postings = copyValue(db.Get(keyPostings))
		records = copyValue(db.Get(keyRecords))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if metaJSON == nil {
		return nil, nil
	}

	d := &ports.StoredDictionary{Vocab: vocab, Phrases: phrases}
	if err := json.Unmarshal(metaJSON, &d.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	if d.Postings, err = decodeBlobs(postings); err != nil {
		return nil, fmt.Errorf("decode postings: %w", err)
	}
	if d.RecordIDs, err = decodeStrings(records); err != nil {
		return nil, fmt.Errorf("decode record ids: %w", err)
	}
	return d, nil
}

// ListDictionaries returns the meta of every stored dictionary, ordered by name.
func (s *Store) ListDictionaries() ([]ports.DictionaryMeta, error) {
	var metas []ports.DictionaryMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketDictionaries)
		if root == nil {
			return nil
		}
		return root.ForEachBucket(func(k []byte) error {
			v := root.Bucket(k).Get(keyMeta)
			if v == nil {
				return nil
			}
			var m ports.DictionaryMeta
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("unmarshal meta %q: %w", k, err)
			}
			metas = append(metas, m)
			return nil
		})
	})
	return metas, err
}

// DeleteDictionary removes a dictionary.
// Idempotent: deleting a nonexistent dictionary is not an error.
func (s *Store) DeleteDictionary(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketDictionaries)
		if root == nil {
			return nil
		}
		if err := root.DeleteBucket([]byte(name)); errors.Is(err, berrors.ErrBucketNotFound) {
			return nil // idempotent
		} else {
			return err
		}
	})
}

func copyValue(v []byte) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}
