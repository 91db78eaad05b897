package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/tessera-chain/tessera/pkg/types"
)

// ErrNotFound is returned when a key doesn't exist in a column.
var ErrNotFound = errors.New("not found")

// Store is a transactional column store. It is safe for concurrent use; a
// Store handle may be shared freely across goroutines.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store at path and ensures all column buckets
// exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, col := range allColumns {
			if _, err := tx.CreateBucketIfNotExists([]byte(col)); err != nil {
				return fmt.Errorf("failed to create column %s: %w", col, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get reads a single key. For refcounted columns the reference count suffix
// is stripped from the returned value. Returns ErrNotFound when the key is
// absent.
func (s *Store) Get(col Column, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(col)).Get(key)
		if data == nil {
			return fmt.Errorf("%s %x: %w", col, key, ErrNotFound)
		}
		if col.refcounted() {
			payload, _, err := decodeRefcounted(data)
			if err != nil {
				return err
			}
			data = payload
		}
		// Copy since bolt data is only valid during the transaction.
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})
	return value, err
}

// NewTrieStorage binds the trie node store to a shard.
func NewTrieStorage(store *Store, shardUID types.ShardUID) *TrieStorage {
	return &TrieStorage{store: store, shardUID: shardUID}
}

// TrieStorage reads raw trie values for one shard out of the State column.
type TrieStorage struct {
	store    *Store
	shardUID types.ShardUID
}

// RetrieveRawBytes resolves a value hash to the stored bytes.
func (t *TrieStorage) RetrieveRawBytes(hash types.Hash) ([]byte, error) {
	return t.store.Get(ColState, types.EncodeTrieKey(t.shardUID, hash))
}

// Refcounted columns store payload ‖ refcount(i64 LE). Merging happens
// read-modify-write inside the commit transaction.

func encodeRefcounted(payload []byte, rc int64) []byte {
	out := make([]byte, len(payload)+8)
	copy(out, payload)
	binary.LittleEndian.PutUint64(out[len(payload):], uint64(rc))
	return out
}

func decodeRefcounted(data []byte) ([]byte, int64, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("%w: refcounted value shorter than its suffix", types.ErrDecode)
	}
	rc := int64(binary.LittleEndian.Uint64(data[len(data)-8:]))
	return data[:len(data)-8], rc, nil
}
