package storage

import (
	"bytes"

	bolt "go.etcd.io/bbolt"
)

// iterPageSize bounds how many entries one read transaction loads. Iterators
// page through short-lived transactions so that a long scan never pins a
// database snapshot while other writers commit.
const iterPageSize = 1024

type entry struct {
	key   []byte
	value []byte
}

// Iterator walks a column in ascending byte-lexicographic key order.
//
// Usage follows the conventional contract:
//
//	it := store.Iter(col)
//	defer it.Release()
//	for it.Next() {
//	    _ = it.Key()
//	    _ = it.Value()
//	}
//	if err := it.Error(); err != nil { ... }
type Iterator struct {
	store *Store
	col   Column
	upper []byte // exclusive, nil = open

	seek []byte // next key position, nil = start of column
	page []entry
	idx  int
	done bool
	err  error
}

// Iter iterates the whole column.
func (s *Store) Iter(col Column) *Iterator {
	return s.IterRange(col, nil, nil)
}

// IterRange iterates keys in [lower, upper). Nil bounds are open.
func (s *Store) IterRange(col Column, lower, upper []byte) *Iterator {
	it := &Iterator{store: s, col: col, upper: upper, idx: -1}
	if lower != nil {
		it.seek = append([]byte(nil), lower...)
	}
	if upper != nil {
		it.upper = append([]byte(nil), upper...)
	}
	return it
}

// Next advances the iterator. It returns false when the range is exhausted
// or a storage error occurred; check Error afterwards.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.idx++
	if it.idx < len(it.page) {
		return true
	}
	if it.done {
		return false
	}
	if err := it.loadPage(); err != nil {
		it.err = err
		return false
	}
	it.idx = 0
	return len(it.page) > 0
}

func (it *Iterator) loadPage() error {
	it.page = it.page[:0]
	return it.store.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(it.col)).Cursor()
		var k, v []byte
		if it.seek == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(it.seek)
		}
		for ; k != nil; k, v = c.Next() {
			if it.upper != nil && bytes.Compare(k, it.upper) >= 0 {
				break
			}
			if it.col.refcounted() {
				payload, _, err := decodeRefcounted(v)
				if err != nil {
					return err
				}
				v = payload
			}
			it.page = append(it.page, entry{
				key:   append([]byte(nil), k...),
				value: append([]byte(nil), v...),
			})
			if len(it.page) == iterPageSize {
				// Resume just past the last loaded key.
				it.seek = append(append([]byte(nil), k...), 0x00)
				return nil
			}
		}
		it.done = true
		return nil
	})
}

// Key returns the current key. Valid until the next call to Next.
func (it *Iterator) Key() []byte {
	return it.page[it.idx].key
}

// Value returns the current value. Valid until the next call to Next.
func (it *Iterator) Value() []byte {
	return it.page[it.idx].value
}

// Error returns the first storage error hit while iterating, if any.
func (it *Iterator) Error() error {
	return it.err
}

// Release frees the iterator's buffered page. The iterator must not be used
// afterwards.
func (it *Iterator) Release() {
	it.page = nil
	it.done = true
}
