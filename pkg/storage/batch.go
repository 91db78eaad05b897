package storage

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

type opKind int

const (
	opSet opKind = iota
	opDelete
	opIncRefcount
)

type batchOp struct {
	kind  opKind
	col   Column
	key   []byte
	value []byte
}

// Batch buffers writes and applies them in a single atomic transaction.
// A batch that is never committed has no effect.
type Batch struct {
	store *Store
	ops   []batchOp
}

// NewBatch starts an empty write batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s}
}

// Set buffers a point write. Key and value are copied.
func (b *Batch) Set(col Column, key, value []byte) {
	b.ops = append(b.ops, batchOp{
		kind:  opSet,
		col:   col,
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Delete buffers a point delete.
func (b *Batch) Delete(col Column, key []byte) {
	b.ops = append(b.ops, batchOp{
		kind: opDelete,
		col:  col,
		key:  append([]byte(nil), key...),
	})
}

// IncrementRefcount buffers a reference count increment on a refcounted
// column. Every increment stores value with the count raised by one; the
// first increment starts the count at one.
func (b *Batch) IncrementRefcount(col Column, key, value []byte) {
	b.ops = append(b.ops, batchOp{
		kind:  opIncRefcount,
		col:   col,
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Len returns the number of buffered operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Commit applies every buffered operation in one transaction. Either all of
// them persist or none do.
func (b *Batch) Commit() error {
	if len(b.ops) == 0 {
		return nil
	}
	err := b.store.db.Update(func(tx *bolt.Tx) error {
		for _, op := range b.ops {
			bucket := tx.Bucket([]byte(op.col))
			switch op.kind {
			case opSet:
				if err := bucket.Put(op.key, op.value); err != nil {
					return err
				}
			case opDelete:
				if err := bucket.Delete(op.key); err != nil {
					return err
				}
			case opIncRefcount:
				if !op.col.refcounted() {
					return fmt.Errorf("column %s is not refcounted", op.col)
				}
				rc := int64(0)
				if existing := bucket.Get(op.key); existing != nil {
					_, existingRC, err := decodeRefcounted(existing)
					if err != nil {
						return err
					}
					rc = existingRC
				}
				if err := bucket.Put(op.key, encodeRefcounted(op.value, rc+1)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	b.ops = b.ops[:0]
	return nil
}
