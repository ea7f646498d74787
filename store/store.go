// Package store keeps worker state in a durable key-value file.
// Every Update commits atomically and every View reads the latest committed write.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"uk.ac.bris.cs/lockstep/gol"
)

var ErrNotFound = errors.New("key not found")

type Store struct {
	db *bolt.DB
}

// Transaction over named buckets
type Tx struct {
	tx *bolt.Tx
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

func (store *Store) Path() string {
	return store.db.Path()
}

// Run fn in a read-write transaction that commits if fn returns nil
func (store *Store) Update(fn func(tx *Tx) error) error {
	return store.db.Update(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// Run fn in a read-only transaction
func (store *Store) View(fn func(tx *Tx) error) error {
	return store.db.View(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

func (tx *Tx) get(bucket, key string) ([]byte, error) {
	b := tx.tx.Bucket([]byte(bucket))
	if b == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
	}
	value := b.Get([]byte(key))
	if value == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
	}
	return value, nil
}

func (tx *Tx) put(bucket, key string, value []byte) error {
	b, err := tx.tx.CreateBucketIfNotExists([]byte(bucket))
	if err != nil {
		return err
	}
	return b.Put([]byte(key), value)
}

func (tx *Tx) GetInt(bucket, key string) (int, error) {
	value, err := tx.get(bucket, key)
	if err != nil {
		return 0, err
	}
	number, n := binary.Varint(value)
	if n <= 0 {
		return 0, fmt.Errorf("malformed integer at %s/%s", bucket, key)
	}
	return int(number), nil
}

func (tx *Tx) PutInt(bucket, key string, number int) error {
	var number_bytes [binary.MaxVarintLen64]byte
	n := binary.PutVarint(number_bytes[:], int64(number))
	return tx.put(bucket, key, number_bytes[:n])
}

// Set key to next only if it currently holds expected, reporting whether it was updated
func (tx *Tx) CompareAndSwapInt(bucket, key string, expected, next int) (bool, error) {
	current, err := tx.GetInt(bucket, key)
	if err != nil {
		return false, err
	}
	if current != expected {
		return false, nil
	}
	return true, tx.PutInt(bucket, key, next)
}

func (tx *Tx) GetGrid(bucket, key string) (*gol.Grid, error) {
	value, err := tx.get(bucket, key)
	if err != nil {
		return nil, err
	}
	// Value is only valid for the life of the transaction, UnpackGrid copies it
	return gol.UnpackGrid(value)
}

func (tx *Tx) PutGrid(bucket, key string, grid *gol.Grid) error {
	return tx.put(bucket, key, grid.Pack())
}

// Remove every key in a bucket
func (tx *Tx) Clear(bucket string) error {
	if tx.tx.Bucket([]byte(bucket)) == nil {
		return nil
	}
	if err := tx.tx.DeleteBucket([]byte(bucket)); err != nil {
		return err
	}
	_, err := tx.tx.CreateBucket([]byte(bucket))
	return err
}
