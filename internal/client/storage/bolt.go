package storage

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const boltBucketKV = "kv"

// Bolt is a KV persisted in a single bbolt file.
type Bolt struct {
	db *bbolt.DB
}

// NewBolt opens (or creates) the bbolt file at path.
func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %q: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketKV))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(key string) ([]byte, bool, error) {
	var value []byte

	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketKV))
		if bucket == nil {
			return errors.New("kv bucket missing")
		}
		if v := bucket.Get([]byte(key)); v != nil {
			// bbolt values are only valid inside the transaction
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return value, value != nil, nil
}

func (b *Bolt) Put(key string, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketKV)).Put([]byte(key), value)
	})
}

func (b *Bolt) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketKV)).Delete([]byte(key))
	})
}

// Close releases the file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}
