// Package store holds the board's task and user lists in memory and persists
// them to a local bbolt database after every mutation.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketTasks = []byte("tasks")
	bucketUsers = []byte("users")
	bucketMeta  = []byte("meta")
)

var (
	keyNextTaskID  = []byte("next_task_id")
	keyNextUserID  = []byte("next_user_id")
	keyRoles       = []byte("roles")
	keyCurrentUser = []byte("current_user")
	keyLastSync    = []byte("last_sync")
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrRoleInUse       = errors.New("role is assigned to a user")
	ErrRoleExists      = errors.New("role already exists")
	ErrDuplicateID     = errors.New("duplicate id")
)

// DB wraps the bolt file shared by the task and user stores.
type DB struct {
	db *bolt.DB
}

// Open initializes the bolt file and ensures the buckets exist.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening board database %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketTasks, bucketUsers, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) view(fn func(tx *bolt.Tx) error) error {
	if d == nil || d.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return d.db.View(fn)
}

func (d *DB) update(fn func(tx *bolt.Tx) error) error {
	if d == nil || d.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return d.db.Update(fn)
}

func itob(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// rewriteBucket replaces every record in bucket with items, keyed by id.
func rewriteBucket[T any](tx *bolt.Tx, bucket []byte, items []T, id func(T) int) error {
	if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return err
	}
	b, err := tx.CreateBucket(bucket)
	if err != nil {
		return err
	}
	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if err := b.Put(itob(id(item)), payload); err != nil {
			return err
		}
	}
	return nil
}

// readBucket decodes every record in key order.
func readBucket[T any](tx *bolt.Tx, bucket []byte) ([]T, error) {
	var items []T
	err := tx.Bucket(bucket).ForEach(func(k, v []byte) error {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return fmt.Errorf("decoding %s record %x: %w", bucket, k, err)
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

func putMeta(tx *bolt.Tx, key []byte, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMeta).Put(key, payload)
}

// getMeta leaves v untouched when the key is absent.
func getMeta(tx *bolt.Tx, key []byte, v any) error {
	raw := tx.Bucket(bucketMeta).Get(key)
	if raw == nil {
		return nil
	}
	return json.Unmarshal(raw, v)
}
