package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketSettings = []byte("settings")
	keyDevice      = []byte("device")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the settings database at path, creating
// parent directories as needed.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("settings: create dir: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("settings: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSettings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("settings: create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Load returns the saved settings, or ErrNotFound on a fresh database.
func (s *BoltStore) Load() (Device, error) {
	var dev Device
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSettings)
		}
		data := b.Get(keyDevice)
		if data == nil {
			return ErrNotFound
		}
		// Fields missing from older records keep their defaults.
		dev = Default()
		return json.Unmarshal(data, &dev)
	})
	if err != nil {
		return Device{}, err
	}
	if err := dev.Validate(); err != nil {
		return Device{}, fmt.Errorf("settings: stored value invalid: %w", err)
	}
	return dev, nil
}

// Save replaces the stored settings.
func (s *BoltStore) Save(dev Device) error {
	if err := dev.Validate(); err != nil {
		return fmt.Errorf("settings: refusing to save: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSettings)
		}
		data, err := json.Marshal(dev)
		if err != nil {
			return err
		}
		return b.Put(keyDevice, data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Compile-time check that BoltStore implements Store.
var _ Store = (*BoltStore)(nil)
