package proc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/boltdb/bolt"

	"papercast/internal/app/papercast/episode"
)

// ErrCorruptState is returned when persisted catalog state exists but
// cannot be parsed. The catalog is never repaired automatically.
var ErrCorruptState = errors.New("catalog state is corrupt")

const (
	catalogBucket = "catalog"
	catalogKey    = "episodes"
)

// BoltDB persists the episode catalog. The whole catalog is stored as one
// JSON document so the durable state is exactly the ordered sequence
// handed to Persist.
type BoltDB struct {
	DB *bolt.DB
}

// Load returns the persisted catalog, or an empty catalog when no state
// exists yet.
func (b *BoltDB) Load() ([]episode.Record, error) {
	var records []episode.Record
	err := b.DB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(catalogBucket))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(catalogKey))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Persist overwrites the durable catalog with exactly the given sequence.
// The write is a blind overwrite, a single active publisher is assumed.
func (b *BoltDB) Persist(records []episode.Record) error {
	if records == nil {
		records = []episode.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	return b.DB.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(catalogBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(catalogKey), data)
	})
}
