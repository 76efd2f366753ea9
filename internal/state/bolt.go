package state

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

var (
	stateBucket = []byte("state")
	stateKey    = []byte("current")
)

// BoltStore keeps the state document in a bbolt database. The stored value is
// the same JSON the file store writes.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBolt opens (creating if needed) the bbolt database at path. A second
// process holding the database open makes this fail after one second instead
// of blocking forever.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Read(_ context.Context) (model.State, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if b == nil {
			return nil
		}
		if v := b.Get(stateKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return model.State{}, fmt.Errorf("read state: %w", err)
	}
	if data == nil {
		return model.State{}, nil
	}
	return decode(data)
}

func (s *BoltStore) Write(_ context.Context, st model.State) error {
	data, err := model.Encode(st, "")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(stateBucket)
		if err != nil {
			return err
		}
		return b.Put(stateKey, data)
	})
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
