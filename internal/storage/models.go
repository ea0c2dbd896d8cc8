package storage

import (
	"context"

	"go.etcd.io/bbolt"
)

// LoadModel returns the stored state blob for name.
func (s *Store) LoadModel(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var blob []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(modelsBucket)).Get([]byte(name))
		if v != nil {
			// bbolt values are only valid inside the transaction
			blob = append([]byte(nil), v...)
		}
		return nil
	})
	return blob, blob != nil, err
}

// SaveModel overwrites the state blob for name.
func (s *Store) SaveModel(ctx context.Context, name string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(modelsBucket)).Put([]byte(name), blob)
	})
}
