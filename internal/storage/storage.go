// Package storage provides persistent storage for the draw learning pipeline.
// It uses BoltDB as the underlying storage engine for draw results, prediction
// records, and trained model state.
//
// Keys are built so that cursor order equals chronological order, which keeps
// range reads and "oldest first" scans a single forward pass.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	drawsBucket       = "draws"       // one entry per (date, tier)
	predictionsBucket = "predictions" // one entry per target date
	modelsBucket      = "models"      // one blob per model name
)

// DBFile is the database file name inside the data directory.
const DBFile = "drawcast.db"

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// Store provides persistent storage using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (creating if needed) the database in dataPath and makes sure all
// buckets exist.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{drawsBucket, predictionsBucket, modelsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
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

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
