package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"drawcast/internal/draw"
	"drawcast/internal/prediction"

	"go.etcd.io/bbolt"
)

// UpsertPrediction writes rec under its target date. Overwriting a scored
// record keeps it scored.
func (s *Store) UpsertPrediction(ctx context.Context, rec prediction.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.TargetDate = draw.Truncate(rec.TargetDate)

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		key := []byte(rec.Key())

		if v := b.Get(key); v != nil {
			var prev prediction.Record
			if err := json.Unmarshal(v, &prev); err == nil && prev.Scored {
				rec.Scored = true
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}
		return b.Put(key, data)
	})
}

// GetPrediction returns the record for date.
func (s *Store) GetPrediction(ctx context.Context, date time.Time) (prediction.Record, error) {
	if err := ctx.Err(); err != nil {
		return prediction.Record{}, err
	}

	var rec prediction.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(predictionsBucket)).Get([]byte(draw.Key(date)))
		if v == nil {
			return fmt.Errorf("prediction %s: %w", draw.Key(date), ErrNotFound)
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// ListPredictions returns every record, oldest target date first.
func (s *Store) ListPredictions(ctx context.Context) ([]prediction.Record, error) {
	return s.scanPredictions(ctx, func(prediction.Record) bool { return true })
}

// ListUnscored returns the records not yet used for training, oldest first.
func (s *Store) ListUnscored(ctx context.Context) ([]prediction.Record, error) {
	return s.scanPredictions(ctx, func(r prediction.Record) bool { return !r.Scored })
}

// MarkScored flips the record for date to scored. Marking an already scored
// record is a no-op.
func (s *Store) MarkScored(ctx context.Context, date time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		key := []byte(draw.Key(date))

		v := b.Get(key)
		if v == nil {
			return fmt.Errorf("prediction %s: %w", draw.Key(date), ErrNotFound)
		}
		var rec prediction.Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("unmarshal prediction: %w", err)
		}
		if rec.MarkScored() != nil {
			return nil
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}
		return b.Put(key, data)
	})
}

func (s *Store) scanPredictions(ctx context.Context, keep func(prediction.Record) bool) ([]prediction.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []prediction.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(predictionsBucket)).ForEach(func(_, v []byte) error {
			var rec prediction.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // Skip malformed records
			}
			if keep(rec) {
				out = append(out, rec)
			}
			return nil
		})
	})
	return out, err
}
