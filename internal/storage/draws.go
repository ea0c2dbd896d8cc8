package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"drawcast/internal/draw"

	"go.etcd.io/bbolt"
)

func drawKey(date time.Time, tier draw.Tier) []byte {
	return []byte(fmt.Sprintf("%s/%02d", draw.Key(date), tier.Index()))
}

// InsertDraw stores e unless an event for the same date and tier already
// exists. It reports whether the event was written.
func (s *Store) InsertDraw(ctx context.Context, e draw.Event) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.Tier.Index() < 0 {
		return false, fmt.Errorf("unknown tier %q", e.Tier)
	}
	e.Date = draw.Truncate(e.Date)

	inserted := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(drawsBucket))
		key := drawKey(e.Date, e.Tier)
		if b.Get(key) != nil {
			return nil
		}

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal draw: %w", err)
		}
		inserted = true
		return b.Put(key, data)
	})
	return inserted, err
}

// FindDraw returns the event for date and tier.
func (s *Store) FindDraw(ctx context.Context, date time.Time, tier draw.Tier) (draw.Event, bool, error) {
	if err := ctx.Err(); err != nil {
		return draw.Event{}, false, err
	}

	var (
		e     draw.Event
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(drawsBucket)).Get(drawKey(date, tier))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("unmarshal draw: %w", err)
		}
		found = true
		return nil
	})
	return e, found, err
}

// ListDays returns the day groups between from and to inclusive, oldest
// first. A zero bound leaves that side open.
func (s *Store) ListDays(ctx context.Context, from, to time.Time) ([]draw.Day, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var days []draw.Day
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(drawsBucket)).Cursor()

		var k, v []byte
		if from.IsZero() {
			k, v = c.First()
		} else {
			k, v = c.Seek([]byte(draw.Key(from)))
		}

		var end []byte
		if !to.IsZero() {
			end = []byte(draw.Key(to) + "/~")
		}

		for ; k != nil; k, v = c.Next() {
			if end != nil && bytes.Compare(k, end) > 0 {
				break
			}

			var e draw.Event
			if err := json.Unmarshal(v, &e); err != nil {
				continue // Skip malformed records
			}

			if n := len(days); n == 0 || !draw.SameDay(days[n-1].Date, e.Date) {
				days = append(days, draw.NewDay(e.Date))
			}
			if err := days[len(days)-1].Add(e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}

// CountDraws returns the number of stored events.
func (s *Store) CountDraws() (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(drawsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
