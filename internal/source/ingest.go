package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"drawcast/internal/draw"
	"drawcast/internal/metrics"
)

// DrawWriter is the write side of the draw store.
type DrawWriter interface {
	InsertDraw(ctx context.Context, e draw.Event) (bool, error)
}

// SyncSummary reports what a Sync or import run wrote.
type SyncSummary struct {
	Days       int `json:"days"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Missing    int `json:"missing"`
}

// Ingester copies published results into the draw store.
type Ingester struct {
	client  *Client
	store   DrawWriter
	metrics *metrics.MetricsWrapper
}

func NewIngester(client *Client, store DrawWriter, m *metrics.MetricsWrapper) *Ingester {
	return &Ingester{client: client, store: store, metrics: m}
}

// Sync fetches every day in [from, to]. Days without published results are
// counted as missing. It stops at the first transport or store error and
// returns the summary so far.
func (in *Ingester) Sync(ctx context.Context, from, to time.Time) (SyncSummary, error) {
	var sum SyncSummary
	from, to = draw.Truncate(from), draw.Truncate(to)
	if to.Before(from) {
		return sum, fmt.Errorf("invalid range: %s after %s", draw.Key(from), draw.Key(to))
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		sum.Days++

		events, err := in.client.FetchDay(ctx, day)
		if errors.Is(err, ErrNoResults) {
			log.Debug().Str("date", draw.Key(day)).Msg("No results published")
			sum.Missing++
			continue
		}
		if err != nil {
			return sum, err
		}

		for _, e := range events {
			if err := write(ctx, in.store, in.metrics, e, &sum); err != nil {
				return sum, err
			}
		}
	}

	log.Info().
		Str("from", draw.Key(from)).
		Str("to", draw.Key(to)).
		Int("inserted", sum.Inserted).
		Int("duplicates", sum.Duplicates).
		Int("missing", sum.Missing).
		Msg("Draw sync finished")
	return sum, nil
}

func write(ctx context.Context, store DrawWriter, m *metrics.MetricsWrapper, e draw.Event, sum *SyncSummary) error {
	inserted, err := store.InsertDraw(ctx, e)
	if err != nil {
		return fmt.Errorf("store draw %s %s: %w", draw.Key(e.Date), e.Tier, err)
	}
	if inserted {
		sum.Inserted++
		if m != nil {
			m.DrawsIngested().Inc()
		}
		return nil
	}
	sum.Duplicates++
	if m != nil {
		m.DrawsDuplicate().Inc()
	}
	return nil
}
