package backtest

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"drawcast/internal/draw"
	"drawcast/internal/source"
)

// DayReader is the draw store read used to load history.
type DayReader interface {
	ListDays(ctx context.Context, from, to time.Time) ([]draw.Day, error)
}

// DataLoader collects day groups for a replay, either from the draw store or
// from a CSV export.
type DataLoader struct {
	days map[time.Time]*draw.Day
}

// NewDataLoader creates an empty loader.
func NewDataLoader() *DataLoader {
	return &DataLoader{days: make(map[time.Time]*draw.Day)}
}

// LoadFromStore adds the stored days in [from, to]. Zero bounds are open.
func (dl *DataLoader) LoadFromStore(ctx context.Context, store DayReader, from, to time.Time) error {
	days, err := store.ListDays(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to load days: %w", err)
	}
	for _, d := range days {
		for tier, code := range d.Events {
			if _, err := dl.InsertDraw(ctx, draw.Event{Date: d.Date, Tier: tier, Code: code}); err != nil {
				return err
			}
		}
	}

	log.Info().Int("days", len(days)).Msg("Loaded days from store")
	return nil
}

// LoadFromCSV adds date,tier,code rows read from path.
func (dl *DataLoader) LoadFromCSV(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return dl.LoadFromReader(ctx, file)
}

// LoadFromReader adds date,tier,code rows read from r.
func (dl *DataLoader) LoadFromReader(ctx context.Context, r io.Reader) error {
	sum, err := source.ImportCSV(ctx, r, dl, nil)
	if err != nil {
		return err
	}

	log.Info().
		Int("days", sum.Days).
		Int("events", sum.Inserted).
		Int("duplicates", sum.Duplicates).
		Msg("Loaded days from CSV")
	return nil
}

// InsertDraw keeps the first event seen for each date and tier.
func (dl *DataLoader) InsertDraw(ctx context.Context, e draw.Event) (bool, error) {
	date := draw.Truncate(e.Date)
	d, ok := dl.days[date]
	if !ok {
		nd := draw.NewDay(date)
		d = &nd
		dl.days[date] = d
	}
	if _, exists := d.Events[e.Tier]; exists {
		return false, nil
	}
	e.Date = date
	if err := d.Add(e); err != nil {
		return false, err
	}
	return true, nil
}

// Days returns the loaded days in date order.
func (dl *DataLoader) Days() []draw.Day {
	out := make([]draw.Day, 0, len(dl.days))
	for _, d := range dl.days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// GetDataCount returns the number of loaded days.
func (dl *DataLoader) GetDataCount() int {
	return len(dl.days)
}
