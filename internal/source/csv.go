package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"drawcast/internal/draw"
	"drawcast/internal/metrics"
)

// ImportCSV loads date,tier,code rows into store. A leading header row is
// skipped. Codes are stored as given; validation happens when they are used.
func ImportCSV(ctx context.Context, r io.Reader, store DrawWriter, m *metrics.MetricsWrapper) (SyncSummary, error) {
	var sum SyncSummary

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	days := make(map[time.Time]struct{})
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("csv: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}

		date, err := draw.ParseDate(row[0])
		if err != nil {
			return sum, fmt.Errorf("csv line %d: %w", line, err)
		}
		tier, ok := draw.ParseTier(row[1])
		if !ok {
			return sum, fmt.Errorf("csv line %d: unknown tier %q", line, row[1])
		}

		date = draw.Truncate(date)
		days[date] = struct{}{}
		e := draw.Event{Date: date, Tier: tier, Code: strings.TrimSpace(row[2])}
		if err := write(ctx, store, m, e, &sum); err != nil {
			return sum, err
		}
	}

	sum.Days = len(days)
	return sum, nil
}
