package backtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawcast/internal/draw"
	"drawcast/internal/features"
	"drawcast/internal/sequence"
	"drawcast/internal/storage"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func codeFor(n int) string {
	return fmt.Sprintf("%05d", (n*12347+901)%100000)
}

func history(t *testing.T, n int) []draw.Day {
	t.Helper()
	days := make([]draw.Day, 0, n)
	for i := 0; i < n; i++ {
		date := start.AddDate(0, 0, i)
		d := draw.NewDay(date)
		require.NoError(t, d.Add(draw.Event{Date: date, Tier: draw.TopTier, Code: codeFor(i)}))
		days = append(days, d)
	}
	return days
}

func newEngine(cfg Config) *Engine {
	return NewEngine(sequence.NewBuilder(features.NewExtractor(), 3, 5), nil, cfg)
}

func testConfig() Config {
	return Config{Warmup: 5, Epochs: 2, TopK: 5, Hidden: 8, LearningRate: 0.1, Seed: 7}
}

func TestEngine_Run(t *testing.T) {
	days := history(t, 20)
	e := newEngine(testConfig())

	require.NoError(t, e.Run(context.Background(), days))
	res := e.GetResults()
	require.NotNil(t, res)

	// 17 pairs after a window of 3, 5 used for warmup
	assert.Equal(t, 5, res.WarmupPairs)
	assert.Equal(t, 12, res.Evaluated)
	assert.Len(t, res.Outcomes, 12)
	assert.Equal(t, 2.5, res.Baseline)
	assert.True(t, res.StartTime.Equal(start.AddDate(0, 0, 8)))
	assert.True(t, res.EndTime.Equal(start.AddDate(0, 0, 19)))

	posTotal := 0
	for _, h := range res.PositionHits {
		posTotal += h
	}
	assert.Equal(t, res.TotalHits, posTotal)

	histTotal := 0
	for _, n := range res.Histogram {
		histTotal += n
	}
	assert.Equal(t, res.Evaluated, histTotal)

	for i, o := range res.Outcomes {
		assert.Equal(t, codeFor(8+i), o.Actual)
		assert.Len(t, o.Positions, sequence.Positions)
		assert.GreaterOrEqual(t, o.Loss, 0.0)
	}
	assert.InDelta(t, float64(res.TotalHits)/60, res.HitRate(), 1e-12)
}

func TestEngine_SeededRunsMatch(t *testing.T) {
	days := history(t, 16)

	a := newEngine(testConfig())
	b := newEngine(testConfig())
	require.NoError(t, a.Run(context.Background(), days))
	require.NoError(t, b.Run(context.Background(), days))

	assert.Equal(t, a.GetResults().Outcomes, b.GetResults().Outcomes)
	assert.Equal(t, a.GetResults().WarmupLoss, b.GetResults().WarmupLoss)
}

func TestEngine_InsufficientHistory(t *testing.T) {
	cfg := testConfig()
	cfg.Warmup = 10

	// 8 days give 5 pairs
	err := newEngine(cfg).Run(context.Background(), history(t, 8))
	assert.ErrorIs(t, err, sequence.ErrInsufficientHistory)

	err = newEngine(testConfig()).Run(context.Background(), history(t, 2))
	assert.ErrorIs(t, err, sequence.ErrInsufficientHistory)
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newEngine(testConfig()).Run(ctx, history(t, 20))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDataLoader_CSV(t *testing.T) {
	input := `date,tier,code
02/01/2024,DB,11111
01/01/2024,DB,22222
01/01/2024,G1,33333
01/01/2024,DB,99999
`
	dl := NewDataLoader()
	require.NoError(t, dl.LoadFromReader(context.Background(), strings.NewReader(input)))

	days := dl.Days()
	require.Len(t, days, 2)
	assert.Equal(t, 2, dl.GetDataCount())
	assert.True(t, days[0].Date.Equal(start))
	assert.Equal(t, "22222", days[0].Code(draw.TopTier))
	assert.Equal(t, "33333", days[0].Code("G1"))
	assert.Equal(t, "11111", days[1].Code(draw.TopTier))
}

func TestDataLoader_Store(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.InsertDraw(ctx, draw.Event{Date: start.AddDate(0, 0, i), Tier: draw.TopTier, Code: codeFor(i)})
		require.NoError(t, err)
	}

	dl := NewDataLoader()
	require.NoError(t, dl.LoadFromStore(ctx, store, start.AddDate(0, 0, 1), start.AddDate(0, 0, 3)))

	days := dl.Days()
	require.Len(t, days, 3)
	assert.Equal(t, codeFor(1), days[0].Code(draw.TopTier))
	assert.Equal(t, codeFor(3), days[2].Code(draw.TopTier))
}

func TestReporter(t *testing.T) {
	e := newEngine(testConfig())
	require.NoError(t, e.Run(context.Background(), history(t, 20)))

	dir := filepath.Join(t.TempDir(), "report")
	r := NewReporter(e.GetResults(), dir)
	require.NoError(t, r.GenerateReport())

	summary, err := os.ReadFile(filepath.Join(dir, "backtest_summary.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Days Evaluated: 12")

	outcomes, err := os.ReadFile(filepath.Join(dir, "outcome_log.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(outcomes)), "\n")
	assert.Len(t, lines, 13)

	data, err := os.ReadFile(filepath.Join(dir, "backtest_results.json"))
	require.NoError(t, err)
	var report struct {
		Results Results `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 12, report.Results.Evaluated)

	var buf bytes.Buffer
	r.PrintSummary(&buf)
	assert.Contains(t, buf.String(), "2.500")
}
