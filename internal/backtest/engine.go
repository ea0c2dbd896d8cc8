// Package backtest replays stored history through the learning loop offline
// and reports how often the predicted candidates contained the realized
// digits.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"drawcast/internal/draw"
	"drawcast/internal/ml"
	"drawcast/internal/prediction"
	"drawcast/internal/sequence"
)

// Config controls a replay.
type Config struct {
	Warmup       int // pairs used for the initial full training
	Epochs       int
	TopK         int
	Hidden       int
	LearningRate float64
	Seed         int64
}

// Outcome is one replayed day: the prediction made from the preceding
// window and how it matched the realized code.
type Outcome struct {
	Date      time.Time  `json:"date"`
	Actual    string     `json:"actual"`
	Positions [][]string `json:"positions"`
	Hits      int        `json:"hits"`
	Loss      float64    `json:"loss"`
}

// Results holds replay results.
type Results struct {
	Outcomes     []Outcome                   `json:"outcomes"`
	WarmupPairs  int                         `json:"warmup_pairs"`
	WarmupLoss   float64                     `json:"warmup_loss"`
	Evaluated    int                         `json:"evaluated"`
	TotalHits    int                         `json:"total_hits"`
	MeanHits     float64                     `json:"mean_hits"`
	Baseline     float64                     `json:"baseline"` // expected hits for uniformly random candidates
	PositionHits [sequence.Positions]int     `json:"position_hits"`
	Histogram    [sequence.Positions + 1]int `json:"histogram"` // days by hit count
	MeanLoss     float64                     `json:"mean_loss"`
	StartTime    time.Time                   `json:"start_time"`
	EndTime      time.Time                   `json:"end_time"`
	Seed         int64                       `json:"seed"`
}

// HitRate returns the share of positions whose digit was among the candidates.
func (r *Results) HitRate() float64 {
	if r.Evaluated == 0 {
		return 0
	}
	return float64(r.TotalHits) / float64(r.Evaluated*sequence.Positions)
}

// Engine walks forward through history: it trains on the first Warmup pairs,
// then for each later pair predicts, scores, and learns from the realized
// outcome exactly once, in date order.
type Engine struct {
	builder  *sequence.Builder
	strategy ml.Strategy
	cfg      Config
	results  *Results
}

// NewEngine creates a replay engine. A nil strategy uses the reference MLP.
func NewEngine(builder *sequence.Builder, strategy ml.Strategy, cfg Config) *Engine {
	if strategy == nil {
		strategy = ml.MLP{}
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Engine{builder: builder, strategy: strategy, cfg: cfg}
}

// Run replays days, which must be sorted by date.
func (e *Engine) Run(ctx context.Context, days []draw.Day) error {
	pairs, err := e.builder.Pairs(days)
	if err != nil {
		return err
	}
	if e.cfg.Warmup < 1 || len(pairs) <= e.cfg.Warmup {
		return fmt.Errorf("%w: %d pairs, warmup needs %d plus one to evaluate",
			sequence.ErrInsufficientHistory, len(pairs), e.cfg.Warmup)
	}

	seed := e.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	model, err := e.strategy.New(ml.Config{
		Window:       e.builder.Size(),
		FeatureDim:   e.builder.Dim(),
		Hidden:       e.cfg.Hidden,
		LearningRate: e.cfg.LearningRate,
		Seed:         seed,
	})
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	codes := make(map[time.Time]string, len(days))
	for _, d := range days {
		if c, ok := d.TopCode(); ok {
			codes[d.Date] = c
		}
	}

	warmup, replay := pairs[:e.cfg.Warmup], pairs[e.cfg.Warmup:]
	res := &Results{
		WarmupPairs: len(warmup),
		Baseline:    float64(sequence.Positions*e.cfg.TopK) / sequence.Classes,
		StartTime:   replay[0].Date,
		EndTime:     replay[len(replay)-1].Date,
		Seed:        seed,
	}

	log.Info().
		Int("warmup", len(warmup)).
		Int("replay", len(replay)).
		Int("epochs", e.cfg.Epochs).
		Int64("seed", seed).
		Msg("Starting backtest")

	for epoch := 0; epoch < e.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sum, err := model.TrainBatch(warmup)
		if err != nil {
			return fmt.Errorf("warmup epoch %d: %w", epoch, err)
		}
		res.WarmupLoss = sum.Loss
	}

	var lossSum float64
	for _, p := range replay {
		if err := ctx.Err(); err != nil {
			return err
		}

		scores, err := model.Predict(p.Window)
		if err != nil {
			return fmt.Errorf("predict %s: %w", draw.Key(p.Date), err)
		}
		positions, err := ml.Decode(scores, e.cfg.TopK)
		if err != nil {
			return err
		}

		actual := codes[p.Date]
		rec := prediction.Record{TargetDate: p.Date, Positions: positions}
		out := Outcome{
			Date:      p.Date,
			Actual:    actual,
			Positions: positions,
			Hits:      rec.Hits(actual),
			Loss:      mse(scores, p.Target),
		}

		for i, d := range draw.Digits(actual) {
			if contains(positions[i], d) {
				res.PositionHits[i]++
			}
		}
		res.Histogram[out.Hits]++
		res.TotalHits += out.Hits
		lossSum += out.Loss
		res.Outcomes = append(res.Outcomes, out)

		if err := model.TrainStep(p); err != nil {
			return fmt.Errorf("learn %s: %w", draw.Key(p.Date), err)
		}
	}

	res.Evaluated = len(res.Outcomes)
	res.MeanHits = float64(res.TotalHits) / float64(res.Evaluated)
	res.MeanLoss = lossSum / float64(res.Evaluated)
	e.results = res

	log.Info().
		Int("evaluated", res.Evaluated).
		Float64("mean_hits", res.MeanHits).
		Float64("baseline", res.Baseline).
		Msg("Backtest complete")
	return nil
}

// GetResults returns the results of the last successful Run.
func (e *Engine) GetResults() *Results {
	return e.results
}

func mse(scores []float64, target sequence.Target) float64 {
	var sum float64
	for i := range scores {
		d := scores[i] - target[i]
		sum += d * d
	}
	return sum / float64(len(scores))
}

func contains(digits []string, d int) bool {
	want := string(rune('0' + d))
	for _, s := range digits {
		if s == want {
			return true
		}
	}
	return false
}
