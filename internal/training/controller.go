// Package training runs the learning and feedback cycle: full historical
// retraining, next-day prediction, and incremental relearning from scored
// outcomes.
//
// Every operation holds the model's registry lock from the first state read
// to the last write, so at most one of them touches a given model at a time.
package training

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"drawcast/internal/draw"
	"drawcast/internal/ml"
	"drawcast/internal/prediction"
	"drawcast/internal/sequence"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Config tunes the controller.
type Config struct {
	ModelName    string
	TopK         int
	Epochs       int
	Hidden       int
	LearningRate float64
	Seed         int64 // 0 draws a seed from the clock on every retrain
}

// Deps are the controller's collaborators. Metrics, Notifier, Strategy and
// Locks are optional.
type Deps struct {
	Draws       DrawStore
	Predictions PredictionStore
	States      StateStore
	Builder     *sequence.Builder
	Strategy    ml.Strategy
	Metrics     MetricsInterface
	Notifier    Notifier
	Locks       *Registry
}

// Controller orchestrates training, prediction and scoring for one model.
type Controller struct {
	draws       DrawStore
	predictions PredictionStore
	states      StateStore
	builder     *sequence.Builder
	strategy    ml.Strategy
	metrics     MetricsInterface
	notifier    Notifier
	locks       *Registry
	cfg         Config
	now         func() time.Time
}

// RetrainSummary reports a full retrain.
type RetrainSummary struct {
	RunID     string        `json:"run_id"`
	Model     string        `json:"model"`
	PairCount int           `json:"pair_count"`
	Epochs    int           `json:"epochs"`
	FinalLoss float64       `json:"final_loss"`
	Seed      int64         `json:"seed"`
	Duration  time.Duration `json:"duration"`
}

// LearnSummary reports an incremental learning run. Pending counts unscored
// records whose outcome is not available yet.
type LearnSummary struct {
	RunID   string `json:"run_id"`
	Model   string `json:"model"`
	Trained int    `json:"trained"`
	Skipped int    `json:"skipped"`
	Pending int    `json:"pending"`
}

// ModelInfo describes the persisted model.
type ModelInfo struct {
	Name       string  `json:"name"`
	Window     int     `json:"window"`
	FeatureDim int     `json:"feature_dim"`
	Meta       ml.Meta `json:"meta"`
}

// New creates a controller.
func New(deps Deps, cfg Config) (*Controller, error) {
	if deps.Draws == nil || deps.Predictions == nil || deps.States == nil || deps.Builder == nil {
		return nil, errors.New("training: draws, predictions, states and builder are required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("training: model name is required")
	}
	if cfg.TopK <= 0 || cfg.TopK > sequence.Classes {
		return nil, fmt.Errorf("training: top-k must be between 1 and %d, got %d", sequence.Classes, cfg.TopK)
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 1
	}
	if deps.Strategy == nil {
		deps.Strategy = ml.MLP{}
	}
	if deps.Locks == nil {
		deps.Locks = NewRegistry()
	}

	return &Controller{
		draws:       deps.Draws,
		predictions: deps.Predictions,
		states:      deps.States,
		builder:     deps.Builder,
		strategy:    deps.Strategy,
		metrics:     deps.Metrics,
		notifier:    deps.Notifier,
		locks:       deps.Locks,
		cfg:         cfg,
		now:         time.Now,
	}, nil
}

// RunFullRetrain rebuilds every training pair from the full history,
// reinitializes the model, trains it and persists the result.
func (c *Controller) RunFullRetrain(ctx context.Context) (RetrainSummary, error) {
	h := c.locks.acquire(c.cfg.ModelName)
	defer h.unlock()

	start := c.now()
	summary := RetrainSummary{RunID: uuid.New().String(), Model: c.cfg.ModelName, Epochs: c.cfg.Epochs}

	days, err := c.draws.ListDays(ctx, time.Time{}, time.Time{})
	if err != nil {
		return summary, c.fail(fmt.Errorf("list draws: %w", err))
	}
	pairs, err := c.builder.Pairs(days)
	if err != nil {
		return summary, c.fail(err)
	}
	if len(pairs) == 0 {
		return summary, c.fail(fmt.Errorf("%w: no day with a usable top-tier code follows a full window", sequence.ErrInsufficientHistory))
	}

	seed := c.cfg.Seed
	if seed == 0 {
		seed = start.UnixNano()
	}
	model, err := c.strategy.New(ml.Config{
		Window:       c.builder.Size(),
		FeatureDim:   c.builder.Dim(),
		Hidden:       c.cfg.Hidden,
		LearningRate: c.cfg.LearningRate,
		Seed:         seed,
	})
	if err != nil {
		return summary, c.fail(fmt.Errorf("init model: %w", err))
	}

	log.Info().
		Str("run_id", summary.RunID).
		Str("model", c.cfg.ModelName).
		Int("days", len(days)).
		Int("pairs", len(pairs)).
		Int("epochs", c.cfg.Epochs).
		Int64("seed", seed).
		Msg("Starting full retrain")

	var last ml.TrainingSummary
	for epoch := 0; epoch < c.cfg.Epochs; epoch++ {
		if last, err = model.TrainBatch(pairs); err != nil {
			return summary, c.fail(fmt.Errorf("epoch %d: %w", epoch, err))
		}
		log.Debug().Int("epoch", epoch).Float64("loss", last.Loss).Msg("Epoch complete")
	}

	now := c.now()
	meta := model.Meta()
	meta.Name = c.cfg.ModelName
	meta.Pairs = len(pairs)
	meta.TrainedAt = now
	meta.UpdatedAt = now

	if err := c.save(ctx, model); err != nil {
		return summary, c.fail(err)
	}
	h.model = model

	summary.PairCount = len(pairs)
	summary.FinalLoss = last.Loss
	summary.Seed = seed
	summary.Duration = now.Sub(start)

	if c.metrics != nil {
		c.metrics.RetrainObserve(summary.PairCount, summary.FinalLoss, summary.Duration.Seconds())
	}
	c.publish(EventRetrain, summary)

	log.Info().
		Str("run_id", summary.RunID).
		Int("pairs", summary.PairCount).
		Float64("loss", summary.FinalLoss).
		Dur("duration", summary.Duration).
		Msg("Full retrain complete")

	return summary, nil
}

// GenerateNextDayPrediction predicts the day after the latest recorded draw
// and upserts the record.
func (c *Controller) GenerateNextDayPrediction(ctx context.Context) (prediction.Record, error) {
	h := c.locks.acquire(c.cfg.ModelName)
	defer h.unlock()

	model, err := c.load(ctx, h)
	if err != nil {
		return prediction.Record{}, c.fail(err)
	}

	days, err := c.draws.ListDays(ctx, time.Time{}, time.Time{})
	if err != nil {
		return prediction.Record{}, c.fail(fmt.Errorf("list draws: %w", err))
	}
	window, err := c.builder.Latest(days)
	if err != nil {
		return prediction.Record{}, c.fail(err)
	}

	scores, err := model.Predict(window)
	if err != nil {
		return prediction.Record{}, c.fail(fmt.Errorf("predict: %w", err))
	}
	positions, err := ml.Decode(scores, c.cfg.TopK)
	if err != nil {
		return prediction.Record{}, c.fail(err)
	}

	target := days[len(days)-1].Date.AddDate(0, 0, 1)
	rec := prediction.Record{
		TargetDate: target,
		Model:      c.cfg.ModelName,
		Positions:  positions,
	}
	if err := c.predictions.UpsertPrediction(ctx, rec); err != nil {
		return prediction.Record{}, c.fail(fmt.Errorf("store prediction: %w", err))
	}
	stored, err := c.predictions.GetPrediction(ctx, target)
	if err != nil {
		return prediction.Record{}, c.fail(fmt.Errorf("reload prediction: %w", err))
	}

	if c.metrics != nil {
		c.metrics.PredictionsInc()
	}
	c.publish(EventPrediction, stored)

	log.Info().
		Str("model", c.cfg.ModelName).
		Str("target_date", draw.Key(target)).
		Interface("positions", positions).
		Msg("Generated next-day prediction")

	return stored, nil
}

// ModelInfo returns the persisted model's shape and bookkeeping.
func (c *Controller) ModelInfo(ctx context.Context) (ModelInfo, error) {
	h := c.locks.acquire(c.cfg.ModelName)
	defer h.unlock()

	model, err := c.load(ctx, h)
	if err != nil {
		return ModelInfo{}, err
	}
	window, dim := model.Shape()
	return ModelInfo{Name: c.cfg.ModelName, Window: window, FeatureDim: dim, Meta: *model.Meta()}, nil
}

// load returns the cached model, reading it from the state store on first use.
// It never creates a model.
func (c *Controller) load(ctx context.Context, h *handle) (ml.Model, error) {
	if h.model != nil {
		return h.model, nil
	}

	blob, found, err := c.states.LoadModel(ctx, c.cfg.ModelName)
	if err != nil {
		return nil, fmt.Errorf("load model state: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %q has no stored state, run a full retrain", ml.ErrModelNotInitialized, c.cfg.ModelName)
	}

	model, err := c.strategy.Load(blob)
	if err != nil {
		return nil, fmt.Errorf("restore model %q: %w", c.cfg.ModelName, err)
	}
	window, dim := model.Shape()
	if window != c.builder.Size() || dim != c.builder.Dim() {
		return nil, fmt.Errorf("%w: stored model %q expects %dx%d input, extractor produces %dx%d",
			sequence.ErrDataIntegrity, c.cfg.ModelName, window, dim, c.builder.Size(), c.builder.Dim())
	}

	log.Info().Str("model", c.cfg.ModelName).Int64("updates", model.Meta().Updates).Msg("Model state loaded")
	h.model = model
	return model, nil
}

func (c *Controller) save(ctx context.Context, model ml.Model) error {
	blob, err := model.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode model state: %w", err)
	}
	if err := c.states.SaveModel(ctx, c.cfg.ModelName, blob); err != nil {
		return fmt.Errorf("save model state: %w", err)
	}
	return nil
}

func (c *Controller) publish(eventType string, payload any) {
	if c.notifier != nil {
		c.notifier.Publish(eventType, payload)
	}
}

func (c *Controller) fail(err error) error {
	if c.metrics != nil {
		c.metrics.ErrorsInc()
	}
	return err
}

func sortByTarget(recs []prediction.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].TargetDate.Before(recs[j].TargetDate)
	})
}
