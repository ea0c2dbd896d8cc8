package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drawcast/internal/draw"
	"drawcast/internal/prediction"
	"drawcast/internal/sequence"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RunIncrementalLearn scores every unscored prediction whose outcome is
// known. Records are handled oldest first: a well-formed outcome trains the
// model one step, a malformed one is retired without training, and records
// without an outcome stay unscored for a later run.
//
// The updated state is saved before any record is flagged, so a failure
// before the save leaves every record unscored against the previous state.
func (c *Controller) RunIncrementalLearn(ctx context.Context) (LearnSummary, error) {
	h := c.locks.acquire(c.cfg.ModelName)
	defer h.unlock()

	summary := LearnSummary{RunID: uuid.New().String(), Model: c.cfg.ModelName}

	model, err := c.load(ctx, h)
	if err != nil {
		return summary, c.fail(err)
	}

	records, err := c.unscoredFor(ctx, c.cfg.ModelName)
	if err != nil {
		return summary, c.fail(err)
	}
	if len(records) == 0 {
		log.Debug().Str("model", c.cfg.ModelName).Msg("No unscored predictions")
		return summary, nil
	}
	sortByTarget(records)

	days, err := c.draws.ListDays(ctx, time.Time{}, time.Time{})
	if err != nil {
		return summary, c.fail(fmt.Errorf("list draws: %w", err))
	}

	var resolved []prediction.Record
	for _, rec := range records {
		ev, found, err := c.draws.FindDraw(ctx, rec.TargetDate, draw.TopTier)
		if err != nil {
			h.model = nil
			return summary, c.fail(fmt.Errorf("find outcome for %s: %w", rec.Key(), err))
		}
		if !found {
			summary.Pending++
			continue
		}

		target, err := sequence.NewTarget(ev.Code)
		if errors.Is(err, draw.ErrMalformedOutcome) {
			log.Warn().
				Err(err).
				Str("target_date", rec.Key()).
				Str("code", ev.Code).
				Msg("Malformed outcome, retiring prediction without training")
			summary.Skipped++
			resolved = append(resolved, rec)
			continue
		}
		if err != nil {
			h.model = nil
			return summary, c.fail(err)
		}

		window, err := c.builder.Before(days, rec.TargetDate)
		if err != nil {
			h.model = nil
			return summary, c.fail(err)
		}
		if err := model.TrainStep(sequence.Pair{Date: rec.TargetDate, Window: window, Target: target}); err != nil {
			// drop the partially updated copy; the stored state is still intact
			h.model = nil
			return summary, c.fail(fmt.Errorf("train on %s: %w", rec.Key(), err))
		}

		if c.metrics != nil {
			c.metrics.HitRateObserve(float64(rec.Hits(ev.Code)) / float64(sequence.Positions))
		}
		summary.Trained++
		resolved = append(resolved, rec)
	}

	if summary.Trained > 0 {
		model.Meta().UpdatedAt = c.now()
		if err := c.save(ctx, model); err != nil {
			h.model = nil
			return summary, c.fail(err)
		}
	}

	for _, rec := range resolved {
		if err := c.predictions.MarkScored(ctx, rec.TargetDate); err != nil {
			return summary, c.fail(fmt.Errorf("mark %s scored: %w", rec.Key(), err))
		}
	}

	if c.metrics != nil {
		c.metrics.LearnObserve(summary.Trained, summary.Skipped, summary.Pending)
	}
	c.publish(EventLearn, summary)

	log.Info().
		Str("run_id", summary.RunID).
		Str("model", c.cfg.ModelName).
		Int("trained", summary.Trained).
		Int("skipped", summary.Skipped).
		Int("pending", summary.Pending).
		Msg("Incremental learn complete")

	return summary, nil
}

// unscoredFor returns the unscored records generated by model. Records from
// other models stay unscored for their own controller.
func (c *Controller) unscoredFor(ctx context.Context, model string) ([]prediction.Record, error) {
	all, err := c.predictions.ListUnscored(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unscored predictions: %w", err)
	}
	out := all[:0]
	for _, rec := range all {
		if rec.Model == model {
			out = append(out, rec)
		}
	}
	return out, nil
}
