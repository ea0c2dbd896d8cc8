// Package sequence assembles chronological windows of feature vectors and
// aligns them with the following day's top-tier outcome.
package sequence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"drawcast/internal/draw"
	"drawcast/internal/features"

	"github.com/rs/zerolog/log"
)

var (
	// ErrDataIntegrity marks inconsistent input that must never be coerced:
	// duplicate or unordered days, or mismatched dimensions.
	ErrDataIntegrity = errors.New("data integrity violation")
	// ErrInsufficientHistory is returned when there are fewer days than a
	// window needs.
	ErrInsufficientHistory = errors.New("insufficient history")
)

// Target encoding levels. Soft labels keep the sigmoid gradient alive.
const (
	TargetLow  = 0.01
	TargetHigh = 0.99
)

// Positions is the number of predicted digit positions, Classes the digits per position.
const (
	Positions = draw.TopWidth
	Classes   = 10
	// TargetLen is the length of a target or score vector.
	TargetLen = Positions * Classes
)

// Window is an ordered run of daily vectors, oldest first.
type Window []features.Vector

// Flatten concatenates the window into one input row.
func (w Window) Flatten() []float64 {
	if len(w) == 0 {
		return nil
	}
	out := make([]float64, 0, len(w)*len(w[0]))
	for _, v := range w {
		out = append(out, v...)
	}
	return out
}

// Target is the per-position soft one-hot encoding of a top-tier code.
type Target []float64

// NewTarget encodes a five digit top-tier code.
func NewTarget(code string) (Target, error) {
	if err := draw.ValidateCode(draw.TopTier, code); err != nil {
		return nil, err
	}
	t := make(Target, TargetLen)
	for i := range t {
		t[i] = TargetLow
	}
	for p, d := range draw.Digits(code) {
		t[p*Classes+d] = TargetHigh
	}
	return t, nil
}

// Pair is one training example: the window preceding Date and the target
// derived from Date's top-tier code.
type Pair struct {
	Date   time.Time
	Window Window
	Target Target
}

// Builder slides fixed-size windows over day groups.
type Builder struct {
	extractor *features.Extractor
	size      int
	trailing  int
}

// NewBuilder creates a builder with window length size. trailing bounds how
// many preceding days feed each vector's frequency block.
func NewBuilder(extractor *features.Extractor, size, trailing int) *Builder {
	if size <= 0 {
		size = 7
	}
	if trailing < 0 {
		trailing = 0
	}
	return &Builder{extractor: extractor, size: size, trailing: trailing}
}

// Size returns the window length.
func (b *Builder) Size() int {
	return b.size
}

// Dim returns the per-day vector dimension.
func (b *Builder) Dim() int {
	return b.extractor.Dim()
}

// Pairs builds every training pair from days, which must be sorted by date
// with at most one group per date. Target days without a usable top-tier code
// are skipped.
func (b *Builder) Pairs(days []draw.Day) ([]Pair, error) {
	if err := checkOrder(days); err != nil {
		return nil, err
	}
	if len(days) <= b.size {
		return nil, fmt.Errorf("%w: %d days, window needs %d plus a target day", ErrInsufficientHistory, len(days), b.size)
	}

	vectors := make([]features.Vector, len(days))
	for i := range days {
		vectors[i] = b.vector(days, i)
	}

	pairs := make([]Pair, 0, len(days)-b.size)
	for t := b.size; t < len(days); t++ {
		code, ok := days[t].TopCode()
		if !ok {
			log.Debug().Str("date", draw.Key(days[t].Date)).Msg("no top-tier code, skipping target day")
			continue
		}
		target, err := NewTarget(code)
		if err != nil {
			log.Debug().Err(err).Str("date", draw.Key(days[t].Date)).Msg("skipping target day")
			continue
		}
		pairs = append(pairs, Pair{
			Date:   days[t].Date,
			Window: Window(vectors[t-b.size : t]),
			Target: target,
		})
	}
	return pairs, nil
}

// Latest builds the window from the most recent days.
func (b *Builder) Latest(days []draw.Day) (Window, error) {
	if err := checkOrder(days); err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: no days recorded", ErrInsufficientHistory)
	}
	return b.tail(days), nil
}

// Before builds the window from the days strictly preceding date.
func (b *Builder) Before(days []draw.Day, date time.Time) (Window, error) {
	if err := checkOrder(days); err != nil {
		return nil, err
	}
	date = draw.Truncate(date)
	n := sort.Search(len(days), func(i int) bool {
		return !days[i].Date.Before(date)
	})
	return b.tail(days[:n]), nil
}

// tail left-pads with zero vectors when fewer than size days exist.
func (b *Builder) tail(days []draw.Day) Window {
	w := make(Window, b.size)
	pad := b.size - len(days)
	if pad < 0 {
		pad = 0
	}
	for i := 0; i < pad; i++ {
		w[i] = make(features.Vector, b.extractor.Dim())
	}
	start := len(days) - (b.size - pad)
	for i := start; i < len(days); i++ {
		w[pad+i-start] = b.vector(days, i)
	}
	return w
}

func (b *Builder) vector(days []draw.Day, i int) features.Vector {
	from := i - b.trailing
	if from < 0 {
		from = 0
	}
	return b.extractor.Extract(days[i], days[from:i], days[i].Date)
}

func checkOrder(days []draw.Day) error {
	for i := 1; i < len(days); i++ {
		prev, cur := days[i-1].Date, days[i].Date
		if draw.SameDay(prev, cur) {
			return fmt.Errorf("%w: duplicate day %s", ErrDataIntegrity, draw.Key(cur))
		}
		if cur.Before(prev) {
			return fmt.Errorf("%w: day %s follows %s", ErrDataIntegrity, draw.Key(cur), draw.Key(prev))
		}
	}
	return nil
}
