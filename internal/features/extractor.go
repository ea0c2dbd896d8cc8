// Package features turns one day of draw results plus its trailing history
// into a fixed-length numeric vector.
//
// The output is laid out as four consecutive blocks:
//
//	[DigitsOffset, StatsOffset)     every tier digit, divided by 9
//	[StatsOffset, CalendarOffset)   per tier digit sum and variance, scaled to [0,1]
//	[CalendarOffset, HistOffset)    weekday one-hot, month one-hot, position in month
//	[HistOffset, Dim)               trailing top-tier digit frequency per position
//
// Extraction is a pure function of its arguments.
package features

import (
	"time"

	"drawcast/internal/draw"
)

const (
	maxDigit    = 9.0
	maxVariance = 20.25 // digits split evenly between 0 and 9

	weekdays = 7
	months   = 12
)

// Block offsets and the total dimension.
var (
	DigitsOffset   = 0
	StatsOffset    = DigitsOffset + draw.TotalDigits()
	CalendarOffset = StatsOffset + 2*draw.TierCount
	HistOffset     = CalendarOffset + weekdays + months + 1
	Dim            = HistOffset + draw.TopWidth*10
)

// Vector is one day's feature vector.
type Vector []float64

// Extractor builds feature vectors.
type Extractor struct{}

// NewExtractor returns an extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Dim returns the length of every vector this extractor produces.
func (e *Extractor) Dim() int {
	return Dim
}

// Extract builds the vector for day. trailing holds the preceding days,
// oldest first; only their top-tier codes are consulted. Missing or malformed
// tiers in day count as zero codes.
func (e *Extractor) Extract(day draw.Day, trailing []draw.Day, date time.Time) Vector {
	v := make(Vector, Dim)

	pos := DigitsOffset
	for i, tier := range draw.Tiers() {
		digits := draw.Digits(day.Code(tier))
		var sum float64
		for _, d := range digits {
			v[pos] = float64(d) / maxDigit
			sum += float64(d)
			pos++
		}
		mean := sum / float64(len(digits))
		var variance float64
		for _, d := range digits {
			diff := float64(d) - mean
			variance += diff * diff
		}
		variance /= float64(len(digits))

		v[StatsOffset+2*i] = sum / (maxDigit * float64(len(digits)))
		v[StatsOffset+2*i+1] = variance / maxVariance
	}

	calendar(v[CalendarOffset:HistOffset], date)
	histogram(v[HistOffset:], trailing)

	return v
}

func calendar(dst []float64, date time.Time) {
	dst[int(date.Weekday())] = 1
	dst[weekdays+int(date.Month())-1] = 1

	last := daysIn(date.Year(), date.Month())
	dst[weekdays+months] = float64(date.Day()-1) / float64(last-1)
}

func histogram(dst []float64, trailing []draw.Day) {
	if len(trailing) == 0 {
		return
	}
	for _, d := range trailing {
		code := d.Code(draw.TopTier)
		for p, digit := range draw.Digits(code) {
			dst[p*10+digit]++
		}
	}
	n := float64(len(trailing))
	for i := range dst {
		dst[i] /= n
	}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
