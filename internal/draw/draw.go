// Package draw defines the daily draw domain: the enumerated result tiers,
// single draw events, and the per-day groups the learning pipeline consumes.
//
// Codes are fixed-width digit strings whose width depends on the tier. A tier
// missing from a day is represented by its zero code so every day has the same
// shape regardless of how far ingestion has progressed.
package draw

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedOutcome reports a code that has the wrong width or contains
// non-digit characters.
var ErrMalformedOutcome = errors.New("malformed outcome code")

const (
	// DateLayout is the external day format used by result feeds.
	DateLayout = "02/01/2006"
	// KeyLayout is the sortable day format used for storage keys.
	KeyLayout = "2006-01-02"
)

// Event is a single ranked outcome code for one day.
type Event struct {
	Date time.Time `json:"date"`
	Tier Tier      `json:"tier"`
	Code string    `json:"code"`
}

// Day groups every known event of one calendar day.
type Day struct {
	Date   time.Time
	Events map[Tier]string
}

// NewDay creates an empty group for date.
func NewDay(date time.Time) Day {
	return Day{Date: Truncate(date), Events: make(map[Tier]string, TierCount)}
}

// Add records e in the group. The event must belong to the same day.
func (d *Day) Add(e Event) error {
	if !SameDay(d.Date, e.Date) {
		return fmt.Errorf("event for %s added to day %s", e.Date.Format(KeyLayout), d.Date.Format(KeyLayout))
	}
	if d.Events == nil {
		d.Events = make(map[Tier]string, TierCount)
	}
	d.Events[e.Tier] = e.Code
	return nil
}

// Code returns the code recorded for tier, or the tier's zero code when the
// tier is absent or its code is malformed.
func (d Day) Code(tier Tier) string {
	if c, ok := d.Events[tier]; ok && ValidateCode(tier, c) == nil {
		return c
	}
	return tier.ZeroCode()
}

// TopCode returns the raw top-tier code and whether it was present at all.
func (d Day) TopCode() (string, bool) {
	c, ok := d.Events[TopTier]
	return c, ok
}

// Complete reports whether every tier has a recorded code.
func (d Day) Complete() bool {
	for _, t := range Tiers() {
		if _, ok := d.Events[t]; !ok {
			return false
		}
	}
	return true
}

// ValidateCode checks that code has tier's width and only digits.
func ValidateCode(tier Tier, code string) error {
	width := tier.Width()
	if width == 0 {
		return fmt.Errorf("%w: unknown tier %q", ErrMalformedOutcome, tier)
	}
	if len(code) != width {
		return fmt.Errorf("%w: tier %s expects %d digits, got %q", ErrMalformedOutcome, tier, width, code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: tier %s code %q has non-digit %q", ErrMalformedOutcome, tier, code, r)
		}
	}
	return nil
}

// Digits converts a validated code into its digit values.
func Digits(code string) []int {
	out := make([]int, len(code))
	for i := range code {
		out[i] = int(code[i] - '0')
	}
	return out
}

// ParseDate parses dd/mm/yyyy, falling back to yyyy-mm-dd.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(KeyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid draw date %q: expected dd/mm/yyyy", s)
	}
	return t, nil
}

// Truncate drops the clock part of t and normalizes it to UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Key formats date as a sortable storage key.
func Key(date time.Time) string {
	return date.Format(KeyLayout)
}
