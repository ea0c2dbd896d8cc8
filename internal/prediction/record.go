// Package prediction holds the per-target-date prediction record and its
// one-way scoring transition.
package prediction

import (
	"errors"
	"time"

	"drawcast/internal/draw"
)

// ErrAlreadyScored is returned when a scored record is asked to transition again.
var ErrAlreadyScored = errors.New("prediction already scored")

// Record is the stored prediction for one target date.
type Record struct {
	TargetDate time.Time  `json:"target_date"`
	Model      string     `json:"model"`
	Positions  [][]string `json:"positions"` // top-k candidate digits per position, best first
	Scored     bool       `json:"scored"`
}

// Key returns the record identifier.
func (r Record) Key() string {
	return draw.Key(r.TargetDate)
}

// MarkScored moves the record from unscored to scored.
func (r *Record) MarkScored() error {
	if r.Scored {
		return ErrAlreadyScored
	}
	r.Scored = true
	return nil
}

// Hits counts the positions whose realized digit is among the candidates.
// code must be a valid top-tier code.
func (r Record) Hits(code string) int {
	hits := 0
	for p, d := range draw.Digits(code) {
		if p >= len(r.Positions) {
			break
		}
		for _, c := range r.Positions[p] {
			if c == string(rune('0'+d)) {
				hits++
				break
			}
		}
	}
	return hits
}
