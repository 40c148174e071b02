package scheduling

import (
	"time"

	"github.com/google/uuid"

	"example.com/sawmill/services/mill/internal/models"
)

// Interval is a half-open time range claimed by a subject (an employee
// or a piece of equipment).
type Interval struct {
	SubjectID uuid.UUID
	Start     time.Time
	End       time.Time
}

// Validate rejects zero-length and inverted intervals.
func (iv Interval) Validate() error {
	if !iv.Start.Before(iv.End) {
		return models.ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether two intervals for the same subject conflict.
// Touching endpoints do not conflict: a shift ending at 16:00 and one
// starting at 16:00 can coexist.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// HasConflict scans the existing intervals of a subject and reports
// whether any of them overlaps the candidate. Linear scan; the per-subject
// interval counts here never justify an index.
func HasConflict(candidate Interval, existing []Interval) bool {
	for _, iv := range existing {
		if Overlaps(candidate, iv) {
			return true
		}
	}
	return false
}
