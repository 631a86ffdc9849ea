// Package phase provides the training-phase calendar: contiguous,
// non-overlapping calendar intervals with their own intensity and volume
// ceilings. Lookup is a pure function of date.
package phase

import (
	"fmt"
	"sort"
	"time"

	"example.com/advisor/internal/domain"
)

// Calendar holds the validated phase sequence.
type Calendar struct {
	phases []domain.PhaseDefinition
}

// NewCalendar validates the phases and returns a Calendar. Phases must be
// contiguous and non-overlapping so that exactly one is active for any
// date within the covered range.
func NewCalendar(phases []domain.PhaseDefinition) (*Calendar, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("phase calendar is empty")
	}

	sorted := make([]domain.PhaseDefinition, len(phases))
	copy(sorted, phases)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	for i, p := range sorted {
		if !p.End.After(p.Start) {
			return nil, fmt.Errorf("phase %q ends before it starts", p.Name)
		}
		if !p.MaxZone.Valid() {
			return nil, fmt.Errorf("phase %q has no valid intensity ceiling", p.Name)
		}
		if i > 0 && !sorted[i-1].End.Equal(p.Start) {
			return nil, fmt.Errorf("phase %q does not start where %q ends", p.Name, sorted[i-1].Name)
		}
	}

	return &Calendar{phases: sorted}, nil
}

// ActiveOn returns the phase covering the date.
func (c *Calendar) ActiveOn(date time.Time) (domain.PhaseDefinition, error) {
	for _, p := range c.phases {
		if p.Contains(date) {
			return p, nil
		}
	}
	return domain.PhaseDefinition{}, fmt.Errorf("%w: %s", domain.ErrNoActivePhase, date.Format("2006-01-02"))
}

// Span returns the first start and last end of the calendar.
func (c *Calendar) Span() (time.Time, time.Time) {
	return c.phases[0].Start, c.phases[len(c.phases)-1].End
}
