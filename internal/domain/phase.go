package domain

import "time"

// PhaseDefinition is a calendar-bounded training period with its own
// volume and intensity ceilings. Phases are contiguous and non-overlapping;
// exactly one is active for any given date.
type PhaseDefinition struct {
	Name                   string
	Start                  time.Time
	End                    time.Time
	MaxZone                Zone
	MaxWeeklyVolume        float64
	MaxMonthlyVolume       float64
	HRBandLow              float64
	HRBandHigh             float64
	MinStructuralIntegrity *float64
}

// Contains reports whether the date falls inside the phase interval.
// Start is inclusive, End exclusive.
func (p PhaseDefinition) Contains(date time.Time) bool {
	d := date.UTC().Truncate(24 * time.Hour)
	return !d.Before(p.Start) && d.Before(p.End)
}
