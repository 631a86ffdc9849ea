package domain

import "time"

// PhenotypeProfile is the per-athlete physiological configuration. It is
// owned by the athlete, mutated only through explicit profile updates, and
// read-only to the decision engine.
type PhenotypeProfile struct {
	TenantID                string
	UserID                  string
	HighResponse            bool
	MaxHROverride           *float64
	ThresholdHR             float64
	StructuralWeaknesses    []string
	StrengthSessionsPerWeek int
	UpdatedAt               time.Time
}

// PhenotypeChanged reports whether an update touches a field that feeds the
// decision engine. Such updates invalidate any cached future decisions;
// past decisions stay untouched as historical record.
func (p PhenotypeProfile) PhenotypeChanged(next PhenotypeProfile) bool {
	if p.HighResponse != next.HighResponse {
		return true
	}
	if (p.MaxHROverride == nil) != (next.MaxHROverride == nil) {
		return true
	}
	if p.MaxHROverride != nil && next.MaxHROverride != nil && *p.MaxHROverride != *next.MaxHROverride {
		return true
	}
	return p.ThresholdHR != next.ThresholdHR
}
