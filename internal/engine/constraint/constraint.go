// Package constraint validates and corrects a multi-day plan against
// ramp-rate, intensity-spacing, and extreme-load rules. Conflicts are
// always resolved by downgrading the later of two sessions: near-term
// committed decisions take precedence over fixes to upcoming ones.
package constraint

import (
	"fmt"
	"sort"
	"time"

	"example.com/advisor/internal/domain"
)

// Config carries the plan-correction thresholds.
type Config struct {
	MaxWeeklyRamp       float64       // allowed week-over-week volume increase
	MinHighIntensityGap time.Duration // spacing between high-intensity sessions
	ExtremeDurationMin  int           // session duration qualifying as extreme load
	ExtremeDistanceKM   float64       // session distance qualifying as extreme load
}

// DefaultConfig returns the default correction thresholds.
func DefaultConfig() Config {
	return Config{
		MaxWeeklyRamp:       0.10,
		MinHighIntensityGap: 48 * time.Hour,
		ExtremeDurationMin:  120,
		ExtremeDistanceKM:   25,
	}
}

// Engine applies the plan constraints.
type Engine struct {
	cfg Config
}

// NewEngine constructs an Engine.
func NewEngine(cfg Config) *Engine {
	if cfg.MaxWeeklyRamp <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// Apply returns a corrected copy of the plan plus the ordered list of
// corrections. The input plan is not mutated.
func (e *Engine) Apply(plan []domain.PlannedSession) ([]domain.PlannedSession, []domain.Modification) {
	corrected := make([]domain.PlannedSession, len(plan))
	copy(corrected, plan)
	sort.Slice(corrected, func(i, j int) bool { return corrected[i].Date.Before(corrected[j].Date) })

	var mods []domain.Modification
	mods = append(mods, e.enforceIntensitySpacing(corrected)...)
	mods = append(mods, e.enforceExtremeLoadSpacing(corrected)...)
	mods = append(mods, e.enforceRampRate(corrected)...)
	return corrected, mods
}

// enforceIntensitySpacing downgrades the later of two high-intensity
// sessions scheduled closer together than the minimum gap.
func (e *Engine) enforceIntensitySpacing(plan []domain.PlannedSession) []domain.Modification {
	var mods []domain.Modification
	var lastHigh *time.Time

	for i := range plan {
		if plan[i].Workout.Zone < domain.ZoneThreshold {
			continue
		}
		if lastHigh != nil && plan[i].Date.Sub(*lastHigh) < e.cfg.MinHighIntensityGap {
			from := plan[i].Workout.Zone
			plan[i].Workout.Zone = domain.ZoneEndurance
			mods = append(mods, domain.Modification{
				Field:  fmt.Sprintf("plan[%s].zone", plan[i].Date.Format("2006-01-02")),
				From:   from.String(),
				To:     plan[i].Workout.Zone.String(),
				Reason: fmt.Sprintf("high-intensity sessions need %s spacing", e.cfg.MinHighIntensityGap),
			})
			continue
		}
		d := plan[i].Date
		lastHigh = &d
	}
	return mods
}

// enforceExtremeLoadSpacing forbids two extreme-load sessions back to back.
func (e *Engine) enforceExtremeLoadSpacing(plan []domain.PlannedSession) []domain.Modification {
	var mods []domain.Modification
	var lastExtreme *time.Time

	for i := range plan {
		if !e.isExtreme(plan[i].Workout) {
			continue
		}
		if lastExtreme != nil && plan[i].Date.Sub(*lastExtreme) <= 24*time.Hour {
			from := plan[i].Workout
			if plan[i].Workout.DurationMin > 90 {
				plan[i].Workout.DurationMin = 90
			}
			plan[i].Workout.Zone = domain.MinZone(plan[i].Workout.Zone, domain.ZoneEndurance)
			mods = append(mods, domain.Modification{
				Field:  fmt.Sprintf("plan[%s].workout", plan[i].Date.Format("2006-01-02")),
				From:   fmt.Sprintf("%s %dmin", from.Zone, from.DurationMin),
				To:     fmt.Sprintf("%s %dmin", plan[i].Workout.Zone, plan[i].Workout.DurationMin),
				Reason: "two extreme-load sessions back to back",
			})
			continue
		}
		d := plan[i].Date
		lastExtreme = &d
	}
	return mods
}

// enforceRampRate caps week-over-week volume growth, scaling down every
// session of an offending week so the corrected volumes cascade forward.
func (e *Engine) enforceRampRate(plan []domain.PlannedSession) []domain.Modification {
	if len(plan) == 0 {
		return nil
	}

	weeks := make(map[int][]int) // week index -> plan indices
	var weekKeys []int
	for i := range plan {
		wk := weekIndex(plan[0].Date, plan[i].Date)
		if _, ok := weeks[wk]; !ok {
			weekKeys = append(weekKeys, wk)
		}
		weeks[wk] = append(weeks[wk], i)
	}
	sort.Ints(weekKeys)

	var mods []domain.Modification
	prevVolume := -1.0
	for _, wk := range weekKeys {
		volume := 0.0
		for _, i := range weeks[wk] {
			volume += sessionVolume(plan[i].Workout)
		}
		if prevVolume > 0 {
			allowed := prevVolume * (1 + e.cfg.MaxWeeklyRamp)
			if volume > allowed && volume > 0 {
				factor := allowed / volume
				for _, i := range weeks[wk] {
					plan[i].Workout.DurationMin = int(float64(plan[i].Workout.DurationMin) * factor)
					plan[i].Workout.DistanceKM *= factor
				}
				mods = append(mods, domain.Modification{
					Field:  fmt.Sprintf("plan.week[%d].volume", wk),
					From:   fmt.Sprintf("%.1f", volume),
					To:     fmt.Sprintf("%.1f", allowed),
					Reason: fmt.Sprintf("week-over-week ramp capped at %.0f%%", e.cfg.MaxWeeklyRamp*100),
				})
				volume = allowed
			}
		}
		prevVolume = volume
	}
	return mods
}

func (e *Engine) isExtreme(w domain.Workout) bool {
	return w.DurationMin > e.cfg.ExtremeDurationMin ||
		w.Zone == domain.ZoneVO2Max ||
		w.DistanceKM > e.cfg.ExtremeDistanceKM
}

// sessionVolume measures a session in distance units, falling back to a
// duration-derived estimate when no distance is planned.
func sessionVolume(w domain.Workout) float64 {
	if w.DistanceKM > 0 {
		return w.DistanceKM
	}
	return float64(w.DurationMin) / 6
}

func weekIndex(origin, date time.Time) int {
	days := int(date.Sub(origin).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 7
}
