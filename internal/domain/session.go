package domain

import "time"

// SessionDataPoint is one wearable sample. HeartRate and Cadence are
// pointers because either channel can drop out independently.
type SessionDataPoint struct {
	OffsetSec int      `json:"offset_sec"`
	HeartRate *float64 `json:"hr_bpm,omitempty"`
	Cadence   *float64 `json:"cadence_spm,omitempty"`
}

// HR returns the heart-rate reading, or 0 when missing.
func (p SessionDataPoint) HR() float64 {
	if p.HeartRate == nil {
		return 0
	}
	return *p.HeartRate
}

// Cad returns the cadence reading, or 0 when missing.
func (p SessionDataPoint) Cad() float64 {
	if p.Cadence == nil {
		return 0
	}
	return *p.Cadence
}

// StructuralView is the slice of the day's data the structural agent reads.
type StructuralView struct {
	NiggleScore         float64     `json:"niggle_score"`
	DaysSinceLastLift   int         `json:"days_since_last_lift"`
	TonnageTier         TonnageTier `json:"tonnage_tier"`
	CurrentWeeklyVolume float64     `json:"current_weekly_volume_km"`
}

// MetabolicView is the slice the metabolic agent reads. HRV values are
// optional because not every athlete records a morning reading.
type MetabolicView struct {
	HRVBaseline     *float64 `json:"hrv_baseline,omitempty"`
	CurrentHRV      *float64 `json:"current_hrv,omitempty"`
	RedZoneLimitMin float64  `json:"red_zone_limit_min"`
}

// FuelingSession is one historical session as seen by the fueling agent.
type FuelingSession struct {
	DurationMin   float64 `json:"duration_min"`
	CarbsPerHour  float64 `json:"carbs_per_hour"`
	DistressScore float64 `json:"distress_score"`
}

// FuelingView is the slice the fueling agent reads.
type FuelingView struct {
	NextRunDurationMin float64          `json:"next_run_duration_min"`
	History            []FuelingSession `json:"history"`
}

// SessionSummary is the immutable snapshot of one day's data, pre-sliced
// into per-agent views by the upstream aggregator. No agent reads another
// agent's slice.
type SessionSummary struct {
	TenantID   string             `json:"tenant_id"`
	UserID     string             `json:"user_id"`
	Date       time.Time          `json:"session_date"`
	Points     []SessionDataPoint `json:"points"`
	Structural StructuralView     `json:"structural"`
	Metabolic  MetabolicView      `json:"metabolic"`
	Fueling    FuelingView        `json:"fueling"`
	ReceivedAt time.Time          `json:"received_at"`
}

// MonitoringSeries carries the read-only historical arrays consumed by the
// long-horizon simulator.
type MonitoringSeries struct {
	WeeklyVolume      []float64 `json:"weekly_volume_km"`
	NiggleTrend       []float64 `json:"niggle_trend"`
	DaysSinceLastLift *int      `json:"days_since_last_lift,omitempty"`
}

// MonitoringEntry is one week of subjective and volume monitoring as
// ingested from the monitoring topic.
type MonitoringEntry struct {
	TenantID          string    `json:"tenant_id"`
	UserID            string    `json:"user_id"`
	WeekStart         time.Time `json:"week_start"`
	WeeklyVolumeKM    float64   `json:"weekly_volume_km"`
	NiggleScore       *float64  `json:"niggle_score,omitempty"`
	DaysSinceLastLift *int      `json:"days_since_last_lift,omitempty"`
}
