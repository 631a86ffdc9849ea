package constraint

import (
	"strings"
	"testing"
	"time"

	"example.com/advisor/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2026, time.May, d, 0, 0, 0, 0, time.UTC)
}

func session(d int, zone domain.Zone, durationMin int, distanceKM float64) domain.PlannedSession {
	return domain.PlannedSession{
		Date: day(d),
		Workout: domain.Workout{
			Type:        "run",
			Zone:        zone,
			DurationMin: durationMin,
			DistanceKM:  distanceKM,
		},
	}
}

func TestIntensitySpacingDowngradesLaterSession(t *testing.T) {
	plan := []domain.PlannedSession{
		session(1, domain.ZoneThreshold, 60, 12),
		session(2, domain.ZoneVO2Max, 40, 8),
	}

	corrected, mods := NewEngine(DefaultConfig()).Apply(plan)
	if corrected[0].Workout.Zone != domain.ZoneThreshold {
		t.Fatalf("earlier session must stand, got %s", corrected[0].Workout.Zone)
	}
	if corrected[1].Workout.Zone != domain.ZoneEndurance {
		t.Fatalf("later session must downgrade, got %s", corrected[1].Workout.Zone)
	}
	if len(mods) == 0 || !strings.Contains(mods[0].Reason, "spacing") {
		t.Fatalf("expected a spacing correction, got %v", mods)
	}
}

func TestIntensitySpacingAllowsTwoDayGap(t *testing.T) {
	plan := []domain.PlannedSession{
		session(1, domain.ZoneThreshold, 60, 12),
		session(3, domain.ZoneThreshold, 60, 12),
	}

	corrected, mods := NewEngine(DefaultConfig()).Apply(plan)
	if corrected[1].Workout.Zone != domain.ZoneThreshold {
		t.Fatalf("48h spacing is legal, got %s", corrected[1].Workout.Zone)
	}
	if len(mods) != 0 {
		t.Fatalf("expected no corrections got %v", mods)
	}
}

func TestExtremeLoadNeverBackToBack(t *testing.T) {
	plan := []domain.PlannedSession{
		session(1, domain.ZoneEndurance, 150, 0),
		session(2, domain.ZoneEndurance, 150, 0),
	}

	corrected, mods := NewEngine(DefaultConfig()).Apply(plan)
	if corrected[0].Workout.DurationMin != 150 {
		t.Fatalf("earlier extreme session must stand, got %d", corrected[0].Workout.DurationMin)
	}
	if corrected[1].Workout.DurationMin != 90 {
		t.Fatalf("later extreme session must cap at 90, got %d", corrected[1].Workout.DurationMin)
	}
	if len(mods) != 1 {
		t.Fatalf("expected one correction got %v", mods)
	}
}

func TestRampRateScalesOffendingWeek(t *testing.T) {
	plan := []domain.PlannedSession{
		session(1, domain.ZoneEndurance, 60, 15),
		session(4, domain.ZoneEndurance, 60, 15),
		session(8, domain.ZoneEndurance, 60, 30),
		session(11, domain.ZoneEndurance, 60, 30),
	}

	corrected, mods := NewEngine(DefaultConfig()).Apply(plan)
	if len(mods) != 1 {
		t.Fatalf("expected one ramp correction got %v", mods)
	}

	week2 := corrected[2].Workout.DistanceKM + corrected[3].Workout.DistanceKM
	if week2 > 33.0001 {
		t.Fatalf("second week must cap at 110%% of the first (33km), got %.2f", week2)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	plan := []domain.PlannedSession{
		session(1, domain.ZoneThreshold, 60, 12),
		session(2, domain.ZoneVO2Max, 40, 8),
	}

	_, _ = NewEngine(DefaultConfig()).Apply(plan)
	if plan[1].Workout.Zone != domain.ZoneVO2Max {
		t.Fatalf("input plan mutated: %s", plan[1].Workout.Zone)
	}
}

func TestEmptyPlanIsANoOp(t *testing.T) {
	corrected, mods := NewEngine(DefaultConfig()).Apply(nil)
	if len(corrected) != 0 || len(mods) != 0 {
		t.Fatalf("expected empty output got %v %v", corrected, mods)
	}
}
