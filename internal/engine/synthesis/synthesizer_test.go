package synthesis

import (
	"strings"
	"testing"

	"example.com/advisor/internal/domain"
)

var buildPhase = domain.PhaseDefinition{Name: "build", MaxZone: domain.ZoneThreshold}

func green(agent string) domain.AgentVote {
	return domain.AgentVote{AgentID: agent, Vote: domain.VoteGreen, Score: 90}
}

func red(agent, reason string) domain.AgentVote {
	return domain.AgentVote{AgentID: agent, Vote: domain.VoteRed, Reason: reason, Score: 10}
}

func amber(agent, reason string) domain.AgentVote {
	return domain.AgentVote{AgentID: agent, Vote: domain.VoteAmber, Reason: reason, Score: 60}
}

func validVerdict() domain.IntegrityVerdict {
	return domain.IntegrityVerdict{Status: domain.IntegrityValid, Confidence: 1}
}

func plannedRun() domain.Workout {
	return domain.Workout{Type: "run", Zone: domain.ZoneTempo, DurationMin: 80, DistanceKM: 16}
}

func TestAllGreenExecutesAsPlanned(t *testing.T) {
	votes := []domain.AgentVote{green("structural"), green("metabolic"), green("fueling")}

	out := NewSynthesizer().Synthesize(validVerdict(), votes, plannedRun(), buildPhase)
	if out.Action != domain.ActionExecutedAsPlanned {
		t.Fatalf("expected executed_as_planned got %s", out.Action)
	}
	if out.FinalWorkout != plannedRun() {
		t.Fatalf("planned workout must pass through untouched, got %+v", out.FinalWorkout)
	}
	if len(out.Modifications) != 0 {
		t.Fatalf("expected no modifications got %v", out.Modifications)
	}
}

func TestSingleRedSubstitutes(t *testing.T) {
	votes := []domain.AgentVote{red("structural", "niggle score 4 exceeds 3"), green("metabolic"), green("fueling")}

	out := NewSynthesizer().Synthesize(validVerdict(), votes, plannedRun(), buildPhase)
	if out.Action != domain.ActionSubstituted {
		t.Fatalf("expected substituted got %s", out.Action)
	}
	if out.FinalWorkout.Type != "cross_train" {
		t.Fatalf("expected non-impact substitute got %s", out.FinalWorkout.Type)
	}
	if out.FinalWorkout.Zone != domain.ZoneRecovery {
		t.Fatalf("substitute must be recovery zone, got %s", out.FinalWorkout.Zone)
	}
	if out.FinalWorkout.DurationMin != 45 {
		t.Fatalf("substitute duration capped at 45, got %d", out.FinalWorkout.DurationMin)
	}
	if !strings.Contains(out.Reasoning, "structural") {
		t.Fatalf("reasoning must name the vetoing agent: %s", out.Reasoning)
	}
}

func TestTwoRedsShutDown(t *testing.T) {
	votes := []domain.AgentVote{
		red("structural", "niggle score 5"),
		red("metabolic", "HRV down 20%"),
		green("fueling"),
	}

	out := NewSynthesizer().Synthesize(validVerdict(), votes, plannedRun(), buildPhase)
	if out.Action != domain.ActionShutdown {
		t.Fatalf("expected shutdown got %s", out.Action)
	}
	if out.FinalWorkout.Type != "rest" || out.FinalWorkout.DurationMin != 0 {
		t.Fatalf("shutdown prescribes complete rest, got %+v", out.FinalWorkout)
	}
}

func TestAmberCapsIntensityAndDuration(t *testing.T) {
	votes := []domain.AgentVote{amber("metabolic", "aerobic decoupling 7.2% above 5%"), green("structural"), green("fueling")}

	out := NewSynthesizer().Synthesize(validVerdict(), votes, plannedRun(), buildPhase)
	if out.Action != domain.ActionModified {
		t.Fatalf("expected modified got %s", out.Action)
	}
	if out.FinalWorkout.Zone != domain.ZoneEndurance {
		t.Fatalf("expected one-zone downgrade got %s", out.FinalWorkout.Zone)
	}
	if out.FinalWorkout.DurationMin != 60 {
		t.Fatalf("expected 75%% duration got %d", out.FinalWorkout.DurationMin)
	}
}

func TestPhaseCeilingCapsPlannedIntensity(t *testing.T) {
	votes := []domain.AgentVote{green("structural"), green("metabolic"), green("fueling")}
	planned := domain.Workout{Type: "intervals", Zone: domain.ZoneVO2Max, DurationMin: 50}
	base := domain.PhaseDefinition{Name: "base", MaxZone: domain.ZoneEndurance}

	out := NewSynthesizer().Synthesize(validVerdict(), votes, planned, base)
	if out.Action != domain.ActionModified {
		t.Fatalf("expected modified got %s", out.Action)
	}
	if out.FinalWorkout.Zone != domain.ZoneEndurance {
		t.Fatalf("expected ceiling at endurance got %s", out.FinalWorkout.Zone)
	}
	if len(out.Modifications) != 1 || out.Modifications[0].Field != "zone" {
		t.Fatalf("expected a single zone modification got %v", out.Modifications)
	}
}

func TestPhaseCeilingAtLimitIsUntouched(t *testing.T) {
	votes := []domain.AgentVote{green("structural"), green("metabolic"), green("fueling")}
	planned := domain.Workout{Type: "run", Zone: domain.ZoneEndurance, DurationMin: 60}
	base := domain.PhaseDefinition{Name: "base", MaxZone: domain.ZoneEndurance}

	out := NewSynthesizer().Synthesize(validVerdict(), votes, planned, base)
	if out.Action != domain.ActionExecutedAsPlanned {
		t.Fatalf("workout at the ceiling needs no downgrade, got %s", out.Action)
	}
	if len(out.Modifications) != 0 {
		t.Fatalf("expected no modifications got %v", out.Modifications)
	}
}

func TestPhaseCeilingIsIdempotent(t *testing.T) {
	votes := []domain.AgentVote{green("structural"), green("metabolic"), green("fueling")}
	planned := domain.Workout{Type: "intervals", Zone: domain.ZoneVO2Max, DurationMin: 50}
	base := domain.PhaseDefinition{Name: "base", MaxZone: domain.ZoneEndurance}

	synth := NewSynthesizer()
	once := synth.Synthesize(validVerdict(), votes, planned, base)
	twice := synth.Synthesize(validVerdict(), votes, once.FinalWorkout, base)

	if twice.FinalWorkout.Zone != once.FinalWorkout.Zone {
		t.Fatalf("re-applying the ceiling changed the zone: %s vs %s", twice.FinalWorkout.Zone, once.FinalWorkout.Zone)
	}
	if len(twice.Modifications) != 0 {
		t.Fatalf("already-capped workout must not be modified again, got %v", twice.Modifications)
	}
	if twice.Action != domain.ActionExecutedAsPlanned {
		t.Fatalf("already-capped workout executes as planned, got %s", twice.Action)
	}
}

func TestSuspectVerdictAnnotatesReasoning(t *testing.T) {
	votes := []domain.AgentVote{green("structural"), green("metabolic"), green("fueling")}
	suspect := domain.IntegrityVerdict{Status: domain.IntegritySuspect, Confidence: 0.7}

	out := NewSynthesizer().Synthesize(suspect, votes, plannedRun(), buildPhase)
	if !strings.Contains(out.Reasoning, "data quality suspect") {
		t.Fatalf("reasoning must flag suspect data: %s", out.Reasoning)
	}
	if out.Action != domain.ActionExecutedAsPlanned {
		t.Fatalf("suspect data alone does not change the action, got %s", out.Action)
	}
}
