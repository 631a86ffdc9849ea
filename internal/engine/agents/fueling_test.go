package agents

import (
	"testing"

	"example.com/advisor/internal/domain"
)

func TestFuelingVetoBeyondCriticalDuration(t *testing.T) {
	agent := NewFuelingAgent(DefaultFuelingConfig())

	// Long history exists, but carbs were never logged at intake.
	history := []domain.FuelingSession{
		{DurationMin: 120, CarbsPerHour: 10, DistressScore: 1},
		{DurationMin: 110, CarbsPerHour: 15, DistressScore: 3},
		{DurationMin: 60, CarbsPerHour: 0, DistressScore: 0},
	}

	vote := agent.Evaluate(domain.FuelingView{NextRunDurationMin: 150, History: history})
	if vote.Vote != domain.VoteRed {
		t.Fatalf("expected red got %s: %s", vote.Vote, vote.Reason)
	}
	if len(vote.FlaggedMetrics) != 1 || vote.FlaggedMetrics[0].Metric != "gut_training_index" {
		t.Fatalf("unexpected flagged metrics %v", vote.FlaggedMetrics)
	}
}

func TestFuelingMarginalDurationIsACaution(t *testing.T) {
	agent := NewFuelingAgent(DefaultFuelingConfig())

	vote := agent.Evaluate(domain.FuelingView{NextRunDurationMin: 100})
	if vote.Vote != domain.VoteAmber {
		t.Fatalf("expected amber got %s: %s", vote.Vote, vote.Reason)
	}
}

func TestFuelingTrainedGutPasses(t *testing.T) {
	agent := NewFuelingAgent(DefaultFuelingConfig())

	history := []domain.FuelingSession{
		{DurationMin: 120, CarbsPerHour: 60, DistressScore: 1},
		{DurationMin: 150, CarbsPerHour: 55, DistressScore: 0},
		{DurationMin: 100, CarbsPerHour: 45, DistressScore: 2},
	}

	vote := agent.Evaluate(domain.FuelingView{NextRunDurationMin: 150, History: history})
	if vote.Vote != domain.VoteGreen {
		t.Fatalf("expected green got %s: %s", vote.Vote, vote.Reason)
	}
	if vote.Score != 100 {
		t.Fatalf("fully trained gut scores 100, got %f", vote.Score)
	}
}

func TestFuelingShortRunNeedsNoGutTraining(t *testing.T) {
	agent := NewFuelingAgent(DefaultFuelingConfig())

	vote := agent.Evaluate(domain.FuelingView{NextRunDurationMin: 60})
	if vote.Vote != domain.VoteGreen {
		t.Fatalf("expected green got %s: %s", vote.Vote, vote.Reason)
	}
	if vote.Score != 80 {
		t.Fatalf("no history yields the base score, got %f", vote.Score)
	}
}
