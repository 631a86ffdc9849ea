package agents

import (
	"fmt"

	"example.com/advisor/internal/domain"
)

// FuelingConfig carries the gut-training veto thresholds. They are
// configuration rather than hard-coded invariants because the exact
// cutoffs are still being calibrated against race-day outcomes.
type FuelingConfig struct {
	LongSessionMin  float64 // history sessions above this count as gut training
	VetoDurationMin float64 // upcoming sessions above this hard-require the index
	MinGutIndex     float64
	MaxDistress     float64
	MinCarbsPerHour float64
}

// DefaultFuelingConfig returns the thresholds used unless overridden.
func DefaultFuelingConfig() FuelingConfig {
	return FuelingConfig{
		LongSessionMin:  90,
		VetoDurationMin: 120,
		MinGutIndex:     0.5,
		MaxDistress:     2,
		MinCarbsPerHour: 30,
	}
}

// FuelingAgent models gut readiness. It mirrors the structural ladder: a
// hard veto beyond the duration/index combination, else pass.
type FuelingAgent struct {
	cfg FuelingConfig
}

// NewFuelingAgent constructs a FuelingAgent with the given thresholds.
func NewFuelingAgent(cfg FuelingConfig) *FuelingAgent {
	if cfg.LongSessionMin <= 0 {
		cfg = DefaultFuelingConfig()
	}
	return &FuelingAgent{cfg: cfg}
}

// Evaluate maps the fueling view to a vote.
func (a *FuelingAgent) Evaluate(view domain.FuelingView) domain.AgentVote {
	vote := domain.AgentVote{AgentID: AgentFueling, Confidence: 0.85}

	index := a.gutIndex(view.History)

	if view.NextRunDurationMin > a.cfg.VetoDurationMin && index < a.cfg.MinGutIndex {
		vote.Vote = domain.VoteRed
		vote.Score = 10
		vote.Reason = fmt.Sprintf("gut-training index %.2f too low for a %.0f minute session", index, view.NextRunDurationMin)
		vote.FlaggedMetrics = []domain.FlaggedMetric{{
			Metric: "gut_training_index", Value: index, Threshold: a.cfg.MinGutIndex,
		}}
		return vote
	}

	if view.NextRunDurationMin > a.cfg.LongSessionMin && index < a.cfg.MinGutIndex {
		vote.Vote = domain.VoteAmber
		vote.Score = 60
		vote.Reason = fmt.Sprintf("gut-training index %.2f marginal for a %.0f minute session", index, view.NextRunDurationMin)
		vote.FlaggedMetrics = []domain.FlaggedMetric{{
			Metric: "gut_training_index", Value: index, Threshold: a.cfg.MinGutIndex,
		}}
		return vote
	}

	score := 80 + 20*index
	if score > 100 {
		score = 100
	}
	vote.Vote = domain.VoteGreen
	vote.Score = score
	vote.Reason = "fueling readiness adequate"
	return vote
}

// gutIndex is the fraction of historical long sessions with adequately
// logged carbohydrate intake and low gastrointestinal distress.
func (a *FuelingAgent) gutIndex(history []domain.FuelingSession) float64 {
	longCount := 0
	adequate := 0
	for _, s := range history {
		if s.DurationMin <= a.cfg.LongSessionMin {
			continue
		}
		longCount++
		if s.CarbsPerHour >= a.cfg.MinCarbsPerHour && s.DistressScore <= a.cfg.MaxDistress {
			adequate++
		}
	}
	if longCount == 0 {
		return 0
	}
	return float64(adequate) / float64(longCount)
}
