// Package agents contains the three independent domain evaluators. Each is
// a pure function from its own slice of the day's snapshot to a vote; no
// agent reads another agent's output.
package agents

import (
	"fmt"

	"example.com/advisor/internal/domain"
)

// Agent identifiers attached to every vote.
const (
	AgentStructural = "structural"
	AgentMetabolic  = "metabolic"
	AgentFueling    = "fueling"
)

const (
	maxNiggleScore    = 3
	volumeRedOverage  = 0.20
	defaultLiftWindow = 5
	armoredLiftWindow = 7
	greenScoreFloor   = 80
)

// StructuralAgent models mechanical load risk as a strictly ordered veto
// ladder: pain > volume overload > maintenance neglect > nominal. A
// triggered rung short-circuits and is never diluted by the later checks.
type StructuralAgent struct{}

// NewStructuralAgent constructs a StructuralAgent.
func NewStructuralAgent() *StructuralAgent {
	return &StructuralAgent{}
}

// Evaluate maps the structural view to a vote.
func (a *StructuralAgent) Evaluate(view domain.StructuralView) domain.AgentVote {
	vote := domain.AgentVote{AgentID: AgentStructural, Confidence: 0.9}

	// Pain overrides everything else this agent would compute.
	if view.NiggleScore > maxNiggleScore {
		vote.Vote = domain.VoteRed
		vote.Score = 0
		vote.Confidence = 1.0
		vote.Reason = fmt.Sprintf("niggle score %.0f exceeds %d, hard stop", view.NiggleScore, maxNiggleScore)
		vote.FlaggedMetrics = []domain.FlaggedMetric{{
			Metric: "niggle_score", Value: view.NiggleScore, Threshold: maxNiggleScore,
		}}
		return vote
	}

	cap := volumeCap(view.TonnageTier)
	excess := view.CurrentWeeklyVolume - cap
	if excess > volumeRedOverage*cap {
		vote.Vote = domain.VoteRed
		vote.Score = 10
		vote.Reason = fmt.Sprintf("weekly volume %.0fkm exceeds %s-tier cap %.0fkm by more than %.0f%%",
			view.CurrentWeeklyVolume, view.TonnageTier, cap, volumeRedOverage*100)
		vote.FlaggedMetrics = []domain.FlaggedMetric{{
			Metric: "weekly_volume_km", Value: view.CurrentWeeklyVolume, Threshold: cap,
		}}
		return vote
	}
	if excess > 0 {
		vote.Vote = domain.VoteAmber
		vote.Score = 55
		vote.Reason = fmt.Sprintf("weekly volume %.0fkm over %s-tier cap %.0fkm", view.CurrentWeeklyVolume, view.TonnageTier, cap)
		vote.FlaggedMetrics = []domain.FlaggedMetric{{
			Metric: "weekly_volume_km", Value: view.CurrentWeeklyVolume, Threshold: cap,
		}}
		return vote
	}

	liftWindow := liftWindowDays(view.TonnageTier)
	if view.DaysSinceLastLift > liftWindow {
		vote.Vote = domain.VoteAmber
		vote.Score = 65
		vote.Reason = fmt.Sprintf("%d days since last qualifying lift, window is %d", view.DaysSinceLastLift, liftWindow)
		vote.FlaggedMetrics = []domain.FlaggedMetric{{
			Metric: "days_since_last_lift", Value: float64(view.DaysSinceLastLift), Threshold: float64(liftWindow),
		}}
		return vote
	}

	vote.Vote = domain.VoteGreen
	vote.Score = greenScore(view, cap, liftWindow)
	vote.Reason = "structural load nominal"
	return vote
}

// volumeCap sizes the allowed weekly running volume from the strength tier.
func volumeCap(tier domain.TonnageTier) float64 {
	return tier.Multiplier()*20 + 60
}

// liftWindowDays returns the allowed days without a qualifying lift. Tiers
// from strength upward earn the extended "armored chassis" window.
func liftWindowDays(tier domain.TonnageTier) int {
	if tier >= domain.TierStrength {
		return armoredLiftWindow
	}
	return defaultLiftWindow
}

// greenScore derives a continuous risk score from niggle magnitude, lift
// recency, and volume utilisation. Green always scores at least 80.
func greenScore(view domain.StructuralView, cap float64, liftWindow int) float64 {
	score := 100.0
	score -= view.NiggleScore * 4
	if liftWindow > 0 {
		score -= 6 * float64(view.DaysSinceLastLift) / float64(liftWindow)
	}
	if cap > 0 && view.CurrentWeeklyVolume > 0 {
		score -= 6 * view.CurrentWeeklyVolume / cap
	}
	if score < greenScoreFloor {
		score = greenScoreFloor
	}
	return score
}
