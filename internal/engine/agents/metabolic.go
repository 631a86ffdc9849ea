package agents

import (
	"fmt"

	"example.com/advisor/internal/domain"
)

const (
	hrvDropRedFraction  = 0.15
	decouplingAmberPct  = 5.0
	maxSampleGapSeconds = 10
)

// MetabolicAgent models cardiac and systemic load. It derives aerobic
// decoupling and red-zone minutes from the session points it is given and
// compares morning HRV against the athlete's baseline.
type MetabolicAgent struct{}

// NewMetabolicAgent constructs a MetabolicAgent.
func NewMetabolicAgent() *MetabolicAgent {
	return &MetabolicAgent{}
}

// Evaluate maps the metabolic view plus the session stream to a vote.
// thresholdHR is the athlete's known anaerobic-threshold heart rate.
func (a *MetabolicAgent) Evaluate(points []domain.SessionDataPoint, view domain.MetabolicView, thresholdHR float64) domain.AgentVote {
	vote := domain.AgentVote{AgentID: AgentMetabolic, Confidence: 0.9}

	decoupling := aerobicDecoupling(points)
	redZoneMin := redZoneMinutes(points, thresholdHR)
	hrvDrop := hrvDropFraction(view)

	if redZoneMin > view.RedZoneLimitMin {
		vote.Vote = domain.VoteRed
		vote.Score = 10
		vote.Reason = fmt.Sprintf("%.1f red-zone minutes exceed plan ceiling of %.1f", redZoneMin, view.RedZoneLimitMin)
		vote.FlaggedMetrics = []domain.FlaggedMetric{{
			Metric: "red_zone_minutes", Value: redZoneMin, Threshold: view.RedZoneLimitMin,
		}}
		return vote
	}

	// Systemic fatigue is checked independently of intensity discipline.
	if hrvDrop >= hrvDropRedFraction {
		vote.Vote = domain.VoteRed
		vote.Score = 10
		vote.Reason = fmt.Sprintf("HRV down %.0f%% from baseline, systemic fatigue", hrvDrop*100)
		vote.FlaggedMetrics = []domain.FlaggedMetric{{
			Metric: "hrv_drop_fraction", Value: hrvDrop, Threshold: hrvDropRedFraction,
		}}
		return vote
	}

	if decoupling > decouplingAmberPct {
		vote.Vote = domain.VoteAmber
		vote.Score = 60
		vote.Reason = fmt.Sprintf("aerobic decoupling %.1f%% above %.0f%%", decoupling, decouplingAmberPct)
		vote.FlaggedMetrics = []domain.FlaggedMetric{{
			Metric: "aerobic_decoupling_pct", Value: decoupling, Threshold: decouplingAmberPct,
		}}
		return vote
	}

	score := 100.0
	score -= decoupling * 3
	if view.RedZoneLimitMin > 0 {
		score -= 10 * redZoneMin / view.RedZoneLimitMin
	}
	score -= hrvDrop * 50
	if score < 0 {
		score = 0
	}
	vote.Vote = domain.VoteGreen
	vote.Score = score
	vote.Reason = "metabolic load nominal"
	return vote
}

// aerobicDecoupling returns the percentage rise in average heart rate from
// the first half of the session to the second, floored at zero: negative
// drift is not penalised.
func aerobicDecoupling(points []domain.SessionDataPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	half := len(points) / 2
	first := meanHR(points[:half])
	second := meanHR(points[half:])
	if first <= 0 {
		return 0
	}
	drift := (second - first) / first * 100
	if drift < 0 {
		return 0
	}
	return drift
}

// redZoneMinutes sums time spent at or above the threshold heart rate,
// deriving per-sample durations from timestamp deltas.
func redZoneMinutes(points []domain.SessionDataPoint, thresholdHR float64) float64 {
	if thresholdHR <= 0 {
		return 0
	}
	var seconds float64
	prevOffset := -1
	for _, p := range points {
		dt := 1.0
		if prevOffset >= 0 {
			gap := p.OffsetSec - prevOffset
			if gap <= 0 || gap > maxSampleGapSeconds {
				gap = 1
			}
			dt = float64(gap)
		}
		prevOffset = p.OffsetSec
		if p.HeartRate != nil && p.HR() >= thresholdHR {
			seconds += dt
		}
	}
	return seconds / 60
}

func hrvDropFraction(view domain.MetabolicView) float64 {
	if view.HRVBaseline == nil || view.CurrentHRV == nil || *view.HRVBaseline <= 0 {
		return 0
	}
	drop := (*view.HRVBaseline - *view.CurrentHRV) / *view.HRVBaseline
	if drop < 0 {
		return 0
	}
	return drop
}

func meanHR(points []domain.SessionDataPoint) float64 {
	var sum float64
	var n int
	for _, p := range points {
		if p.HeartRate != nil && p.HR() > 0 {
			sum += p.HR()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
