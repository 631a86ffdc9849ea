// Package simulate projects long-horizon goal attainment from historical
// training volume. It fits a linear trend, escalates injury risk from
// recent load signals, and runs a bounded Monte Carlo projection.
package simulate

import (
	"math"
	"math/rand"
	"time"

	"example.com/advisor/internal/domain"
)

const (
	trialCount     = 1000
	probabilityCap = 85
	minHistory     = 7

	fallbackBase        = 30.0
	fallbackDataBonus   = 20.0
	fallbackTimeBonus   = 15.0
	fallbackTimeCapDays = 180
	riskEventFraction   = 0.5
)

// Simulator runs seeded Monte Carlo projections. A zero seed draws one
// from the clock; tests inject a fixed seed for determinism.
type Simulator struct {
	seed int64
}

// NewSimulator constructs a Simulator.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{seed: seed}
}

// Run produces the long-horizon projection. The success probability is a
// percentage hard-capped at 85: irreducible structural risk means the
// engine never reports a training outcome as more than 85% certain.
func (s *Simulator) Run(in domain.SimulationInput) domain.SimulationResult {
	if len(in.WeeklyVolume) < minHistory {
		return s.conservativeEstimate(in)
	}

	slope := regressionSlope(in.WeeklyVolume)
	cv := coefficientOfVariation(in.WeeklyVolume[len(in.WeeklyVolume)-minHistory:])
	risk := s.escalateRisk(in)

	seed := s.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	successes := 0
	for t := 0; t < trialCount; t++ {
		// Bounded approximately-normal draw: sum of four uniforms,
		// re-centered to [-1, 1].
		z := (rng.Float64() + rng.Float64() + rng.Float64() + rng.Float64() - 2) / 2

		var projected float64
		if rng.Float64() < risk*riskEventFraction {
			// A risk event regresses the athlete to 40-60% of current
			// load, more severe at higher risk.
			projected = in.CurrentLoad * (0.6 - 0.2*risk)
		} else {
			projected = in.CurrentLoad + slope*float64(in.DaysRemaining)*(1+cv*z)
		}
		if projected > in.GoalMetric {
			successes++
		}
	}

	probability := float64(successes) / trialCount * 100
	probability = clamp(probability, 1, probabilityCap)

	return domain.SimulationResult{
		SuccessProbability: probability,
		Confidence:         confidenceLabel(probability),
		Trials:             trialCount,
		GrowthSlope:        slope,
		InjuryRisk:         risk,
	}
}

// conservativeEstimate covers the sparse-history path. It blends a base
// score with data-availability and time-remaining bonuses minus an
// injury-risk penalty, and never returns zero when any data exists:
// reporting 0% confidence purely from data scarcity is a failure mode,
// not a prediction.
func (s *Simulator) conservativeEstimate(in domain.SimulationInput) domain.SimulationResult {
	points := float64(len(in.WeeklyVolume))

	score := fallbackBase
	score += fallbackDataBonus * points / minHistory
	days := float64(in.DaysRemaining)
	if days > fallbackTimeCapDays {
		days = fallbackTimeCapDays
	}
	if days > 0 {
		score += fallbackTimeBonus * days / fallbackTimeCapDays
	}
	score -= in.InjuryRisk * 0.6 * fallbackBase

	if points > 0 {
		score = clamp(score, 10, 50)
	} else {
		score = clamp(score, 5, 30)
	}

	return domain.SimulationResult{
		SuccessProbability: score,
		Confidence:         confidenceLabel(score),
		InjuryRisk:         in.InjuryRisk,
		Fallback:           true,
	}
}

// escalateRisk layers load-spike, niggle-trend, and lift-recency penalties
// on top of the caller-provided base risk.
func (s *Simulator) escalateRisk(in domain.SimulationInput) float64 {
	risk := in.InjuryRisk

	n := len(in.WeeklyVolume)
	if n >= 2 && in.WeeklyVolume[n-2] > 0 && in.WeeklyVolume[n-1] > in.WeeklyVolume[n-2]*1.2 {
		risk += 0.2
	}

	if len(in.NiggleTrend) > 0 {
		recent := in.NiggleTrend
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		var sum float64
		for _, v := range recent {
			sum += v
		}
		avg := sum / float64(len(recent))
		if avg > 4 {
			bump := (avg - 4) * 0.1
			if bump > 0.3 {
				bump = 0.3
			}
			risk += bump
		}
	}

	if in.DaysSinceLastLift != nil && *in.DaysSinceLastLift > 7 {
		risk += 0.15
	}

	return clamp(risk, 0, 0.95)
}

func regressionSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	if m == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss/float64(len(values))) / m
}

func confidenceLabel(probability float64) domain.ConfidenceLabel {
	switch {
	case probability > 80:
		return domain.ConfidenceHigh
	case probability > 50:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
