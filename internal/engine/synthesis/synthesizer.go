// Package synthesis deterministically combines the three agent votes and
// the integrity verdict into one daily decision. It is a state machine,
// not a weighted average: a red vote is a hard boundary that intensity
// capping alone cannot fix.
package synthesis

import (
	"fmt"
	"strings"

	"example.com/advisor/internal/domain"
)

const (
	substituteMaxDurationMin = 45
	modifiedDurationFraction = 0.75
)

// Synthesizer combines votes into a decision and applies the active
// phase's intensity ceiling.
type Synthesizer struct{}

// NewSynthesizer constructs a Synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize applies the vote rules, then the phase ceiling. The integrity
// verdict must already be non-rejected; callers enforce that sequencing.
//
// Rules: two or more reds shut the day down, one red substitutes a
// low-risk alternative, ambers only cap the planned workout, all green
// executes as planned.
func (s *Synthesizer) Synthesize(verdict domain.IntegrityVerdict, votes []domain.AgentVote, planned domain.Workout, phase domain.PhaseDefinition) domain.SynthesisOutcome {
	reds := votesOf(votes, domain.VoteRed)
	ambers := votesOf(votes, domain.VoteAmber)

	var out domain.SynthesisOutcome
	switch {
	case len(reds) >= 2:
		out.Action = domain.ActionShutdown
		out.FinalWorkout = domain.Workout{Type: "rest", Zone: domain.ZoneRecovery, DurationMin: 0}
		out.Modifications = append(out.Modifications, domain.Modification{
			Field:  "workout",
			From:   describeWorkout(planned),
			To:     "complete rest",
			Reason: fmt.Sprintf("%d red votes: %s", len(reds), joinReasons(reds)),
		})
		out.Reasoning = fmt.Sprintf("multiple hard boundaries crossed (%s); complete rest prescribed", joinReasons(reds))

	case len(reds) == 1:
		substitute := domain.Workout{
			Type:        "cross_train",
			Zone:        domain.ZoneRecovery,
			DurationMin: minInt(planned.DurationMin, substituteMaxDurationMin),
		}
		out.Action = domain.ActionSubstituted
		out.FinalWorkout = substitute
		out.Modifications = append(out.Modifications, domain.Modification{
			Field:  "workout",
			From:   describeWorkout(planned),
			To:     describeWorkout(substitute),
			Reason: reds[0].Reason,
		})
		out.Reasoning = fmt.Sprintf("%s agent veto: %s; substituted non-impact alternative", reds[0].AgentID, reds[0].Reason)

	case len(ambers) > 0:
		capped := planned
		if capped.Zone > domain.ZoneRecovery {
			capped.Zone--
		}
		capped.DurationMin = int(float64(planned.DurationMin) * modifiedDurationFraction)
		out.Action = domain.ActionModified
		out.FinalWorkout = capped
		out.Modifications = append(out.Modifications, domain.Modification{
			Field:  "intensity",
			From:   describeWorkout(planned),
			To:     describeWorkout(capped),
			Reason: joinReasons(ambers),
		})
		out.Reasoning = fmt.Sprintf("caution flags (%s); intensity and duration capped", joinReasons(ambers))

	default:
		out.Action = domain.ActionExecutedAsPlanned
		out.FinalWorkout = planned
		out.Reasoning = "all agents green; proceed as planned"
	}

	if verdict.Status == domain.IntegritySuspect {
		out.Reasoning = fmt.Sprintf("%s (data quality suspect, confidence %.2f)", out.Reasoning, verdict.Confidence)
	}

	return applyPhaseCeiling(out, phase)
}

// applyPhaseCeiling downgrades the synthesized workout to the phase's
// maximum zone. The downgrade always picks min(suggested, ceiling) by the
// zone order and is idempotent.
func applyPhaseCeiling(out domain.SynthesisOutcome, phase domain.PhaseDefinition) domain.SynthesisOutcome {
	if !phase.MaxZone.Valid() || out.FinalWorkout.Zone <= phase.MaxZone {
		return out
	}

	from := out.FinalWorkout.Zone
	out.FinalWorkout.Zone = domain.MinZone(out.FinalWorkout.Zone, phase.MaxZone)
	out.Modifications = append(out.Modifications, domain.Modification{
		Field:  "zone",
		From:   from.String(),
		To:     out.FinalWorkout.Zone.String(),
		Reason: fmt.Sprintf("phase %q caps intensity at %s", phase.Name, phase.MaxZone),
	})
	if out.Action == domain.ActionExecutedAsPlanned {
		out.Action = domain.ActionModified
	}
	return out
}

func votesOf(votes []domain.AgentVote, color domain.VoteColor) []domain.AgentVote {
	var matched []domain.AgentVote
	for _, v := range votes {
		if v.Vote == color {
			matched = append(matched, v)
		}
	}
	return matched
}

func joinReasons(votes []domain.AgentVote) string {
	parts := make([]string, 0, len(votes))
	for _, v := range votes {
		parts = append(parts, fmt.Sprintf("%s: %s", v.AgentID, v.Reason))
	}
	return strings.Join(parts, "; ")
}

func describeWorkout(w domain.Workout) string {
	return fmt.Sprintf("%s %s %dmin", w.Type, w.Zone, w.DurationMin)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
