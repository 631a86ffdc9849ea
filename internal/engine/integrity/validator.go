// Package integrity screens raw session data for sensor artifacts before
// any decision logic sees it. A rejected verdict halts the pipeline.
package integrity

import (
	"fmt"
	"sort"

	"example.com/advisor/internal/domain"
)

const (
	rejectRatio  = 0.20
	suspectRatio = 0.10
)

// Validator aggregates the artifact detectors into a single verdict.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Evaluate runs every artifact check over the session and assigns the
// overall verdict. A sustained cadence lock longer than five minutes is a
// critical failure and rejects the session outright, regardless of how
// small a fraction of samples it covers.
func (v *Validator) Evaluate(points []domain.SessionDataPoint, profile domain.PhenotypeProfile) domain.IntegrityVerdict {
	if len(points) == 0 {
		return domain.IntegrityVerdict{
			Status:     domain.IntegrityValid,
			Confidence: 1.0,
			Reason:     "no samples recorded",
		}
	}

	detections := []detection{
		detectCadenceLock(points),
		detectDropout(points),
		detectClipping(points),
		detectImplausible(points, profile),
	}

	flagged := make(map[int]struct{})
	var flags []string
	sustainedLock := 0
	for _, det := range detections {
		if len(det.indices) == 0 {
			continue
		}
		flags = append(flags, det.label)
		for _, idx := range det.indices {
			flagged[idx] = struct{}{}
		}
		if det.longestRun > sustainedLock {
			sustainedLock = det.longestRun
		}
	}
	sort.Strings(flags)

	ratio := float64(len(flagged)) / float64(len(points))
	verdict := domain.IntegrityVerdict{
		Flags:        flags,
		FlaggedRatio: ratio,
		SampleCount:  len(points),
	}

	switch {
	case sustainedLock > lockRunSeconds:
		verdict.Status = domain.IntegrityRejected
		verdict.Confidence = 0
		verdict.Reason = fmt.Sprintf("sustained cadence lock of %ds exceeds %ds", sustainedLock, lockRunSeconds)
	case ratio > rejectRatio:
		verdict.Status = domain.IntegrityRejected
		verdict.Confidence = 0
		verdict.Reason = fmt.Sprintf("%.0f%% of samples flagged as artifacts", ratio*100)
	case ratio > suspectRatio:
		verdict.Status = domain.IntegritySuspect
		// Confidence decays linearly from 1.0 to 0.5 as the flagged
		// ratio approaches the rejection threshold.
		verdict.Confidence = 1.0 - (ratio-suspectRatio)*(0.5/(rejectRatio-suspectRatio))
		verdict.Reason = fmt.Sprintf("%.0f%% of samples flagged, treat metrics with caution", ratio*100)
	default:
		verdict.Status = domain.IntegrityValid
		verdict.Confidence = 1.0 - ratio // never below 0.9 while ratio <= 0.10
	}

	return verdict
}
