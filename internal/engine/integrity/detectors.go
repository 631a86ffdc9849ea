package integrity

import (
	"example.com/advisor/internal/domain"
)

const (
	lockWindowSamples  = 60
	lockCorrelation    = 0.95
	lockRunSeconds     = 300
	highCadenceFloor   = 175
	cadenceHRTolerance = 5

	dropoutDeltaBPM = 40

	clipRunSeconds = 120

	overrideHeadroomBPM = 5
	genericCeilingBPM   = 210
)

// detection is the result of one artifact check: the sample indices it
// flagged plus, for the cadence-lock check, the longest sustained run.
type detection struct {
	label      string
	indices    []int
	longestRun int // seconds
}

// detectCadenceLock slides a fixed window across the stream and flags
// consecutive runs of windows whose HR/cadence Pearson correlation exceeds
// the lock threshold for at least five minutes. Habitually high-cadence
// athletes whose mean HR sits within a small tolerance of mean cadence are
// exempt: the coupling is plausible physiology, not a sensor lock.
func detectCadenceLock(points []domain.SessionDataPoint) detection {
	det := detection{label: "cadence_lock"}
	if len(points) < lockWindowSamples {
		return det
	}

	var hrs, cads []float64
	for _, p := range points {
		if p.HeartRate != nil && p.Cadence != nil && p.HR() > 0 && p.Cad() > 0 {
			hrs = append(hrs, p.HR())
			cads = append(cads, p.Cad())
		}
	}
	meanCad := mean(cads)
	meanHR := mean(hrs)
	if meanCad >= highCadenceFloor && absFloat(meanHR-meanCad) <= cadenceHRTolerance {
		return det
	}

	streakStart := -1 // first sample index of the current streak
	streakEnd := -1   // last sample index covered by the current streak

	closeStreak := func() {
		if streakStart < 0 {
			return
		}
		runSec := points[streakEnd].OffsetSec - points[streakStart].OffsetSec
		if runSec >= lockRunSeconds {
			for i := streakStart; i <= streakEnd; i++ {
				det.indices = append(det.indices, i)
			}
			if runSec > det.longestRun {
				det.longestRun = runSec
			}
		}
		streakStart, streakEnd = -1, -1
	}

	window := make([]float64, 0, lockWindowSamples)
	cadWindow := make([]float64, 0, lockWindowSamples)

	for start := 0; start+lockWindowSamples <= len(points); start++ {
		window = window[:0]
		cadWindow = cadWindow[:0]
		complete := true
		for i := start; i < start+lockWindowSamples; i++ {
			p := points[i]
			if p.HeartRate == nil || p.Cadence == nil || p.HR() <= 0 || p.Cad() <= 0 {
				complete = false
				break
			}
			window = append(window, p.HR())
			cadWindow = append(cadWindow, p.Cad())
		}
		if !complete {
			// A zero/missing reading makes the correlation undefined;
			// the streak counter resets rather than silently extending.
			closeStreak()
			continue
		}

		r, ok := pearson(window, cadWindow)
		if !ok || r <= lockCorrelation {
			closeStreak()
			continue
		}

		if streakStart < 0 {
			streakStart = start
		}
		streakEnd = start + lockWindowSamples - 1
	}
	closeStreak()

	return det
}

// detectDropout flags samples whose heart-rate delta from the previous
// reading exceeds the dropout threshold.
func detectDropout(points []domain.SessionDataPoint) detection {
	det := detection{label: "hr_dropout"}
	prev := -1.0
	for i, p := range points {
		if p.HeartRate == nil || p.HR() <= 0 {
			continue
		}
		hr := p.HR()
		if prev > 0 && absFloat(hr-prev) > dropoutDeltaBPM {
			det.indices = append(det.indices, i)
		}
		prev = hr
	}
	return det
}

// detectClipping flags runs where a signal is stuck at one identical value
// beyond the clip duration threshold.
func detectClipping(points []domain.SessionDataPoint) detection {
	det := detection{label: "value_clipping"}
	det.indices = append(det.indices, clippedRuns(points, func(p domain.SessionDataPoint) float64 { return p.HR() })...)
	det.indices = append(det.indices, clippedRuns(points, func(p domain.SessionDataPoint) float64 { return p.Cad() })...)
	return det
}

func clippedRuns(points []domain.SessionDataPoint, value func(domain.SessionDataPoint) float64) []int {
	var flagged []int
	runStart := -1
	var runValue float64

	flush := func(end int) {
		if runStart < 0 || end <= runStart {
			runStart = -1
			return
		}
		if points[end].OffsetSec-points[runStart].OffsetSec > clipRunSeconds {
			for i := runStart; i <= end; i++ {
				flagged = append(flagged, i)
			}
		}
		runStart = -1
	}

	for i, p := range points {
		v := value(p)
		if v <= 0 {
			if runStart >= 0 {
				flush(i - 1)
			}
			continue
		}
		switch {
		case runStart < 0:
			runStart = i
			runValue = v
		case v != runValue:
			flush(i - 1)
			runStart = i
			runValue = v
		}
	}
	if runStart >= 0 {
		flush(len(points) - 1)
	}
	return flagged
}

// detectImplausible flags heart-rate samples above the athlete's ceiling.
// When a per-user override exists, readings below override+headroom are
// never flagged even past the generic physiological ceiling: the override
// is deliberate per-user calibration, not a bug.
func detectImplausible(points []domain.SessionDataPoint, profile domain.PhenotypeProfile) detection {
	det := detection{label: "implausible_hr"}
	ceiling := float64(genericCeilingBPM)
	if profile.MaxHROverride != nil {
		ceiling = *profile.MaxHROverride + overrideHeadroomBPM
	}
	for i, p := range points {
		if p.HeartRate == nil {
			continue
		}
		if p.HR() > ceiling {
			det.indices = append(det.indices, i)
		}
	}
	return det
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
