package agents

import (
	"testing"

	"example.com/advisor/internal/domain"
)

func hrPoint(offset int, hr float64) domain.SessionDataPoint {
	v := hr
	return domain.SessionDataPoint{OffsetSec: offset, HeartRate: &v}
}

func TestMetabolicRedZoneOverrunVetoes(t *testing.T) {
	// 20 minutes at or above threshold against a 15-minute ceiling.
	points := make([]domain.SessionDataPoint, 1200)
	for i := range points {
		points[i] = hrPoint(i, 170)
	}

	vote := NewMetabolicAgent().Evaluate(points, domain.MetabolicView{RedZoneLimitMin: 15}, 165)
	if vote.Vote != domain.VoteRed {
		t.Fatalf("expected red got %s: %s", vote.Vote, vote.Reason)
	}
	if len(vote.FlaggedMetrics) != 1 || vote.FlaggedMetrics[0].Metric != "red_zone_minutes" {
		t.Fatalf("unexpected flagged metrics %v", vote.FlaggedMetrics)
	}
}

func TestMetabolicHRVDropVetoes(t *testing.T) {
	baseline := 60.0
	current := 48.0 // 20% below baseline

	vote := NewMetabolicAgent().Evaluate(nil, domain.MetabolicView{
		HRVBaseline:     &baseline,
		CurrentHRV:      &current,
		RedZoneLimitMin: 15,
	}, 165)
	if vote.Vote != domain.VoteRed {
		t.Fatalf("expected red got %s: %s", vote.Vote, vote.Reason)
	}
}

func TestMetabolicDecouplingIsACaution(t *testing.T) {
	// Second half drifts 10% above the first half at easy effort.
	points := make([]domain.SessionDataPoint, 600)
	for i := range points {
		hr := 130.0
		if i >= 300 {
			hr = 143.0
		}
		points[i] = hrPoint(i, hr)
	}

	vote := NewMetabolicAgent().Evaluate(points, domain.MetabolicView{RedZoneLimitMin: 15}, 175)
	if vote.Vote != domain.VoteAmber {
		t.Fatalf("expected amber got %s: %s", vote.Vote, vote.Reason)
	}
}

func TestMetabolicNominalSessionIsGreen(t *testing.T) {
	points := make([]domain.SessionDataPoint, 600)
	for i := range points {
		points[i] = hrPoint(i, 135)
	}
	baseline := 60.0
	current := 58.0

	vote := NewMetabolicAgent().Evaluate(points, domain.MetabolicView{
		HRVBaseline:     &baseline,
		CurrentHRV:      &current,
		RedZoneLimitMin: 15,
	}, 170)
	if vote.Vote != domain.VoteGreen {
		t.Fatalf("expected green got %s: %s", vote.Vote, vote.Reason)
	}
	if vote.Score <= 0 {
		t.Fatalf("expected positive score got %f", vote.Score)
	}
}

func TestMetabolicMissingHRVIsNotPenalised(t *testing.T) {
	vote := NewMetabolicAgent().Evaluate(nil, domain.MetabolicView{RedZoneLimitMin: 15}, 170)
	if vote.Vote != domain.VoteGreen {
		t.Fatalf("expected green got %s: %s", vote.Vote, vote.Reason)
	}
}
