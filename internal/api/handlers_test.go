package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"example.com/advisor/internal/auth"
	"example.com/advisor/internal/domain"
	"example.com/advisor/internal/engine/agents"
	"example.com/advisor/internal/engine/constraint"
	"example.com/advisor/internal/engine/integrity"
	"example.com/advisor/internal/engine/simulate"
	"example.com/advisor/internal/engine/synthesis"
	"example.com/advisor/internal/phase"
)

func testCalendar(t *testing.T) *phase.Calendar {
	t.Helper()
	calendar, err := phase.NewCalendar([]domain.PhaseDefinition{
		{
			Name:            "build",
			Start:           time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:             time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
			MaxZone:         domain.ZoneThreshold,
			MaxWeeklyVolume: 120,
		},
	})
	if err != nil {
		t.Fatalf("failed to build calendar: %v", err)
	}
	return calendar
}

func newTestHandler(t *testing.T, profiles *stubProfiles, decisions *stubDecisions, monitoring *stubMonitoring) *Handler {
	t.Helper()
	service := domain.NewService(domain.ServiceDeps{
		Profiles:   profiles,
		Sessions:   &stubSessions{},
		Monitoring: monitoring,
		Decisions:  decisions,
		Calendar:   testCalendar(t),
		Validator:  integrity.NewValidator(),
		Structural: agents.NewStructuralAgent(),
		Metabolic:  agents.NewMetabolicAgent(),
		Fueling:    agents.NewFuelingAgent(agents.DefaultFuelingConfig()),
		Synth:      synthesis.NewSynthesizer(),
		Plans:      constraint.NewEngine(constraint.DefaultConfig()),
		Sim:        simulate.NewSimulator(42),
		Logger:     zerolog.New(zerolog.NewTestWriter(t)),
	})
	return NewHandler(service)
}

func writeClaims(req *http.Request, scopes ...string) *http.Request {
	claims := &auth.Claims{
		Subject:   "tester",
		TenantID:  "tenant-1",
		Scopes:    map[string]struct{}{},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	for _, scope := range scopes {
		claims.Scopes[scope] = struct{}{}
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestRunDecisionExecutedAsPlanned(t *testing.T) {
	profiles := &stubProfiles{profile: &domain.PhenotypeProfile{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		ThresholdHR: 165,
	}}
	decisions := &stubDecisions{}
	handler := newTestHandler(t, profiles, decisions, &stubMonitoring{})

	body, _ := json.Marshal(RunDecisionRequest{
		UserID: "user-1",
		Date:   time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
		PlannedWorkout: WorkoutPayload{
			Type:        "run",
			Zone:        "endurance",
			DurationMin: 60,
			DistanceKM:  12,
		},
		Summary: &domain.SessionSummary{
			TenantID: "tenant-1",
			UserID:   "user-1",
			Date:     time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
			Structural: domain.StructuralView{
				NiggleScore:         1,
				DaysSinceLastLift:   2,
				TonnageTier:         domain.TierStrength,
				CurrentWeeklyVolume: 70,
			},
			Metabolic: domain.MetabolicView{RedZoneLimitMin: 15},
			Fueling:   domain.FuelingView{NextRunDurationMin: 60},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/decisions/run", bytes.NewReader(body))
	req = writeClaims(req, auth.ScopeDecisionsWrite)
	rr := httptest.NewRecorder()
	handler.runDecision(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RunDecisionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Decision.Action != string(domain.ActionExecutedAsPlanned) {
		t.Fatalf("expected executed_as_planned got %s", resp.Decision.Action)
	}
	if len(resp.Decision.Votes) != 3 {
		t.Fatalf("expected 3 votes got %d", len(resp.Decision.Votes))
	}
	if resp.Decision.Integrity.Status != string(domain.IntegrityValid) {
		t.Fatalf("expected valid integrity got %s", resp.Decision.Integrity.Status)
	}
	if resp.Decision.Phase != "build" {
		t.Fatalf("expected phase build got %s", resp.Decision.Phase)
	}
	if len(decisions.saved) != 1 {
		t.Fatalf("expected one persisted decision got %d", len(decisions.saved))
	}
}

func TestRunDecisionIntegrityRejected(t *testing.T) {
	profiles := &stubProfiles{profile: &domain.PhenotypeProfile{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		ThresholdHR: 165,
	}}
	decisions := &stubDecisions{}
	handler := newTestHandler(t, profiles, decisions, &stubMonitoring{})

	// Alternating 60 bpm jumps flag nearly every sample as a dropout
	// artifact, pushing the flagged ratio past the rejection cutoff.
	points := make([]domain.SessionDataPoint, 120)
	for i := range points {
		hr := 100.0
		if i%2 == 1 {
			hr = 160.0
		}
		v := hr
		points[i] = domain.SessionDataPoint{OffsetSec: i, HeartRate: &v}
	}

	body, _ := json.Marshal(RunDecisionRequest{
		UserID: "user-1",
		Date:   time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
		PlannedWorkout: WorkoutPayload{
			Type:        "run",
			Zone:        "endurance",
			DurationMin: 60,
		},
		Summary: &domain.SessionSummary{
			TenantID: "tenant-1",
			UserID:   "user-1",
			Date:     time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
			Points:   points,
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/decisions/run", bytes.NewReader(body))
	req = writeClaims(req, auth.ScopeDecisionsWrite)
	rr := httptest.NewRecorder()
	handler.runDecision(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", rr.Code, rr.Body.String())
	}
	if len(decisions.saved) != 0 {
		t.Fatalf("rejected session must not persist a decision, got %d", len(decisions.saved))
	}
	if decisions.rejections != 1 {
		t.Fatalf("expected one rejection audit record got %d", decisions.rejections)
	}

	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if payload["type"] != "integrity_rejected" {
		t.Fatalf("expected integrity_rejected got %s", payload["type"])
	}
}

func TestRunDecisionRequiresWriteScope(t *testing.T) {
	handler := newTestHandler(t, &stubProfiles{}, &stubDecisions{}, &stubMonitoring{})

	req := httptest.NewRequest(http.MethodPost, "/v1/decisions/run", bytes.NewReader([]byte("{}")))
	req = writeClaims(req, auth.ScopeDecisionsRead)
	rr := httptest.NewRecorder()
	handler.runDecision(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestRunDecisionValidatesBody(t *testing.T) {
	handler := newTestHandler(t, &stubProfiles{}, &stubDecisions{}, &stubMonitoring{})

	body, _ := json.Marshal(RunDecisionRequest{
		Date:           time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
		PlannedWorkout: WorkoutPayload{Type: "run", Zone: "endurance"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/decisions/run", bytes.NewReader(body))
	req = writeClaims(req, auth.ScopeDecisionsWrite)
	rr := httptest.NewRecorder()
	handler.runDecision(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRunSimulationOnStoredSeries(t *testing.T) {
	monitoring := &stubMonitoring{series: domain.MonitoringSeries{
		WeeklyVolume: []float64{40, 42, 44, 46, 48, 50, 52, 54, 56, 58, 60, 62},
		NiggleTrend:  []float64{0, 0, 1, 0, 1, 0, 0, 1, 0, 0, 1, 0},
	}}
	handler := newTestHandler(t, &stubProfiles{}, &stubDecisions{}, monitoring)

	body, _ := json.Marshal(RunSimulationRequest{
		UserID:        "user-1",
		CurrentLoad:   62,
		GoalMetric:    70,
		InjuryRisk:    0.1,
		DaysRemaining: 60,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/simulations/run", bytes.NewReader(body))
	req = writeClaims(req, auth.ScopeSimulationsRun)
	rr := httptest.NewRecorder()
	handler.runSimulation(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RunSimulationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SuccessProbability < 1 || resp.SuccessProbability > 85 {
		t.Fatalf("probability %.2f outside [1, 85]", resp.SuccessProbability)
	}
	if resp.Confidence == "" {
		t.Fatal("expected a confidence label")
	}
}

func TestGetProfileNotFound(t *testing.T) {
	handler := newTestHandler(t, &stubProfiles{}, &stubDecisions{}, &stubMonitoring{})

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/user-1", nil)
	req = writeClaims(req, auth.ScopeProfilesRead)
	rr := httptest.NewRecorder()
	handler.profileByUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestPutProfileInvalidatesFutureDecisions(t *testing.T) {
	profiles := &stubProfiles{profile: &domain.PhenotypeProfile{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		ThresholdHR: 160,
	}}
	decisions := &stubDecisions{invalidated: 3}
	handler := newTestHandler(t, profiles, decisions, &stubMonitoring{})

	body, _ := json.Marshal(ProfileRequest{ThresholdHR: 168})
	req := httptest.NewRequest(http.MethodPut, "/v1/profiles/user-1", bytes.NewReader(body))
	req = writeClaims(req, auth.ScopeProfilesWrite)
	rr := httptest.NewRecorder()
	handler.profileByUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ProfileUpdateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.InvalidatedDecisions != 3 {
		t.Fatalf("expected 3 invalidated decisions got %d", resp.InvalidatedDecisions)
	}
	if profiles.upserted == nil {
		t.Fatal("expected profile upsert")
	}
	if profiles.upserted.ThresholdHR != 168 {
		t.Fatalf("expected threshold 168 got %.0f", profiles.upserted.ThresholdHR)
	}
}

func TestActivePhaseByDate(t *testing.T) {
	handler := newTestHandler(t, &stubProfiles{}, &stubDecisions{}, &stubMonitoring{})

	req := httptest.NewRequest(http.MethodGet, "/v1/phases/active?date=2026-03-15", nil)
	req = writeClaims(req, auth.ScopeDecisionsRead)
	rr := httptest.NewRecorder()
	handler.activePhase(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp PhaseView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "build" {
		t.Fatalf("expected phase build got %s", resp.Name)
	}
	if resp.MaxZone != "threshold" {
		t.Fatalf("expected max zone threshold got %s", resp.MaxZone)
	}
}

func TestActivePhaseOutsideCalendar(t *testing.T) {
	handler := newTestHandler(t, &stubProfiles{}, &stubDecisions{}, &stubMonitoring{})

	req := httptest.NewRequest(http.MethodGet, "/v1/phases/active?date=2031-03-15", nil)
	req = writeClaims(req, auth.ScopeDecisionsRead)
	rr := httptest.NewRecorder()
	handler.activePhase(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestValidatePlanCorrectsSpacing(t *testing.T) {
	handler := newTestHandler(t, &stubProfiles{}, &stubDecisions{}, &stubMonitoring{})

	body, _ := json.Marshal(ValidatePlanRequest{
		Plan: []PlannedSessionPayload{
			{
				Date:    time.Date(2026, time.June, 8, 0, 0, 0, 0, time.UTC),
				Workout: WorkoutPayload{Type: "run", Zone: "threshold", DurationMin: 60, DistanceKM: 12},
			},
			{
				Date:    time.Date(2026, time.June, 9, 0, 0, 0, 0, time.UTC),
				Workout: WorkoutPayload{Type: "run", Zone: "vo2max", DurationMin: 45, DistanceKM: 10},
			},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/plans/validate", bytes.NewReader(body))
	req = writeClaims(req, auth.ScopeDecisionsWrite)
	rr := httptest.NewRecorder()
	handler.validatePlan(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ValidatePlanResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Plan) != 2 {
		t.Fatalf("expected 2 sessions got %d", len(resp.Plan))
	}
	if resp.Plan[1].Workout.Zone != "endurance" {
		t.Fatalf("expected second session downgraded to endurance got %s", resp.Plan[1].Workout.Zone)
	}
	if len(resp.Adjustments) == 0 {
		t.Fatal("expected at least one adjustment")
	}
}

func TestValidatePlanRejectsEmptyPlan(t *testing.T) {
	handler := newTestHandler(t, &stubProfiles{}, &stubDecisions{}, &stubMonitoring{})

	body, _ := json.Marshal(ValidatePlanRequest{})
	req := httptest.NewRequest(http.MethodPost, "/v1/plans/validate", bytes.NewReader(body))
	req = writeClaims(req, auth.ScopeDecisionsWrite)
	rr := httptest.NewRecorder()
	handler.validatePlan(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

type stubProfiles struct {
	profile  *domain.PhenotypeProfile
	upserted *domain.PhenotypeProfile
}

func (s *stubProfiles) GetProfile(ctx context.Context, tenantID, userID string) (*domain.PhenotypeProfile, error) {
	return s.profile, nil
}

func (s *stubProfiles) UpsertProfile(ctx context.Context, profile domain.PhenotypeProfile, phenotypeChanged bool) error {
	s.upserted = &profile
	return nil
}

type stubSessions struct{}

func (s *stubSessions) SummaryForDate(ctx context.Context, tenantID, userID string, date time.Time) (*domain.SessionSummary, error) {
	return nil, nil
}

type stubMonitoring struct {
	series domain.MonitoringSeries
}

func (s *stubMonitoring) Series(ctx context.Context, tenantID, userID string, weeks int) (domain.MonitoringSeries, error) {
	return s.series, nil
}

type stubDecisions struct {
	saved       []domain.DecisionResult
	rejections  int
	invalidated int
}

func (s *stubDecisions) Save(ctx context.Context, decision domain.DecisionResult) error {
	s.saved = append(s.saved, decision)
	return nil
}

func (s *stubDecisions) GetDecision(ctx context.Context, tenantID, decisionID string) (*domain.DecisionResult, error) {
	for i := range s.saved {
		if s.saved[i].ID == decisionID {
			return &s.saved[i], nil
		}
	}
	return nil, nil
}

func (s *stubDecisions) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.DecisionResult, *domain.Cursor, error) {
	return s.saved, nil, nil
}

func (s *stubDecisions) InvalidateFuture(ctx context.Context, tenantID, userID string, after time.Time) (int, error) {
	return s.invalidated, nil
}

func (s *stubDecisions) RecordIntegrityRejection(ctx context.Context, tenantID, userID string, date time.Time, verdict domain.IntegrityVerdict) error {
	s.rejections++
	return nil
}
