package api

import (
	"errors"
	"strings"
	"time"

	"example.com/advisor/internal/domain"
)

// WorkoutPayload is the wire form of a prescribed workout.
type WorkoutPayload struct {
	Type        string  `json:"type"`
	Zone        string  `json:"zone"`
	DurationMin int     `json:"duration_min"`
	DistanceKM  float64 `json:"distance_km,omitempty"`
}

func (p WorkoutPayload) toDomain() domain.Workout {
	zone, _ := domain.ParseZone(p.Zone)
	return domain.Workout{
		Type:        p.Type,
		Zone:        zone,
		DurationMin: p.DurationMin,
		DistanceKM:  p.DistanceKM,
	}
}

func toWorkoutView(w domain.Workout) WorkoutPayload {
	return WorkoutPayload{
		Type:        w.Type,
		Zone:        w.Zone.String(),
		DurationMin: w.DurationMin,
		DistanceKM:  w.DistanceKM,
	}
}

// PlannedSessionPayload is one entry of a multi-day plan.
type PlannedSessionPayload struct {
	Date    time.Time      `json:"date"`
	Workout WorkoutPayload `json:"workout"`
}

// ValidatePlanRequest is the payload for POST /v1/plans/validate.
type ValidatePlanRequest struct {
	Plan []PlannedSessionPayload `json:"plan"`
}

// Validate ensures request correctness.
func (r ValidatePlanRequest) Validate() error {
	if len(r.Plan) == 0 {
		return errors.New("plan must contain at least one session")
	}
	for _, session := range r.Plan {
		if session.Date.IsZero() {
			return errors.New("plan entries require a date")
		}
		if _, err := domain.ParseZone(session.Workout.Zone); err != nil {
			return errors.New("plan entries require a known intensity zone")
		}
	}
	return nil
}

// ValidatePlanResponse returns the corrected plan with the applied
// adjustments in order of application.
type ValidatePlanResponse struct {
	Plan        []PlannedSessionView `json:"plan"`
	Adjustments []ModificationView   `json:"adjustments,omitempty"`
}

// RunDecisionRequest is the payload for POST /v1/decisions/run.
type RunDecisionRequest struct {
	UserID         string                  `json:"user_id"`
	Date           time.Time               `json:"date"`
	PlannedWorkout WorkoutPayload          `json:"planned_workout"`
	Plan           []PlannedSessionPayload `json:"plan,omitempty"`
	Summary        *domain.SessionSummary  `json:"summary,omitempty"`
}

// Validate ensures request correctness.
func (r RunDecisionRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if r.Date.IsZero() {
		return errors.New("date is required")
	}
	if strings.TrimSpace(r.PlannedWorkout.Type) == "" {
		return errors.New("planned_workout.type is required")
	}
	if _, err := domain.ParseZone(r.PlannedWorkout.Zone); err != nil {
		return errors.New("planned_workout.zone is not a known intensity zone")
	}
	if r.PlannedWorkout.DurationMin < 0 {
		return errors.New("planned_workout.duration_min must be >= 0")
	}
	for _, session := range r.Plan {
		if session.Date.IsZero() {
			return errors.New("plan entries require a date")
		}
		if _, err := domain.ParseZone(session.Workout.Zone); err != nil {
			return errors.New("plan entries require a known intensity zone")
		}
	}
	return nil
}

// ModificationView records one field-level change the engine applied.
type ModificationView struct {
	Field  string `json:"field"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

func toModificationView(m domain.Modification) ModificationView {
	return ModificationView{Field: m.Field, From: m.From, To: m.To, Reason: m.Reason}
}

// VoteView exposes one agent's evaluation.
type VoteView struct {
	AgentID    string  `json:"agent_id"`
	Vote       string  `json:"vote"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Score      float64 `json:"score"`
}

// IntegrityView exposes the validator verdict.
type IntegrityView struct {
	Status       string   `json:"status"`
	Confidence   float64  `json:"confidence"`
	Flags        []string `json:"flags,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	FlaggedRatio float64  `json:"flagged_ratio"`
	SampleCount  int      `json:"sample_count"`
}

// DecisionView exposes full details about a decision.
type DecisionView struct {
	DecisionID    string             `json:"decision_id"`
	TenantID      string             `json:"tenant_id"`
	UserID        string             `json:"user_id"`
	Date          time.Time          `json:"date"`
	Action        string             `json:"action"`
	FinalWorkout  WorkoutPayload     `json:"final_workout"`
	Modifications []ModificationView `json:"modifications,omitempty"`
	Reasoning     string             `json:"reasoning"`
	Votes         []VoteView         `json:"votes"`
	Integrity     IntegrityView      `json:"integrity"`
	Phase         string             `json:"phase"`
	Superseded    bool               `json:"superseded"`
	CreatedAt     time.Time          `json:"created_at"`
}

func toDecisionView(d domain.DecisionResult) DecisionView {
	view := DecisionView{
		DecisionID:   d.ID,
		TenantID:     d.TenantID,
		UserID:       d.UserID,
		Date:         d.Date,
		Action:       string(d.Action),
		FinalWorkout: toWorkoutView(d.FinalWorkout),
		Reasoning:    d.Reasoning,
		Integrity: IntegrityView{
			Status:       string(d.Integrity.Status),
			Confidence:   d.Integrity.Confidence,
			Flags:        d.Integrity.Flags,
			Reason:       d.Integrity.Reason,
			FlaggedRatio: d.Integrity.FlaggedRatio,
			SampleCount:  d.Integrity.SampleCount,
		},
		Phase:      d.Phase,
		Superseded: d.Superseded,
		CreatedAt:  d.CreatedAt,
	}
	for _, mod := range d.Modifications {
		view.Modifications = append(view.Modifications, toModificationView(mod))
	}
	for _, vote := range d.Votes {
		view.Votes = append(view.Votes, VoteView{
			AgentID:    vote.AgentID,
			Vote:       string(vote.Vote),
			Confidence: vote.Confidence,
			Reason:     vote.Reason,
			Score:      vote.Score,
		})
	}
	return view
}

// PlannedSessionView is one corrected plan entry.
type PlannedSessionView struct {
	Date    time.Time      `json:"date"`
	Workout WorkoutPayload `json:"workout"`
}

// RunDecisionResponse describes the response body for a decision run.
type RunDecisionResponse struct {
	Decision        DecisionView         `json:"decision"`
	Plan            []PlannedSessionView `json:"plan,omitempty"`
	PlanAdjustments []ModificationView   `json:"plan_adjustments,omitempty"`
}

// ListDecisionsResponse packages list results.
type ListDecisionsResponse struct {
	Items      []DecisionView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// RunSimulationRequest is the payload for POST /v1/simulations/run.
type RunSimulationRequest struct {
	UserID        string                   `json:"user_id"`
	CurrentLoad   float64                  `json:"current_load"`
	GoalMetric    float64                  `json:"goal_metric"`
	InjuryRisk    float64                  `json:"injury_risk"`
	DaysRemaining int                      `json:"days_remaining"`
	Series        *domain.MonitoringSeries `json:"series,omitempty"`
}

// Validate ensures request correctness.
func (r RunSimulationRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if r.GoalMetric <= 0 {
		return errors.New("goal_metric must be > 0")
	}
	if r.DaysRemaining <= 0 {
		return errors.New("days_remaining must be > 0")
	}
	if r.InjuryRisk < 0 || r.InjuryRisk > 1 {
		return errors.New("injury_risk must be within [0, 1]")
	}
	return nil
}

// RunSimulationResponse carries the projection result.
type RunSimulationResponse struct {
	SuccessProbability float64 `json:"success_probability"`
	Confidence         string  `json:"confidence"`
	Trials             int     `json:"trials"`
	GrowthSlope        float64 `json:"growth_slope"`
	InjuryRisk         float64 `json:"injury_risk"`
	Fallback           bool    `json:"fallback"`
}

// ProfileRequest is the payload for PUT /v1/profiles/{user}.
type ProfileRequest struct {
	HighResponse            bool     `json:"high_response"`
	MaxHROverride           *float64 `json:"max_hr_override,omitempty"`
	ThresholdHR             float64  `json:"threshold_hr"`
	StructuralWeaknesses    []string `json:"structural_weaknesses,omitempty"`
	StrengthSessionsPerWeek int      `json:"strength_sessions_per_week"`
}

// Validate ensures request correctness.
func (r ProfileRequest) Validate() error {
	if r.ThresholdHR <= 0 {
		return errors.New("threshold_hr must be > 0")
	}
	if r.MaxHROverride != nil && *r.MaxHROverride <= r.ThresholdHR {
		return errors.New("max_hr_override must exceed threshold_hr")
	}
	if r.StrengthSessionsPerWeek < 0 {
		return errors.New("strength_sessions_per_week must be >= 0")
	}
	return nil
}

// ProfileView exposes a stored profile.
type ProfileView struct {
	UserID                  string    `json:"user_id"`
	HighResponse            bool      `json:"high_response"`
	MaxHROverride           *float64  `json:"max_hr_override,omitempty"`
	ThresholdHR             float64   `json:"threshold_hr"`
	StructuralWeaknesses    []string  `json:"structural_weaknesses,omitempty"`
	StrengthSessionsPerWeek int       `json:"strength_sessions_per_week"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func toProfileView(p domain.PhenotypeProfile) ProfileView {
	return ProfileView{
		UserID:                  p.UserID,
		HighResponse:            p.HighResponse,
		MaxHROverride:           p.MaxHROverride,
		ThresholdHR:             p.ThresholdHR,
		StructuralWeaknesses:    p.StructuralWeaknesses,
		StrengthSessionsPerWeek: p.StrengthSessionsPerWeek,
		UpdatedAt:               p.UpdatedAt,
	}
}

// ProfileUpdateResponse reports the write result.
type ProfileUpdateResponse struct {
	UserID               string `json:"user_id"`
	InvalidatedDecisions int    `json:"invalidated_decisions"`
}

// PhaseView exposes an active phase definition.
type PhaseView struct {
	Name             string    `json:"name"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	MaxZone          string    `json:"max_zone"`
	MaxWeeklyVolume  float64   `json:"max_weekly_volume_km,omitempty"`
	MaxMonthlyVolume float64   `json:"max_monthly_volume_km,omitempty"`
}
