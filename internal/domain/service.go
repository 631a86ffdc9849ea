// Package domain defines the decision-engine types and the orchestration
// service that runs one daily decision cycle.
package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SynthesisOutcome is the synthesized prescription before persistence
// concerns are attached.
type SynthesisOutcome struct {
	Action        Action
	FinalWorkout  Workout
	Modifications []Modification
	Reasoning     string
}

// SimulationInput carries everything one long-horizon simulation needs.
type SimulationInput struct {
	CurrentLoad       float64
	InjuryRisk        float64
	GoalMetric        float64
	DaysRemaining     int
	WeeklyVolume      []float64
	NiggleTrend       []float64
	DaysSinceLastLift *int
}

// ProfileStore persists phenotype profiles. phenotypeChanged reports
// whether the write touches a field the decision engine reads, so the
// store can attach it to the audit trail.
type ProfileStore interface {
	GetProfile(ctx context.Context, tenantID, userID string) (*PhenotypeProfile, error)
	UpsertProfile(ctx context.Context, profile PhenotypeProfile, phenotypeChanged bool) error
}

// SessionStore yields the day's pre-sliced session snapshot.
type SessionStore interface {
	SummaryForDate(ctx context.Context, tenantID, userID string, date time.Time) (*SessionSummary, error)
}

// MonitoringStore yields the historical series the simulator consumes.
type MonitoringStore interface {
	Series(ctx context.Context, tenantID, userID string, weeks int) (MonitoringSeries, error)
}

// DecisionStore persists decisions and their audit trail. Save supersedes
// any earlier decision for the same user and date in the same transaction.
type DecisionStore interface {
	Save(ctx context.Context, decision DecisionResult) error
	GetDecision(ctx context.Context, tenantID, decisionID string) (*DecisionResult, error)
	ListByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]DecisionResult, *Cursor, error)
	InvalidateFuture(ctx context.Context, tenantID, userID string, after time.Time) (int, error)
	RecordIntegrityRejection(ctx context.Context, tenantID, userID string, date time.Time, verdict IntegrityVerdict) error
}

// PhaseCalendar resolves the active training phase for a date.
type PhaseCalendar interface {
	ActiveOn(date time.Time) (PhaseDefinition, error)
}

// IntegrityValidator screens the raw stream before any agent runs.
type IntegrityValidator interface {
	Evaluate(points []SessionDataPoint, profile PhenotypeProfile) IntegrityVerdict
}

// StructuralEvaluator votes on mechanical load.
type StructuralEvaluator interface {
	Evaluate(view StructuralView) AgentVote
}

// MetabolicEvaluator votes on cardiac and systemic load.
type MetabolicEvaluator interface {
	Evaluate(points []SessionDataPoint, view MetabolicView, thresholdHR float64) AgentVote
}

// FuelingEvaluator votes on gut readiness.
type FuelingEvaluator interface {
	Evaluate(view FuelingView) AgentVote
}

// VoteSynthesizer combines votes into a prescription.
type VoteSynthesizer interface {
	Synthesize(verdict IntegrityVerdict, votes []AgentVote, planned Workout, phase PhaseDefinition) SynthesisOutcome
}

// PlanCorrector validates and corrects a multi-day plan.
type PlanCorrector interface {
	Apply(plan []PlannedSession) ([]PlannedSession, []Modification)
}

// Simulator projects long-horizon goal attainment.
type Simulator interface {
	Run(in SimulationInput) SimulationResult
}

// NarrativeDispatcher hands a finished decision to the external narrative
// generator. Implementations are fire-and-forget: they must never block
// or fail the decision.
type NarrativeDispatcher interface {
	Dispatch(decision DecisionResult)
}

// ServiceDeps wires the engine together explicitly at construction time.
type ServiceDeps struct {
	Profiles   ProfileStore
	Sessions   SessionStore
	Monitoring MonitoringStore
	Decisions  DecisionStore
	Calendar   PhaseCalendar
	Validator  IntegrityValidator
	Structural StructuralEvaluator
	Metabolic  MetabolicEvaluator
	Fueling    FuelingEvaluator
	Synth      VoteSynthesizer
	Plans      PlanCorrector
	Sim        Simulator
	Narrative  NarrativeDispatcher
	Logger     zerolog.Logger
}

// Service orchestrates the daily decision cycle. It holds no global
// state; every invocation operates on request-scoped inputs.
type Service struct {
	deps ServiceDeps
}

// NewService constructs a Service.
func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// DecisionInput is one decision-cycle request. When Summary is nil the
// snapshot is loaded from the session store.
type DecisionInput struct {
	TenantID       string
	UserID         string
	Date           time.Time
	PlannedWorkout Workout
	Plan           []PlannedSession
	Summary        *SessionSummary
}

// DecisionOutcome bundles the day's decision with any multi-day plan
// corrections.
type DecisionOutcome struct {
	Decision        DecisionResult
	Plan            []PlannedSession
	PlanAdjustments []Modification
}

// RunDaily executes one decision cycle: integrity screen, the three
// independent agent evaluations, vote synthesis under the active phase,
// optional plan correction, persistence, and narrative dispatch.
func (s *Service) RunDaily(ctx context.Context, input DecisionInput) (*DecisionOutcome, error) {
	profile, err := s.deps.Profiles.GetProfile(ctx, input.TenantID, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: user %s", ErrMissingProfile, input.UserID)
	}

	summary := input.Summary
	if summary == nil {
		summary, err = s.deps.Sessions.SummaryForDate(ctx, input.TenantID, input.UserID, input.Date)
		if err != nil {
			return nil, fmt.Errorf("load session summary: %w", err)
		}
	}
	if summary == nil {
		summary = &SessionSummary{TenantID: input.TenantID, UserID: input.UserID, Date: input.Date}
	}

	verdict := s.deps.Validator.Evaluate(summary.Points, *profile)
	if verdict.Status == IntegrityRejected {
		// Audit trail is best effort; the rejection itself must reach
		// the caller untouched.
		if auditErr := s.deps.Decisions.RecordIntegrityRejection(ctx, input.TenantID, input.UserID, input.Date, verdict); auditErr != nil {
			s.deps.Logger.Warn().Err(auditErr).Str("user_id", input.UserID).Msg("integrity rejection audit write failed")
		}
		return nil, fmt.Errorf("%w: %s", ErrIntegrityRejected, verdict.Reason)
	}

	activePhase, err := s.deps.Calendar.ActiveOn(input.Date)
	if err != nil {
		return nil, err
	}

	// The three agents are pure functions over disjoint slices of the
	// snapshot; their evaluation order is not observable.
	votes := []AgentVote{
		s.deps.Structural.Evaluate(summary.Structural),
		s.deps.Metabolic.Evaluate(summary.Points, summary.Metabolic, profile.ThresholdHR),
		s.deps.Fueling.Evaluate(summary.Fueling),
	}

	synth := s.deps.Synth.Synthesize(verdict, votes, input.PlannedWorkout, activePhase)

	decision := DecisionResult{
		ID:            uuid.NewString(),
		TenantID:      input.TenantID,
		UserID:        input.UserID,
		Date:          input.Date.UTC().Truncate(24 * time.Hour),
		Action:        synth.Action,
		FinalWorkout:  synth.FinalWorkout,
		Modifications: synth.Modifications,
		Reasoning:     synth.Reasoning,
		Votes:         votes,
		Integrity:     verdict,
		Phase:         activePhase.Name,
		CreatedAt:     time.Now().UTC(),
	}

	outcome := &DecisionOutcome{Decision: decision}
	if len(input.Plan) > 0 {
		outcome.Plan, outcome.PlanAdjustments = s.deps.Plans.Apply(input.Plan)
	}

	if err := s.deps.Decisions.Save(ctx, decision); err != nil {
		return nil, fmt.Errorf("persist decision: %w", err)
	}

	if s.deps.Narrative != nil {
		s.deps.Narrative.Dispatch(decision)
	}

	return outcome, nil
}

// SimulationRequest asks for a long-horizon projection. When Series is
// nil the historical arrays are loaded from the monitoring store.
type SimulationRequest struct {
	TenantID      string
	UserID        string
	CurrentLoad   float64
	InjuryRisk    float64
	GoalMetric    float64
	DaysRemaining int
	Series        *MonitoringSeries
}

// Simulate produces the goal-attainment projection. Sparse history is not
// an error; the simulator falls back to a conservative estimate.
func (s *Service) Simulate(ctx context.Context, req SimulationRequest) (SimulationResult, error) {
	series := req.Series
	if series == nil {
		loaded, err := s.deps.Monitoring.Series(ctx, req.TenantID, req.UserID, 26)
		if err != nil {
			return SimulationResult{}, fmt.Errorf("load monitoring series: %w", err)
		}
		series = &loaded
	}

	return s.deps.Sim.Run(SimulationInput{
		CurrentLoad:       req.CurrentLoad,
		InjuryRisk:        req.InjuryRisk,
		GoalMetric:        req.GoalMetric,
		DaysRemaining:     req.DaysRemaining,
		WeeklyVolume:      series.WeeklyVolume,
		NiggleTrend:       series.NiggleTrend,
		DaysSinceLastLift: series.DaysSinceLastLift,
	}), nil
}

// GetProfile fetches a phenotype profile.
func (s *Service) GetProfile(ctx context.Context, tenantID, userID string) (*PhenotypeProfile, error) {
	profile, err := s.deps.Profiles.GetProfile(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// UpdateProfile stores the profile. When a phenotype-affecting field
// changed, previously cached future decisions are invalidated; past
// decisions remain immutable historical record. Returns the number of
// invalidated decisions.
func (s *Service) UpdateProfile(ctx context.Context, profile PhenotypeProfile) (int, error) {
	existing, err := s.deps.Profiles.GetProfile(ctx, profile.TenantID, profile.UserID)
	if err != nil {
		return 0, err
	}

	changed := existing != nil && existing.PhenotypeChanged(profile)
	profile.UpdatedAt = time.Now().UTC()
	if err := s.deps.Profiles.UpsertProfile(ctx, profile, changed); err != nil {
		return 0, err
	}

	if !changed {
		return 0, nil
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	invalidated, err := s.deps.Decisions.InvalidateFuture(ctx, profile.TenantID, profile.UserID, today)
	if err != nil {
		return 0, fmt.Errorf("invalidate future decisions: %w", err)
	}
	return invalidated, nil
}

// GetDecision fetches by ID.
func (s *Service) GetDecision(ctx context.Context, tenantID, decisionID string) (*DecisionResult, error) {
	decision, err := s.deps.Decisions.GetDecision(ctx, tenantID, decisionID)
	if err != nil {
		return nil, err
	}
	if decision == nil {
		return nil, ErrDecisionNotFound
	}
	return decision, nil
}

// ListDecisions fetches decisions with cursor pagination.
func (s *Service) ListDecisions(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]DecisionResult, *Cursor, error) {
	return s.deps.Decisions.ListByUser(ctx, tenantID, userID, cursor, limit)
}

// ValidatePlan runs the constraint engine over a multi-day plan without
// producing a decision.
func (s *Service) ValidatePlan(plan []PlannedSession) ([]PlannedSession, []Modification) {
	return s.deps.Plans.Apply(plan)
}

// ActivePhase resolves the phase for a date.
func (s *Service) ActivePhase(date time.Time) (PhaseDefinition, error) {
	return s.deps.Calendar.ActiveOn(date)
}
