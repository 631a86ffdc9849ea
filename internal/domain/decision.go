package domain

import (
	"errors"
	"time"
)

var (
	// ErrIntegrityRejected marks a session whose sensor data failed the
	// integrity screen. It is a designed terminal state, not a bug: the
	// caller must surface it as "cannot evaluate today", never downgrade
	// it to a default decision.
	ErrIntegrityRejected = errors.New("session data rejected by integrity screen")
	// ErrMissingProfile indicates the engine was invoked without a loaded
	// phenotype profile, which is a contract violation.
	ErrMissingProfile = errors.New("phenotype profile not loaded")
	// ErrDecisionNotFound is returned when a decision cannot be located.
	ErrDecisionNotFound = errors.New("decision not found")
	// ErrProfileNotFound is returned when a profile cannot be located.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNoActivePhase indicates the date falls outside the configured
	// phase calendar.
	ErrNoActivePhase = errors.New("no active training phase for date")
)

// IntegrityStatus is the verdict of the artifact screen.
type IntegrityStatus string

const (
	IntegrityValid    IntegrityStatus = "valid"
	IntegritySuspect  IntegrityStatus = "suspect"
	IntegrityRejected IntegrityStatus = "rejected"
)

// IntegrityVerdict is produced once per session, before any agent runs.
// A rejected verdict is terminal: agents must not execute.
type IntegrityVerdict struct {
	Status       IntegrityStatus `json:"status"`
	Confidence   float64         `json:"confidence"`
	Flags        []string        `json:"flags,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	FlaggedRatio float64         `json:"flagged_ratio"`
	SampleCount  int             `json:"sample_count"`
}

// VoteColor is an agent's traffic-light vote.
type VoteColor string

const (
	VoteGreen VoteColor = "green"
	VoteAmber VoteColor = "amber"
	VoteRed   VoteColor = "red"
)

// FlaggedMetric records one metric that tripped an agent threshold.
type FlaggedMetric struct {
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// AgentVote is the immutable output of one domain agent. Three exist per
// decision cycle, produced independently.
type AgentVote struct {
	AgentID        string          `json:"agent_id"`
	Vote           VoteColor       `json:"vote"`
	Confidence     float64         `json:"confidence"`
	Reason         string          `json:"reason"`
	FlaggedMetrics []FlaggedMetric `json:"flagged_metrics,omitempty"`
	Score          float64         `json:"score"`
}

// Action is the final daily prescription.
type Action string

const (
	ActionExecutedAsPlanned Action = "executed_as_planned"
	ActionModified          Action = "modified"
	ActionSubstituted       Action = "substituted"
	ActionShutdown          Action = "shutdown"
)

// Workout describes one prescribed session.
type Workout struct {
	Type        string  `json:"type"`
	Zone        Zone    `json:"zone"`
	DurationMin int     `json:"duration_min"`
	DistanceKM  float64 `json:"distance_km,omitempty"`
}

// Modification records one applied change, in order of application.
type Modification struct {
	Field  string `json:"field"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// PlannedSession is one entry of a multi-day plan checked by the
// constraint engine.
type PlannedSession struct {
	Date    time.Time `json:"date"`
	Workout Workout   `json:"workout"`
}

// DecisionResult is the day's prescription. One exists per user per day; a
// later run for the same date supersedes (never merges with) the earlier
// one, which is kept for audit.
type DecisionResult struct {
	ID            string           `json:"decision_id"`
	TenantID      string           `json:"tenant_id"`
	UserID        string           `json:"user_id"`
	Date          time.Time        `json:"decision_date"`
	Action        Action           `json:"action"`
	FinalWorkout  Workout          `json:"final_workout"`
	Modifications []Modification   `json:"modifications,omitempty"`
	Reasoning     string           `json:"reasoning"`
	Votes         []AgentVote      `json:"votes"`
	Integrity     IntegrityVerdict `json:"integrity"`
	Phase         string           `json:"phase"`
	Superseded    bool             `json:"superseded"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ConfidenceLabel grades how much the simulation output can be trusted.
type ConfidenceLabel string

const (
	ConfidenceLow    ConfidenceLabel = "low"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceHigh   ConfidenceLabel = "high"
)

// SimulationResult is the long-horizon projection. SuccessProbability is a
// percentage hard-capped at 85: the engine never represents a training
// outcome as more than 85% certain.
type SimulationResult struct {
	SuccessProbability float64         `json:"success_probability"`
	Confidence         ConfidenceLabel `json:"confidence"`
	Trials             int             `json:"trials"`
	GrowthSlope        float64         `json:"growth_slope"`
	InjuryRisk         float64         `json:"injury_risk"`
	Fallback           bool            `json:"fallback"`
}

// Cursor models the pagination token for decision listings.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}
