// Package events defines the payloads published on the audit topics.
package events

import "time"

// DecisionRecorded is emitted when a daily decision is persisted.
type DecisionRecorded struct {
	DecisionID      string    `json:"decision_id"`
	TenantID        string    `json:"tenant_id"`
	UserID          string    `json:"user_id"`
	Date            time.Time `json:"date"`
	Action          string    `json:"action"`
	Phase           string    `json:"phase"`
	IntegrityStatus string    `json:"integrity_status"`
	Reasoning       string    `json:"reasoning"`
	CreatedAt       time.Time `json:"created_at"`
}

// DecisionSuperseded is emitted when a newer run replaces an earlier
// decision for the same day.
type DecisionSuperseded struct {
	DecisionID     string    `json:"decision_id"`
	SupersededByID string    `json:"superseded_by_id"`
	TenantID       string    `json:"tenant_id"`
	UserID         string    `json:"user_id"`
	Date           time.Time `json:"date"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// IntegrityRejected is emitted when the validator rejects a stream and
// the cycle halts before any agent evaluation.
type IntegrityRejected struct {
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	Date         time.Time `json:"date"`
	Reason       string    `json:"reason"`
	FlaggedRatio float64   `json:"flagged_ratio"`
	SampleCount  int       `json:"sample_count"`
	Flags        []string  `json:"flags,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ProfileUpdated is emitted when a phenotype profile is written.
type ProfileUpdated struct {
	TenantID         string    `json:"tenant_id"`
	UserID           string    `json:"user_id"`
	PhenotypeChanged bool      `json:"phenotype_changed"`
	UpdatedAt        time.Time `json:"updated_at"`
}
