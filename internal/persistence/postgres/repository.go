package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/advisor/internal/domain"
	"example.com/advisor/internal/events"
	"example.com/advisor/internal/observability"
)

// Repository provides Postgres-backed persistence for profiles, session
// snapshots, monitoring history, decisions, and the audit outbox.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) withTenantTx(ctx context.Context, tenantID string, fn func(tx pgx.Tx) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetProfile retrieves a phenotype profile, or nil when none exists.
func (r *Repository) GetProfile(ctx context.Context, tenantID, userID string) (*domain.PhenotypeProfile, error) {
	const query = `SELECT tenant_id, user_id, high_response, max_hr_override, threshold_hr, structural_weaknesses, strength_sessions_per_week, updated_at
        FROM phenotype_profiles WHERE tenant_id=$1 AND user_id=$2`

	var profile domain.PhenotypeProfile
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, query, tenantID, userID)
		return row.Scan(&profile.TenantID, &profile.UserID, &profile.HighResponse, &profile.MaxHROverride, &profile.ThresholdHR, &profile.StructuralWeaknesses, &profile.StrengthSessionsPerWeek, &profile.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile writes the profile and records the profile.updated audit
// event in the same transaction. phenotypeChanged is computed by the
// caller against the previously stored profile and lands on the event so
// audit consumers can tell calibration updates from cosmetic ones.
func (r *Repository) UpsertProfile(ctx context.Context, profile domain.PhenotypeProfile, phenotypeChanged bool) error {
	const stmt = `INSERT INTO phenotype_profiles (tenant_id, user_id, high_response, max_hr_override, threshold_hr, structural_weaknesses, strength_sessions_per_week, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (tenant_id, user_id) DO UPDATE SET
            high_response=EXCLUDED.high_response,
            max_hr_override=EXCLUDED.max_hr_override,
            threshold_hr=EXCLUDED.threshold_hr,
            structural_weaknesses=EXCLUDED.structural_weaknesses,
            strength_sessions_per_week=EXCLUDED.strength_sessions_per_week,
            updated_at=EXCLUDED.updated_at`

	return r.withTenantTx(ctx, profile.TenantID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt,
			profile.TenantID,
			profile.UserID,
			profile.HighResponse,
			profile.MaxHROverride,
			profile.ThresholdHR,
			profile.StructuralWeaknesses,
			profile.StrengthSessionsPerWeek,
			profile.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, outboxRow{
			TenantID:      profile.TenantID,
			AggregateType: "profile",
			AggregateID:   profile.UserID,
			EventType:     "profile.updated",
			PartitionKey:  fmt.Sprintf("%s:%s", profile.TenantID, profile.UserID),
			DedupeKey:     fmt.Sprintf("%s:profile.updated:%d", profile.UserID, profile.UpdatedAt.UnixNano()),
		}, events.ProfileUpdated{
			TenantID:         profile.TenantID,
			UserID:           profile.UserID,
			PhenotypeChanged: phenotypeChanged,
			UpdatedAt:        profile.UpdatedAt,
		})
	})
}

// SaveSessionSummary stores the day's session snapshot, replacing any
// earlier snapshot for the same date.
func (r *Repository) SaveSessionSummary(ctx context.Context, summary domain.SessionSummary) error {
	points, err := json.Marshal(summary.Points)
	if err != nil {
		return err
	}
	structural, err := json.Marshal(summary.Structural)
	if err != nil {
		return err
	}
	metabolic, err := json.Marshal(summary.Metabolic)
	if err != nil {
		return err
	}
	fueling, err := json.Marshal(summary.Fueling)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO session_summaries (tenant_id, user_id, session_date, points, structural, metabolic, fueling, received_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (tenant_id, user_id, session_date) DO UPDATE SET
            points=EXCLUDED.points,
            structural=EXCLUDED.structural,
            metabolic=EXCLUDED.metabolic,
            fueling=EXCLUDED.fueling,
            received_at=EXCLUDED.received_at`

	return r.withTenantTx(ctx, summary.TenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, stmt,
			summary.TenantID,
			summary.UserID,
			summary.Date,
			points,
			structural,
			metabolic,
			fueling,
			summary.ReceivedAt,
		)
		return err
	})
}

// SummaryForDate loads the snapshot for a user and date, or nil when the
// day has no ingested session.
func (r *Repository) SummaryForDate(ctx context.Context, tenantID, userID string, date time.Time) (*domain.SessionSummary, error) {
	const query = `SELECT tenant_id, user_id, session_date, points, structural, metabolic, fueling, received_at
        FROM session_summaries WHERE tenant_id=$1 AND user_id=$2 AND session_date=$3`

	var (
		summary                               domain.SessionSummary
		points, structural, metabolic, fueling []byte
	)
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, query, tenantID, userID, date.UTC().Truncate(24*time.Hour))
		return row.Scan(&summary.TenantID, &summary.UserID, &summary.Date, &points, &structural, &metabolic, &fueling, &summary.ReceivedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(points, &summary.Points); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(structural, &summary.Structural); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metabolic, &summary.Metabolic); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fueling, &summary.Fueling); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SaveMonitoringEntry upserts one week of monitoring history.
func (r *Repository) SaveMonitoringEntry(ctx context.Context, entry domain.MonitoringEntry) error {
	const stmt = `INSERT INTO monitoring_entries (tenant_id, user_id, week_start, weekly_volume_km, niggle_score, days_since_last_lift)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (tenant_id, user_id, week_start) DO UPDATE SET
            weekly_volume_km=EXCLUDED.weekly_volume_km,
            niggle_score=EXCLUDED.niggle_score,
            days_since_last_lift=EXCLUDED.days_since_last_lift`

	return r.withTenantTx(ctx, entry.TenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, stmt,
			entry.TenantID,
			entry.UserID,
			entry.WeekStart,
			entry.WeeklyVolumeKM,
			entry.NiggleScore,
			entry.DaysSinceLastLift,
		)
		return err
	})
}

// Series returns up to weeks of monitoring history in chronological
// order, plus the most recent lift recency when recorded.
func (r *Repository) Series(ctx context.Context, tenantID, userID string, weeks int) (domain.MonitoringSeries, error) {
	const query = `SELECT weekly_volume_km, niggle_score, days_since_last_lift
        FROM monitoring_entries WHERE tenant_id=$1 AND user_id=$2
        ORDER BY week_start DESC LIMIT $3`

	var series domain.MonitoringSeries
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, userID, weeks)
		if err != nil {
			return err
		}
		defer rows.Close()

		type week struct {
			volume float64
			niggle *float64
			lift   *int
		}
		recent := make([]week, 0, weeks)
		for rows.Next() {
			var w week
			if err := rows.Scan(&w.volume, &w.niggle, &w.lift); err != nil {
				return err
			}
			recent = append(recent, w)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		// Rows arrive newest first; the simulator wants oldest first.
		for i := len(recent) - 1; i >= 0; i-- {
			series.WeeklyVolume = append(series.WeeklyVolume, recent[i].volume)
			if recent[i].niggle != nil {
				series.NiggleTrend = append(series.NiggleTrend, *recent[i].niggle)
			}
		}
		if len(recent) > 0 && recent[0].lift != nil {
			series.DaysSinceLastLift = recent[0].lift
		}
		return nil
	})
	if err != nil {
		return domain.MonitoringSeries{}, err
	}
	return series, nil
}

// Save persists the decision, supersedes any earlier decision for the
// same user and date, and records the audit events, all inside a single
// transaction.
func (r *Repository) Save(ctx context.Context, decision domain.DecisionResult) error {
	finalWorkout, err := json.Marshal(decision.FinalWorkout)
	if err != nil {
		return err
	}
	modifications, err := json.Marshal(decision.Modifications)
	if err != nil {
		return err
	}
	votes, err := json.Marshal(decision.Votes)
	if err != nil {
		return err
	}
	integrity, err := json.Marshal(decision.Integrity)
	if err != nil {
		return err
	}

	err = r.withTenantTx(ctx, decision.TenantID, func(tx pgx.Tx) error {
		const supersede = `UPDATE decisions SET superseded=true
            WHERE tenant_id=$1 AND user_id=$2 AND decision_date=$3 AND NOT superseded
            RETURNING decision_id`

		rows, err := tx.Query(ctx, supersede, decision.TenantID, decision.UserID, decision.Date)
		if err != nil {
			return err
		}
		var priorIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			priorIDs = append(priorIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		const insert = `INSERT INTO decisions (decision_id, tenant_id, user_id, decision_date, action, final_workout, modifications, reasoning, votes, integrity, phase, superseded, created_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,false,$12)`

		if _, err := tx.Exec(ctx, insert,
			decision.ID,
			decision.TenantID,
			decision.UserID,
			decision.Date,
			decision.Action,
			finalWorkout,
			modifications,
			decision.Reasoning,
			votes,
			integrity,
			decision.Phase,
			decision.CreatedAt,
		); err != nil {
			return err
		}

		for _, priorID := range priorIDs {
			if err := insertOutbox(ctx, tx, outboxRow{
				TenantID:      decision.TenantID,
				AggregateType: "decision",
				AggregateID:   priorID,
				EventType:     "decision.superseded",
				PartitionKey:  fmt.Sprintf("%s:%s", decision.TenantID, decision.UserID),
				DedupeKey:     fmt.Sprintf("%s:superseded-by:%s", priorID, decision.ID),
			}, events.DecisionSuperseded{
				DecisionID:     priorID,
				SupersededByID: decision.ID,
				TenantID:       decision.TenantID,
				UserID:         decision.UserID,
				Date:           decision.Date,
				OccurredAt:     decision.CreatedAt,
			}); err != nil {
				return err
			}
		}

		return insertOutbox(ctx, tx, outboxRow{
			TenantID:      decision.TenantID,
			AggregateType: "decision",
			AggregateID:   decision.ID,
			EventType:     "decision.recorded",
			PartitionKey:  fmt.Sprintf("%s:%s", decision.TenantID, decision.UserID),
			DedupeKey:     fmt.Sprintf("%s:decision.recorded", decision.ID),
		}, events.DecisionRecorded{
			DecisionID:      decision.ID,
			TenantID:        decision.TenantID,
			UserID:          decision.UserID,
			Date:            decision.Date,
			Action:          string(decision.Action),
			Phase:           decision.Phase,
			IntegrityStatus: string(decision.Integrity.Status),
			Reasoning:       decision.Reasoning,
			CreatedAt:       decision.CreatedAt,
		})
	})
	if err != nil {
		return err
	}
	observability.RecordDecisionPersisted(decision.CreatedAt)
	return nil
}

// GetDecision retrieves a decision by ID, or nil when absent.
func (r *Repository) GetDecision(ctx context.Context, tenantID, decisionID string) (*domain.DecisionResult, error) {
	const query = `SELECT decision_id, tenant_id, user_id, decision_date, action, final_workout, modifications, reasoning, votes, integrity, phase, superseded, created_at
        FROM decisions WHERE tenant_id=$1 AND decision_id=$2`

	var decision domain.DecisionResult
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, query, tenantID, decisionID)
		scanned, err := scanDecision(row)
		if err != nil {
			return err
		}
		decision = *scanned
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &decision, nil
}

// ListByUser returns decisions for a user ordered newest first with
// cursor pagination.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.DecisionResult, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT decision_id, tenant_id, user_id, decision_date, action, final_workout, modifications, reasoning, votes, integrity, phase, superseded, created_at
        FROM decisions WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (created_at, decision_id) < ($4, $5)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, decision_id DESC LIMIT $3`

	results := make([]domain.DecisionResult, 0, limit)
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			decision, err := scanDecision(rows)
			if err != nil {
				return err
			}
			results = append(results, *decision)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return results, nextCursor, nil
}

// InvalidateFuture marks unexpired decisions dated after the given day as
// superseded. Past decisions remain untouched.
func (r *Repository) InvalidateFuture(ctx context.Context, tenantID, userID string, after time.Time) (int, error) {
	const stmt = `UPDATE decisions SET superseded=true
        WHERE tenant_id=$1 AND user_id=$2 AND decision_date > $3 AND NOT superseded`

	var invalidated int
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, stmt, tenantID, userID, after)
		if err != nil {
			return err
		}
		invalidated = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return invalidated, nil
}

// RecordIntegrityRejection writes the integrity.rejected audit event.
func (r *Repository) RecordIntegrityRejection(ctx context.Context, tenantID, userID string, date time.Time, verdict domain.IntegrityVerdict) error {
	now := time.Now().UTC()
	return r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		return insertOutbox(ctx, tx, outboxRow{
			TenantID:      tenantID,
			AggregateType: "integrity",
			AggregateID:   userID,
			EventType:     "integrity.rejected",
			PartitionKey:  fmt.Sprintf("%s:%s", tenantID, userID),
			DedupeKey:     fmt.Sprintf("%s:integrity.rejected:%d", userID, now.UnixNano()),
		}, events.IntegrityRejected{
			TenantID:     tenantID,
			UserID:       userID,
			Date:         date,
			Reason:       verdict.Reason,
			FlaggedRatio: verdict.FlaggedRatio,
			SampleCount:  verdict.SampleCount,
			Flags:        verdict.Flags,
			OccurredAt:   now,
		})
	})
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row scannable) (*domain.DecisionResult, error) {
	var (
		decision                                   domain.DecisionResult
		finalWorkout, modifications, votes, integrity []byte
	)
	if err := row.Scan(&decision.ID, &decision.TenantID, &decision.UserID, &decision.Date, &decision.Action, &finalWorkout, &modifications, &decision.Reasoning, &votes, &integrity, &decision.Phase, &decision.Superseded, &decision.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(finalWorkout, &decision.FinalWorkout); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(modifications, &decision.Modifications); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(votes, &decision.Votes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(integrity, &decision.Integrity); err != nil {
		return nil, err
	}
	return &decision, nil
}

type outboxRow struct {
	TenantID      string
	AggregateType string
	AggregateID   string
	EventType     string
	PartitionKey  string
	DedupeKey     string
}

func insertOutbox(ctx context.Context, tx pgx.Tx, row outboxRow, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[row.EventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", row.EventType)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		row.TenantID,
		row.AggregateType,
		row.AggregateID,
		row.EventType,
		meta.Topic,
		meta.SchemaSubject,
		row.PartitionKey,
		body,
		row.DedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"decision.recorded": {
		Topic:         "decision_events",
		SchemaSubject: "decision_events-value",
	},
	"decision.superseded": {
		Topic:         "decision_events",
		SchemaSubject: "decision_superseded-value",
	},
	"integrity.rejected": {
		Topic:         "integrity_events",
		SchemaSubject: "integrity_events-value",
	},
	"profile.updated": {
		Topic:         "profile_events",
		SchemaSubject: "profile_events-value",
	},
}
