//go:build integration
// +build integration

package consumer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/advisor/internal/domain"
	"example.com/advisor/internal/persistence/postgres"
)

func TestSessionHandlerStoresSnapshotAndMonitoring(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	repo := postgres.NewRepository(pool)
	handler := NewSessionHandler(repo)

	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	hr := 152.0
	cad := 168.0
	summary := domain.SessionSummary{
		TenantID: "tenant-123",
		UserID:   "runner-1",
		Date:     date,
		Points: []domain.SessionDataPoint{
			{OffsetSec: 0, HeartRate: &hr, Cadence: &cad},
			{OffsetSec: 10, HeartRate: &hr, Cadence: &cad},
		},
		Structural: domain.StructuralView{NiggleScore: 1, DaysSinceLastLift: 2, TonnageTier: domain.TierHypertrophy, CurrentWeeklyVolume: 40},
		ReceivedAt: time.Now().UTC().Truncate(time.Second),
	}
	payload, err := json.Marshal(summary)
	require.NoError(t, err)

	msg := Message{
		EventType:     "session.recorded",
		TenantID:      "tenant-123",
		SchemaID:      42,
		SchemaSubject: "session_events-value",
		Topic:         "session_events",
		Payload:       payload,
		Timestamp:     summary.ReceivedAt,
	}
	require.NoError(t, handler.Handle(ctx, msg))

	stored, err := repo.SummaryForDate(ctx, "tenant-123", "runner-1", date)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Points, 2)
	require.Equal(t, domain.TierHypertrophy, stored.Structural.TonnageTier)

	niggle := 2.0
	entryPayload, err := json.Marshal(domain.MonitoringEntry{
		TenantID:       "tenant-123",
		UserID:         "runner-1",
		WeekStart:      date.AddDate(0, 0, -5),
		WeeklyVolumeKM: 44,
		NiggleScore:    &niggle,
	})
	require.NoError(t, err)

	require.NoError(t, handler.Handle(ctx, Message{
		EventType: "monitoring.logged",
		TenantID:  "tenant-123",
		Topic:     "monitoring_events",
		Payload:   entryPayload,
	}))

	series, err := repo.Series(ctx, "tenant-123", "runner-1", 26)
	require.NoError(t, err)
	require.Equal(t, []float64{44}, series.WeeklyVolume)
	require.Equal(t, []float64{2}, series.NiggleTrend)
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("advisor"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
	return pool, cleanup
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	migrationsPath := resolvePath(t, "../../db/postgres/migrations")
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, file := range files {
		content, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)
		_, execErr := pool.Exec(ctx, string(content))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}
