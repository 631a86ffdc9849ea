package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/advisor/internal/domain"
)

type recordingStore struct {
	summaries []domain.SessionSummary
	entries   []domain.MonitoringEntry
	err       error
}

func (s *recordingStore) SaveSessionSummary(_ context.Context, summary domain.SessionSummary) error {
	if s.err != nil {
		return s.err
	}
	s.summaries = append(s.summaries, summary)
	return nil
}

func (s *recordingStore) SaveMonitoringEntry(_ context.Context, entry domain.MonitoringEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestSessionHandlerPersistsSessionRecorded(t *testing.T) {
	store := &recordingStore{}
	handler := NewSessionHandler(store)

	received := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	payload, err := json.Marshal(domain.SessionSummary{
		UserID: "runner-1",
		Date:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Structural: domain.StructuralView{
			NiggleScore:         2,
			DaysSinceLastLift:   3,
			TonnageTier:         domain.TierStrength,
			CurrentWeeklyVolume: 52,
		},
	})
	require.NoError(t, err)

	msg := Message{
		EventType: "session.recorded",
		TenantID:  "tenant-1",
		Payload:   payload,
		Timestamp: received,
	}
	require.NoError(t, handler.Handle(context.Background(), msg))

	require.Len(t, store.summaries, 1)
	stored := store.summaries[0]
	require.Equal(t, "tenant-1", stored.TenantID, "tenant falls back to the message header")
	require.Equal(t, "runner-1", stored.UserID)
	require.Equal(t, received, stored.ReceivedAt)
	require.Equal(t, domain.TierStrength, stored.Structural.TonnageTier)
}

func TestSessionHandlerPersistsMonitoringLogged(t *testing.T) {
	store := &recordingStore{}
	handler := NewSessionHandler(store)

	niggle := 3.0
	lift := 4
	payload, err := json.Marshal(domain.MonitoringEntry{
		TenantID:          "tenant-2",
		UserID:            "runner-2",
		WeekStart:         time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		WeeklyVolumeKM:    48,
		NiggleScore:       &niggle,
		DaysSinceLastLift: &lift,
	})
	require.NoError(t, err)

	msg := Message{EventType: "monitoring.logged", TenantID: "tenant-2", Payload: payload}
	require.NoError(t, handler.Handle(context.Background(), msg))

	require.Len(t, store.entries, 1)
	require.Equal(t, 48.0, store.entries[0].WeeklyVolumeKM)
	require.NotNil(t, store.entries[0].NiggleScore)
	require.Equal(t, 3.0, *store.entries[0].NiggleScore)
}

func TestSessionHandlerIgnoresUnknownEventTypes(t *testing.T) {
	store := &recordingStore{}
	handler := NewSessionHandler(store)

	msg := Message{EventType: "decision.recorded", Payload: json.RawMessage(`{}`)}
	require.NoError(t, handler.Handle(context.Background(), msg))
	require.Empty(t, store.summaries)
	require.Empty(t, store.entries)
}

func TestSessionHandlerRejectsMalformedPayload(t *testing.T) {
	handler := NewSessionHandler(&recordingStore{})

	msg := Message{EventType: "session.recorded", Payload: json.RawMessage(`{"date":`)}
	require.Error(t, handler.Handle(context.Background(), msg))
}
