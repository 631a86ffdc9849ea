package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"example.com/advisor/internal/domain"
)

// SessionWriter persists ingested session and monitoring records.
type SessionWriter interface {
	SaveSessionSummary(ctx context.Context, summary domain.SessionSummary) error
	SaveMonitoringEntry(ctx context.Context, entry domain.MonitoringEntry) error
}

// SessionHandler routes session.recorded and monitoring.logged events
// into the store the decision engine reads from. Event types it does not
// recognise are acknowledged and dropped.
type SessionHandler struct {
	store SessionWriter
}

// NewSessionHandler constructs a handler backed by the provided store.
func NewSessionHandler(store SessionWriter) *SessionHandler {
	return &SessionHandler{store: store}
}

// Handle decodes and persists one consumed event.
func (h *SessionHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case "session.recorded":
		var summary domain.SessionSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			return fmt.Errorf("decode session.recorded: %w", err)
		}
		if summary.TenantID == "" {
			summary.TenantID = msg.TenantID
		}
		if summary.ReceivedAt.IsZero() {
			summary.ReceivedAt = msg.Timestamp
		}
		return h.store.SaveSessionSummary(ctx, summary)

	case "monitoring.logged":
		var entry domain.MonitoringEntry
		if err := json.Unmarshal(msg.Payload, &entry); err != nil {
			return fmt.Errorf("decode monitoring.logged: %w", err)
		}
		if entry.TenantID == "" {
			entry.TenantID = msg.TenantID
		}
		return h.store.SaveMonitoringEntry(ctx, entry)

	default:
		return nil
	}
}
