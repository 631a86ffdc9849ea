package persistence

import (
	"encoding/base64"
	"testing"
	"time"

	"example.com/advisor/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	in := &domain.Cursor{
		CreatedAt: time.Date(2026, time.March, 10, 9, 15, 0, 123456789, time.UTC),
		ID:        "3f1d9f4e-9a50-4f5a-8c1e-2f4bcb1d8a21",
	}

	out, err := DecodeCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("timestamp changed: %s vs %s", out.CreatedAt, in.CreatedAt)
	}
	if out.ID != in.ID {
		t.Fatalf("id changed: %s vs %s", out.ID, in.ID)
	}
}

func TestEmptyTokenMeansFirstPage(t *testing.T) {
	for _, token := range []string{"", "   "} {
		cursor, err := DecodeCursor(token)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", token, err)
		}
		if cursor != nil {
			t.Fatalf("expected nil cursor for %q", token)
		}
	}
	if EncodeCursor(nil) != "" {
		t.Fatal("nil cursor must encode to the empty token")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeCursor("%%not-base64%%"); err == nil {
		t.Fatal("expected error for invalid base64")
	}

	noSeparator := base64.StdEncoding.EncodeToString([]byte("just-an-id"))
	if _, err := DecodeCursor(noSeparator); err == nil {
		t.Fatal("expected error for missing separator")
	}

	badTime := base64.StdEncoding.EncodeToString([]byte("yesterday|some-id"))
	if _, err := DecodeCursor(badTime); err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
}
