package narrative

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"example.com/advisor/internal/domain"
)

func TestDispatchDeliversDecision(t *testing.T) {
	received := make(chan domain.DecisionResult, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var decision domain.DecisionResult
		if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		received <- decision
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	client.Dispatch(domain.DecisionResult{
		ID:       "dec-1",
		TenantID: "tenant-1",
		UserID:   "user-1",
		Action:   domain.ActionExecutedAsPlanned,
	})

	select {
	case decision := <-received:
		if decision.ID != "dec-1" {
			t.Fatalf("unexpected decision id %s", decision.ID)
		}
		if decision.Action != domain.ActionExecutedAsPlanned {
			t.Fatalf("unexpected action %s", decision.Action)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("narrative payload never arrived")
	}
}

func TestDispatchRetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		close(done)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	client.Dispatch(domain.DecisionResult{ID: "dec-2"})

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("delivery never succeeded after retries")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Fatalf("expected 3 attempts got %d", attempts)
	}
}

func TestDispatchGivesUpOnClientError(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	client.Dispatch(domain.DecisionResult{ID: "dec-3"})

	// A 4xx is permanent; give the goroutine time to (not) retry.
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if attempts != 1 {
		t.Fatalf("expected a single attempt got %d", attempts)
	}
}
