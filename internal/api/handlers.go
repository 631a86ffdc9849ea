// Package api exposes HTTP handlers for the advisor service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/advisor/internal/auth"
	"example.com/advisor/internal/domain"
	"example.com/advisor/internal/observability"
	"example.com/advisor/internal/persistence"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/decisions/run", h.runDecision)
	mux.HandleFunc("/v1/decisions", h.listDecisions)
	mux.HandleFunc("/v1/decisions/", h.decisionByID)
	mux.HandleFunc("/v1/plans/validate", h.validatePlan)
	mux.HandleFunc("/v1/simulations/run", h.runSimulation)
	mux.HandleFunc("/v1/profiles/", h.profileByUser)
	mux.HandleFunc("/v1/phases/active", h.activePhase)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) runDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeDecisionsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope decisions:write required")
		return
	}

	var req RunDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	input := domain.DecisionInput{
		TenantID:       claims.TenantID,
		UserID:         req.UserID,
		Date:           req.Date,
		PlannedWorkout: req.PlannedWorkout.toDomain(),
		Summary:        req.Summary,
	}
	for _, session := range req.Plan {
		input.Plan = append(input.Plan, domain.PlannedSession{
			Date:    session.Date,
			Workout: session.Workout.toDomain(),
		})
	}

	outcome, err := h.service.RunDaily(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIntegrityRejected):
			observability.RecordIntegrityVerdict(string(domain.IntegrityRejected))
			writeError(w, http.StatusUnprocessableEntity, "integrity_rejected", err.Error())
		case errors.Is(err, domain.ErrMissingProfile):
			writeError(w, http.StatusPreconditionFailed, "missing_profile", err.Error())
		case errors.Is(err, domain.ErrNoActivePhase):
			writeError(w, http.StatusUnprocessableEntity, "no_active_phase", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}

	observability.RecordDecision(string(outcome.Decision.Action))
	observability.RecordIntegrityVerdict(string(outcome.Decision.Integrity.Status))

	resp := RunDecisionResponse{
		Decision: toDecisionView(outcome.Decision),
	}
	for _, session := range outcome.Plan {
		resp.Plan = append(resp.Plan, PlannedSessionView{Date: session.Date, Workout: toWorkoutView(session.Workout)})
	}
	for _, mod := range outcome.PlanAdjustments {
		resp.PlanAdjustments = append(resp.PlanAdjustments, toModificationView(mod))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) decisionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/decisions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing decision id")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasAnyScope(auth.ScopeDecisionsRead, auth.ScopeDecisionsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope decisions:read required")
		return
	}

	decision, err := h.service.GetDecision(r.Context(), claims.TenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrDecisionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "decision not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toDecisionView(*decision))
}

func (h *Handler) listDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasAnyScope(auth.ScopeDecisionsRead, auth.ScopeDecisionsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope decisions:read required")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	decisions, next, err := h.service.ListDecisions(r.Context(), claims.TenantID, userID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]DecisionView, 0, len(decisions))
	for _, decision := range decisions {
		items = append(items, toDecisionView(decision))
	}
	writeJSON(w, http.StatusOK, ListDecisionsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) validatePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeDecisionsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope decisions:write required")
		return
	}

	var req ValidatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	plan := make([]domain.PlannedSession, 0, len(req.Plan))
	for _, session := range req.Plan {
		plan = append(plan, domain.PlannedSession{
			Date:    session.Date,
			Workout: session.Workout.toDomain(),
		})
	}

	corrected, adjustments := h.service.ValidatePlan(plan)

	resp := ValidatePlanResponse{}
	for _, session := range corrected {
		resp.Plan = append(resp.Plan, PlannedSessionView{Date: session.Date, Workout: toWorkoutView(session.Workout)})
	}
	for _, mod := range adjustments {
		resp.Adjustments = append(resp.Adjustments, toModificationView(mod))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) runSimulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSimulationsRun) {
		writeError(w, http.StatusForbidden, "forbidden", "scope simulations:run required")
		return
	}

	var req RunSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	start := time.Now()
	result, err := h.service.Simulate(r.Context(), domain.SimulationRequest{
		TenantID:      claims.TenantID,
		UserID:        req.UserID,
		CurrentLoad:   req.CurrentLoad,
		InjuryRisk:    req.InjuryRisk,
		GoalMetric:    req.GoalMetric,
		DaysRemaining: req.DaysRemaining,
		Series:        req.Series,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	observability.ObserveSimulationDuration(time.Since(start))

	writeJSON(w, http.StatusOK, RunSimulationResponse{
		SuccessProbability: result.SuccessProbability,
		Confidence:         string(result.Confidence),
		Trials:             result.Trials,
		GrowthSlope:        result.GrowthSlope,
		InjuryRisk:         result.InjuryRisk,
		Fallback:           result.Fallback,
	})
}

func (h *Handler) profileByUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/v1/profiles/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing user id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r, userID)
	case http.MethodPut:
		h.putProfile(w, r, userID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request, userID string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasAnyScope(auth.ScopeProfilesRead, auth.ScopeProfilesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope profiles:read required")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.TenantID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toProfileView(*profile))
}

func (h *Handler) putProfile(w http.ResponseWriter, r *http.Request, userID string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeProfilesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope profiles:write required")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	invalidated, err := h.service.UpdateProfile(r.Context(), domain.PhenotypeProfile{
		TenantID:                claims.TenantID,
		UserID:                  userID,
		HighResponse:            req.HighResponse,
		MaxHROverride:           req.MaxHROverride,
		ThresholdHR:             req.ThresholdHR,
		StructuralWeaknesses:    req.StructuralWeaknesses,
		StrengthSessionsPerWeek: req.StrengthSessionsPerWeek,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ProfileUpdateResponse{
		UserID:               userID,
		InvalidatedDecisions: invalidated,
	})
}

func (h *Handler) activePhase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasAnyScope(auth.ScopeDecisionsRead, auth.ScopeDecisionsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope decisions:read required")
		return
	}

	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "date must be formatted YYYY-MM-DD")
			return
		}
		date = parsed
	}

	phase, err := h.service.ActivePhase(date)
	if err != nil {
		if errors.Is(err, domain.ErrNoActivePhase) {
			writeError(w, http.StatusNotFound, "not_found", "no phase covers the requested date")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PhaseView{
		Name:             phase.Name,
		Start:            phase.Start,
		End:              phase.End,
		MaxZone:          phase.MaxZone.String(),
		MaxWeeklyVolume:  phase.MaxWeeklyVolume,
		MaxMonthlyVolume: phase.MaxMonthlyVolume,
	})
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
