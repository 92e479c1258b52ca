package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// Handlers provides HTTP handlers for the audit API. The caller's tenant
// and privilege arrive on the request context via CallerContextMiddleware;
// a query-supplied tenant id is never trusted for isolation.
type Handlers struct {
	service *Service
}

// NewHandlers creates new audit handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{
		service: service,
	}
}

// RegisterRoutes registers the audit API routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit/events", h.listEvents).Methods("GET")
	router.HandleFunc("/audit/events/recent", h.recentEvents).Methods("GET")
	router.HandleFunc("/audit/events/{id}", h.getEvent).Methods("GET")
	router.HandleFunc("/audit/prune", h.prune).Methods("POST")
}

// listEvents handles GET /audit/events
func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	query := parseQuery(r)

	events, err := h.service.QueryEvents(r.Context(), query, caller.TenantID, caller.IsGlobalAdmin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The index scans ascending; desc is a client-side convenience.
	if r.URL.Query().Get("order") == "desc" {
		reverseEvents(events)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}

// recentEvents handles GET /audit/events/recent
func (h *Handlers) recentEvents(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	limit := parseIntParam(r, "limit", defaultRecentLimit)
	offset := parseIntParam(r, "offset", 0)

	events, err := h.service.GetRecentEvents(r.Context(), caller.TenantID, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// getEvent handles GET /audit/events/{id}
func (h *Handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	tenantContext := caller.TenantID
	if caller.IsGlobalAdmin {
		tenantContext = ""
	}

	event, err := h.service.GetEventByID(r.Context(), mux.Vars(r)["id"], tenantContext)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// A cross-tenant record is indistinguishable from a missing one.
	if event == nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// prune handles POST /audit/prune
func (h *Handlers) prune(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}
	if !caller.IsGlobalAdmin {
		http.Error(w, "global admin required", http.StatusForbidden)
		return
	}

	retentionDays := parseIntParam(r, "retention_days", DefaultRetentionDays)

	removed, err := h.service.PruneOldEvents(r.Context(), retentionDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"removed":        removed,
		"retention_days": retentionDays,
	})
}

// parseQuery parses an audit query from URL parameters
func parseQuery(r *http.Request) Query {
	params := r.URL.Query()
	query := Query{
		TenantID:     params.Get("tenant_id"),
		UserID:       params.Get("user_id"),
		Action:       Action(params.Get("action")),
		Severity:     Severity(params.Get("severity")),
		ResourceType: params.Get("resource_type"),
		ResourceID:   params.Get("resource_id"),
	}

	for _, a := range parseCommaSeparated(params.Get("actions")) {
		query.Actions = append(query.Actions, Action(a))
	}
	for _, s := range parseCommaSeparated(params.Get("severities")) {
		query.Severities = append(query.Severities, Severity(s))
	}

	if successStr := params.Get("success"); successStr != "" {
		success := successStr == "true"
		query.Success = &success
	}

	if startStr := params.Get("start_time"); startStr != "" {
		if t, err := time.Parse(time.RFC3339, startStr); err == nil {
			query.StartDate = &t
		}
	}
	if endStr := params.Get("end_time"); endStr != "" {
		if t, err := time.Parse(time.RFC3339, endStr); err == nil {
			query.EndDate = &t
		}
	}

	query.Limit = parseIntParam(r, "limit", defaultQueryLimit)
	query.Offset = parseIntParam(r, "offset", 0)

	return query
}

func parseIntParam(r *http.Request, name string, defaultValue int) int {
	if str := r.URL.Query().Get(name); str != "" {
		if value, err := strconv.Atoi(str); err == nil {
			return value
		}
	}
	return defaultValue
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func reverseEvents(events []*Event) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}
