package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	// maxQueryLimit is the hard ceiling on results per interactive query.
	maxQueryLimit = 1000

	// defaultQueryLimit applies when a query does not specify a limit.
	defaultQueryLimit = 100

	// defaultRecentLimit applies to GetRecentEvents.
	defaultRecentLimit = 50
)

// indexChoice names the single secondary index a query will scan.
type indexChoice struct {
	key  string
	name string
}

// selectIndex picks the most selective index for the query. Exactly one
// index is scanned per query; everything the index cannot express is
// applied in memory after hydration.
func (s *Service) selectIndex(q Query, callerTenant string, isGlobalAdmin bool) indexChoice {
	switch {
	case q.ResourceType != "" && q.ResourceID != "":
		return indexChoice{s.resourceIndexKey(q.ResourceType, q.ResourceID), "resource_instance"}
	case q.ResourceType != "":
		return indexChoice{s.resourceTypeIndexKey(q.ResourceType), "resource_type"}
	case q.Action != "":
		return indexChoice{s.actionIndexKey(q.Action), "action"}
	case q.UserID != "":
		return indexChoice{s.userIndexKey(q.UserID), "user"}
	}

	if isGlobalAdmin && q.TenantID == TenantAll {
		return indexChoice{s.globalIndexKey(), "all"}
	}

	// Non-admins are always pinned to their own tenant's index; scanning
	// another tenant's index would only produce ids the isolation guard
	// drops during hydration.
	tenant := q.TenantID
	if tenant == "" || !isGlobalAdmin {
		tenant = callerTenant
	}
	return indexChoice{s.tenantIndexKey(tenant), "tenant"}
}

// QueryEvents answers a filtered, time-ranged query under the caller's
// security context. Results are in the index's ascending timestamp order,
// truncated by the pre-hydration limit/offset; callers needing descending
// order reverse client-side.
func (s *Service) QueryEvents(ctx context.Context, q Query, callerTenant string, isGlobalAdmin bool) ([]*Event, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	min := "0"
	if q.StartDate != nil {
		min = strconv.FormatInt(q.StartDate.UnixMilli(), 10)
	}

	max := "+inf"
	if q.EndDate != nil {
		max = strconv.FormatInt(q.EndDate.UnixMilli(), 10)
	}

	idx := s.selectIndex(q, callerTenant, isGlobalAdmin)
	start := time.Now()

	ids, err := s.store.ZRangeByScore(ctx, idx.key, min, max, int64(offset), int64(limit))
	if err != nil {
		s.countStoreError("zrangebyscore")
		if s.mode == FailClosed {
			return nil, fmt.Errorf("audit query failed: %w", err)
		}
		s.log.WithError(err).WithField("index", idx.name).Error("audit query failed, returning empty result")
		return []*Event{}, nil
	}

	// Hydrate through the isolation guard. Admins hydrate unscoped;
	// everyone else passes their own tenant. Hydration failures and
	// isolation violations are dropped silently.
	hydrationContext := ""
	if !isGlobalAdmin {
		hydrationContext = callerTenant
	}

	events := make([]*Event, 0, len(ids))
	for _, id := range ids {
		event, err := s.GetEventByID(ctx, id, hydrationContext)
		if err != nil || event == nil {
			continue
		}
		if !matchesPostFilters(event, q, callerTenant, isGlobalAdmin) {
			continue
		}
		events = append(events, event)
	}

	if s.metrics != nil {
		s.metrics.QueriesTotal.WithLabelValues(idx.name).Inc()
		s.metrics.QueryDuration.WithLabelValues(idx.name).Observe(time.Since(start).Seconds())
	}

	return events, nil
}

// matchesPostFilters applies the filters the chosen index could not. The
// tenant check is a redundant safety net on top of the hydration guard,
// so even a planner bug that selects a cross-tenant index cannot leak
// records to a non-privileged caller.
func matchesPostFilters(event *Event, q Query, callerTenant string, isGlobalAdmin bool) bool {
	if !isGlobalAdmin && event.TenantID != callerTenant {
		return false
	}

	if len(q.Actions) > 0 && !containsAction(q.Actions, event.Action) {
		return false
	}

	if q.Severity != "" && event.Severity != q.Severity {
		return false
	}
	if len(q.Severities) > 0 && !containsSeverity(q.Severities, event.Severity) {
		return false
	}

	if q.Success != nil && event.Success != *q.Success {
		return false
	}

	return true
}

// GetRecentEvents returns the most recently indexed events for a tenant,
// with isolation pre-satisfied by scoping the caller to that tenant.
func (s *Service) GetRecentEvents(ctx context.Context, tenantID string, limit, offset int) ([]*Event, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	return s.QueryEvents(ctx, Query{
		TenantID: tenantID,
		Limit:    limit,
		Offset:   offset,
	}, tenantID, false)
}

func containsAction(actions []Action, action Action) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

func containsSeverity(severities []Severity, severity Severity) bool {
	for _, s := range severities {
		if s == severity {
			return true
		}
	}
	return false
}
