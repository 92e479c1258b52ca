package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tenantwise/audittrail/pkg/observability"
	"github.com/tenantwise/audittrail/pkg/storage/redisstore"
)

// FailureMode selects how store failures on the write and query paths
// propagate to callers.
type FailureMode int

const (
	// FailOpen swallows store failures: writes return a degraded record
	// and queries return an empty result set. Audit logging must never
	// block or crash the action it is auditing.
	FailOpen FailureMode = iota

	// FailClosed propagates store failures to the caller.
	FailClosed
)

// ParseFailureMode parses a failure mode string ("open" or "closed").
func ParseFailureMode(s string) (FailureMode, error) {
	switch s {
	case "open", "":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("invalid failure mode: %q", s)
	}
}

// DegradedEventID marks a record returned from a failed write in
// fail-open mode. Such records are not persisted.
const DegradedEventID = "error"

// Service is the audit-trail subsystem: it writes events to the primary
// store plus their secondary indexes, answers tenant-scoped queries, and
// prunes events past the retention horizon.
//
// The service holds no mutable state of its own; all shared state lives
// in the remote store. Multiple writers may log concurrently without
// coordination since every event gets a fresh unique id.
type Service struct {
	store   *redisstore.Store
	log     *observability.Logger
	metrics *observability.Metrics
	mode    FailureMode

	now   func() time.Time
	newID func() string
}

// Option configures a Service
type Option func(*Service)

// WithFailureMode sets the store-failure propagation policy.
func WithFailureMode(mode FailureMode) Option {
	return func(s *Service) { s.mode = mode }
}

// WithMetrics attaches Prometheus metrics to the service.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides event id generation (used in tests).
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a new audit service backed by the given store.
func NewService(store *redisstore.Store, logger *observability.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   logger,
		mode:  FailOpen,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key layout. Index values are bare event ids scored by the event's
// creation time in epoch milliseconds; the primary record is the only
// copy of the event content.
func (s *Service) eventKey(id string) string {
	return s.store.Key("event", id)
}

func (s *Service) tenantIndexKey(tenantID string) string {
	return s.store.Key("index", "tenant", tenantID)
}

func (s *Service) userIndexKey(userID string) string {
	return s.store.Key("index", "user", userID)
}

func (s *Service) actionIndexKey(action Action) string {
	return s.store.Key("index", "action", string(action))
}

func (s *Service) resourceTypeIndexKey(resourceType string) string {
	return s.store.Key("index", "resource", resourceType)
}

func (s *Service) resourceIndexKey(resourceType, resourceID string) string {
	return s.store.Key("index", "resource", resourceType, resourceID)
}

func (s *Service) globalIndexKey() string {
	return s.store.Key("index", "all")
}

// indexKeys returns every secondary index that references the event.
func (s *Service) indexKeys(event *Event) []string {
	keys := []string{
		s.tenantIndexKey(event.TenantID),
		s.userIndexKey(event.UserID),
		s.actionIndexKey(event.Action),
	}
	if event.ResourceType != "" {
		keys = append(keys, s.resourceTypeIndexKey(event.ResourceType))
	}
	if event.ResourceID != "" {
		keys = append(keys, s.resourceIndexKey(event.ResourceType, event.ResourceID))
	}
	return append(keys, s.globalIndexKey())
}

// LogEvent builds a complete audit record from the input, persists it,
// and populates its secondary indexes. In fail-open mode a store failure
// returns a degraded, unpersisted record instead of an error.
func (s *Service) LogEvent(ctx context.Context, input EventInput) (*Event, error) {
	if !input.Action.Valid() {
		return nil, fmt.Errorf("invalid audit action: %q", input.Action)
	}

	severity := input.Severity
	if severity == "" {
		severity = DefaultSeverityFor(input.Action)
	}

	tenantID := input.TenantID
	if tenantID == "" {
		tenantID = TenantGlobal
	}

	userID := input.UserID
	if userID == "" {
		userID = UserUnknown
	}

	event := &Event{
		ID:           s.newID(),
		Timestamp:    s.now().UTC(),
		Action:       input.Action,
		Severity:     severity,
		Success:      input.Success,
		UserID:       userID,
		TenantID:     tenantID,
		ResourceType: input.ResourceType,
		ResourceID:   input.ResourceID,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
		Details:      input.Details,
	}

	start := time.Now()
	if err := s.writeEvent(ctx, event); err != nil {
		if s.mode == FailClosed {
			return nil, err
		}

		s.log.WithError(err).WithFields(map[string]interface{}{
			"action":    string(event.Action),
			"tenant_id": event.TenantID,
		}).Error("audit write failed, returning degraded record")
		if s.metrics != nil {
			s.metrics.DegradedWritesTotal.Inc()
		}

		degraded := *event
		degraded.ID = DegradedEventID
		degraded.Severity = SeverityError
		degraded.Details = mergeDetails(event.Details, "error", err.Error())
		return &degraded, nil
	}

	if s.metrics != nil {
		s.metrics.EventsWrittenTotal.WithLabelValues(string(event.Action), string(event.Severity)).Inc()
		s.metrics.WriteDuration.Observe(time.Since(start).Seconds())
	}

	return event, nil
}

// writeEvent performs the primary write and up to six index writes. There
// is no atomicity across these keys: a failure partway through leaves an
// accepted eventual-consistency window, not corrected automatically.
func (s *Service) writeEvent(ctx context.Context, event *Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	if err := s.store.Set(ctx, s.eventKey(event.ID), data, 0); err != nil {
		s.countStoreError("set")
		return fmt.Errorf("failed to store audit event: %w", err)
	}

	score := float64(event.Timestamp.UnixMilli())
	for _, key := range s.indexKeys(event) {
		if err := s.store.ZAdd(ctx, key, score, event.ID); err != nil {
			s.countStoreError("zadd")
			return fmt.Errorf("failed to index audit event: %w", err)
		}
	}

	return nil
}

// GetEventByID fetches a single event. When tenantContext is non-empty
// and the record belongs to a different tenant, the lookup is treated as
// not found rather than surfacing a distinguishable error, to prevent
// existence-leak side channels. An empty tenantContext is unscoped and
// reserved for global admins and internal paths.
func (s *Service) GetEventByID(ctx context.Context, id, tenantContext string) (*Event, error) {
	data, err := s.store.Get(ctx, s.eventKey(id))
	if err != nil {
		s.countStoreError("get")
		if s.mode == FailClosed {
			return nil, fmt.Errorf("failed to fetch audit event: %w", err)
		}
		s.log.WithError(err).Warnf("audit lookup failed for event %s", id)
		return nil, nil
	}
	if data == nil {
		return nil, nil
	}

	event, err := FromJSON(data)
	if err != nil {
		if s.mode == FailClosed {
			return nil, fmt.Errorf("failed to unmarshal audit event %s: %w", id, err)
		}
		s.log.WithError(err).Warnf("corrupt audit event %s", id)
		return nil, nil
	}

	if tenantContext != "" && event.TenantID != tenantContext {
		s.log.WithFields(map[string]interface{}{
			"event_id":      id,
			"event_tenant":  event.TenantID,
			"caller_tenant": tenantContext,
		}).Warn("tenant isolation: cross-tenant event lookup denied")
		if s.metrics != nil {
			s.metrics.IsolationDenialsTotal.Inc()
		}
		return nil, nil
	}

	return event, nil
}

// LogPermissionEvent records the outcome of a permission check.
func (s *Service) LogPermissionEvent(ctx context.Context, userID, tenantID, resourceType, permission string, success bool, resourceID string, details map[string]interface{}) (*Event, error) {
	action := ActionAccessDenied
	if success {
		action = ActionAccessGranted
	}

	return s.LogEvent(ctx, EventInput{
		Action:       action,
		Success:      success,
		UserID:       userID,
		TenantID:     tenantID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      mergeDetails(details, "permission", permission),
	})
}

// LogAuthEvent records a login attempt.
func (s *Service) LogAuthEvent(ctx context.Context, userID, tenantID string, success bool, details map[string]interface{}) (*Event, error) {
	return s.LogEvent(ctx, EventInput{
		Action:   ActionLogin,
		Success:  success,
		UserID:   userID,
		TenantID: tenantID,
		Details:  details,
	})
}

// LogRoleEvent records a role lifecycle change. op must be one of
// "created", "updated", or "deleted".
func (s *Service) LogRoleEvent(ctx context.Context, userID, tenantID, op, roleID string, details map[string]interface{}) (*Event, error) {
	var action Action
	switch op {
	case "created":
		action = ActionRoleCreated
	case "updated":
		action = ActionRoleUpdated
	case "deleted":
		action = ActionRoleDeleted
	default:
		return nil, fmt.Errorf("invalid role operation: %q", op)
	}

	return s.LogEvent(ctx, EventInput{
		Action:       action,
		Success:      true,
		UserID:       userID,
		TenantID:     tenantID,
		ResourceType: "role",
		ResourceID:   roleID,
		Details:      details,
	})
}

// LogTenantMembershipEvent records a user joining or leaving a tenant.
// op must be "added" or "removed".
func (s *Service) LogTenantMembershipEvent(ctx context.Context, adminUserID, tenantID, targetUserID, op string, details map[string]interface{}) (*Event, error) {
	var action Action
	switch op {
	case "added":
		action = ActionUserAddedToTenant
	case "removed":
		action = ActionUserRemovedFromTenant
	default:
		return nil, fmt.Errorf("invalid membership operation: %q", op)
	}

	return s.LogEvent(ctx, EventInput{
		Action:       action,
		Success:      true,
		UserID:       adminUserID,
		TenantID:     tenantID,
		ResourceType: "user",
		ResourceID:   targetUserID,
		Details:      mergeDetails(details, "target_user_id", targetUserID),
	})
}

// LogCrossTenantAccessAttempt records an attempt to reach another
// tenant's data. The event is owned by the source tenant.
func (s *Service) LogCrossTenantAccessAttempt(ctx context.Context, userID, sourceTenantID, targetTenantID string, details map[string]interface{}) (*Event, error) {
	return s.LogEvent(ctx, EventInput{
		Action:   ActionCrossTenantAccessAttempt,
		Success:  false,
		UserID:   userID,
		TenantID: sourceTenantID,
		Details:  mergeDetails(details, "target_tenant_id", targetTenantID),
	})
}

// LogCrossSiteAccessAttempt records an attempt to reach another site's
// data within a tenant.
func (s *Service) LogCrossSiteAccessAttempt(ctx context.Context, userID, tenantID, sourceSiteID, targetSiteID string, details map[string]interface{}) (*Event, error) {
	return s.LogEvent(ctx, EventInput{
		Action:   ActionCrossSiteAccessAttempt,
		Success:  false,
		UserID:   userID,
		TenantID: tenantID,
		Details: mergeDetails(details,
			"source_site_id", sourceSiteID,
			"target_site_id", targetSiteID),
	})
}

func (s *Service) countStoreError(operation string) {
	if s.metrics != nil {
		s.metrics.StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
}

// mergeDetails copies details and overlays key/value pairs, leaving the
// caller's map untouched.
func mergeDetails(details map[string]interface{}, pairs ...interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(details)+len(pairs)/2)
	for k, v := range details {
		merged[k] = v
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		merged[key] = pairs[i+1]
	}
	return merged
}
