package audit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantwise/audittrail/pkg/observability"
	"github.com/tenantwise/audittrail/pkg/storage"
	"github.com/tenantwise/audittrail/pkg/storage/redisstore"
)

// testClock is a controllable time source for deterministic timestamps.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// setupServiceTest starts a miniredis instance and returns a service
// wired to it with a fixed clock.
func setupServiceTest(t *testing.T, opts ...Option) (*Service, *miniredis.Miniredis, *testClock) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := storage.DefaultConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	store, err := redisstore.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	opts = append([]Option{WithClock(clock.Now)}, opts...)
	service := NewService(store, logger, opts...)

	return service, mr, clock
}

func TestLogEvent_WriteCompleteness(t *testing.T) {
	service, _, clock := setupServiceTest(t)
	ctx := context.Background()

	event, err := service.LogEvent(ctx, EventInput{
		Action:   ActionLogin,
		Success:  true,
		UserID:   "u1",
		TenantID: "t1",
	})
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.NotEmpty(t, event.ID)
	assert.NotEqual(t, DegradedEventID, event.ID)
	assert.Equal(t, clock.Now().UTC(), event.Timestamp)
	assert.Equal(t, SeverityInfo, event.Severity)

	// Retrievable by id with the correct tenant context
	fetched, err := service.GetEventByID(ctx, event.ID, "t1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, event.ID, fetched.ID)
	assert.Equal(t, "u1", fetched.UserID)

	// Appears in a tenant-scoped query over a range containing its timestamp
	start := clock.Now().Add(-time.Minute)
	end := clock.Now().Add(time.Minute)
	events, err := service.QueryEvents(ctx, Query{
		TenantID:  "t1",
		StartDate: &start,
		EndDate:   &end,
	}, "t1", false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
}

func TestLogEvent_PopulatesIndexes(t *testing.T) {
	service, mr, _ := setupServiceTest(t)
	ctx := context.Background()

	event, err := service.LogEvent(ctx, EventInput{
		Action:       ActionAccessDenied,
		UserID:       "u1",
		TenantID:     "t1",
		ResourceType: "doc",
		ResourceID:   "d1",
	})
	require.NoError(t, err)

	indexKeys := []string{
		"audit:index:tenant:t1",
		"audit:index:user:u1",
		"audit:index:action:access_denied",
		"audit:index:resource:doc",
		"audit:index:resource:doc:d1",
		"audit:index:all",
	}
	for _, key := range indexKeys {
		assert.True(t, mr.Exists(key), "expected index %s to exist", key)

		ids, err := service.store.ZRangeByScore(ctx, key, "0", "+inf", 0, 0)
		require.NoError(t, err)
		assert.Contains(t, ids, event.ID, "expected index %s to contain the event id", key)
	}

	assert.True(t, mr.Exists("audit:event:"+event.ID))
}

func TestLogEvent_SkipsInapplicableResourceIndexes(t *testing.T) {
	service, mr, _ := setupServiceTest(t)
	ctx := context.Background()

	_, err := service.LogEvent(ctx, EventInput{
		Action:   ActionLogin,
		UserID:   "u1",
		TenantID: "t1",
	})
	require.NoError(t, err)

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "index:resource", "no resource index expected for %s", key)
	}
}

func TestLogEvent_SeverityDefaults(t *testing.T) {
	service, _, _ := setupServiceTest(t)
	ctx := context.Background()

	tests := []struct {
		action Action
		want   Severity
	}{
		{ActionAccessDenied, SeverityWarning},
		{ActionTenantDeleted, SeverityCritical},
		{ActionLogin, SeverityInfo},
		{ActionConfigUpdated, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			event, err := service.LogEvent(ctx, EventInput{
				Action:   tt.action,
				UserID:   "u1",
				TenantID: "t1",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, event.Severity)
		})
	}
}

func TestLogEvent_ExplicitSeverityPreserved(t *testing.T) {
	service, _, _ := setupServiceTest(t)

	event, err := service.LogEvent(context.Background(), EventInput{
		Action:   ActionAccessDenied,
		Severity: SeverityCritical,
		UserID:   "u1",
		TenantID: "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, event.Severity)
}

func TestLogEvent_DefaultsTenantAndUser(t *testing.T) {
	service, _, _ := setupServiceTest(t)

	event, err := service.LogEvent(context.Background(), EventInput{
		Action: ActionConfigUpdated,
	})
	require.NoError(t, err)
	assert.Equal(t, TenantGlobal, event.TenantID)
	assert.Equal(t, UserUnknown, event.UserID)
}

func TestLogEvent_InvalidAction(t *testing.T) {
	service, mr, _ := setupServiceTest(t)

	_, err := service.LogEvent(context.Background(), EventInput{
		Action:   Action("made_up_action"),
		UserID:   "u1",
		TenantID: "t1",
	})
	require.Error(t, err)

	// Rejected before any store call
	assert.Empty(t, mr.Keys())
}

func TestLogEvent_FailOpenReturnsDegradedRecord(t *testing.T) {
	service, mr, _ := setupServiceTest(t)
	mr.SetError("store down")

	event, err := service.LogEvent(context.Background(), EventInput{
		Action:   ActionLogin,
		UserID:   "u1",
		TenantID: "t1",
		Details:  map[string]interface{}{"attempt": 1},
	})
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, DegradedEventID, event.ID)
	assert.Equal(t, SeverityError, event.Severity)
	assert.Contains(t, event.Details, "error")
	assert.Equal(t, 1, event.Details["attempt"])
}

func TestLogEvent_FailClosedPropagatesError(t *testing.T) {
	service, mr, _ := setupServiceTest(t, WithFailureMode(FailClosed))
	mr.SetError("store down")

	event, err := service.LogEvent(context.Background(), EventInput{
		Action:   ActionLogin,
		UserID:   "u1",
		TenantID: "t1",
	})
	require.Error(t, err)
	assert.Nil(t, event)
}

func TestGetEventByID_TenantIsolation(t *testing.T) {
	service, _, _ := setupServiceTest(t)
	ctx := context.Background()

	event, err := service.LogEvent(ctx, EventInput{
		Action:   ActionAccessGranted,
		UserID:   "u1",
		TenantID: "t1",
	})
	require.NoError(t, err)

	// Cross-tenant lookup is indistinguishable from not found
	crossTenant, err := service.GetEventByID(ctx, event.ID, "t2")
	require.NoError(t, err)
	assert.Nil(t, crossTenant)

	// Unscoped lookup succeeds
	unscoped, err := service.GetEventByID(ctx, event.ID, "")
	require.NoError(t, err)
	require.NotNil(t, unscoped)
	assert.Equal(t, event.ID, unscoped.ID)
}

func TestGetEventByID_NotFound(t *testing.T) {
	service, _, _ := setupServiceTest(t)

	event, err := service.GetEventByID(context.Background(), "missing-id", "t1")
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestLogPermissionEvent(t *testing.T) {
	service, _, _ := setupServiceTest(t)
	ctx := context.Background()

	granted, err := service.LogPermissionEvent(ctx, "u1", "t1", "doc", "read", true, "d1", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionAccessGranted, granted.Action)
	assert.True(t, granted.Success)
	assert.Equal(t, "doc", granted.ResourceType)
	assert.Equal(t, "d1", granted.ResourceID)
	assert.Equal(t, "read", granted.Details["permission"])

	denied, err := service.LogPermissionEvent(ctx, "u1", "t1", "doc", "write", false, "d1", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionAccessDenied, denied.Action)
	assert.False(t, denied.Success)
	assert.Equal(t, SeverityWarning, denied.Severity)
}

func TestLogAuthEvent(t *testing.T) {
	service, _, _ := setupServiceTest(t)

	event, err := service.LogAuthEvent(context.Background(), "u1", "t1", false, map[string]interface{}{"method": "password"})
	require.NoError(t, err)
	assert.Equal(t, ActionLogin, event.Action)
	assert.False(t, event.Success)
	assert.Equal(t, "password", event.Details["method"])
}

func TestLogRoleEvent(t *testing.T) {
	service, _, _ := setupServiceTest(t)
	ctx := context.Background()

	tests := []struct {
		op   string
		want Action
	}{
		{"created", ActionRoleCreated},
		{"updated", ActionRoleUpdated},
		{"deleted", ActionRoleDeleted},
	}
	for _, tt := range tests {
		event, err := service.LogRoleEvent(ctx, "u1", "t1", tt.op, "r1", nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, event.Action)
		assert.Equal(t, "role", event.ResourceType)
		assert.Equal(t, "r1", event.ResourceID)
	}

	_, err := service.LogRoleEvent(ctx, "u1", "t1", "promoted", "r1", nil)
	require.Error(t, err)
}

func TestLogTenantMembershipEvent(t *testing.T) {
	service, _, _ := setupServiceTest(t)
	ctx := context.Background()

	added, err := service.LogTenantMembershipEvent(ctx, "admin1", "t1", "u2", "added", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionUserAddedToTenant, added.Action)
	assert.Equal(t, "admin1", added.UserID)
	assert.Equal(t, "u2", added.ResourceID)
	assert.Equal(t, "u2", added.Details["target_user_id"])

	removed, err := service.LogTenantMembershipEvent(ctx, "admin1", "t1", "u2", "removed", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionUserRemovedFromTenant, removed.Action)

	_, err = service.LogTenantMembershipEvent(ctx, "admin1", "t1", "u2", "banned", nil)
	require.Error(t, err)
}

func TestLogCrossTenantAccessAttempt(t *testing.T) {
	service, _, _ := setupServiceTest(t)

	event, err := service.LogCrossTenantAccessAttempt(context.Background(), "u1", "t1", "t2", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionCrossTenantAccessAttempt, event.Action)
	assert.Equal(t, "t1", event.TenantID)
	assert.Equal(t, "t2", event.Details["target_tenant_id"])
	assert.False(t, event.Success)
	assert.Equal(t, SeverityCritical, event.Severity)
}

func TestLogCrossSiteAccessAttempt(t *testing.T) {
	service, _, _ := setupServiceTest(t)

	event, err := service.LogCrossSiteAccessAttempt(context.Background(), "u1", "t1", "s1", "s2", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionCrossSiteAccessAttempt, event.Action)
	assert.Equal(t, "s1", event.Details["source_site_id"])
	assert.Equal(t, "s2", event.Details["target_site_id"])
}

func TestMergeDetails_DoesNotMutateCaller(t *testing.T) {
	service, _, _ := setupServiceTest(t)

	details := map[string]interface{}{"key": "value"}
	_, err := service.LogCrossTenantAccessAttempt(context.Background(), "u1", "t1", "t2", details)
	require.NoError(t, err)

	assert.Len(t, details, 1)
	assert.NotContains(t, details, "target_tenant_id")
}
