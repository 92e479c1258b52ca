package audit

import (
	"encoding/json"
	"time"
)

// Action represents the category of audit event
type Action string

const (
	// Authorization actions
	ActionAccessGranted Action = "access_granted"
	ActionAccessDenied  Action = "access_denied"

	// Role actions
	ActionRoleCreated  Action = "role_created"
	ActionRoleUpdated  Action = "role_updated"
	ActionRoleDeleted  Action = "role_deleted"
	ActionRoleAssigned Action = "role_assigned"
	ActionRoleRemoved  Action = "role_removed"

	// Tenant membership actions
	ActionUserAddedToTenant     Action = "user_added_to_tenant"
	ActionUserRemovedFromTenant Action = "user_removed_from_tenant"

	// Tenant lifecycle actions
	ActionTenantCreated Action = "tenant_created"
	ActionTenantUpdated Action = "tenant_updated"
	ActionTenantDeleted Action = "tenant_deleted"

	// Boundary violation attempts
	ActionCrossTenantAccessAttempt Action = "cross_tenant_access_attempt"
	ActionCrossSiteAccessAttempt   Action = "cross_site_access_attempt"

	// Authentication actions
	ActionLogin           Action = "login"
	ActionLogout          Action = "logout"
	ActionPasswordChanged Action = "password_changed"

	// User lifecycle actions
	ActionUserCreated Action = "user_created"
	ActionUserUpdated Action = "user_updated"
	ActionUserDeleted Action = "user_deleted"

	// Configuration actions
	ActionSettingsChanged Action = "settings_changed"
	ActionConfigUpdated   Action = "config_updated"
)

// Severity represents the seriousness of an audit event
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

const (
	// TenantGlobal is the reserved tenant id for system-wide events.
	TenantGlobal = "global"

	// TenantAll is the reserved query value a global admin uses to
	// request events across every tenant.
	TenantAll = "all"

	// UserUnknown is recorded when the caller could not resolve an actor.
	UserUnknown = "unknown"
)

// Event represents a single audit log entry. Events are immutable once
// written; corrections are new events, never updates.
type Event struct {
	// Core fields
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Severity  Severity  `json:"severity"`
	Success   bool      `json:"success"`

	// Actor information
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`

	// Resource information
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	// Request provenance
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	// Action-specific context
	Details map[string]interface{} `json:"details,omitempty"`
}

// EventInput is an Event before the writer assigns its id and timestamp.
// Severity is optional; when empty the writer defaults it per action.
type EventInput struct {
	Action       Action                 `json:"action"`
	Severity     Severity               `json:"severity,omitempty"`
	Success      bool                   `json:"success"`
	UserID       string                 `json:"user_id"`
	TenantID     string                 `json:"tenant_id"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}

// Query represents filters for searching audit events.
//
// Action and Actions are distinct on purpose: a single Action is selective
// enough to drive index selection, while Actions (a set) is only applied as
// a post-hydration filter. The same split applies to Severity/Severities.
type Query struct {
	// Scope filters
	TenantID string
	UserID   string

	// Event filters
	Action     Action
	Actions    []Action
	Severity   Severity
	Severities []Severity
	Success    *bool

	// Resource filters
	ResourceType string
	ResourceID   string

	// Time range
	StartDate *time.Time
	EndDate   *time.Time

	// Pagination
	Limit  int
	Offset int
}

// validActions is the closed action enumeration; inputs outside it are
// rejected before any store call.
var validActions = map[Action]struct{}{
	ActionAccessGranted:            {},
	ActionAccessDenied:             {},
	ActionRoleCreated:              {},
	ActionRoleUpdated:              {},
	ActionRoleDeleted:              {},
	ActionRoleAssigned:             {},
	ActionRoleRemoved:              {},
	ActionUserAddedToTenant:        {},
	ActionUserRemovedFromTenant:    {},
	ActionTenantCreated:            {},
	ActionTenantUpdated:            {},
	ActionTenantDeleted:            {},
	ActionCrossTenantAccessAttempt: {},
	ActionCrossSiteAccessAttempt:   {},
	ActionLogin:                    {},
	ActionLogout:                   {},
	ActionPasswordChanged:          {},
	ActionUserCreated:              {},
	ActionUserUpdated:              {},
	ActionUserDeleted:              {},
	ActionSettingsChanged:          {},
	ActionConfigUpdated:            {},
}

// Valid reports whether the action is part of the closed enumeration.
func (a Action) Valid() bool {
	_, ok := validActions[a]
	return ok
}
