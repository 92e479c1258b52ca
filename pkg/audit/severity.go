package audit

// defaultSeverities maps each action to the severity recorded when the
// caller does not supply one.
var defaultSeverities = map[Action]Severity{
	ActionAccessGranted:            SeverityInfo,
	ActionAccessDenied:             SeverityWarning,
	ActionRoleCreated:              SeverityInfo,
	ActionRoleUpdated:              SeverityInfo,
	ActionRoleDeleted:              SeverityWarning,
	ActionRoleAssigned:             SeverityInfo,
	ActionRoleRemoved:              SeverityInfo,
	ActionUserAddedToTenant:        SeverityInfo,
	ActionUserRemovedFromTenant:    SeverityInfo,
	ActionTenantCreated:            SeverityInfo,
	ActionTenantUpdated:            SeverityInfo,
	ActionTenantDeleted:            SeverityCritical,
	ActionCrossTenantAccessAttempt: SeverityCritical,
	ActionCrossSiteAccessAttempt:   SeverityCritical,
	ActionLogin:                    SeverityInfo,
	ActionLogout:                   SeverityInfo,
	ActionPasswordChanged:          SeverityInfo,
	ActionUserCreated:              SeverityInfo,
	ActionUserUpdated:              SeverityInfo,
	ActionUserDeleted:              SeverityWarning,
	ActionSettingsChanged:          SeverityInfo,
	ActionConfigUpdated:            SeverityWarning,
}

// DefaultSeverityFor returns the default severity for an action.
func DefaultSeverityFor(action Action) Severity {
	if sev, ok := defaultSeverities[action]; ok {
		return sev
	}
	return SeverityInfo
}
