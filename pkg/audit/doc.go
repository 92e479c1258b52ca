// Package audit durably records security-relevant actions and answers
// filtered, time-ranged queries over that history while guaranteeing that
// a caller can never observe another tenant's events unless explicitly
// privileged.
//
// # Write path
//
// Every event is written once to the primary store and indexed in up to
// six time-scored sorted sets: tenant, user, action, resource type,
// resource instance, and a global "all tenants" index. Indexes store only
// event ids; the primary record is the single source of truth. There is
// no atomicity across these keys; partial writes are accepted
// eventual-consistency windows.
//
// # Query path
//
// A query scans exactly one index, chosen most-selective-first (resource
// instance, resource type, single action, user, then tenant or the global
// index for admins). Ids are hydrated through the tenant isolation guard
// and remaining filters are applied in memory.
//
// # Isolation
//
// Tenant isolation is enforced twice: at hydration, where a cross-tenant
// lookup is treated as not found, and again in the post-filter stage as a
// redundant safety net. Only a global admin querying tenant "all" crosses
// tenant boundaries.
//
// # Retention
//
// A scheduled prune scans the global index for events older than the
// retention horizon (default 90 days) and removes each one from every
// index plus the primary store. Removal is per-event and best-effort;
// failures are retried on the next run.
package audit
