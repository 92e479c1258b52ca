package audit

import (
	"context"
	"net/http"
	"time"
)

// Caller is the resolved security context of a request. It is produced by
// the upstream identity layer and carried through request headers; this
// service never resolves identities itself.
type Caller struct {
	UserID        string
	TenantID      string
	IsGlobalAdmin bool
}

// contextKey is the type for context keys
type contextKey string

const callerKey contextKey = "audit_caller"

// Identity headers set by the upstream identity layer.
const (
	HeaderUserID      = "X-User-ID"
	HeaderTenantID    = "X-Tenant-ID"
	HeaderGlobalAdmin = "X-Global-Admin"
)

// WithCaller adds a caller security context to the context
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext retrieves the caller security context
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok
}

// CallerContextMiddleware extracts the identity headers into a Caller on
// the request context. Requests without a tenant are passed through
// untouched; handlers that need a caller reject them.
func CallerContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get(HeaderTenantID)
		if tenantID == "" {
			next.ServeHTTP(w, r)
			return
		}

		caller := Caller{
			UserID:        r.Header.Get(HeaderUserID),
			TenantID:      tenantID,
			IsGlobalAdmin: r.Header.Get(HeaderGlobalAdmin) == "true",
		}
		if caller.UserID == "" {
			caller.UserID = UserUnknown
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// Middleware records audit events for HTTP requests served behind it.
type Middleware struct {
	service        *Service
	logAllRequests bool // if false, only log mutations and denials
}

// NewMiddleware creates a new request-audit middleware
func NewMiddleware(service *Service, logAllRequests bool) *Middleware {
	return &Middleware{
		service:        service,
		logAllRequests: logAllRequests,
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Handler wraps an HTTP handler with request auditing. Denied responses
// become access_denied events; everything else logged becomes an
// access_granted event with the outcome in the success flag.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		if !m.logAllRequests && !m.shouldLogRequest(r, wrapped.statusCode) {
			return
		}

		caller, _ := CallerFromContext(r.Context())

		action := ActionAccessGranted
		if wrapped.statusCode == http.StatusForbidden {
			action = ActionAccessDenied
		}

		// Best effort: a failed audit write must not fail the request.
		m.service.LogEvent(r.Context(), EventInput{ //nolint:errcheck
			Action:       action,
			Success:      wrapped.statusCode < 400,
			UserID:       caller.UserID,
			TenantID:     caller.TenantID,
			ResourceType: "http_request",
			IPAddress:    r.RemoteAddr,
			UserAgent:    r.UserAgent(),
			Details: map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
			},
		})
	})
}

// shouldLogRequest determines if a request should be logged
func (m *Middleware) shouldLogRequest(r *http.Request, statusCode int) bool {
	// Always log mutations
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return true
	}

	// Always log errors and denials
	if statusCode >= 400 {
		return true
	}

	return false
}
