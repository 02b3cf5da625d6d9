// Package context carries request-scoped values (the inbound request
// ID, the authenticated admin user, and their RBAC roles) across the
// izruna HTTP API's middleware chain. Every admin-facing middleware in
// internal/web/middleware reads and writes through these helpers
// rather than keeping its own context.Context key, so a value stored
// by the request-ID middleware is visible to the logging middleware,
// and a user stored by the auth middleware is visible to authz.
package context

import "context"

// key is an unexported type so a key collision with another
// package's context.WithValue call is impossible even if that
// package also happens to store a string or []string.
type key int

const (
	requestIDKey key = iota
	currentUserKey
	userRolesKey
)

// GetRequestID returns the ID assigned to the in-flight request, or
// "" if none was set (which happens only if the request-ID
// middleware was left out of the chain).
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// SetRequestID returns a copy of ctx carrying id as the request ID.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetCurrentUser returns the subject claim of the admin JWT that
// authenticated this request, or "" for an unauthenticated request
// (public transcription endpoints never populate this).
func GetCurrentUser(ctx context.Context) string {
	user, _ := ctx.Value(currentUserKey).(string)
	return user
}

// SetCurrentUser returns a copy of ctx carrying user as the
// authenticated subject.
func SetCurrentUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// GetUserRoles returns the RBAC roles granted to the current user,
// consulted by RequirePermission/RequireRole when guarding the
// rule-override and admin endpoints.
func GetUserRoles(ctx context.Context) []string {
	roles, _ := ctx.Value(userRolesKey).([]string)
	return roles
}

// SetUserRoles returns a copy of ctx carrying roles as the current
// user's RBAC roles.
func SetUserRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, userRolesKey, roles)
}

// HasRole reports whether the current user holds role, a shorthand
// used by handlers that only need a single yes/no check instead of
// pulling the whole slice.
func HasRole(ctx context.Context, role string) bool {
	for _, r := range GetUserRoles(ctx) {
		if r == role {
			return true
		}
	}
	return false
}
