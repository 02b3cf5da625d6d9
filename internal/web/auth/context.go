package auth

import (
	"context"

	webcontext "github.com/conduit-lang/izruna/internal/web/context"
)

// GetUserID extracts the admin user ID middleware.Auth attached to
// the request context, for handlers (e.g. the admin exception-write
// endpoints) that want to record who made a change. Returns an empty
// string outside an authenticated admin request.
func GetUserID(ctx context.Context) string {
	return webcontext.GetCurrentUser(ctx)
}
