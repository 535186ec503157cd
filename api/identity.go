package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/lyceum-ai/lyceum/internal/access"
)

// Trusted identity headers set by the authenticating reverse proxy.
const (
	headerUserRole  = "X-User-Role"
	headerUserLevel = "X-User-Level"
	headerUserName  = "X-User-Name"
)

// IdentityResolver extracts a caller identity from a request.
type IdentityResolver interface {
	Resolve(r *http.Request) access.Identity
}

// HeaderIdentity resolves identity from trusted proxy headers.
//
// Missing or unrecognized roles degrade to guest, never to an error: an
// unidentified caller still gets public-only answers. A student level that
// fails to parse is treated as absent.
type HeaderIdentity struct{}

// Resolve implements IdentityResolver.
func (HeaderIdentity) Resolve(r *http.Request) access.Identity {
	id := access.Identity{
		Role:     access.RoleGuest,
		Username: strings.TrimSpace(r.Header.Get(headerUserName)),
	}

	switch strings.ToLower(strings.TrimSpace(r.Header.Get(headerUserRole))) {
	case string(access.RoleAdmin):
		id.Role = access.RoleAdmin
	case string(access.RoleStudent):
		id.Role = access.RoleStudent
		if lvl, err := strconv.Atoi(strings.TrimSpace(r.Header.Get(headerUserLevel))); err == nil {
			id.Level = lvl
		}
	}

	return id
}

type identityCtxKey struct{}

var ctxKeyIdentity = identityCtxKey{}

// identityFromContext retrieves the resolved identity from the request context.
// A missing identity (handler reached outside the middleware stack) reads as guest.
func identityFromContext(ctx context.Context) access.Identity {
	if id, ok := ctx.Value(ctxKeyIdentity).(access.Identity); ok {
		return id
	}
	return access.Identity{Role: access.RoleGuest}
}

// identityMiddleware resolves the caller identity once per request and adds
// it to the request context.
func identityMiddleware(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ctxKeyIdentity, resolver.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin rejects non-admin callers with 403.
// Returns the identity and whether the request may proceed.
func requireAdmin(w http.ResponseWriter, r *http.Request) (access.Identity, bool) {
	id := identityFromContext(r.Context())
	if id.Role != access.RoleAdmin {
		WriteError(w, http.StatusForbidden, "admin_required", "administrator role required")
		return id, false
	}
	return id, true
}
