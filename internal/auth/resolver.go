// Package auth resolves the acting identity of inbound HTTP requests.
//
// Resolution order mirrors the platform: an authenticated session first,
// falling back to an API token from the Authorization header. Session
// issuance itself belongs to the platform's login flow; this service only
// verifies.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/flagmap/flagmap/server/internal/model"
	"github.com/flagmap/flagmap/server/internal/store"
)

// SessionVerifier extracts a user id from an authenticated session carried by
// the request, reporting false when no valid session is present.
type SessionVerifier interface {
	UserID(r *http.Request) (int64, bool)
}

// Resolver resolves requests to users via session or token.
type Resolver struct {
	store    store.Store
	sessions SessionVerifier
}

func NewResolver(st store.Store, sessions SessionVerifier) *Resolver {
	return &Resolver{store: st, sessions: sessions}
}

// ResolveUser returns the acting user for the request.
//   - model.ErrUnauthorized when no session and no token are present, or the
//     token is expired or points at a missing user
//   - model.ErrTokenNotFound when a supplied token matches no stored token
func (rs *Resolver) ResolveUser(ctx context.Context, r *http.Request) (*model.User, error) {
	if rs.sessions != nil {
		if uid, ok := rs.sessions.UserID(r); ok {
			if u, err := rs.store.Users().Get(ctx, uid); err == nil {
				return u, nil
			}
			// stale session; fall through to token resolution
		}
	}

	raw := TokenFromHeader(r)
	if raw == "" {
		return nil, model.ErrUnauthorized
	}

	tok, err := rs.store.Tokens().GetByValue(ctx, raw)
	if err != nil {
		return nil, err
	}
	if tok.Expiration != nil && time.Now().After(*tok.Expiration) {
		return nil, model.ErrUnauthorized
	}

	u, err := rs.store.Users().Get(ctx, tok.UserID)
	if err != nil {
		return nil, model.ErrUnauthorized
	}
	return u, nil
}

// TokenFromHeader extracts the API token from the Authorization header.
// Both "Token <value>" and "Bearer <value>" schemes are accepted.
func TokenFromHeader(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	switch strings.ToLower(parts[0]) {
	case "token", "bearer":
		return strings.TrimSpace(parts[1])
	}
	return ""
}
