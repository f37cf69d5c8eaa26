package main

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ctxKey int

const userCtxKey ctxKey = iota

// tokenFromRequest pulls the access token from the accessToken cookie,
// falling back to an Authorization bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(cookieAccess); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// requireAuth verifies the access token and attaches the resolved user to
// the request context. It has no side effects; every protected route runs
// through it before the handler.
func (a *app) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := tokenFromRequest(r)
		if tok == "" {
			errorJSON(w, unauthorized("unauthorized request"))
			return
		}
		claims, err := a.tokens.verify(tok, kindAccess)
		if err != nil {
			errorJSON(w, unauthorized("invalid or expired token"))
			return
		}
		id, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			errorJSON(w, unauthorized("invalid or expired token"))
			return
		}
		u, err := a.store.FindUserByID(r.Context(), id)
		if err != nil {
			errorJSON(w, unauthorized("invalid or expired token"))
			return
		}
		// downstream handlers never see the credential or session secrets
		u.PasswordHash = ""
		u.RefreshToken = ""
		ctx := context.WithValue(r.Context(), userCtxKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the identity requireAuth attached; nil on routes that
// did not pass through it.
func currentUser(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey).(*User)
	return u
}
