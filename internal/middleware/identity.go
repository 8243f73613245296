package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mindbridge/companion/backend/pkg/utils"
)

// UserIDHeader carries the caller's identity. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

type userIDKey struct{}

// UserID rejects requests without an identity and stores it on the context.
// Browsers cannot set headers on WebSocket upgrades, so the userId query
// parameter is accepted as well.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if id == "" {
			id = strings.TrimSpace(r.URL.Query().Get("userId"))
		}
		if id == "" {
			utils.RespondError(w, http.StatusUnauthorized, "missing "+UserIDHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// WithUserID attaches id to ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFrom returns the identity stored by UserID.
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
