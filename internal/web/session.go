package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const sessionCookie = "thumbnail_session"

type sessionKeyCtx struct{}

// withSession gives every browser a stable session id. The id only selects a
// controller in the store, so an unknown or malformed cookie is replaced.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(sessionCookie); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionKeyCtx{}, "web:"+id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionKey(ctx context.Context) string {
	if key, ok := ctx.Value(sessionKeyCtx{}).(string); ok {
		return key
	}
	return "web:anonymous"
}
