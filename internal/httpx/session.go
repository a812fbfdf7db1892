package httpx

import (
	"context"
	"net/http"

	"github.com/AngelCh415/yukti/internal/store"
)

const sessionCookie = "yukti_session"

type sessionKey struct{}

// session attaches the caller's session, issuing a cookie for new or expired ones.
func (rt *router) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
		sess := rt.Sessions.Get(id)
		if sess.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name: sessionCookie, Value: sess.ID, Path: "/",
				HttpOnly: true, SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(ctx context.Context) *store.Session {
	if s, ok := ctx.Value(sessionKey{}).(*store.Session); ok {
		return s
	}
	return store.NewSession("")
}
