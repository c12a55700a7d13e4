/*
actor.go - Request-scoped actor resolution

The web layer owns session mechanics; this API receives an already
authenticated identity per request via the X-User-ID header, loads the
account, and hangs a canteen.Actor off the request context. Handlers and
workflows only ever see that explicit actor - nothing ambient.
*/
package api

import (
	"context"
	"net/http"

	"github.com/lunchline/canteen/canteen"
)

type contextKey string

const actorKey contextKey = "actor"

// WithActor resolves the acting user from the X-User-ID header. Requests
// without a resolvable actor are rejected; the auth endpoints are mounted
// outside this middleware.
func (h *Handler) WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		if id == "" {
			writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
			return
		}

		user, err := h.Store.GetUser(r.Context(), canteen.UserID(id))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resolve actor", err)
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "Unknown user", nil)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, user.Actor())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) canteen.Actor {
	actor, _ := r.Context().Value(actorKey).(canteen.Actor)
	return actor
}

// RequireStaff gates staff-only routes.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r).IsStaff() {
			writeError(w, http.StatusForbidden, "Staff access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStudent gates student-only routes. Staff accounts do not place
// orders; the placement workflow relies on this gate.
func RequireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actorFrom(r).IsStaff() {
			writeError(w, http.StatusForbidden, "Student access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
