// Package middleware provides HTTP middlewares for session gating and logging.
package middleware

import (
	"net/http"

	"github.com/atinyakov/nexus/internal/client/gate"
)

// Evaluator decides whether protected views may render.
type Evaluator interface {
	Evaluate() gate.Decision
}

// RequireSession is a middleware that guards protected views.
//
// The gate is evaluated on every request. When it is Redirected the client
// is sent to the login entry point with 303 See Other and next is never
// called, so nothing protected renders without a session.
func RequireSession(g Evaluator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Evaluate()
			if d.State == gate.Redirected {
				http.Redirect(w, r, d.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
