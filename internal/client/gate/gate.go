// Package gate decides whether protected views may be shown, based on the
// session store.
package gate

import (
	"github.com/atinyakov/nexus/internal/client/session"
)

// DefaultLoginPath is the login entry point protected views redirect to.
const DefaultLoginPath = "/login"

// State of a gate evaluation.
type State int

const (
	// Allowed means the protected view renders.
	Allowed State = iota
	// Redirected means the caller must go to Decision.RedirectTo instead.
	Redirected
)

func (s State) String() string {
	if s == Allowed {
		return "allowed"
	}
	return "redirected"
}

// Decision is the outcome of one evaluation.
type Decision struct {
	State      State
	RedirectTo string
}

// SessionSource is the part of the session store the gate reads.
type SessionSource interface {
	State() session.State
	Subscribe(func(session.State)) (unsubscribe func())
}

// Gate evaluates the session on every call; it keeps no state of its own.
type Gate struct {
	source    SessionSource
	loginPath string
}

// New returns a gate redirecting to loginPath (DefaultLoginPath if empty).
func New(source SessionSource, loginPath string) *Gate {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Gate{source: source, loginPath: loginPath}
}

// LoginPath is the redirect target.
func (g *Gate) LoginPath() string {
	return g.loginPath
}

// Evaluate decides against the live session state.
func (g *Gate) Evaluate() Decision {
	return decide(g.source.State(), g.loginPath)
}

// Watch calls fn with the current decision and again, synchronously, after
// every session change. A logout therefore produces Redirected before
// Logout returns.
func (g *Gate) Watch(fn func(Decision)) (stop func()) {
	stop = g.source.Subscribe(func(st session.State) {
		fn(decide(st, g.loginPath))
	})
	fn(g.Evaluate())
	return stop
}

func decide(st session.State, loginPath string) Decision {
	if !st.IsAuthenticated {
		return Decision{State: Redirected, RedirectTo: loginPath}
	}
	return Decision{State: Allowed}
}

// View is anything a gate can protect.
type View interface {
	// Render produces the view's output. It is only called when allowed.
	Render() (any, error)
}

// ViewFunc adapts a function to View.
type ViewFunc func() (any, error)

// Render calls f.
func (f ViewFunc) Render() (any, error) { return f() }

// Redirect is the output of a guarded view that was not allowed to render.
type Redirect struct {
	To string
}

// Guard wraps children so they render only when the gate allows it. A single
// child renders to its own output; several render to a slice in order.
// Guards nest: a guarded view can be the child of another guard.
func (g *Gate) Guard(children ...View) View {
	return ViewFunc(func() (any, error) {
		d := g.Evaluate()
		if d.State == Redirected {
			return Redirect{To: d.RedirectTo}, nil
		}
		if len(children) == 1 {
			return children[0].Render()
		}
		out := make([]any, 0, len(children))
		for _, c := range children {
			v, err := c.Render()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	})
}
