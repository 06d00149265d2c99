package checkout

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cafe-pos/internal/models"
)

// Registry owns one session per terminal and routes payment callbacks to the
// session waiting on the reference.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
	refs     map[string]*Session
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps.withDefaults(),
		sessions: make(map[string]*Session),
		refs:     make(map[string]*Session),
	}
}

// Session returns the terminal's session, creating it on first use.
func (r *Registry) Session(terminal string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[terminal]
	if !ok {
		s = newSession(terminal, r.deps, r)
		r.sessions[terminal] = s
	}
	return s
}

// Terminals lists the known terminal ids in order.
func (r *Registry) Terminals() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolve delivers a completion callback to the session that created ref.
func (r *Registry) Resolve(ctx context.Context, ref string, outcome Outcome) (Resolution, error) {
	r.mu.Lock()
	s, ok := r.refs[ref]
	r.mu.Unlock()

	if !ok {
		return Resolution{}, fmt.Errorf("payment reference %s: %w", ref, models.ErrNotFound)
	}
	return s.ResolveQR(ctx, ref, outcome)
}

// bind and release are called with the session lock held; the registry never
// takes a session lock while holding its own.
func (r *Registry) bind(ref string, s *Session) {
	r.mu.Lock()
	r.refs[ref] = s
	r.mu.Unlock()
}

func (r *Registry) release(ref string) {
	r.mu.Lock()
	delete(r.refs, ref)
	r.mu.Unlock()
}
