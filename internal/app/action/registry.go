// Package action implements the Action Registry, Runner, Worker Loop, and
// Stuck-run Sweeper (spec.md §4.13-4.14, §5 claim protocol).
package action

import (
	"context"
	"fmt"
)

// Context carries the validated request payload a handler needs, plus the
// lazily-resolved dependencies it may reach for (sheet client, LLM client,
// settings) — spec.md §4.13.
type Context struct {
	RunID        string
	Action       string
	Scope        []string // initiative_key selection
	SheetContext map[string]any
	Options      map[string]any
	RequestedBy  map[string]any
	Deps         any // resolved by the caller per action; handlers type-assert what they need
}

// Handler executes one action and returns its result map. Handlers are
// responsible for their own idempotence — the runner never retries
// (spec.md §4.13: "no retries at the runner layer").
type Handler func(ctx context.Context, actx Context) (map[string]any, error)

// Registry maps dotted action names (e.g. "flow1.backlog_sync",
// "pm.score_selected") to Handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under the given action name, overwriting any
// existing registration — callers are expected to register once at
// startup.
func (r *Registry) Register(action string, handler Handler) {
	r.handlers[action] = handler
}

// Lookup returns the handler registered for action, or an error if none is
// registered (an unknown action name fails the run rather than panicking).
func (r *Registry) Lookup(action string) (Handler, error) {
	h, ok := r.handlers[action]
	if !ok {
		return nil, fmt.Errorf("action: no handler registered for %q", action)
	}
	return h, nil
}

// Names returns the registered action names, for diagnostics/health checks.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}
