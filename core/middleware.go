package core

import "context"

// MiddlewareRecord describes the dispatch a middleware chain is vetting.
// Exactly one of Interaction or Event is non-nil.
type MiddlewareRecord struct {
	// Interaction is set for command / context menu / component dispatches.
	Interaction *Interaction
	// Event is set for gateway and lifecycle event dispatches.
	Event *Event
	// CommandPath duplicates Interaction.CommandPath for convenience; empty
	// for events.
	CommandPath string
	// Module is the module label of the matched entry, empty when unlabeled.
	Module string
	// Plugin names the plugin that registered the matched entry, empty for
	// user registrations.
	Plugin string
	// Metadata is scratch space middleware may use to pass values to the
	// handler (via Interaction.Raw consumers) or to later middleware.
	Metadata map[string]any
}

// Middleware runs before a command or event handler. Returning
// ErrAbortDispatch drops the dispatch silently; any other error fails it and
// is surfaced through the normal error path.
//
// Implementations should be fast (they run on the dispatch path) and must not
// retain the record past the call.
type Middleware interface {
	Execute(ctx context.Context, rec *MiddlewareRecord) error
}

// MiddlewareFunc adapts a plain function to the Middleware interface.
type MiddlewareFunc func(ctx context.Context, rec *MiddlewareRecord) error

// Execute calls the wrapped function.
func (f MiddlewareFunc) Execute(ctx context.Context, rec *MiddlewareRecord) error {
	return f(ctx, rec)
}
