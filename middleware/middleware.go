// Package middleware provides the ordered pre-dispatch hook chain run before
// command and event handlers.
//
// Middleware executes sequentially in registration order. Returning
// core.ErrAbortDispatch stops the chain and drops the dispatch silently; any
// other error stops the chain and fails the dispatch. Implementations should
// be fast and stateless; they run on the hot path of every interaction.
package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/logging"
)

// Chain executes middleware sequentially with error propagation.
//
// The Chain is not inherently thread-safe during registration. Register all
// middleware before dispatch starts; once registration is complete, Run is
// safe for concurrent use.
type Chain struct {
	entries []core.Middleware
}

// NewChain creates a chain from the given middleware, preserving order.
func NewChain(entries ...core.Middleware) *Chain {
	return &Chain{entries: append([]core.Middleware(nil), entries...)}
}

// Use appends a middleware to the chain.
func (c *Chain) Use(m core.Middleware) {
	if m != nil {
		c.entries = append(c.entries, m)
	}
}

// Len returns the number of registered middleware.
func (c *Chain) Len() int { return len(c.entries) }

// Run executes every middleware in order. The first error stops execution
// and is returned; subsequent middleware do not run. A core.ErrAbortDispatch
// return is passed through unwrapped so callers can detect it with errors.Is.
func (c *Chain) Run(ctx context.Context, rec *core.MiddlewareRecord) error {
	if rec.Metadata == nil {
		rec.Metadata = make(map[string]any)
	}
	for idx, m := range c.entries {
		if err := m.Execute(ctx, rec); err != nil {
			if errors.Is(err, core.ErrAbortDispatch) {
				return err
			}
			return fmt.Errorf("middleware %d: %w", idx, err)
		}
	}
	return nil
}

// Aborted reports whether a chain error represents a silent abort rather than
// a failure.
func Aborted(err error) bool {
	return errors.Is(err, core.ErrAbortDispatch)
}

// NewLogging returns a middleware that logs every dispatch passing through
// the chain at debug level. Useful as the first entry during development.
func NewLogging(logger logging.Logger) core.Middleware {
	return core.MiddlewareFunc(func(ctx context.Context, rec *core.MiddlewareRecord) error {
		switch {
		case rec.Interaction != nil:
			logger.Debug("dispatching interaction", "command", rec.CommandPath, "kind", string(rec.Interaction.Kind), "user", rec.Interaction.UserID)
		case rec.Event != nil:
			logger.Debug("dispatching event", "event", rec.Event.Name)
		}
		return nil
	})
}

// NewGuildOnly returns a middleware that silently drops command interactions
// arriving outside a guild (direct messages).
func NewGuildOnly() core.Middleware {
	return core.MiddlewareFunc(func(ctx context.Context, rec *core.MiddlewareRecord) error {
		if rec.Interaction != nil && rec.Interaction.GuildID == "" {
			return core.ErrAbortDispatch
		}
		return nil
	})
}
