package sage

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/logging"
)

// Config defines the tuning parameters of the dispatcher.
//
// The zero value is not useful; start from DefaultConfig. Per-command
// overrides (core.SageConfig) are merged over this via Resolve.
type Config struct {
	// Defer enables the auto-defer race. When false, dispatch simply waits
	// for the handler (still subject to Timeout) and the handler owns the
	// three second window.
	Defer bool

	// Buffer is how long the dispatcher waits for the handler to resolve
	// before deferring the interaction. Values well under Discord's three
	// second initial-response deadline leave headroom for the defer call
	// itself to reach the API.
	Buffer time.Duration

	// Ephemeral makes auto-deferred responses visible only to the invoker.
	Ephemeral bool

	// ErrorReplies sends a user-visible error embed when a handler fails or
	// times out. Disable for bots that prefer to fail silently.
	ErrorReplies bool

	// Timeout is the hard ceiling for a dispatch measured from its start.
	// When it fires the handler context is cancelled, a timeout reply is sent
	// (if ErrorReplies) and the handler result is discarded. Zero disables it.
	Timeout time.Duration
}

// DefaultConfig provides production defaults: auto-defer after 250ms, error
// replies on, no hard timeout.
var DefaultConfig = Config{
	Defer:        true,
	Buffer:       250 * time.Millisecond,
	ErrorReplies: true,
}

// Resolve merges a per-command override onto a base configuration. Pointer
// fields override only when set, so an explicit zero Buffer (defer
// immediately) is distinguishable from an absent one; Timeout overrides when
// positive.
func Resolve(base Config, override *core.SageConfig) Config {
	if override == nil {
		return base
	}
	cfg := base
	if override.Defer != nil {
		cfg.Defer = *override.Defer
	}
	if override.Buffer != nil && *override.Buffer >= 0 {
		cfg.Buffer = *override.Buffer
	}
	if override.Ephemeral {
		cfg.Ephemeral = true
	}
	if override.ErrorReplies != nil {
		cfg.ErrorReplies = *override.ErrorReplies
	}
	if override.Timeout > 0 {
		cfg.Timeout = override.Timeout
	}
	return cfg
}

// state tracks the interaction response lifecycle within a single dispatch.
type state int

const (
	statePending state = iota
	stateDeferred
	stateReplied
)

// String returns the lowercase state name.
func (s state) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateDeferred:
		return "deferred"
	case stateReplied:
		return "replied"
	default:
		return "unknown"
	}
}

// Options configures a Dispatcher via the functional options pattern.
type Options struct {
	// Config holds the bot-level dispatch defaults.
	Config Config
	// Logger receives per-dispatch structured logs. Defaults to NoOp.
	Logger logging.Logger
}

// Dispatcher executes command handlers under the Sage lifecycle. It is
// stateless across dispatches and safe for concurrent use; each Dispatch call
// tracks its own interaction state.
type Dispatcher struct {
	config Config
	logger logging.Logger
}

// New creates a Dispatcher with optional overrides.
func New(optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{config: opts.Config, logger: opts.Logger}
}

// result carries the handler outcome across the race.
type result struct {
	value any
	err   error
}

// Dispatch runs a command handler for an interaction and delivers its result.
//
// The handler runs in its own goroutine with a context that is cancelled when
// dispatch ends (timeout, cancellation or completion). Dispatch returns the
// terminal handler error (wrapped), core.ErrSageTimeout on hard timeout, the
// context error on cancellation, or nil. User-visible error replies are
// governed by the resolved ErrorReplies setting and never mask the returned
// error.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	rsp core.Responder,
	i *core.Interaction,
	handler core.CommandHandler,
	override *core.SageConfig,
) error {
	cfg := Resolve(d.config, override)
	start := time.Now()

	hctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the handler goroutine never leaks, even when the result is
	// abandoned after a timeout.
	resultCh := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- result{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		v, err := handler(hctx, i)
		resultCh <- result{value: v, err: err}
	}()

	var timeoutCh <-chan time.Time
	if cfg.Timeout > 0 {
		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	st := statePending

	if cfg.Defer {
		buffer := time.NewTimer(cfg.Buffer)
		defer buffer.Stop()

		select {
		case res := <-resultCh:
			return d.deliver(ctx, rsp, i, &st, res, cfg, start)
		case <-buffer.C:
			if err := rsp.Defer(ctx, cfg.Ephemeral); err != nil {
				// The handler may have acknowledged through the raw SDK
				// already; stay pending and sort it out at delivery.
				d.logger.Warn("auto-defer failed", "command", i.CommandPath, "error", err)
			} else {
				st = stateDeferred
				d.logger.Debug("interaction deferred", "command", i.CommandPath, "buffer", cfg.Buffer)
			}
		case <-timeoutCh:
			return d.timeout(ctx, rsp, i, &st, cfg, start)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case res := <-resultCh:
		return d.deliver(ctx, rsp, i, &st, res, cfg, start)
	case <-timeoutCh:
		return d.timeout(ctx, rsp, i, &st, cfg, start)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver routes the handler result to the wire operation dictated by the
// current state.
func (d *Dispatcher) deliver(
	ctx context.Context,
	rsp core.Responder,
	i *core.Interaction,
	st *state,
	res result,
	cfg Config,
	start time.Time,
) error {
	dur := time.Since(start)

	if res.err != nil {
		d.logger.Error("handler failed", "command", i.CommandPath, "state", st.String(), "duration", dur, "error", res.err)
		if cfg.ErrorReplies {
			if serr := d.send(ctx, rsp, st, errorReply(res.err)); serr != nil {
				d.logger.Warn("error reply failed", "command", i.CommandPath, "error", serr)
			}
		}
		return fmt.Errorf("command %s: %w", i.CommandPath, res.err)
	}

	reply, err := core.NormalizeReply(res.value)
	if err != nil {
		d.logger.Error("handler returned unsupported result", "command", i.CommandPath, "error", err)
		if cfg.ErrorReplies {
			if serr := d.send(ctx, rsp, st, errorReply(err)); serr != nil {
				d.logger.Warn("error reply failed", "command", i.CommandPath, "error", serr)
			}
		}
		return fmt.Errorf("command %s: %w", i.CommandPath, err)
	}

	if reply == nil {
		// Nothing to say. After a defer the acknowledgement stands on its
		// own; while pending the interaction simply goes unanswered, which is
		// the handler's own choice (it may have responded via the raw SDK).
		d.logger.Debug("handler returned no reply", "command", i.CommandPath, "state", st.String(), "duration", dur)
		return nil
	}

	if err := d.send(ctx, rsp, st, reply); err != nil {
		d.logger.Error("reply delivery failed", "command", i.CommandPath, "state", st.String(), "error", err)
		return fmt.Errorf("deliver reply for %s: %w", i.CommandPath, err)
	}

	d.logger.Info("dispatch completed", "command", i.CommandPath, "state", st.String(), "duration", dur)

	return nil
}

// send performs the state-appropriate wire operation and advances the state.
func (d *Dispatcher) send(ctx context.Context, rsp core.Responder, st *state, reply *core.Reply) error {
	switch *st {
	case statePending:
		if err := rsp.Reply(ctx, reply); err != nil {
			// A handler that already sent its own initial response through
			// the raw SDK makes Reply fail; degrade to a follow-up so the
			// result is not lost.
			if ferr := rsp.FollowUp(ctx, reply); ferr != nil {
				return err
			}
			d.logger.Warn("initial reply rejected, delivered as follow-up", "error", err)
		}
		*st = stateReplied
		return nil
	case stateDeferred:
		if err := rsp.Edit(ctx, reply); err != nil {
			return err
		}
		*st = stateReplied
		return nil
	default:
		return rsp.FollowUp(ctx, reply)
	}
}

// timeout handles hard-timeout expiry: surface a timeout reply (if enabled)
// and abandon the handler result.
func (d *Dispatcher) timeout(
	ctx context.Context,
	rsp core.Responder,
	i *core.Interaction,
	st *state,
	cfg Config,
	start time.Time,
) error {
	d.logger.Error("handler timed out", "command", i.CommandPath, "state", st.String(), "timeout", cfg.Timeout, "duration", time.Since(start))

	if cfg.ErrorReplies {
		if err := d.send(ctx, rsp, st, timeoutReply(cfg.Timeout)); err != nil {
			d.logger.Warn("timeout reply failed", "command", i.CommandPath, "error", err)
		}
	}

	return fmt.Errorf("command %s: %w", i.CommandPath, core.ErrSageTimeout)
}

// errorReply builds the user-visible embed for a failed handler.
func errorReply(err error) *core.Reply {
	return &core.Reply{
		Embeds: []core.Embed{{
			Title:       "Something went wrong",
			Description: err.Error(),
			Color:       0xED4245,
		}},
		Ephemeral: true,
	}
}

// timeoutReply builds the user-visible embed for a timed out handler.
func timeoutReply(timeout time.Duration) *core.Reply {
	return &core.Reply{
		Embeds: []core.Embed{{
			Title:       "Command timed out",
			Description: fmt.Sprintf("No response after %s.", timeout),
			Color:       0xED4245,
		}},
		Ephemeral: true,
	}
}
