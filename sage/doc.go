// Package sage implements the auto-defer / reply / timeout orchestration
// around command handlers.
//
// Discord grants an interaction a single initial response within three
// seconds of delivery; a deferred response extends the window to fifteen
// minutes, after which any number of follow-ups may be sent. Sage hides that
// lifecycle from handlers: it races the handler against a short defer buffer,
// acknowledges the interaction when the handler is slow, and routes the
// eventual result to the right wire operation.
//
// The dispatch state machine has three states:
//
//	pending:  no response sent yet
//	deferred: Sage acknowledged the interaction, content still owed
//	replied:  an initial response exists; further output is a follow-up
//
// Transitions are triggered only by handler resolution, defer-buffer expiry
// and hard-timeout expiry. At most one initial response is ever attempted.
package sage
