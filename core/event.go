package core

import (
	"context"
	"time"
)

// Event is a gateway or lifecycle occurrence delivered to registered event
// handlers. Payload carries the SDK event struct for gateway events (for
// example *discordgo.MessageCreate) and is nil for lifecycle events.
type Event struct {
	// Name is the event key handlers were registered under.
	Name string
	// Payload is the SDK event payload, nil for lifecycle events.
	Payload any
	// ReceivedAt is the local delivery time.
	ReceivedAt time.Time
}

// EventHandler processes a single event occurrence. Handlers for the same
// event run independently; an error from one is logged and does not stop the
// others.
type EventHandler func(ctx context.Context, ev Event) error

// Lifecycle event names emitted by the framework itself.
const (
	// EventStart fires after the gateway connection is open and commands are
	// synced, before user traffic is dispatched.
	EventStart = "_start"
	// EventStop fires during shutdown, bounded by the configured lifecycle
	// timeout.
	EventStop = "_stop"
	// EventRestart fires in place of _start when the process is replacing a
	// previous instance.
	EventRestart = "_restart"
)

// Gateway event names the discord adapter translates. The set mirrors the
// discordgo handler types wired in the adapter; names follow the Discord
// gateway camelCase convention.
const (
	EventReady                 = "ready"
	EventMessageCreate         = "messageCreate"
	EventMessageUpdate         = "messageUpdate"
	EventMessageDelete         = "messageDelete"
	EventMessageReactionAdd    = "messageReactionAdd"
	EventMessageReactionRemove = "messageReactionRemove"
	EventGuildCreate           = "guildCreate"
	EventGuildMemberAdd        = "guildMemberAdd"
	EventGuildMemberRemove     = "guildMemberRemove"
	EventInteractionCreate     = "interactionCreate"
	EventVoiceStateUpdate      = "voiceStateUpdate"
	EventTypingStart           = "typingStart"
)

// NewEvent constructs an event stamped with the current time.
func NewEvent(name string, payload any) Event {
	return Event{Name: name, Payload: payload, ReceivedAt: time.Now().UTC()}
}
