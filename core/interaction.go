package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InteractionKind classifies the origin of an interaction.
type InteractionKind string

const (
	// KindSlashCommand is a chat input (slash) command invocation.
	KindSlashCommand InteractionKind = "slash_command"
	// KindUserContextMenu is a right-click command on a user.
	KindUserContextMenu InteractionKind = "user_context_menu"
	// KindMessageContextMenu is a right-click command on a message.
	KindMessageContextMenu InteractionKind = "message_context_menu"
	// KindComponent is a button or select menu interaction.
	KindComponent InteractionKind = "component"
	// KindAutocomplete is an autocomplete request for a command option.
	KindAutocomplete InteractionKind = "autocomplete"
)

// Interaction is the SDK-neutral record of a user invoking a command, context
// menu, component or autocomplete. The discord adapter populates it from the
// gateway payload; test code builds it directly (see internal/testutil).
//
// After construction it should be treated as immutable. Raw carries the
// underlying SDK payload for handlers that need capabilities the normalized
// shape does not cover.
type Interaction struct {
	// ID is the Discord-assigned interaction id (or a generated one in tests).
	ID string
	// Kind classifies the interaction origin.
	Kind InteractionKind
	// CommandPath is the full command path with subcommands joined by '/'
	// (for example "settings/welcome/channel"). Empty for components.
	CommandPath string
	// CustomID is the component custom id. Empty for commands.
	CustomID string
	// Options holds decoded command options keyed by option name. Values are
	// typed per the declared option type (string, int64, float64, bool, or an
	// id string for user/channel/role/attachment options).
	Options map[string]any
	// FocusedOption names the option being autocompleted, if Kind is
	// KindAutocomplete.
	FocusedOption string

	// Identity of the invoker and location.
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Locale    string

	// ReceivedAt is the local time the gateway delivered the interaction.
	// Discord's three second initial-response window counts from here.
	ReceivedAt time.Time

	// Raw is the underlying SDK payload (e.g. *discordgo.InteractionCreate).
	Raw any
}

// Option returns the named decoded option and whether it was provided.
func (i *Interaction) Option(name string) (any, bool) {
	v, ok := i.Options[name]
	return v, ok
}

// StringOption returns the named option as a string, or def when absent or of
// a different type.
func (i *Interaction) StringOption(name, def string) string {
	if v, ok := i.Options[name].(string); ok {
		return v
	}
	return def
}

// IntOption returns the named option as an int64, or def when absent or of a
// different type.
func (i *Interaction) IntOption(name string, def int64) int64 {
	if v, ok := i.Options[name].(int64); ok {
		return v
	}
	return def
}

// BoolOption returns the named option as a bool, or def when absent or of a
// different type.
func (i *Interaction) BoolOption(name string, def bool) bool {
	if v, ok := i.Options[name].(bool); ok {
		return v
	}
	return def
}

// Responder abstracts the interaction response surface of the underlying SDK.
// Reply and Defer are the only valid *initial* responses; Discord allows
// exactly one per interaction, within three seconds of delivery. After a
// Defer, Edit fills in the deferred message (within the fifteen minute
// window); FollowUp appends additional messages once an initial response
// exists.
//
// Implementations must be safe for use from the dispatch goroutine only; Sage
// never calls a Responder concurrently for the same interaction.
type Responder interface {
	// Reply sends the initial response.
	Reply(ctx context.Context, r *Reply) error
	// Defer acknowledges the interaction, granting the handler the extended
	// response window. The eventual content is supplied via Edit.
	Defer(ctx context.Context, ephemeral bool) error
	// Edit replaces the content of the initial (usually deferred) response.
	Edit(ctx context.Context, r *Reply) error
	// FollowUp sends an additional message after the initial response.
	FollowUp(ctx context.Context, r *Reply) error
}

// NewID generates a new unique identifier for dispatch correlation.
func NewID() string { return uuid.NewString() }
