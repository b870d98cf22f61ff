package testutil

import (
	"time"

	"github.com/hupe1980/botmesh/core"
)

// InteractionBuilder provides a fluent helper for constructing interactions in
// tests. Example:
//
//	i := NewInteractionBuilder().Command("ban/user").Option("reason", "spam").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type InteractionBuilder struct {
	id          string
	kind        core.InteractionKind
	commandPath string
	customID    string
	options     map[string]any
	focused     string
	guildID     string
	channelID   string
	userID      string
	username    string
	receivedAt  time.Time
}

// NewInteractionBuilder creates a builder defaulting to a slash command from
// user "tester".
func NewInteractionBuilder() *InteractionBuilder {
	return &InteractionBuilder{
		kind:     core.KindSlashCommand,
		userID:   "user-1",
		username: "tester",
		options:  map[string]any{},
	}
}

// ID overrides the auto-generated interaction ID (chainable).
func (b *InteractionBuilder) ID(id string) *InteractionBuilder { b.id = id; return b }

// Kind sets the interaction kind (chainable).
func (b *InteractionBuilder) Kind(k core.InteractionKind) *InteractionBuilder { b.kind = k; return b }

// Command sets the command path (chainable).
func (b *InteractionBuilder) Command(path string) *InteractionBuilder {
	b.commandPath = path
	return b
}

// Component marks the interaction as a component press with the given custom
// id (chainable).
func (b *InteractionBuilder) Component(customID string) *InteractionBuilder {
	b.kind = core.KindComponent
	b.customID = customID
	return b
}

// Option adds a decoded option value (chainable).
func (b *InteractionBuilder) Option(name string, value any) *InteractionBuilder {
	b.options[name] = value
	return b
}

// Focused marks an option as the autocomplete focus and switches the kind to
// autocomplete (chainable).
func (b *InteractionBuilder) Focused(name string) *InteractionBuilder {
	b.kind = core.KindAutocomplete
	b.focused = name
	return b
}

// Guild sets guild and channel identifiers (chainable).
func (b *InteractionBuilder) Guild(guildID, channelID string) *InteractionBuilder {
	b.guildID = guildID
	b.channelID = channelID
	return b
}

// User sets the invoking user (chainable).
func (b *InteractionBuilder) User(id, name string) *InteractionBuilder {
	b.userID = id
	b.username = name
	return b
}

// ReceivedAt overrides the delivery timestamp (chainable).
func (b *InteractionBuilder) ReceivedAt(t time.Time) *InteractionBuilder {
	b.receivedAt = t
	return b
}

// Build assembles the interaction, filling defaults for unset fields.
func (b *InteractionBuilder) Build() *core.Interaction {
	id := b.id
	if id == "" {
		id = core.NewID()
	}
	at := b.receivedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	opts := make(map[string]any, len(b.options))
	for k, v := range b.options {
		opts[k] = v
	}
	return &core.Interaction{
		ID:            id,
		Kind:          b.kind,
		CommandPath:   b.commandPath,
		CustomID:      b.customID,
		Options:       opts,
		FocusedOption: b.focused,
		GuildID:       b.guildID,
		ChannelID:     b.channelID,
		UserID:        b.userID,
		Username:      b.username,
		ReceivedAt:    at,
	}
}
