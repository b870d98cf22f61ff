package core

import (
	"context"
	"time"
)

// CommandHandler is the function a command or context menu entry executes.
// The returned value is normalized via NormalizeReply and delivered by the
// Sage dispatcher according to the interaction state; returning nil sends
// nothing. The context is cancelled when the hard timeout fires or the bot
// shuts down.
type CommandHandler func(ctx context.Context, i *Interaction) (any, error)

// AutocompleteHandler produces option choices for an in-progress autocomplete
// interaction. It bypasses Sage; Discord expects the choice list itself as the
// initial response.
type AutocompleteHandler func(ctx context.Context, i *Interaction) ([]OptionChoice, error)

// OptionType enumerates the supported command option types, mirroring the
// Discord application command option types.
type OptionType string

const (
	// OptionString is a free-form string option.
	OptionString OptionType = "string"
	// OptionInteger is a whole number option.
	OptionInteger OptionType = "integer"
	// OptionNumber is a floating point option.
	OptionNumber OptionType = "number"
	// OptionBoolean is a true/false option.
	OptionBoolean OptionType = "boolean"
	// OptionUser resolves to a user id.
	OptionUser OptionType = "user"
	// OptionChannel resolves to a channel id.
	OptionChannel OptionType = "channel"
	// OptionRole resolves to a role id.
	OptionRole OptionType = "role"
	// OptionMentionable resolves to a user or role id.
	OptionMentionable OptionType = "mentionable"
	// OptionAttachment resolves to an attachment id.
	OptionAttachment OptionType = "attachment"
)

// OptionChoice is a predeclared or autocompleted value for an option.
type OptionChoice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// CommandOption declares a single option of a slash command.
type CommandOption struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Type         OptionType     `json:"type"`
	Required     bool           `json:"required,omitempty"`
	Autocomplete bool           `json:"autocomplete,omitempty"`
	Choices      []OptionChoice `json:"choices,omitempty"`
}

// SageConfig carries per-command overrides for the Sage dispatcher. Pointer
// fields distinguish "unset, inherit the bot default" from an explicit value.
type SageConfig struct {
	// Defer enables the auto-defer race. When false the handler must respond
	// within Discord's initial three second window on its own.
	Defer *bool `json:"defer,omitempty" yaml:"defer,omitempty"`
	// Buffer is how long Sage waits for the handler before deferring. An
	// explicit zero defers immediately; nil inherits the bot default.
	Buffer *time.Duration `json:"buffer,omitempty" yaml:"buffer,omitempty"`
	// Ephemeral controls visibility of the auto-deferred response.
	Ephemeral bool `json:"ephemeral,omitempty" yaml:"ephemeral,omitempty"`
	// ErrorReplies sends a user-visible error message when the handler fails
	// or times out.
	ErrorReplies *bool `json:"errorReplies,omitempty" yaml:"errorReplies,omitempty"`
	// Timeout is the hard ceiling for handler execution. Zero means none.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// CommandConfig is the declared metadata of a command entry. It drives both
// manifest generation / registration with Discord and runtime dispatch.
type CommandConfig struct {
	Description string          `json:"description"`
	Options     []CommandOption `json:"options,omitempty"`
	// DefaultMemberPermissions is the Discord permission bitfield required to
	// see the command. Nil leaves the Discord default in place.
	DefaultMemberPermissions *int64 `json:"defaultMemberPermissions,omitempty"`
	// DMPermission controls availability in direct messages. Nil leaves the
	// Discord default (allowed) in place.
	DMPermission *bool `json:"dmPermission,omitempty"`
	// Sage overrides the bot-level dispatcher defaults for this command.
	Sage *SageConfig `json:"sage,omitempty"`
}

// ContextMenuKind distinguishes user and message context menu commands.
type ContextMenuKind string

const (
	// ContextMenuUser is a command shown on user profiles.
	ContextMenuUser ContextMenuKind = "user"
	// ContextMenuMessage is a command shown on messages.
	ContextMenuMessage ContextMenuKind = "message"
)
