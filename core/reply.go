package core

import "fmt"

// Reply is the SDK-neutral response payload a command handler produces. A
// handler may return a *Reply directly, a plain string (shorthand for a
// content-only reply), or nil to send nothing.
type Reply struct {
	Content    string
	Embeds     []Embed
	Components []ActionRow
	// Ephemeral makes the response visible only to the invoking user. For
	// deferred interactions the ephemeral flag of the defer wins; Discord
	// does not allow changing it afterwards.
	Ephemeral bool
	// TTS requests text-to-speech playback of Content.
	TTS bool
}

// Embed is a minimal rich embed.
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	Fields      []EmbedField
	Footer      string
}

// EmbedField is a single name/value pair inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// ActionRow is a horizontal row of message components.
type ActionRow struct {
	Buttons []Button
}

// ButtonStyle selects the visual treatment of a button.
type ButtonStyle int

const (
	// ButtonPrimary is the blurple call-to-action style.
	ButtonPrimary ButtonStyle = iota + 1
	// ButtonSecondary is the grey style.
	ButtonSecondary
	// ButtonSuccess is the green style.
	ButtonSuccess
	// ButtonDanger is the red style.
	ButtonDanger
	// ButtonLink renders a link button; URL must be set and CustomID empty.
	ButtonLink
)

// Button is a clickable message component. Interactions on it are delivered
// as KindComponent interactions carrying the CustomID.
type Button struct {
	Label    string
	CustomID string
	URL      string
	Style    ButtonStyle
	Disabled bool
}

// NormalizeReply converts a handler return value into a *Reply. Accepted
// shapes: nil (no response), string, *Reply and Reply. Anything else is an
// error surfaced through the usual handler-error path.
func NormalizeReply(v any) (*Reply, error) {
	switch r := v.(type) {
	case nil:
		return nil, nil
	case string:
		if r == "" {
			return nil, nil
		}
		return &Reply{Content: r}, nil
	case *Reply:
		return r, nil
	case Reply:
		return &r, nil
	default:
		return nil, fmt.Errorf("unsupported handler result type %T", v)
	}
}
