package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/middleware"
)

// sessionResponder implements core.Responder against a live interaction.
type sessionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *sessionResponder) Reply(ctx context.Context, reply *core.Reply) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: toResponseData(reply),
	}, discordgo.WithContext(ctx))
}

func (r *sessionResponder) Defer(ctx context.Context, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
}

func (r *sessionResponder) Edit(ctx context.Context, reply *core.Reply) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, toWebhookEdit(reply), discordgo.WithContext(ctx))
	return err
}

func (r *sessionResponder) FollowUp(ctx context.Context, reply *core.Reply) error {
	_, err := r.session.FollowupMessageCreate(r.interaction, true, toWebhookParams(reply), discordgo.WithContext(ctx))
	return err
}

var _ core.Responder = (*sessionResponder)(nil)

// normalizeInteraction converts a gateway interaction into the SDK-neutral
// shape handlers receive.
func normalizeInteraction(ic *discordgo.InteractionCreate) *core.Interaction {
	out := &core.Interaction{
		ID:         ic.ID,
		GuildID:    ic.GuildID,
		ChannelID:  ic.ChannelID,
		Locale:     string(ic.Locale),
		ReceivedAt: time.Now().UTC(),
		Raw:        ic,
	}

	if ic.Member != nil && ic.Member.User != nil {
		out.UserID = ic.Member.User.ID
		out.Username = ic.Member.User.Username
	} else if ic.User != nil {
		out.UserID = ic.User.ID
		out.Username = ic.User.Username
	}

	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		data := ic.ApplicationCommandData()
		switch data.CommandType {
		case discordgo.UserApplicationCommand:
			out.Kind = core.KindUserContextMenu
			out.CommandPath = data.Name
			out.Options = map[string]any{"target": data.TargetID}
		case discordgo.MessageApplicationCommand:
			out.Kind = core.KindMessageContextMenu
			out.CommandPath = data.Name
			out.Options = map[string]any{"target": data.TargetID}
		default:
			out.Kind = core.KindSlashCommand
			path, leafOptions := commandPath(data)
			out.CommandPath = path
			out.Options, _ = decodeOptions(leafOptions)
		}
	case discordgo.InteractionApplicationCommandAutocomplete:
		data := ic.ApplicationCommandData()
		out.Kind = core.KindAutocomplete
		path, leafOptions := commandPath(data)
		out.CommandPath = path
		out.Options, out.FocusedOption = decodeOptions(leafOptions)
	case discordgo.InteractionMessageComponent:
		data := ic.MessageComponentData()
		out.Kind = core.KindComponent
		out.CustomID = data.CustomID
	}

	return out
}

// handleInteraction is the gateway entry point for all interactions.
func (c *Client) handleInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx := c.rootCtx
	if ctx == nil {
		ctx = context.Background()
	}

	interaction := normalizeInteraction(ic)
	responder := &sessionResponder{session: s, interaction: ic.Interaction}

	switch interaction.Kind {
	case core.KindSlashCommand:
		entry, ok := c.portal.Command(interaction.CommandPath)
		if !ok {
			c.replyUnknown(ctx, responder, interaction.CommandPath)
			return
		}
		var override *core.SageConfig
		if entry.Config != nil {
			override = entry.Config.Sage
		}
		c.dispatch(ctx, responder, interaction, entry.Handler, override, entry.Module, entry.Plugin)

	case core.KindUserContextMenu, core.KindMessageContextMenu:
		kind := core.ContextMenuUser
		if interaction.Kind == core.KindMessageContextMenu {
			kind = core.ContextMenuMessage
		}
		entry, ok := c.portal.ContextMenu(kind, interaction.CommandPath)
		if !ok {
			c.replyUnknown(ctx, responder, interaction.CommandPath)
			return
		}
		var override *core.SageConfig
		if entry.Config != nil {
			override = entry.Config.Sage
		}
		c.dispatch(ctx, responder, interaction, entry.Handler, override, entry.Module, entry.Plugin)

	case core.KindAutocomplete:
		c.handleAutocomplete(ctx, s, ic, interaction)

	case core.KindComponent:
		// Components are delivered as portal events; handlers respond through
		// Raw when they need to.
		c.EmitEvent(ctx, core.NewEvent(core.EventInteractionCreate, ic))
	}
}

// dispatch runs the middleware chain and hands the interaction to Sage.
func (c *Client) dispatch(
	ctx context.Context,
	responder core.Responder,
	interaction *core.Interaction,
	handler core.CommandHandler,
	override *core.SageConfig,
	module, plugin string,
) {
	chain := c.chain()
	rec := &core.MiddlewareRecord{
		Interaction: interaction,
		CommandPath: interaction.CommandPath,
		Module:      module,
		Plugin:      plugin,
	}
	if err := chain.Run(ctx, rec); err != nil {
		if middleware.Aborted(err) {
			c.logger.Debug("dispatch aborted by middleware", "command", interaction.CommandPath)
			return
		}
		c.logger.Error("middleware failed", "command", interaction.CommandPath, "error", err)
		return
	}

	if err := c.dispatcher.Dispatch(ctx, responder, interaction, handler, override); err != nil {
		c.logger.Error("dispatch failed", "command", interaction.CommandPath, "error", err)
	}
}

// handleAutocomplete resolves choices outside the Sage lifecycle; Discord
// expects the choice list itself as the initial response.
func (c *Client) handleAutocomplete(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, interaction *core.Interaction) {
	handler, ok := c.portal.Autocomplete(interaction.CommandPath)
	if !ok {
		return
	}

	choices, err := handler(ctx, interaction)
	if err != nil {
		c.logger.Error("autocomplete failed", "command", interaction.CommandPath, "error", err)
		return
	}

	built := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(choices))
	for _, choice := range choices {
		built = append(built, &discordgo.ApplicationCommandOptionChoice{Name: choice.Name, Value: choice.Value})
	}

	err = s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: built},
	}, discordgo.WithContext(ctx))
	if err != nil {
		c.logger.Error("autocomplete response failed", "command", interaction.CommandPath, "error", err)
	}
}

func (c *Client) replyUnknown(ctx context.Context, responder core.Responder, path string) {
	c.logger.Warn("interaction for unknown command", "command", path, "error", core.ErrCommandNotFound)
	err := responder.Reply(ctx, &core.Reply{
		Content:   fmt.Sprintf("Command `%s` is not available.", path),
		Ephemeral: true,
	})
	if err != nil {
		c.logger.Error("unknown-command reply failed", "command", path, "error", err)
	}
}
