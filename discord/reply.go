package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/hupe1980/botmesh/core"
)

func toEmbeds(embeds []core.Embed) []*discordgo.MessageEmbed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
			Color:       e.Color,
		}
		if e.Footer != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   f.Name,
				Value:  f.Value,
				Inline: f.Inline,
			})
		}
		out = append(out, embed)
	}
	return out
}

func toComponents(rows []core.ActionRow) []discordgo.MessageComponent {
	if len(rows) == 0 {
		return nil
	}
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		built := discordgo.ActionsRow{}
		for _, b := range row.Buttons {
			button := discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.ButtonStyle(b.Style),
				Disabled: b.Disabled,
				CustomID: b.CustomID,
				URL:      b.URL,
			}
			if button.Style == 0 {
				button.Style = discordgo.PrimaryButton
			}
			built.Components = append(built.Components, button)
		}
		out = append(out, built)
	}
	return out
}

func toResponseData(r *core.Reply) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:    r.Content,
		TTS:        r.TTS,
		Embeds:     toEmbeds(r.Embeds),
		Components: toComponents(r.Components),
	}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

func toWebhookParams(r *core.Reply) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{
		Content:    r.Content,
		TTS:        r.TTS,
		Embeds:     toEmbeds(r.Embeds),
		Components: toComponents(r.Components),
	}
	if r.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	return params
}

func toWebhookEdit(r *core.Reply) *discordgo.WebhookEdit {
	content := r.Content
	edit := &discordgo.WebhookEdit{Content: &content}
	if embeds := toEmbeds(r.Embeds); embeds != nil {
		edit.Embeds = &embeds
	}
	if components := toComponents(r.Components); components != nil {
		edit.Components = &components
	}
	return edit
}
