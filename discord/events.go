package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/hupe1980/botmesh/core"
)

// registerHandlers wires the gateway events the framework translates into
// portal events.
func (c *Client) registerHandlers() {
	c.session.AddHandler(c.handleInteraction)

	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.Ready) {
		c.emitGateway(core.EventReady, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.MessageCreate) {
		c.emitGateway(core.EventMessageCreate, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.MessageUpdate) {
		c.emitGateway(core.EventMessageUpdate, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.MessageDelete) {
		c.emitGateway(core.EventMessageDelete, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.MessageReactionAdd) {
		c.emitGateway(core.EventMessageReactionAdd, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.MessageReactionRemove) {
		c.emitGateway(core.EventMessageReactionRemove, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildCreate) {
		c.emitGateway(core.EventGuildCreate, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
		c.emitGateway(core.EventGuildMemberAdd, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildMemberRemove) {
		c.emitGateway(core.EventGuildMemberRemove, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
		c.emitGateway(core.EventVoiceStateUpdate, e)
	})
	c.session.AddHandler(func(s *discordgo.Session, e *discordgo.TypingStart) {
		c.emitGateway(core.EventTypingStart, e)
	})
}

// emitGateway fans a gateway event out to all registered handlers, each in
// its own goroutine so one slow handler never delays the others. Lifecycle
// events go through EmitEvent instead, which runs handlers sequentially.
func (c *Client) emitGateway(name string, payload any) {
	ctx := c.rootCtx
	if ctx == nil {
		return
	}
	ev := core.NewEvent(name, payload)
	for _, entry := range c.portal.EventHandlers(ev.Name) {
		go c.runEventHandler(ctx, entry, ev)
	}
}
