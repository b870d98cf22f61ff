package discord

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/logging"
	"github.com/hupe1980/botmesh/middleware"
	"github.com/hupe1980/botmesh/portal"
	"github.com/hupe1980/botmesh/sage"
)

// intentNames maps configuration intent names to gateway intents.
var intentNames = map[string]discordgo.Intent{
	"guilds":                   discordgo.IntentGuilds,
	"guild_members":            discordgo.IntentGuildMembers,
	"guild_moderation":         discordgo.IntentGuildModeration,
	"guild_emojis":             discordgo.IntentGuildEmojis,
	"guild_integrations":       discordgo.IntentGuildIntegrations,
	"guild_webhooks":           discordgo.IntentGuildWebhooks,
	"guild_invites":            discordgo.IntentGuildInvites,
	"guild_voice_states":       discordgo.IntentGuildVoiceStates,
	"guild_presences":          discordgo.IntentGuildPresences,
	"guild_messages":           discordgo.IntentGuildMessages,
	"guild_message_reactions":  discordgo.IntentGuildMessageReactions,
	"guild_message_typing":     discordgo.IntentGuildMessageTyping,
	"direct_messages":          discordgo.IntentDirectMessages,
	"direct_message_reactions": discordgo.IntentDirectMessageReactions,
	"message_content":          discordgo.IntentMessageContent,
}

// IntentsFromNames resolves configuration intent names to a gateway intent
// bitfield. Unknown names are rejected with the full list of valid ones.
func IntentsFromNames(names []string) (discordgo.Intent, error) {
	var intents discordgo.Intent
	for _, name := range names {
		intent, ok := intentNames[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown gateway intent %q (valid: %s)", name, strings.Join(validIntentNames(), ", "))
		}
		intents |= intent
	}
	return intents, nil
}

func validIntentNames() []string {
	out := make([]string, 0, len(intentNames))
	for name := range intentNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Options configures a Client.
type Options struct {
	// Intents lists gateway intents by configuration name. Empty means
	// guilds plus guild_messages.
	Intents []string

	// ClientID is the application id used for command registration. Empty
	// falls back to the gateway-reported bot user id after Open.
	ClientID string

	// TestGuilds scopes command registration to the listed guilds.
	TestGuilds []string

	// Flashcore, when set, stores the manifest hash so unchanged command
	// sets skip re-registration.
	Flashcore core.FlashcoreAdapter

	// Logger receives adapter logs. Defaults to NoOp.
	Logger logging.Logger
}

// Client connects a portal and a Sage dispatcher to the Discord gateway.
type Client struct {
	session    *discordgo.Session
	portal     *portal.Portal
	dispatcher *sage.Dispatcher
	clientID   string
	testGuilds []string
	flashcore  core.FlashcoreAdapter
	logger     logging.Logger

	// rootCtx is the context events and interactions are dispatched under.
	// Set by Open, cancelled by Close.
	rootCtx context.Context
	cancel  context.CancelFunc
}

// New creates a gateway client. The session is configured but not connected;
// call Open to connect.
func New(token string, p *portal.Portal, dispatcher *sage.Dispatcher, optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		Intents: []string{"guilds", "guild_messages"},
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if token == "" {
		return nil, fmt.Errorf("discord token is empty")
	}

	intents, err := IntentsFromNames(opts.Intents)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = intents

	c := &Client{
		session:    session,
		portal:     p,
		dispatcher: dispatcher,
		clientID:   opts.ClientID,
		testGuilds: opts.TestGuilds,
		flashcore:  opts.Flashcore,
		logger:     opts.Logger,
	}
	c.registerHandlers()

	return c, nil
}

// Session exposes the underlying discordgo session for capabilities the
// adapter does not wrap.
func (c *Client) Session() *discordgo.Session { return c.session }

// Open connects to the gateway. Dispatched handlers inherit ctx; cancelling
// it (or calling Close) cancels in-flight handlers.
func (c *Client) Open(ctx context.Context) error {
	c.rootCtx, c.cancel = context.WithCancel(ctx)
	if err := c.session.Open(); err != nil {
		c.cancel()
		return fmt.Errorf("open gateway connection: %w", err)
	}
	if c.clientID == "" && c.session.State != nil && c.session.State.User != nil {
		c.clientID = c.session.State.User.ID
	}
	return nil
}

// Close disconnects from the gateway and cancels in-flight handlers.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close gateway connection: %w", err)
	}
	return nil
}

// EmitEvent runs all portal handlers registered for the event, sequentially
// and panic-safe. Handler errors are logged, never propagated; one failing
// handler does not stop the others.
func (c *Client) EmitEvent(ctx context.Context, ev core.Event) {
	for _, entry := range c.portal.EventHandlers(ev.Name) {
		c.runEventHandler(ctx, entry, ev)
	}
}

func (c *Client) runEventHandler(ctx context.Context, entry *portal.EventEntry, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panicked",
				"event", ev.Name,
				"plugin", entry.Plugin,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	if err := entry.Handler(ctx, ev); err != nil {
		c.logger.Error("event handler failed", "event", ev.Name, "plugin", entry.Plugin, "error", err)
	}
}

// chain builds the middleware chain from the portal's current registrations.
func (c *Client) chain() *middleware.Chain {
	return middleware.NewChain(c.portal.Middlewares()...)
}
