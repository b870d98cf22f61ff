// Package botmesh provides a high-level façade over the portal registry, the
// Sage dispatcher and the gateway adapter, enabling rapid construction of
// Discord bots. Most applications interact with this package by:
//  1. Creating a Bot via New() (optionally overriding config, storage, logger)
//  2. Registering commands, event handlers, middleware and plugins
//  3. Calling Start(ctx) and, on shutdown, Stop(ctx)
//
// The façade delegates interaction handling to discord.Client and sage.
// Dispatcher while keeping setup ergonomics concise. All defaults are safe
// for local development; production deployments typically supply a durable
// Flashcore backend and a structured logger.
package botmesh

import (
	"context"
	"fmt"

	"github.com/hupe1980/botmesh/config"
	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/discord"
	"github.com/hupe1980/botmesh/flashcore"
	"github.com/hupe1980/botmesh/flashcore/sqlite"
	"github.com/hupe1980/botmesh/logging"
	"github.com/hupe1980/botmesh/manifest"
	"github.com/hupe1980/botmesh/portal"
	"github.com/hupe1980/botmesh/sage"
	"github.com/hupe1980/botmesh/state"
)

// ConfigurablePlugin is optionally implemented by plugins that accept
// options from the bot configuration's plugins section. Configure runs
// before Setup.
type ConfigurablePlugin interface {
	core.Plugin
	Configure(opts map[string]any) error
}

// Options configures the Bot instance.
type Options struct {
	// Config is the bot configuration. Defaults to config.Default with the
	// token taken from the environment.
	Config *config.Config

	// Flashcore overrides the persistence adapter selected by the config's
	// flashcore section.
	Flashcore core.FlashcoreAdapter

	// Logger (defaults to a structured logger at the configured level).
	Logger logging.Logger
}

// Bot is the high-level façade aggregating the registry, dispatcher, state
// and gateway connection.
type Bot struct {
	config     *config.Config
	portal     *portal.Portal
	dispatcher *sage.Dispatcher
	flashcore  core.FlashcoreAdapter
	state      *state.Store
	logger     logging.Logger

	client  *discord.Client
	plugins []core.Plugin
}

// New creates a Bot with optional overrides. The gateway connection is not
// opened until Start.
func New(optFns ...func(o *Options)) (*Bot, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.LoadDefault()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, false)
	}

	fc := opts.Flashcore
	if fc == nil {
		adapter, err := openFlashcore(cfg.Flashcore)
		if err != nil {
			return nil, err
		}
		fc = adapter
	}

	p := portal.New()
	for _, module := range cfg.DisabledModules {
		p.SetModuleEnabled(module, false)
	}

	dispatcher := sage.New(func(o *sage.Options) {
		o.Config = sage.Resolve(sage.DefaultConfig, &cfg.Sage)
		o.Logger = logger
	})

	return &Bot{
		config:     cfg,
		portal:     p,
		dispatcher: dispatcher,
		flashcore:  fc,
		state:      state.New(func(o *state.Options) { o.Adapter = fc }),
		logger:     logger,
	}, nil
}

// startedMarkerKey persists across process boundaries so a new instance can
// tell whether it is replacing one that never stopped cleanly.
const startedMarkerKey = "lifecycle/started"

func openFlashcore(cfg config.FlashcoreConfig) (core.FlashcoreAdapter, error) {
	switch cfg.Backend {
	case "", "memory":
		return flashcore.NewInMemoryAdapter(), nil
	case "file":
		return flashcore.NewFileAdapter(cfg.Path)
	case "sqlite":
		return sqlite.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown flashcore backend %q", cfg.Backend)
	}
}

// AddCommand registers a slash command under path.
func (b *Bot) AddCommand(path string, handler core.CommandHandler, cfg *core.CommandConfig) error {
	return b.portal.AddCommand(path, handler, cfg)
}

// AddContextMenu registers a user or message context menu command.
func (b *Bot) AddContextMenu(kind core.ContextMenuKind, name string, handler core.CommandHandler, cfg *core.CommandConfig) error {
	return b.portal.AddContextMenu(kind, name, handler, cfg)
}

// AddAutocomplete registers the autocomplete handler for a command path.
func (b *Bot) AddAutocomplete(path string, handler core.AutocompleteHandler) error {
	return b.portal.AddAutocomplete(path, handler)
}

// On appends an event handler for the named gateway or lifecycle event.
func (b *Bot) On(event string, handler core.EventHandler) {
	b.portal.On(event, handler)
}

// Use appends a middleware to the dispatch chain.
func (b *Bot) Use(m core.Middleware) {
	b.portal.Use(m)
}

// UsePlugin runs a plugin's setup against a plugin-scoped registrar. Plugins
// implementing ConfigurablePlugin receive their section of the bot
// configuration first.
func (b *Bot) UsePlugin(p core.Plugin) error {
	if configurable, ok := p.(ConfigurablePlugin); ok {
		if err := configurable.Configure(b.config.PluginOptions(p.Name())); err != nil {
			return fmt.Errorf("configure plugin %q: %w", p.Name(), err)
		}
	}
	if err := p.Setup(b.portal.ForPlugin(p.Name())); err != nil {
		return fmt.Errorf("setup plugin %q: %w", p.Name(), err)
	}
	b.plugins = append(b.plugins, p)
	return nil
}

// Portal exposes the underlying registry.
func (b *Bot) Portal() *portal.Portal { return b.portal }

// Flashcore exposes the persistence adapter. Plugins should namespace their
// keys via flashcore.Namespace.
func (b *Bot) Flashcore() core.FlashcoreAdapter { return b.flashcore }

// State exposes the process-local state store.
func (b *Bot) State() *state.Store { return b.state }

// Logger exposes the bot's logger.
func (b *Bot) Logger() logging.Logger { return b.logger }

// Manifest assembles a manifest from the current registrations.
func (b *Bot) Manifest() *manifest.Manifest {
	return manifest.FromPortal(b.portal)
}

// Start connects to the gateway, syncs the command surface and emits the
// _start lifecycle event, or _restart when replacing an instance that never
// stopped cleanly. It returns once the bot is serving; cancel ctx or call
// Stop to shut down.
func (b *Bot) Start(ctx context.Context) error {
	if b.config.Token == "" {
		return fmt.Errorf("start: %s is not set", config.EnvToken)
	}
	if b.client != nil {
		return fmt.Errorf("start: bot is already running")
	}

	if err := b.state.Load(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	client, err := discord.New(b.config.Token, b.portal, b.dispatcher, func(o *discord.Options) {
		o.Intents = b.config.Intents
		o.ClientID = b.config.ClientID
		o.TestGuilds = b.config.TestGuilds
		o.Flashcore = b.flashcore
		o.Logger = b.logger
	})
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	if err := client.Open(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	if err := client.SyncCommands(ctx, b.Manifest()); err != nil {
		_ = client.Close()
		return fmt.Errorf("start: %w", err)
	}

	event, err := b.startupEvent(ctx)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("start: %w", err)
	}

	b.client = client
	b.emitLifecycle(ctx, event)
	b.logger.Info("bot started", "commands", len(b.portal.Commands()), "plugins", len(b.plugins))
	return nil
}

// startupEvent picks the lifecycle event for this start and records the
// marker the decision rests on. A clean Stop clears the marker, so finding it
// set means the previous instance is being replaced and handlers get
// _restart instead of _start.
func (b *Bot) startupEvent(ctx context.Context) (string, error) {
	replaced, err := b.flashcore.Has(ctx, startedMarkerKey)
	if err != nil {
		return "", err
	}
	if err := b.flashcore.Set(ctx, startedMarkerKey, []byte("1")); err != nil {
		return "", err
	}
	if replaced {
		return core.EventRestart, nil
	}
	return core.EventStart, nil
}

// Stop emits the _stop lifecycle event (bounded by the configured lifecycle
// timeout), disconnects from the gateway and closes the persistence adapter.
func (b *Bot) Stop(ctx context.Context) error {
	if b.client != nil {
		b.emitLifecycle(ctx, core.EventStop)
		_ = b.flashcore.Delete(ctx, startedMarkerKey)
	}

	var firstErr error
	if b.client != nil {
		if err := b.client.Close(); err != nil {
			firstErr = err
		}
		b.client = nil
	}
	if err := b.flashcore.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	b.logger.Info("bot stopped")
	return firstErr
}

// Client exposes the gateway client while the bot is running, nil otherwise.
func (b *Bot) Client() *discord.Client { return b.client }

func (b *Bot) emitLifecycle(ctx context.Context, event string) {
	if b.config.LifecycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.LifecycleTimeout)
		defer cancel()
	}
	b.client.EmitEvent(ctx, core.NewEvent(event, nil))
}
