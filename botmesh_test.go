package botmesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/botmesh/config"
	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/discord"
	"github.com/hupe1980/botmesh/flashcore"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Token = "test-token"
	return cfg
}

func newTestBot(t *testing.T, mutate ...func(cfg *config.Config)) *Bot {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}
	bot, err := New(func(o *Options) { o.Config = cfg })
	require.NoError(t, err)
	return bot
}

type testPlugin struct {
	name       string
	options    map[string]any
	setupCalls int
}

func (p *testPlugin) Name() string { return p.name }

func (p *testPlugin) Configure(opts map[string]any) error {
	p.options = opts
	return nil
}

func (p *testPlugin) Setup(r core.Registrar) error {
	p.setupCalls++
	return r.AddCommand("ping", func(ctx context.Context, i *core.Interaction) (any, error) {
		return "pong", nil
	}, &core.CommandConfig{Description: "Measure latency"})
}

func TestNewDefaults(t *testing.T) {
	bot := newTestBot(t)

	assert.NotNil(t, bot.Portal())
	assert.NotNil(t, bot.Flashcore())
	assert.NotNil(t, bot.State())
	assert.NotNil(t, bot.Logger())
	assert.Nil(t, bot.Client())
}

func TestAddCommandAndManifest(t *testing.T) {
	bot := newTestBot(t)

	err := bot.AddCommand("echo", func(ctx context.Context, i *core.Interaction) (any, error) {
		return i.StringOption("text", ""), nil
	}, &core.CommandConfig{Description: "Echo some text"})
	require.NoError(t, err)

	m := bot.Manifest()
	require.Len(t, m.Commands, 1)
	assert.Equal(t, "echo", m.Commands[0].Path)
	assert.Equal(t, "Echo some text", m.Commands[0].Description)
}

func TestUsePlugin(t *testing.T) {
	bot := newTestBot(t, func(cfg *config.Config) {
		cfg.Plugins = map[string]map[string]any{"health": {"interval": 30}}
	})

	plugin := &testPlugin{name: "health"}
	require.NoError(t, bot.UsePlugin(plugin))

	assert.Equal(t, 1, plugin.setupCalls)
	assert.Equal(t, 30, plugin.options["interval"])

	entry, ok := bot.Portal().Command("ping")
	require.True(t, ok)
	assert.Equal(t, "health", entry.Plugin)
	assert.Equal(t, "health", entry.Module)
}

func TestUsePluginDoesNotDisplaceUserCommand(t *testing.T) {
	bot := newTestBot(t)

	require.NoError(t, bot.AddCommand("ping", func(ctx context.Context, i *core.Interaction) (any, error) {
		return "user pong", nil
	}, nil))

	err := bot.UsePlugin(&testPlugin{name: "health"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health")
}

func TestDisabledModulesFromConfig(t *testing.T) {
	bot := newTestBot(t, func(cfg *config.Config) {
		cfg.DisabledModules = []string{"admin"}
	})

	assert.False(t, bot.Portal().ModuleEnabled("admin"))
	assert.True(t, bot.Portal().ModuleEnabled("fun"))
}

func TestStartRejectsEmptyToken(t *testing.T) {
	bot := newTestBot(t, func(cfg *config.Config) { cfg.Token = "" })

	err := bot.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvToken)
}

func TestStopWithoutStart(t *testing.T) {
	bot := newTestBot(t)
	require.NoError(t, bot.Stop(context.Background()))
}

func TestStartupEventDetectsReplacement(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	newBot := func() *Bot {
		adapter, err := flashcore.NewFileAdapter(dir)
		require.NoError(t, err)
		bot, err := New(func(o *Options) {
			o.Config = testConfig()
			o.Flashcore = adapter
		})
		require.NoError(t, err)
		return bot
	}

	first := newBot()
	event, err := first.startupEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.EventStart, event)

	// The first instance is replaced without a clean stop; the marker it
	// left behind turns the next start into a restart.
	second := newBot()
	event, err = second.startupEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.EventRestart, event)

	// A clean stop emits _stop and clears the marker, so the next instance
	// starts fresh.
	client, err := discord.New("test-token", second.portal, second.dispatcher)
	require.NoError(t, err)
	second.client = client

	var events []string
	second.On(core.EventStop, func(ctx context.Context, ev core.Event) error {
		events = append(events, ev.Name)
		return nil
	})
	require.NoError(t, second.Stop(ctx))
	assert.Equal(t, []string{core.EventStop}, events)

	third := newBot()
	event, err = third.startupEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.EventStart, event)
}

func TestOpenFlashcoreBackends(t *testing.T) {
	adapter, err := openFlashcore(config.FlashcoreConfig{Backend: "memory"})
	require.NoError(t, err)
	require.NoError(t, adapter.Close())

	adapter, err = openFlashcore(config.FlashcoreConfig{Backend: "file", Path: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, adapter.Close())

	_, err = openFlashcore(config.FlashcoreConfig{Backend: "redis"})
	require.Error(t, err)
}
