package manifest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/portal"
)

func noopHandler(ctx context.Context, i *core.Interaction) (any, error) { return nil, nil }

func buildPortal(t *testing.T) *portal.Portal {
	t.Helper()
	p := portal.New()
	require.NoError(t, p.AddCommand("ping", noopHandler, &core.CommandConfig{Description: "health check"}))
	require.NoError(t, p.AddCommand("ban/user", noopHandler, &core.CommandConfig{
		Description: "ban a user",
		Options: []core.CommandOption{
			{Name: "target", Description: "who", Type: core.OptionUser, Required: true},
			{Name: "reason", Description: "why", Type: core.OptionString},
		},
		Sage: &core.SageConfig{Ephemeral: true, Timeout: 30 * time.Second},
	}, portal.WithModule("moderation")))
	require.NoError(t, p.AddContextMenu(core.ContextMenuUser, "Report User", noopHandler, nil))
	p.On(core.EventMessageCreate, func(ctx context.Context, ev core.Event) error { return nil })
	return p
}

func TestFromPortal(t *testing.T) {
	m := FromPortal(buildPortal(t))

	assert.Equal(t, Version, m.Schema)
	require.Len(t, m.Commands, 2)
	assert.Equal(t, "ban/user", m.Commands[0].Path)
	assert.Equal(t, "moderation", m.Commands[0].Module)
	assert.Len(t, m.Commands[0].Options, 2)
	assert.Equal(t, "ping", m.Commands[1].Path)

	require.Len(t, m.ContextMenus, 1)
	assert.Equal(t, "Report User", m.ContextMenus[0].Name)

	require.Len(t, m.Events, 1)
	assert.Equal(t, core.EventMessageCreate, m.Events[0].Name)
	assert.Equal(t, 1, m.Events[0].Handlers)

	cmd, ok := m.Command("ping")
	require.True(t, ok)
	assert.Equal(t, "health check", cmd.Description)
	_, ok = m.Command("missing")
	assert.False(t, ok)
}

func TestHashStableAcrossGenerations(t *testing.T) {
	m1 := FromPortal(buildPortal(t))
	time.Sleep(5 * time.Millisecond)
	m2 := FromPortal(buildPortal(t))

	// GeneratedAt differs, the registered surface does not.
	assert.NotEqual(t, m1.GeneratedAt, m2.GeneratedAt)
	assert.Equal(t, m1.Hash(), m2.Hash())
}

func TestHashChangesWithSurface(t *testing.T) {
	p := buildPortal(t)
	before := FromPortal(p).Hash()

	require.NoError(t, p.AddCommand("kick", noopHandler, &core.CommandConfig{Description: "kick"}))
	assert.NotEqual(t, before, FromPortal(p).Hash())

	// Option changes count as surface changes too.
	p2 := buildPortal(t)
	e, ok := p2.Command("ping")
	require.True(t, ok)
	e.Config.Description = "changed"
	assert.NotEqual(t, before, FromPortal(p2).Hash())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := FromPortal(buildPortal(t))
	path := filepath.Join(t.TempDir(), "manifest.json")

	require.NoError(t, m.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, m.Hash(), loaded.Hash())
	assert.Equal(t, len(m.Commands), len(loaded.Commands))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestMergePrecedence(t *testing.T) {
	user := &Manifest{
		Schema:   Version,
		Commands: []Command{{Path: "ping", Description: "user ping"}},
		Events:   []Event{{Name: "messageCreate", Handlers: 1}},
	}
	pluginA := &Manifest{
		Schema: Version,
		Commands: []Command{
			{Path: "ping", Description: "plugin ping", Plugin: "health"},
			{Path: "welcome", Plugin: "welcomer"},
		},
		Events:     []Event{{Name: "messageCreate", Handlers: 2, Plugins: []string{"welcomer"}}},
		Middleware: 1,
	}
	pluginB := &Manifest{
		Schema:   Version,
		Commands: []Command{{Path: "welcome", Plugin: "other"}},
	}

	merged, conflicts := Merge(user, pluginA, pluginB)

	require.Len(t, merged.Commands, 2)
	cmd, ok := merged.Command("ping")
	require.True(t, ok)
	assert.Equal(t, "user ping", cmd.Description, "user entry wins")

	cmd, ok = merged.Command("welcome")
	require.True(t, ok)
	assert.Equal(t, "welcomer", cmd.Plugin, "earlier plugin wins")

	assert.Equal(t, []string{"health:ping", "other:welcome"}, conflicts)

	require.Len(t, merged.Events, 1)
	assert.Equal(t, 3, merged.Events[0].Handlers)
	assert.Equal(t, 1, merged.Middleware)
}

func TestMergeCanonicalOrder(t *testing.T) {
	user := &Manifest{
		Schema:       Version,
		Commands:     []Command{{Path: "zebra"}},
		ContextMenus: []ContextMenu{{Kind: core.ContextMenuUser, Name: "Report User"}},
	}
	plugin := &Manifest{
		Schema:   Version,
		Commands: []Command{{Path: "alpha", Plugin: "p"}},
		ContextMenus: []ContextMenu{
			{Kind: core.ContextMenuMessage, Name: "Translate", Plugin: "p"},
			{Kind: core.ContextMenuUser, Name: "Avatar", Plugin: "p"},
		},
	}

	merged, conflicts := Merge(user, plugin)
	assert.Empty(t, conflicts)

	// Commands sort by path, context menus by kind then name, matching the
	// order Hash and FromPortal produce.
	require.Len(t, merged.Commands, 2)
	assert.Equal(t, "alpha", merged.Commands[0].Path)
	assert.Equal(t, "zebra", merged.Commands[1].Path)

	require.Len(t, merged.ContextMenus, 3)
	assert.Equal(t, "Translate", merged.ContextMenus[0].Name)
	assert.Equal(t, "Avatar", merged.ContextMenus[1].Name)
	assert.Equal(t, "Report User", merged.ContextMenus[2].Name)
}
