package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/portal"
)

// Version is the manifest schema version. Bump on incompatible changes.
const Version = "1"

// Command describes a single registered slash command.
type Command struct {
	Path                     string               `json:"path"`
	Description              string               `json:"description,omitempty"`
	Options                  []core.CommandOption `json:"options,omitempty"`
	DefaultMemberPermissions *int64               `json:"defaultMemberPermissions,omitempty"`
	DMPermission             *bool                `json:"dmPermission,omitempty"`
	Sage                     *core.SageConfig     `json:"sage,omitempty"`
	Module                   string               `json:"module,omitempty"`
	Plugin                   string               `json:"plugin,omitempty"`
}

// ContextMenu describes a registered user or message context menu command.
type ContextMenu struct {
	Kind                     core.ContextMenuKind `json:"kind"`
	Name                     string               `json:"name"`
	DefaultMemberPermissions *int64               `json:"defaultMemberPermissions,omitempty"`
	Sage                     *core.SageConfig     `json:"sage,omitempty"`
	Module                   string               `json:"module,omitempty"`
	Plugin                   string               `json:"plugin,omitempty"`
}

// Event describes the registrations for a single event name.
type Event struct {
	Name     string   `json:"name"`
	Handlers int      `json:"handlers"`
	Plugins  []string `json:"plugins,omitempty"`
}

// Manifest is the generated description of a bot's registered surface.
type Manifest struct {
	Schema      string        `json:"schema"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Commands    []Command     `json:"commands"`
	ContextMenus []ContextMenu `json:"contextMenus,omitempty"`
	Events      []Event       `json:"events,omitempty"`
	Middleware  int           `json:"middleware,omitempty"`
}

// FromPortal assembles a manifest from the portal's current registrations.
// Disabled modules are included; the manifest describes what is registered,
// not what is momentarily dispatchable.
func FromPortal(p *portal.Portal) *Manifest {
	m := &Manifest{
		Schema:      Version,
		GeneratedAt: time.Now().UTC(),
		Commands:    []Command{},
		Middleware:  len(p.Middlewares()),
	}

	for _, e := range p.Commands() {
		cmd := Command{
			Path:   e.Path,
			Module: e.Module,
			Plugin: e.Plugin,
		}
		if e.Config != nil {
			cmd.Description = e.Config.Description
			cmd.Options = e.Config.Options
			cmd.DefaultMemberPermissions = e.Config.DefaultMemberPermissions
			cmd.DMPermission = e.Config.DMPermission
			cmd.Sage = e.Config.Sage
		}
		m.Commands = append(m.Commands, cmd)
	}

	for _, e := range p.ContextMenus() {
		menu := ContextMenu{
			Kind:   e.Kind,
			Name:   e.Name,
			Module: e.Module,
			Plugin: e.Plugin,
		}
		if e.Config != nil {
			menu.DefaultMemberPermissions = e.Config.DefaultMemberPermissions
			menu.Sage = e.Config.Sage
		}
		m.ContextMenus = append(m.ContextMenus, menu)
	}

	for _, name := range p.EventNames() {
		entries := p.EventHandlers(name)
		ev := Event{Name: name, Handlers: len(entries)}
		seen := map[string]bool{}
		for _, e := range entries {
			if e.Plugin != "" && !seen[e.Plugin] {
				seen[e.Plugin] = true
				ev.Plugins = append(ev.Plugins, e.Plugin)
			}
		}
		sort.Strings(ev.Plugins)
		m.Events = append(m.Events, ev)
	}

	return m
}

// Command returns the manifest entry for a command path.
func (m *Manifest) Command(path string) (*Command, bool) {
	for idx := range m.Commands {
		if m.Commands[idx].Path == path {
			return &m.Commands[idx], true
		}
	}
	return nil, false
}

// Hash returns the hex sha256 of the sync-relevant manifest content: the
// command and context menu sets in canonical (sorted) order. GeneratedAt,
// events and middleware counts do not affect registration with Discord and
// are excluded, so a restart without surface changes hashes identically.
func (m *Manifest) Hash() string {
	type hashable struct {
		Schema       string        `json:"schema"`
		Commands     []Command     `json:"commands"`
		ContextMenus []ContextMenu `json:"contextMenus"`
	}
	h := hashable{Schema: m.Schema, Commands: append([]Command(nil), m.Commands...), ContextMenus: append([]ContextMenu(nil), m.ContextMenus...)}
	sort.Slice(h.Commands, func(i, j int) bool { return h.Commands[i].Path < h.Commands[j].Path })
	sort.Slice(h.ContextMenus, func(i, j int) bool {
		if h.ContextMenus[i].Kind != h.ContextMenus[j].Kind {
			return h.ContextMenus[i].Kind < h.ContextMenus[j].Kind
		}
		return h.ContextMenus[i].Name < h.ContextMenus[j].Name
	})
	data, err := json.Marshal(h)
	if err != nil {
		// Marshal of plain structs cannot fail; keep the signature simple.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Save writes the manifest to path as indented JSON via an atomic
// temp-file-and-rename.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// Load reads a manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Merge combines a base manifest with overlays in order. Collisions on
// command path or context menu identity keep the earlier entry; the loser is
// reported in the returned conflict list ("<plugin>:<path>"). Callers merge
// the application's own manifest first so user entries always win.
func Merge(base *Manifest, overlays ...*Manifest) (*Manifest, []string) {
	out := &Manifest{
		Schema:      Version,
		GeneratedAt: time.Now().UTC(),
		Commands:    append([]Command(nil), base.Commands...),
		ContextMenus: append([]ContextMenu(nil), base.ContextMenus...),
		Events:      append([]Event(nil), base.Events...),
		Middleware:  base.Middleware,
	}

	var conflicts []string

	seenCommands := map[string]bool{}
	for _, c := range out.Commands {
		seenCommands[c.Path] = true
	}
	seenMenus := map[string]bool{}
	for _, c := range out.ContextMenus {
		seenMenus[string(c.Kind)+"/"+c.Name] = true
	}
	eventIdx := map[string]int{}
	for idx, e := range out.Events {
		eventIdx[e.Name] = idx
	}

	for _, overlay := range overlays {
		for _, c := range overlay.Commands {
			if seenCommands[c.Path] {
				conflicts = append(conflicts, fmt.Sprintf("%s:%s", c.Plugin, c.Path))
				continue
			}
			seenCommands[c.Path] = true
			out.Commands = append(out.Commands, c)
		}
		for _, c := range overlay.ContextMenus {
			key := string(c.Kind) + "/" + c.Name
			if seenMenus[key] {
				conflicts = append(conflicts, fmt.Sprintf("%s:%s", c.Plugin, key))
				continue
			}
			seenMenus[key] = true
			out.ContextMenus = append(out.ContextMenus, c)
		}
		for _, e := range overlay.Events {
			if idx, ok := eventIdx[e.Name]; ok {
				out.Events[idx].Handlers += e.Handlers
				out.Events[idx].Plugins = append(out.Events[idx].Plugins, e.Plugins...)
				sort.Strings(out.Events[idx].Plugins)
				continue
			}
			eventIdx[e.Name] = len(out.Events)
			out.Events = append(out.Events, e)
		}
		out.Middleware += overlay.Middleware
	}

	sort.Slice(out.Commands, func(i, j int) bool { return out.Commands[i].Path < out.Commands[j].Path })
	sort.Slice(out.ContextMenus, func(i, j int) bool {
		if out.ContextMenus[i].Kind != out.ContextMenus[j].Kind {
			return out.ContextMenus[i].Kind < out.ContextMenus[j].Kind
		}
		return out.ContextMenus[i].Name < out.ContextMenus[j].Name
	})

	return out, conflicts
}
