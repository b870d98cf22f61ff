package portal

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/botmesh/core"
)

// Discord restricts command and subcommand names to 1-32 lowercase
// word characters or dashes, nested at most three levels deep.
var (
	segmentPattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

	maxPathDepth = 3
)

// CommandEntry is a registered slash command with its declared configuration
// and provenance.
type CommandEntry struct {
	Path    string
	Handler core.CommandHandler
	Config  *core.CommandConfig
	Module  string
	Plugin  string
}

// ContextMenuEntry is a registered user or message context menu command.
type ContextMenuEntry struct {
	Kind    core.ContextMenuKind
	Name    string
	Handler core.CommandHandler
	Config  *core.CommandConfig
	Module  string
	Plugin  string
}

// EventEntry is a single registered event handler.
type EventEntry struct {
	Event   string
	Handler core.EventHandler
	Module  string
	Plugin  string
}

// MiddlewareEntry is a registered middleware with provenance.
type MiddlewareEntry struct {
	Middleware core.Middleware
	Module     string
	Plugin     string
}

type contextMenuKey struct {
	kind core.ContextMenuKind
	name string
}

// EntryOption annotates a registration with provenance metadata.
type EntryOption func(*entryMeta)

type entryMeta struct {
	module string
	plugin string
}

// WithModule labels the registration with a module name so it can be toggled
// via SetModuleEnabled.
func WithModule(name string) EntryOption {
	return func(m *entryMeta) { m.module = name }
}

func withPlugin(name string) EntryOption {
	return func(m *entryMeta) { m.plugin = name }
}

// Portal is the thread-safe registry of commands, context menus, events,
// autocomplete handlers and middleware.
type Portal struct {
	mu              sync.RWMutex
	commands        map[string]*CommandEntry
	contextMenus    map[contextMenuKey]*ContextMenuEntry
	events          map[string][]*EventEntry
	autocomplete    map[string]core.AutocompleteHandler
	middlewares     []*MiddlewareEntry
	disabledModules map[string]bool
}

// New creates an empty portal.
func New() *Portal {
	return &Portal{
		commands:        make(map[string]*CommandEntry),
		contextMenus:    make(map[contextMenuKey]*ContextMenuEntry),
		events:          make(map[string][]*EventEntry),
		autocomplete:    make(map[string]core.AutocompleteHandler),
		disabledModules: make(map[string]bool),
	}
}

// ValidatePath checks a command path against Discord's naming and nesting
// rules.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("command path is empty")
	}
	segments := strings.Split(path, "/")
	if len(segments) > maxPathDepth {
		return fmt.Errorf("command path %q exceeds maximum depth of %d", path, maxPathDepth)
	}
	for _, seg := range segments {
		if !segmentPattern.MatchString(seg) {
			return fmt.Errorf("command path segment %q is not a valid command name", seg)
		}
	}
	return nil
}

// AddCommand registers a slash command under path. Registering the same path
// twice replaces the earlier entry; plugin entries never replace user ones
// (see ForPlugin).
func (p *Portal) AddCommand(path string, handler core.CommandHandler, cfg *core.CommandConfig, opts ...EntryOption) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("command %q has no handler", path)
	}
	if cfg == nil {
		cfg = &core.CommandConfig{}
	}
	meta := applyOpts(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.commands[path]; ok {
		// User registrations always win over plugin ones.
		if meta.plugin != "" && existing.Plugin == "" {
			return fmt.Errorf("command %q already registered by the application", path)
		}
	}
	p.commands[path] = &CommandEntry{Path: path, Handler: handler, Config: cfg, Module: meta.module, Plugin: meta.plugin}
	return nil
}

// RemoveCommand deletes a command entry, returning whether it existed.
func (p *Portal) RemoveCommand(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.commands[path]
	delete(p.commands, path)
	delete(p.autocomplete, path)
	return ok
}

// Command resolves a command path to its entry. Entries belonging to a
// disabled module resolve as not found.
func (p *Portal) Command(path string) (*CommandEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.commands[path]
	if !ok || p.moduleDisabledLocked(e.Module) {
		return nil, false
	}
	return e, true
}

// Commands returns all registered command entries sorted by path, including
// ones in disabled modules (the manifest still describes them).
func (p *Portal) Commands() []*CommandEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*CommandEntry, 0, len(p.commands))
	for _, e := range p.commands {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// AddContextMenu registers a user or message context menu command by display
// name.
func (p *Portal) AddContextMenu(kind core.ContextMenuKind, name string, handler core.CommandHandler, cfg *core.CommandConfig, opts ...EntryOption) error {
	if name == "" {
		return fmt.Errorf("context menu name is empty")
	}
	if handler == nil {
		return fmt.Errorf("context menu %q has no handler", name)
	}
	if cfg == nil {
		cfg = &core.CommandConfig{}
	}
	meta := applyOpts(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	key := contextMenuKey{kind: kind, name: name}
	if existing, ok := p.contextMenus[key]; ok {
		if meta.plugin != "" && existing.Plugin == "" {
			return fmt.Errorf("context menu %q already registered by the application", name)
		}
	}
	p.contextMenus[key] = &ContextMenuEntry{Kind: kind, Name: name, Handler: handler, Config: cfg, Module: meta.module, Plugin: meta.plugin}
	return nil
}

// ContextMenu resolves a context menu command by kind and name.
func (p *Portal) ContextMenu(kind core.ContextMenuKind, name string) (*ContextMenuEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.contextMenus[contextMenuKey{kind: kind, name: name}]
	if !ok || p.moduleDisabledLocked(e.Module) {
		return nil, false
	}
	return e, true
}

// ContextMenus returns all context menu entries sorted by kind then name.
func (p *Portal) ContextMenus() []*ContextMenuEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*ContextMenuEntry, 0, len(p.contextMenus))
	for _, e := range p.contextMenus {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// AddAutocomplete registers the autocomplete handler for a command path. The
// command itself does not need to exist yet at registration time.
func (p *Portal) AddAutocomplete(path string, handler core.AutocompleteHandler, opts ...EntryOption) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("autocomplete for %q has no handler", path)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autocomplete[path] = handler
	return nil
}

// Autocomplete resolves the autocomplete handler for a command path.
func (p *Portal) Autocomplete(path string) (core.AutocompleteHandler, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.autocomplete[path]
	return h, ok
}

// On appends an event handler for the named event. Handlers run in
// registration order (user registrations first, then plugins in setup order).
func (p *Portal) On(event string, handler core.EventHandler, opts ...EntryOption) {
	if handler == nil {
		return
	}
	meta := applyOpts(opts)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[event] = append(p.events[event], &EventEntry{Event: event, Handler: handler, Module: meta.module, Plugin: meta.plugin})
}

// EventHandlers returns the handlers for an event, filtered by module state,
// in registration order.
func (p *Portal) EventHandlers(event string) []*EventEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := p.events[event]
	out := make([]*EventEntry, 0, len(entries))
	for _, e := range entries {
		if p.moduleDisabledLocked(e.Module) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EventNames returns all event names with at least one registration, sorted.
func (p *Portal) EventNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.events))
	for name := range p.events {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Use appends a middleware to the chain.
func (p *Portal) Use(m core.Middleware, opts ...EntryOption) {
	if m == nil {
		return
	}
	meta := applyOpts(opts)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middlewares = append(p.middlewares, &MiddlewareEntry{Middleware: m, Module: meta.module, Plugin: meta.plugin})
}

// Middlewares returns the middleware chain in registration order, filtered by
// module state.
func (p *Portal) Middlewares() []core.Middleware {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]core.Middleware, 0, len(p.middlewares))
	for _, e := range p.middlewares {
		if p.moduleDisabledLocked(e.Module) {
			continue
		}
		out = append(out, e.Middleware)
	}
	return out
}

// SetModuleEnabled toggles every registration labeled with the module.
// Disabled commands resolve as not found, disabled event handlers and
// middleware are skipped. Unknown module names are accepted; the label may be
// registered later.
func (p *Portal) SetModuleEnabled(name string, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if enabled {
		delete(p.disabledModules, name)
	} else {
		p.disabledModules[name] = true
	}
}

// ModuleEnabled reports whether the module is currently enabled. Unlabeled
// registrations (empty module) are always enabled.
func (p *Portal) ModuleEnabled(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.moduleDisabledLocked(name)
}

func (p *Portal) moduleDisabledLocked(name string) bool {
	return name != "" && p.disabledModules[name]
}

func applyOpts(opts []EntryOption) entryMeta {
	var meta entryMeta
	for _, o := range opts {
		o(&meta)
	}
	return meta
}
