package portal

import "github.com/hupe1980/botmesh/core"

// Registrar is the direct user-facing registration view of the portal.
type registrar struct {
	portal *Portal
	plugin string
	module string
}

// AddCommand implements core.Registrar.
func (r *registrar) AddCommand(path string, handler core.CommandHandler, cfg *core.CommandConfig) error {
	return r.portal.AddCommand(path, handler, cfg, r.opts()...)
}

// AddContextMenu implements core.Registrar.
func (r *registrar) AddContextMenu(kind core.ContextMenuKind, name string, handler core.CommandHandler, cfg *core.CommandConfig) error {
	return r.portal.AddContextMenu(kind, name, handler, cfg, r.opts()...)
}

// AddAutocomplete implements core.Registrar.
func (r *registrar) AddAutocomplete(path string, handler core.AutocompleteHandler) error {
	return r.portal.AddAutocomplete(path, handler, r.opts()...)
}

// On implements core.Registrar.
func (r *registrar) On(event string, handler core.EventHandler) {
	r.portal.On(event, handler, r.opts()...)
}

// Use implements core.Registrar.
func (r *registrar) Use(m core.Middleware) {
	r.portal.Use(m, r.opts()...)
}

func (r *registrar) opts() []EntryOption {
	var opts []EntryOption
	if r.plugin != "" {
		opts = append(opts, withPlugin(r.plugin))
	}
	if r.module != "" {
		opts = append(opts, WithModule(r.module))
	}
	return opts
}

// ForPlugin returns a core.Registrar view that stamps every registration with
// the plugin's name (and a same-named module label so the plugin can be
// toggled as a unit). Plugin registrations lose conflicts against user ones.
func (p *Portal) ForPlugin(name string) core.Registrar {
	return &registrar{portal: p, plugin: name, module: name}
}

// Registrar returns the unscoped core.Registrar view for user registrations.
func (p *Portal) Registrar() core.Registrar {
	return &registrar{portal: p}
}

var _ core.Registrar = (*registrar)(nil)
