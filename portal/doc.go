// Package portal implements the runtime registry resolving command and event
// keys to their handlers and declared configuration.
//
// Commands are keyed by their full path with subcommands joined by '/'
// ("ban", "settings/welcome/channel"); context menus by kind and name; events
// by their gateway or lifecycle name. Registrations may carry a module label,
// and whole modules can be toggled at runtime without re-registering.
//
// The portal is safe for concurrent use. Registration is expected to finish
// before the gateway connection opens; lookups and module toggles may happen
// at any time.
package portal
