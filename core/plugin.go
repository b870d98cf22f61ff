package core

// Registrar is the registration surface handed to plugins. The portal
// implements it directly for user registrations and via a plugin-scoped view
// (recording provenance) for plugin registrations.
type Registrar interface {
	// AddCommand registers a slash command under path ("ping",
	// "settings/welcome/channel", ...).
	AddCommand(path string, handler CommandHandler, cfg *CommandConfig) error
	// AddContextMenu registers a user or message context menu command.
	AddContextMenu(kind ContextMenuKind, name string, handler CommandHandler, cfg *CommandConfig) error
	// AddAutocomplete registers the autocomplete handler for a command path.
	AddAutocomplete(path string, handler AutocompleteHandler) error
	// On appends an event handler for the named gateway or lifecycle event.
	On(event string, handler EventHandler)
	// Use appends a middleware to the chain, in registration order.
	Use(m Middleware)
}

// Plugin contributes commands, events and middleware to a bot. Only the
// mechanism lives here; plugins are ordinary Go packages the application
// imports and passes to the bot at construction.
type Plugin interface {
	// Name identifies the plugin in manifests and logs. Should be a short
	// stable slug ("welcomer", "modtools").
	Name() string
	// Setup performs all registrations. Called once, before the gateway
	// connection is opened. An error aborts startup.
	Setup(r Registrar) error
}
