// Package manifest builds, serializes and merges the JSON description of a
// bot's registered commands, context menus and events.
//
// The manifest is assembled at runtime from the portal (Go code registers
// handlers; there is no file-scanning build step) and serves two purposes:
// a human-inspectable record of the bot's surface, and the input for command
// registration with Discord. Its canonical hash lets the discord adapter skip
// the bulk-overwrite API call when nothing changed since the last sync.
package manifest
