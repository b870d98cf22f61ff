// Package discord adapts the framework to the Discord gateway via the
// discordgo SDK. It normalizes incoming interactions into the SDK-neutral
// core.Interaction shape, routes them through the middleware chain and the
// Sage dispatcher, translates gateway events into portal events, and
// registers application commands built from the manifest.
//
// Everything Discord-specific lives here; the rest of the framework never
// imports discordgo.
package discord
