// Package core provides the foundational domain types and interfaces used by
// botmesh. It defines the core abstractions for:
//
//   - Interactions (normalized slash command / context menu / component invocations)
//   - Responders (the four wire operations Sage needs: reply, defer, edit, follow-up)
//   - Command and event handler contracts with their declared configuration
//   - Middleware (ordered pre-dispatch hooks that may abort)
//   - Plugins (packaged bundles of commands, events and middleware)
//   - FlashcoreAdapter (pluggable key-value persistence)
//
// The package intentionally keeps implementation concerns (the Discord SDK,
// dispatch orchestration, concrete stores) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
