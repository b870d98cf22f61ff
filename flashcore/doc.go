// Package flashcore provides the built-in key-value persistence used for bot
// and plugin settings and state.
//
// The core.FlashcoreAdapter contract is byte-oriented and flat; this package
// layers namespacing (Namespace), typed JSON helpers (Get/Set/GetOr) and
// change watchers (Watch) on top, plus three adapters:
//
//   - NewInMemoryAdapter: volatile map, for tests and ephemeral bots
//   - NewFileAdapter: one file per key under a data directory, with optional
//     fsnotify-backed detection of out-of-process edits
//   - sqlite.New (subpackage): durable single-file store; lives in a
//     subpackage so the cgo sqlite driver stays out of minimal builds
package flashcore
