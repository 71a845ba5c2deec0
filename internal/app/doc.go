// Package app provides the orchestration layer for the quill application.
//
// # Overview
//
// This package wires together configuration, logging, local storage, the
// WordPress client, and the UI. It is the composition root: every
// dependency is built here and handed to the packages that use it.
//
// # Startup
//
//  1. Load config from ~/.config/quill/config.toml plus .env and QUILL_*
//     environment overrides
//  2. Send slog output to the log file (Bubble Tea owns the terminal)
//  3. Open the local state file and the session that reads jwt_token from it
//  4. Build the WordPress client with bearer auth from the session and
//     basic auth from the application password
//  5. Build the media resolver, category cache, listing synchronizer, and
//     editor around the client
//  6. Optionally start the background poller
//  7. Start the TUI and block until the user exits or the context cancels
//
// The initial token exchange and first refresh are started by the UI so the
// screen comes up immediately and shows "Connecting..." meanwhile.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()
//	       ├─────> storage.Open() ──> session.New()
//	       ├─────> wp.NewClient()
//	       ├─────> listing.New() / editor.New()
//	       ├─────> StartPoller()       only with -poll
//	       └─────> ui.Run()            blocks
//
//	Synchronizer.Refresh():
//	┌─────────────────────────────────────────┐
//	│  ├─> ListPosts ──> media.Resolve        │
//	│  ├─> category.Cache.Load    (parallel)  │
//	│  └─> state.Store.Update()   (atomic)    │
//	│      └─> UI reads store.Snapshot()      │
//	└─────────────────────────────────────────┘
//
// # Polling Behavior
//
// Background polling is off unless -poll is given. When on, the poller
// refreshes every interval and doubles the delay after each consecutive
// failure, up to 30 seconds. Failures are logged; the UI shows the last
// error from the store.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Unreadable or invalid config file
//   - Log file or state directory that cannot be created
//   - Malformed site URL
//
// Everything that talks to the network is recoverable and surfaces in the
// UI instead.
package app
