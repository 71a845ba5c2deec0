// Package state provides thread-safe view state for the post list.
//
// # Overview
//
// The listing synchronizer produces a ViewState (posts, category names,
// image URLs) and the UI renders it. Store sits between them: refreshes
// replace the whole view at once and the UI reads copies.
//
//	Producer (listing.Synchronizer):    Consumer (UI):
//	┌────────────────────┐             ┌────────────────────┐
//	│ ListPosts          │             │                    │
//	│ ListCategories     │             │                    │
//	│ media.Resolve      │             │                    │
//	│      ↓             │             │                    │
//	│ store.Update()     │────────────→│ store.Snapshot()   │
//	└────────────────────┘   (mutex)   └────────────────────┘
//
// # Update Semantics
//
//	// Success case: replace the view
//	store.Update(&view, nil)
//
//	// Error case: keep the old view, record the error
//	store.Update(nil, err)
//
// There is no partial update. Concurrent refreshes each write a complete
// view and the last Update wins.
//
// # Invariants
//
//   - ViewState.Media has one entry per post (placeholder when unresolved)
//   - Categories may miss ids; CategoryName then returns NoCategory
//   - Update and Snapshot deep-copy, so neither side can mutate the other
//
// The zero Store is ready to use.
package state
