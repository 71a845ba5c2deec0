package state

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/five82/quill/internal/wp"
)

// NoCategory labels posts whose first category is missing from the lookup.
const NoCategory = "No Category"

// ViewState is what the post list renders: the posts, a category id→name
// lookup, and exactly one image URL per post (fetched or placeholder).
type ViewState struct {
	Posts      []wp.Post
	Categories map[int]string
	Media      map[int]string
}

// CategoryName returns the name of the post's first category or NoCategory.
func (v ViewState) CategoryName(p wp.Post) string {
	id, ok := p.PrimaryCategory()
	if !ok {
		return NoCategory
	}
	if name, ok := v.Categories[id]; ok && name != "" {
		return name
	}
	return NoCategory
}

// MediaURL returns the resolved image URL for a post id.
func (v ViewState) MediaURL(postID int) string {
	return v.Media[postID]
}

// Post finds a post by id.
func (v ViewState) Post(id int) (wp.Post, bool) {
	for _, p := range v.Posts {
		if p.ID == id {
			return p, true
		}
	}
	return wp.Post{}, false
}

// Clone returns a deep copy.
func (v ViewState) Clone() ViewState {
	return ViewState{
		Posts:      clonePosts(v.Posts),
		Categories: maps.Clone(v.Categories),
		Media:      maps.Clone(v.Media),
	}
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	View                ViewState
	HasView             bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive refresh failures
}

// IsOffline returns true when the site has been unreachable for multiple
// refreshes.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored view. When err is non-nil the previous view is
// kept but the error is recorded for visibility.
func (s *Store) Update(view *ViewState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if view != nil {
		s.snapshot.View = view.Clone()
		s.snapshot.HasView = true
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.View = s.snapshot.View.Clone()
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func clonePosts(posts []wp.Post) []wp.Post {
	if len(posts) == 0 {
		return nil
	}
	dup := make([]wp.Post, len(posts))
	copy(dup, posts)
	for i := range dup {
		if dup[i].Categories != nil {
			dup[i].Categories = append([]int(nil), dup[i].Categories...)
		}
	}
	return dup
}
