package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/quill/internal/wp"
)

func sampleView() ViewState {
	return ViewState{
		Posts: []wp.Post{
			{ID: 1, Categories: []int{2}},
			{ID: 2, Categories: []int{9}},
			{ID: 3},
		},
		Categories: map[int]string{2: "News"},
		Media:      map[int]string{1: "http://img/1.jpg", 2: "ph", 3: "ph"},
	}
}

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	view := sampleView()
	s.Update(&view, nil)

	snap := s.Snapshot()
	if !snap.HasView || len(snap.View.Posts) != 3 {
		t.Fatalf("snapshot view = %#v, want 3 posts", snap.View)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.View.Posts[0].ID = 999
	snap.View.Posts[0].Categories[0] = 42
	snap.View.Media[1] = "mutated"
	snap2 := s.Snapshot()
	if snap2.View.Posts[0].ID != 1 || snap2.View.Posts[0].Categories[0] != 2 {
		t.Fatalf("Snapshot should clone posts; got %#v", snap2.View.Posts[0])
	}
	if snap2.View.Media[1] != "http://img/1.jpg" {
		t.Fatalf("Snapshot should clone media map")
	}

	// Caller mutation after Update must not leak in either.
	view.Categories[2] = "changed"
	if s.Snapshot().View.Categories[2] != "News" {
		t.Fatalf("Update should clone categories")
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	view := sampleView()
	s.Update(&view, nil)
	prev := s.Snapshot()

	origErr := errors.New("boom")
	s.Update(nil, origErr)

	snap := s.Snapshot()
	if !reflect.DeepEqual(snap.View, prev.View) {
		t.Fatalf("view changed on error: got %#v want %#v", snap.View, prev.View)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	s.Update(nil, errors.New("a"))
	if s.Snapshot().IsOffline() {
		t.Fatalf("offline after one failure")
	}
	s.Update(nil, errors.New("b"))
	if !s.Snapshot().IsOffline() {
		t.Fatalf("expected offline after two failures")
	}
	view := sampleView()
	s.Update(&view, nil)
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.LastError != nil {
		t.Fatalf("success should reset failures: %#v", snap)
	}
}

func TestViewState_CategoryName(t *testing.T) {
	v := sampleView()
	tests := []struct {
		post wp.Post
		want string
	}{
		{v.Posts[0], "News"},
		{v.Posts[1], NoCategory},
		{v.Posts[2], NoCategory},
	}
	for _, tt := range tests {
		if got := v.CategoryName(tt.post); got != tt.want {
			t.Errorf("CategoryName(post %d) = %q, want %q", tt.post.ID, got, tt.want)
		}
	}
}

func TestViewState_PostAndMediaURL(t *testing.T) {
	v := sampleView()
	if p, ok := v.Post(2); !ok || p.ID != 2 {
		t.Fatalf("Post(2) = %#v, %v", p, ok)
	}
	if _, ok := v.Post(77); ok {
		t.Fatalf("Post(77) found")
	}
	if v.MediaURL(1) != "http://img/1.jpg" {
		t.Fatalf("MediaURL(1) = %q", v.MediaURL(1))
	}
}
