package media

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/quill/internal/wp"
	"github.com/five82/quill/internal/wp/wptest"
)

const placeholder = "http://localhost/ph.png"

type fakeFetcher struct {
	mu      sync.Mutex
	media   map[int]wp.Media
	fail    map[int]error
	delay   time.Duration
	calls   []int
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeFetcher) GetMedia(ctx context.Context, id int) (*wp.Media, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	m, ok := f.media[id]
	if !ok {
		return nil, &wp.RemoteError{Status: 404, Message: "Invalid post ID."}
	}
	return &m, nil
}

func TestResolve_MixedPosts(t *testing.T) {
	f := &fakeFetcher{
		media: map[int]wp.Media{7: {ID: 7, SourceURL: "u7"}},
		fail:  map[int]error{9: &wp.RemoteError{Status: 404}},
	}
	r := NewResolver(f, placeholder, nil)

	posts := []wp.Post{
		{ID: 1, FeaturedMedia: 7},
		{ID: 2, FeaturedMedia: 0},
		{ID: 3, FeaturedMedia: 9},
	}
	got := r.Resolve(context.Background(), posts)

	assert.Equal(t, map[int]string{1: "u7", 2: placeholder, 3: placeholder}, got)
	assert.ElementsMatch(t, []int{7, 9}, f.calls, "post without media must not be fetched")
}

func TestResolveAll_ResultVariants(t *testing.T) {
	boom := errors.New("connection reset")
	f := &fakeFetcher{
		media: map[int]wp.Media{7: {ID: 7, SourceURL: "u7"}, 8: {ID: 8}},
		fail:  map[int]error{9: boom},
	}
	r := NewResolver(f, placeholder, nil)

	results := r.ResolveAll(context.Background(), []wp.Post{
		{ID: 1, FeaturedMedia: 7},
		{ID: 2},
		{ID: 3, FeaturedMedia: 9},
		{ID: 4, FeaturedMedia: 8},
	})
	require.Len(t, results, 4)

	assert.True(t, results[1].IsResolved())
	assert.Equal(t, "u7", results[1].URL)

	assert.False(t, results[2].IsResolved())
	assert.NoError(t, results[2].Err)

	assert.False(t, results[3].IsResolved())
	assert.ErrorIs(t, results[3].Err, boom)

	assert.False(t, results[4].IsResolved())
	assert.ErrorIs(t, results[4].Err, ErrNoSource)
	assert.Equal(t, placeholder, results[4].URLOr(placeholder))
}

func TestResolve_RunsConcurrentlyAndWaitsForAll(t *testing.T) {
	f := &fakeFetcher{
		media: map[int]wp.Media{},
		delay: 50 * time.Millisecond,
	}
	posts := make([]wp.Post, 0, 8)
	for i := 1; i <= 8; i++ {
		f.media[100+i] = wp.Media{ID: 100 + i, SourceURL: "u"}
		posts = append(posts, wp.Post{ID: i, FeaturedMedia: 100 + i})
	}
	r := NewResolver(f, placeholder, nil)

	got := r.Resolve(context.Background(), posts)

	require.Len(t, got, 8)
	for _, p := range posts {
		assert.Equal(t, "u", got[p.ID])
	}
	assert.Len(t, f.calls, 8, "every lookup finished before Resolve returned")
	assert.Greater(t, f.maxSeen.Load(), int32(1), "lookups should overlap")
}

func TestResolve_EmptyInput(t *testing.T) {
	r := NewResolver(&fakeFetcher{}, placeholder, nil)
	got := r.Resolve(context.Background(), nil)
	assert.Empty(t, got)
}

func TestResolve_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	f := &fakeFetcher{fail: map[int]error{5: errors.New("nope")}}
	r := NewResolver(f, placeholder, logger)

	r.Resolve(context.Background(), []wp.Post{{ID: 1, FeaturedMedia: 5}})

	assert.Contains(t, buf.String(), "featured media unavailable")
	assert.Contains(t, buf.String(), "post_id=1")
}

func TestResolve_AgainstFakeSite(t *testing.T) {
	site := wptest.NewServer(t)
	site.AddMedia(wp.Media{ID: 7, SourceURL: "http://img/7.jpg"})
	site.Fail("GET /wp/v2/media/9", 500)

	client, err := wp.NewClient(site.APIBase(), nil, wp.WithBasicAuth(wptest.Username, wptest.Password))
	require.NoError(t, err)
	r := NewResolver(client, placeholder, nil)

	got := r.Resolve(context.Background(), []wp.Post{
		{ID: 1, FeaturedMedia: 7},
		{ID: 2, FeaturedMedia: 0},
		{ID: 3, FeaturedMedia: 9},
	})
	assert.Equal(t, map[int]string{1: "http://img/7.jpg", 2: placeholder, 3: placeholder}, got)
	assert.Equal(t, 2, site.Count("GET", "/wp/v2/media/"))
}
