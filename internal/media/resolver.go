// Package media resolves featured-image URLs for posts.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/five82/quill/internal/wp"
)

// ErrNoSource is recorded when a media record has an empty source_url.
var ErrNoSource = errors.New("media has no source url")

// Fetcher looks up a single media record.
type Fetcher interface {
	GetMedia(ctx context.Context, id int) (*wp.Media, error)
}

// Result is the outcome of resolving one post's image: either a fetched URL
// or a fallback. Err is nil for a fallback caused by the post having no
// featured image.
type Result struct {
	URL      string
	Err      error
	resolved bool
}

// Resolved wraps a fetched URL.
func Resolved(url string) Result {
	return Result{URL: url, resolved: true}
}

// Fallback records why no URL was fetched.
func Fallback(err error) Result {
	return Result{Err: err}
}

// IsResolved reports whether the URL came from the media endpoint.
func (r Result) IsResolved() bool {
	return r.resolved
}

// URLOr returns the fetched URL or placeholder.
func (r Result) URLOr(placeholder string) string {
	if r.resolved {
		return r.URL
	}
	return placeholder
}

// Resolver fetches featured media for a batch of posts concurrently.
type Resolver struct {
	fetcher     Fetcher
	placeholder string
	logger      *slog.Logger
}

// NewResolver builds a Resolver. A nil logger uses slog.Default().
func NewResolver(fetcher Fetcher, placeholder string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fetcher: fetcher, placeholder: placeholder, logger: logger}
}

// Placeholder returns the fallback URL.
func (r *Resolver) Placeholder() string {
	return r.placeholder
}

// Lookup resolves a single media id.
func (r *Resolver) Lookup(ctx context.Context, mediaID int) Result {
	if mediaID <= 0 {
		return Fallback(nil)
	}
	m, err := r.fetcher.GetMedia(ctx, mediaID)
	if err != nil {
		return Fallback(fmt.Errorf("fetch media %d: %w", mediaID, err))
	}
	if m == nil || strings.TrimSpace(m.SourceURL) == "" {
		return Fallback(fmt.Errorf("media %d: %w", mediaID, ErrNoSource))
	}
	return Resolved(m.SourceURL)
}

// ResolveAll looks up every post's featured media in parallel and waits for
// all of them. Each lookup succeeds or fails on its own; failures are logged
// and become fallbacks. The map has exactly one entry per post id.
func (r *Resolver) ResolveAll(ctx context.Context, posts []wp.Post) map[int]Result {
	results := make([]Result, len(posts))

	var g errgroup.Group
	for i, p := range posts {
		g.Go(func() error {
			res := r.Lookup(ctx, p.FeaturedMedia)
			if res.Err != nil {
				r.logger.Warn("featured media unavailable",
					"post_id", p.ID,
					"media_id", p.FeaturedMedia,
					"error", res.Err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int]Result, len(posts))
	for i, p := range posts {
		out[p.ID] = results[i]
	}
	return out
}

// Resolve is ResolveAll flattened to URLs, substituting the placeholder for
// every fallback.
func (r *Resolver) Resolve(ctx context.Context, posts []wp.Post) map[int]string {
	results := r.ResolveAll(ctx, posts)
	urls := make(map[int]string, len(results))
	for id, res := range results {
		urls[id] = res.URLOr(r.placeholder)
	}
	return urls
}
