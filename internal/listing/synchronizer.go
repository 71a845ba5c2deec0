// Package listing keeps the post list in sync with the site: it bootstraps
// the session token, refreshes posts with their categories and images, and
// deletes posts.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/five82/quill/internal/state"
	"github.com/five82/quill/internal/wp"
)

// ErrCancelled is returned by DeletePost when the user declines.
var ErrCancelled = errors.New("delete cancelled")

// API is the subset of the WordPress client the synchronizer calls.
type API interface {
	IssueToken(ctx context.Context, username, password string) (*wp.Token, error)
	ValidateToken(ctx context.Context) (*wp.TokenValidation, error)
	ListPosts(ctx context.Context, statuses ...wp.Status) ([]wp.Post, error)
	DeletePost(ctx context.Context, id int, force bool) error
}

// TokenSetter stores a freshly issued token.
type TokenSetter interface {
	SetToken(token string) error
}

// CategorySource loads and exposes the category lookup.
type CategorySource interface {
	Load(ctx context.Context) error
	Lookup() map[int]string
}

// MediaResolver maps posts to image URLs, one per post.
type MediaResolver interface {
	Resolve(ctx context.Context, posts []wp.Post) map[int]string
}

// Options wire a Synchronizer.
type Options struct {
	API        API
	Session    TokenSetter
	Categories CategorySource
	Media      MediaResolver
	Store      *state.Store
	Logger     *slog.Logger
	Username   string
	Password   string
}

// Synchronizer is the top-level orchestrator for the post list.
type Synchronizer struct {
	api        API
	session    TokenSetter
	categories CategorySource
	media      MediaResolver
	store      *state.Store
	logger     *slog.Logger
	username   string
	password   string
}

// New builds a Synchronizer. A nil Store gets a fresh one and a nil Logger
// uses slog.Default().
func New(opts Options) *Synchronizer {
	s := &Synchronizer{
		api:        opts.API,
		session:    opts.Session,
		categories: opts.Categories,
		media:      opts.Media,
		store:      opts.Store,
		logger:     opts.Logger,
		username:   opts.Username,
		password:   opts.Password,
	}
	if s.store == nil {
		s.store = &state.Store{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Store returns the view-state store the synchronizer publishes to.
func (s *Synchronizer) Store() *state.Store {
	return s.store
}

// Bootstrap exchanges the configured credentials for a token, stores it,
// and validates it. The outcome is only logged by callers: later calls run
// with whatever token is stored, even none.
func (s *Synchronizer) Bootstrap(ctx context.Context) error {
	logger := s.logger.With("op", uuid.NewString())

	tok, err := s.api.IssueToken(ctx, s.username, s.password)
	if err != nil {
		logger.Warn("token exchange failed", "user", s.username, "error", err)
		return fmt.Errorf("issue token: %w", err)
	}
	if err := s.session.SetToken(tok.Token); err != nil {
		logger.Warn("token not persisted", "error", err)
	}
	logger.Info("token issued", "user", tok.UserNicename)

	validation, err := s.api.ValidateToken(ctx)
	if err != nil {
		logger.Warn("token validation failed", "error", err)
		return fmt.Errorf("validate token: %w", err)
	}
	logger.Info("token validated", "code", validation.Code, "valid", validation.Valid())
	return nil
}

// Refresh fetches posts and categories side by side, resolves images once
// posts arrive, and publishes the combined view when both are done. A post
// failure leaves the published view unchanged; a category failure keeps the
// previous lookup. Concurrent refreshes are not coalesced; the last to
// finish wins.
func (s *Synchronizer) Refresh(ctx context.Context) (state.ViewState, error) {
	logger := s.logger.With("op", uuid.NewString())
	started := time.Now()

	var (
		posts []wp.Post
		media map[int]string
	)

	var g errgroup.Group
	g.Go(func() error {
		fetched, err := s.api.ListPosts(ctx, wp.AllStatuses...)
		if err != nil {
			return fmt.Errorf("list posts: %w", err)
		}
		posts = fetched
		media = s.media.Resolve(ctx, fetched)
		return nil
	})
	g.Go(func() error {
		if err := s.categories.Load(ctx); err != nil {
			logger.Warn("categories unavailable, keeping previous lookup", "error", err)
		}
		return nil
	})

	err := g.Wait()
	// A cancelled refresh may hold placeholder media for every post; it must
	// not replace the last good view or count as a site failure.
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Info("refresh cancelled", "error", ctxErr)
		return state.ViewState{}, ctxErr
	}
	if err != nil {
		logger.Error("refresh failed", "error", err)
		s.store.Update(nil, err)
		return state.ViewState{}, err
	}

	view := state.ViewState{
		Posts:      posts,
		Categories: s.categories.Lookup(),
		Media:      media,
	}
	s.store.Update(&view, nil)
	logger.Info("refreshed", "posts", len(posts), "categories", len(view.Categories), "elapsed", time.Since(started).Round(time.Millisecond))
	return view, nil
}

// DeletePost asks confirm first and synchronously. When it declines (or is
// nil) nothing is sent and ErrCancelled is returned. Otherwise the post is
// permanently deleted and the list refreshed. A failed delete returns the
// remote error and leaves the view untouched.
func (s *Synchronizer) DeletePost(ctx context.Context, id int, confirm func(id int) bool) error {
	if confirm == nil || !confirm(id) {
		return ErrCancelled
	}
	logger := s.logger.With("op", uuid.NewString(), "post_id", id)

	if err := s.api.DeletePost(ctx, id, true); err != nil {
		logger.Error("delete failed", "error", err)
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	logger.Info("post deleted")

	if _, err := s.Refresh(ctx); err != nil {
		logger.Warn("refresh after delete failed", "error", err)
	}
	return nil
}
