// Package editor runs the create and edit flows for a single post.
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/five82/quill/internal/media"
	"github.com/five82/quill/internal/wp"
)

// ErrRequiredField is returned when a required form field is empty.
var ErrRequiredField = errors.New("required field missing")

// Mode selects between creating and updating.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Form is the editor's local state. CategoryID 0 means nothing is selected.
type Form struct {
	Title      string
	CategoryID int
	Content    string
	ImagePath  string
	Status     wp.Status
}

// DefaultForm is the empty create form.
func DefaultForm() Form {
	return Form{Status: wp.StatusPublish}
}

// Validate applies the required-field rules.
func (f Form) Validate() error {
	switch {
	case strings.TrimSpace(f.Title) == "":
		return fmt.Errorf("%w: title", ErrRequiredField)
	case f.CategoryID <= 0:
		return fmt.Errorf("%w: category", ErrRequiredField)
	case !f.Status.Editable():
		return fmt.Errorf("%w: status", ErrRequiredField)
	}
	return nil
}

// Hooks run after a successful submit: Refresh first, then Close. Warn
// reports a problem that did not stop the submit, such as a skipped image.
// Any of them may be nil.
type Hooks struct {
	Refresh func(ctx context.Context) error
	Close   func()
	Warn    func(err error)
}

// API is the subset of the WordPress client the editor calls.
type API interface {
	GetPost(ctx context.Context, id int) (*wp.Post, error)
	CreatePost(ctx context.Context, req wp.CreatePostRequest) (*wp.Post, error)
	UpdatePost(ctx context.Context, id int, req wp.UpdatePostRequest) (*wp.Post, error)
	UploadMedia(ctx context.Context, upload wp.Upload) (*wp.Media, error)
}

// MediaLookup resolves a featured image for the edit preview.
type MediaLookup interface {
	Lookup(ctx context.Context, mediaID int) media.Result
}

// Options wire an Editor.
type Options struct {
	API            API
	Tokens         wp.TokenSource
	Media          MediaLookup
	Logger         *slog.Logger
	MaxImageWidth  int
	MaxImageHeight int
}

// Editor orchestrates upload and post submission.
type Editor struct {
	api    API
	tokens wp.TokenSource
	media  MediaLookup
	logger *slog.Logger
	maxW   int
	maxH   int
}

// New builds an Editor. A nil Logger uses slog.Default().
func New(opts Options) *Editor {
	e := &Editor{
		api:    opts.API,
		tokens: opts.Tokens,
		media:  opts.Media,
		logger: opts.Logger,
		maxW:   opts.MaxImageWidth,
		maxH:   opts.MaxImageHeight,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Preloaded is what the edit form starts from.
type Preloaded struct {
	Form     Form
	ImageURL string
	MediaID  int
}

// Preload fetches the post and its current featured image. On failure the
// error is logged and returned alongside the defaults, which the caller
// keeps.
func (e *Editor) Preload(ctx context.Context, postID int) (Preloaded, error) {
	out := Preloaded{Form: DefaultForm()}
	logger := e.logger.With("post_id", postID)

	post, err := e.api.GetPost(ctx, postID)
	if err != nil {
		logger.Warn("post preload failed", "error", err)
		return out, fmt.Errorf("load post %d: %w", postID, err)
	}

	out.Form.Title = post.Title.Text()
	out.Form.Content = post.Content.Text()
	if cat, ok := post.PrimaryCategory(); ok {
		out.Form.CategoryID = cat
	}
	if post.Status.Editable() {
		out.Form.Status = post.Status
	} else {
		out.Form.Status = wp.StatusDraft
	}
	out.MediaID = post.FeaturedMedia

	if post.HasFeaturedMedia() && e.media != nil {
		res := e.media.Lookup(ctx, post.FeaturedMedia)
		if res.IsResolved() {
			out.ImageURL = res.URL
		} else {
			logger.Warn("featured image preload failed", "media_id", post.FeaturedMedia, "error", res.Err)
		}
	}
	return out, nil
}

// Submit creates (ModeCreate) or updates (ModeEdit) a post from form. An
// image, when chosen, is uploaded first and an upload failure aborts the
// submit. An image that is not JPEG or PNG is skipped instead: it goes to
// hooks.Warn and the post is saved without a new featured image. On success
// hooks.Refresh and then hooks.Close each run once.
func (e *Editor) Submit(ctx context.Context, mode Mode, postID int, form Form, hooks Hooks) (*wp.Post, error) {
	logger := e.logger.With("op", uuid.NewString(), "mode", mode.String())
	if mode == ModeEdit {
		logger = logger.With("post_id", postID)
	}

	if err := form.Validate(); err != nil {
		return nil, err
	}
	if e.tokens == nil || strings.TrimSpace(e.tokens.Token()) == "" {
		return nil, wp.ErrAuthMissing
	}

	var mediaID *int
	if path := strings.TrimSpace(form.ImagePath); path != "" {
		id, err := e.upload(ctx, logger, path)
		switch {
		case errors.Is(err, wp.ErrUnsupportedImage):
			logger.Warn("image skipped", "path", path, "error", err)
			if hooks.Warn != nil {
				hooks.Warn(err)
			}
		case err != nil:
			return nil, err
		default:
			mediaID = &id
		}
	}

	fields := wp.PostFields{
		Title:      form.Title,
		Content:    form.Content,
		Categories: []int{form.CategoryID},
		Status:     form.Status,
	}

	var (
		post *wp.Post
		err  error
	)
	switch mode {
	case ModeEdit:
		post, err = e.api.UpdatePost(ctx, postID, wp.UpdatePostRequest{PostFields: fields, FeaturedMedia: mediaID})
	default:
		post, err = e.api.CreatePost(ctx, wp.CreatePostRequest{PostFields: fields, FeaturedMedia: mediaID})
	}
	if err != nil {
		logger.Error("post submit failed", "error", err)
		return nil, fmt.Errorf("%s post: %w", mode, err)
	}
	logger.Info("post saved", "id", post.ID, "status", post.Status, "featured_media", post.FeaturedMedia)

	if hooks.Refresh != nil {
		if err := hooks.Refresh(ctx); err != nil {
			logger.Warn("refresh after submit failed", "error", err)
		}
	}
	if hooks.Close != nil {
		hooks.Close()
	}
	return post, nil
}

// Create submits form as a new post.
func (e *Editor) Create(ctx context.Context, form Form, hooks Hooks) (*wp.Post, error) {
	return e.Submit(ctx, ModeCreate, 0, form, hooks)
}

// Update submits form over an existing post.
func (e *Editor) Update(ctx context.Context, postID int, form Form, hooks Hooks) (*wp.Post, error) {
	return e.Submit(ctx, ModeEdit, postID, form, hooks)
}

func (e *Editor) upload(ctx context.Context, logger *slog.Logger, path string) (int, error) {
	img, err := prepareImage(path, e.maxW, e.maxH)
	if err != nil {
		logger.Warn("image rejected", "path", path, "error", err)
		return 0, err
	}
	if img.Resized {
		logger.Info("image downscaled", "width", img.Width, "height", img.Height)
	}

	m, err := e.api.UploadMedia(ctx, wp.Upload{
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Body:        bytes.NewReader(img.Data),
		AltText:     wp.FeaturedImageAltText,
	})
	if err != nil {
		logger.Error("image upload failed", "error", err)
		return 0, fmt.Errorf("upload image: %w", err)
	}
	logger.Info("image uploaded", "media_id", m.ID)
	return m.ID, nil
}
