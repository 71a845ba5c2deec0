package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/quill/internal/media"
	"github.com/five82/quill/internal/session"
	"github.com/five82/quill/internal/wp"
	"github.com/five82/quill/internal/wp/wptest"
)

type fixture struct {
	site    *wptest.Server
	session *session.Session
	editor  *Editor
}

func newFixture(t *testing.T, authenticate bool) *fixture {
	t.Helper()
	site := wptest.NewServer(t)
	sess := session.New(nil)
	client, err := wp.NewClient(site.APIBase(), sess, wp.WithBasicAuth(wptest.Username, wptest.Password))
	require.NoError(t, err)

	if authenticate {
		tok, err := client.IssueToken(context.Background(), wptest.Username, wptest.Password)
		require.NoError(t, err)
		require.NoError(t, sess.SetToken(tok.Token))
	}

	e := New(Options{
		API:            client,
		Tokens:         sess,
		Media:          media.NewResolver(client, "ph", nil),
		MaxImageWidth:  64,
		MaxImageHeight: 64,
	})
	return &fixture{site: site, session: sess, editor: e}
}

type hookCounter struct {
	refresh int
	close   int
	order   []string
}

func (h *hookCounter) hooks() Hooks {
	return Hooks{
		Refresh: func(context.Context) error {
			h.refresh++
			h.order = append(h.order, "refresh")
			return nil
		},
		Close: func() {
			h.close++
			h.order = append(h.order, "close")
		},
	}
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 255, A: 255})
	}
	path := filepath.Join(t.TempDir(), "cover.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func writeGIF(t *testing.T) string {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	path := filepath.Join(t.TempDir(), "anim.gif")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestCreate_WithoutImageSendsNullFeaturedMedia(t *testing.T) {
	f := newFixture(t, true)
	h := &hookCounter{}

	post, err := f.editor.Create(context.Background(), Form{
		Title:      "T",
		CategoryID: 2,
		Content:    "C",
		Status:     wp.StatusDraft,
	}, h.hooks())
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Equal(t, 0, f.site.Count(http.MethodPost, "/wp/v2/media"))
	req, ok := f.site.Last(http.MethodPost, "/wp/v2/posts")
	require.True(t, ok)

	body := decodeBody(t, req.Body)
	assert.Equal(t, "T", body["title"])
	assert.Equal(t, "C", body["content"])
	assert.Equal(t, []any{float64(2)}, body["categories"])
	assert.Equal(t, "draft", body["status"])
	v, present := body["featured_media"]
	assert.True(t, present, "create always sends featured_media")
	assert.Nil(t, v)

	assert.Equal(t, 1, h.refresh)
	assert.Equal(t, 1, h.close)
	assert.Equal(t, []string{"refresh", "close"}, h.order)
}

func TestCreate_UploadsImageFirst(t *testing.T) {
	f := newFixture(t, true)
	h := &hookCounter{}
	path := writePNG(t, 32, 16)

	post, err := f.editor.Create(context.Background(), Form{
		Title:      "With image",
		CategoryID: 3,
		ImagePath:  path,
		Status:     wp.StatusPublish,
	}, h.hooks())
	require.NoError(t, err)

	up, ok := f.site.Last(http.MethodPost, "/wp/v2/media")
	require.True(t, ok)
	assert.Equal(t, "cover.png", up.FileName)
	assert.Equal(t, wp.FeaturedImageAltText, up.Form["alt_text"])
	assert.Equal(t, "Bearer "+f.session.Token(), up.Authorization)

	body := decodeBody(t, mustLast(t, f.site, http.MethodPost, "/wp/v2/posts").Body)
	assert.Equal(t, float64(post.FeaturedMedia), body["featured_media"])
	assert.NotZero(t, post.FeaturedMedia)

	reqs := f.site.Requests()
	var order []string
	for _, r := range reqs {
		if r.Method == http.MethodPost && (r.Path == "/wp-json/wp/v2/media" || r.Path == "/wp-json/wp/v2/posts") {
			order = append(order, r.Path)
		}
	}
	assert.Equal(t, []string{"/wp-json/wp/v2/media", "/wp-json/wp/v2/posts"}, order)
}

func TestCreate_DownscalesLargeImages(t *testing.T) {
	f := newFixture(t, true)
	path := writePNG(t, 256, 128)

	_, err := f.editor.Create(context.Background(), Form{
		Title: "Big", CategoryID: 1, ImagePath: path, Status: wp.StatusPublish,
	}, Hooks{})
	require.NoError(t, err)

	up := mustLast(t, f.site, http.MethodPost, "/wp/v2/media")
	cfg, err := png.DecodeConfig(bytes.NewReader(up.FileBytes))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}

func TestUpdate_WithoutImageOmitsFeaturedMedia(t *testing.T) {
	f := newFixture(t, true)
	f.site.AddPost(wp.Post{ID: 5, Title: wp.RenderedField{Raw: "Old"}, Status: wp.StatusPublish, Categories: []int{1}, FeaturedMedia: 7})
	h := &hookCounter{}

	post, err := f.editor.Update(context.Background(), 5, Form{
		Title: "New", CategoryID: 2, Content: "Body", Status: wp.StatusDraft,
	}, h.hooks())
	require.NoError(t, err)

	req := mustLast(t, f.site, http.MethodPut, "/wp/v2/posts/5")
	body := decodeBody(t, req.Body)
	_, present := body["featured_media"]
	assert.False(t, present, "update without a new image leaves featured_media alone")
	assert.Equal(t, 7, post.FeaturedMedia)
	assert.Equal(t, 1, h.refresh)
	assert.Equal(t, 1, h.close)
}

func TestCreate_UnsupportedImageSavesWithoutMedia(t *testing.T) {
	f := newFixture(t, true)
	h := &hookCounter{}
	var warned []error
	hooks := h.hooks()
	hooks.Warn = func(err error) { warned = append(warned, err) }

	post, err := f.editor.Create(context.Background(), Form{
		Title: "T", CategoryID: 2, ImagePath: writeGIF(t), Status: wp.StatusPublish,
	}, hooks)
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Equal(t, 0, f.site.Count(http.MethodPost, "/wp/v2/media"))
	assert.Equal(t, 1, f.site.Count(http.MethodPost, "/wp/v2/posts"))
	body := decodeBody(t, mustLast(t, f.site, http.MethodPost, "/wp/v2/posts").Body)
	v, present := body["featured_media"]
	assert.True(t, present, "create always sends featured_media")
	assert.Nil(t, v)

	require.Len(t, warned, 1)
	assert.ErrorIs(t, warned[0], wp.ErrUnsupportedImage)
	assert.Equal(t, 1, h.refresh)
	assert.Equal(t, 1, h.close)
}

func TestUpdate_UnsupportedImageKeepsFeaturedMedia(t *testing.T) {
	f := newFixture(t, true)
	f.site.AddPost(wp.Post{ID: 5, Title: wp.RenderedField{Raw: "Old"}, Status: wp.StatusPublish, Categories: []int{1}, FeaturedMedia: 7})
	h := &hookCounter{}
	warnings := 0
	hooks := h.hooks()
	hooks.Warn = func(error) { warnings++ }

	post, err := f.editor.Update(context.Background(), 5, Form{
		Title: "New", CategoryID: 2, ImagePath: writeGIF(t), Status: wp.StatusDraft,
	}, hooks)
	require.NoError(t, err)

	assert.Equal(t, 0, f.site.Count(http.MethodPost, "/wp/v2/media"))
	body := decodeBody(t, mustLast(t, f.site, http.MethodPut, "/wp/v2/posts/5").Body)
	_, present := body["featured_media"]
	assert.False(t, present)
	assert.Equal(t, 7, post.FeaturedMedia)
	assert.Equal(t, 1, warnings)
	assert.Equal(t, 1, h.refresh)
	assert.Equal(t, 1, h.close)
}

func TestSubmit_UploadFailureAborts(t *testing.T) {
	f := newFixture(t, true)
	f.site.Fail("POST /wp/v2/media", http.StatusInternalServerError)
	h := &hookCounter{}

	_, err := f.editor.Create(context.Background(), Form{
		Title: "T", CategoryID: 2, ImagePath: writePNG(t, 8, 8), Status: wp.StatusPublish,
	}, h.hooks())
	require.Error(t, err)

	var remote *wp.RemoteError
	assert.True(t, errors.As(err, &remote))
	assert.Equal(t, 0, f.site.Count(http.MethodPost, "/wp/v2/posts"))
	assert.Zero(t, h.close)
}

func TestSubmit_PostFailureKeepsModalOpen(t *testing.T) {
	f := newFixture(t, true)
	f.site.Fail("POST /wp/v2/posts", http.StatusBadRequest)
	h := &hookCounter{}

	_, err := f.editor.Create(context.Background(), Form{Title: "T", CategoryID: 2, Status: wp.StatusPublish}, h.hooks())
	require.Error(t, err)
	assert.Equal(t, "forced failure", wp.UserMessage(err))
	assert.Zero(t, h.refresh)
	assert.Zero(t, h.close)
}

func TestSubmit_NoTokenIsAuthMissing(t *testing.T) {
	f := newFixture(t, false)
	before := len(f.site.Requests())

	_, err := f.editor.Create(context.Background(), Form{
		Title: "T", CategoryID: 2, ImagePath: writePNG(t, 8, 8), Status: wp.StatusPublish,
	}, Hooks{})
	require.ErrorIs(t, err, wp.ErrAuthMissing)
	assert.Len(t, f.site.Requests(), before)
}

func TestForm_Validate(t *testing.T) {
	tests := []struct {
		name string
		form Form
		ok   bool
	}{
		{"complete", Form{Title: "T", CategoryID: 1, Status: wp.StatusPublish}, true},
		{"blank title", Form{Title: "  ", CategoryID: 1, Status: wp.StatusPublish}, false},
		{"no category", Form{Title: "T", Status: wp.StatusDraft}, false},
		{"trash status", Form{Title: "T", CategoryID: 1, Status: wp.StatusTrash}, false},
		{"empty status", Form{Title: "T", CategoryID: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrRequiredField)
			}
		})
	}
}

func TestPreload_FillsFormAndImage(t *testing.T) {
	f := newFixture(t, true)
	f.site.AddMedia(wp.Media{ID: 7, SourceURL: "http://img/7.jpg"})
	f.site.AddPost(wp.Post{
		ID:            5,
		Title:         wp.RenderedField{Raw: "Raw title", Rendered: "Rendered"},
		Content:       wp.RenderedField{Raw: "<p>x</p>"},
		Status:        wp.StatusDraft,
		Categories:    []int{4, 6},
		FeaturedMedia: 7,
	})

	pre, err := f.editor.Preload(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Raw title", pre.Form.Title)
	assert.Equal(t, "<p>x</p>", pre.Form.Content)
	assert.Equal(t, 4, pre.Form.CategoryID)
	assert.Equal(t, wp.StatusDraft, pre.Form.Status)
	assert.Equal(t, "http://img/7.jpg", pre.ImageURL)
}

func TestPreload_FailureKeepsDefaults(t *testing.T) {
	f := newFixture(t, true)

	pre, err := f.editor.Preload(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, wp.IsNotFound(err))
	assert.Equal(t, DefaultForm(), pre.Form)
}

func TestPreload_TrashedPostOpensAsDraft(t *testing.T) {
	f := newFixture(t, true)
	f.site.AddPost(wp.Post{ID: 8, Title: wp.RenderedField{Raw: "x"}, Status: wp.StatusTrash})

	pre, err := f.editor.Preload(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, wp.StatusDraft, pre.Form.Status)
	assert.Empty(t, pre.ImageURL)
}

func mustLast(t *testing.T, site *wptest.Server, method, prefix string) wptest.Request {
	t.Helper()
	req, ok := site.Last(method, prefix)
	require.True(t, ok, "no %s %s request", method, prefix)
	return req
}
