package wp

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"
)

// wpDateLayout is the site-local timestamp format WordPress uses for "date".
const wpDateLayout = "2006-01-02T15:04:05"

// Status is a post's publication state.
type Status string

const (
	StatusPublish Status = "publish"
	StatusDraft   Status = "draft"
	StatusTrash   Status = "trash"
)

// AllStatuses is the status set requested when listing posts.
var AllStatuses = []Status{StatusPublish, StatusDraft, StatusTrash}

// Editable reports whether the status can be chosen in the editor.
func (s Status) Editable() bool {
	return s == StatusPublish || s == StatusDraft
}

// RenderedField is a WordPress text field. The API returns either a bare
// string or an object with "rendered" (and "raw" under context=edit).
type RenderedField struct {
	Raw      string `json:"raw,omitempty"`
	Rendered string `json:"rendered,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form.
func (f *RenderedField) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		f.Raw = ""
		f.Rendered = str
		return nil
	}
	var obj struct {
		Raw      string `json:"raw"`
		Rendered string `json:"rendered"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode rendered field: %w", err)
	}
	f.Raw = obj.Raw
	f.Rendered = obj.Rendered
	return nil
}

// Text returns the raw value when present, otherwise the rendered one.
func (f RenderedField) Text() string {
	if f.Raw != "" {
		return f.Raw
	}
	return f.Rendered
}

// Display returns the rendered value with HTML entities decoded.
func (f RenderedField) Display() string {
	return html.UnescapeString(strings.TrimSpace(f.Rendered))
}

// Post mirrors the subset of /wp/v2/posts records quill reads.
type Post struct {
	ID            int           `json:"id"`
	Date          string        `json:"date"`
	Title         RenderedField `json:"title"`
	Content       RenderedField `json:"content"`
	Status        Status        `json:"status"`
	Categories    []int         `json:"categories"`
	FeaturedMedia int           `json:"featured_media"`
}

// PrimaryCategory returns the first category id. Only the first is used.
func (p Post) PrimaryCategory() (int, bool) {
	if len(p.Categories) == 0 {
		return 0, false
	}
	return p.Categories[0], true
}

// HasFeaturedMedia reports whether the post references an image.
func (p Post) HasFeaturedMedia() bool {
	return p.FeaturedMedia > 0
}

// ParsedDate parses the site-local post date; zero when unparsable.
func (p Post) ParsedDate() time.Time {
	raw := strings.TrimSpace(p.Date)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(wpDateLayout, raw, time.Local); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Time{}
}

// Category mirrors /wp/v2/categories records.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Media mirrors /wp/v2/media records.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
	MimeType  string `json:"mime_type,omitempty"`
}

// Token is the JWT plugin's token exchange response.
type Token struct {
	Token           string `json:"token"`
	UserEmail       string `json:"user_email"`
	UserNicename    string `json:"user_nicename"`
	UserDisplayName string `json:"user_display_name"`
}

// TokenValidation is the JWT plugin's validate response.
type TokenValidation struct {
	Code string `json:"code"`
	Data struct {
		Status int `json:"status"`
	} `json:"data"`
}

// Valid reports whether the plugin accepted the token.
func (v TokenValidation) Valid() bool {
	return v.Code == "jwt_auth_valid_token" || v.Data.Status == 200
}

// PostFields are the fields shared by create and update requests.
type PostFields struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	// Categories go out as integer ids ([2], not ["2"]), the type the
	// WordPress posts schema declares. The server accepts either form.
	Categories []int  `json:"categories"`
	Status     Status `json:"status"`
}

// CreatePostRequest always carries featured_media, null when no image was
// uploaded.
type CreatePostRequest struct {
	PostFields
	FeaturedMedia *int `json:"featured_media"`
}

// UpdatePostRequest omits featured_media unless a new image was uploaded, so
// the server keeps the existing one.
type UpdatePostRequest struct {
	PostFields
	FeaturedMedia *int `json:"featured_media,omitempty"`
}

// errorBody is the WordPress REST error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
