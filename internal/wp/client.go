package wp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// API is the part of the WordPress REST API quill uses.
// It is implemented by *Client; consumers declare narrower interfaces.
type API interface {
	IssueToken(ctx context.Context, username, password string) (*Token, error)
	ValidateToken(ctx context.Context) (*TokenValidation, error)
	ListPosts(ctx context.Context, statuses ...Status) ([]Post, error)
	GetPost(ctx context.Context, id int) (*Post, error)
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)
	UpdatePost(ctx context.Context, id int, req UpdatePostRequest) (*Post, error)
	DeletePost(ctx context.Context, id int, force bool) error
	ListCategories(ctx context.Context) ([]Category, error)
	GetMedia(ctx context.Context, id int) (*Media, error)
	UploadMedia(ctx context.Context, upload Upload) (*Media, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// TokenSource supplies the current bearer token. An empty token means the
// session has not authenticated yet.
type TokenSource interface {
	Token() string
}

type authMode int

const (
	authNone authMode = iota
	authBearer
	authBasic
)

const (
	defaultUserAgent = "quill/0.1"
	tracerName       = "github.com/five82/quill/internal/wp"

	// FeaturedImageAltText is sent with every featured image upload.
	FeaturedImageAltText = "Featured Image of Post"
)

// Client talks to the WordPress REST API rooted at the site's /wp-json.
// It never retries and sets no timeout of its own; callers bound requests
// through their context.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	tokens    TokenSource
	basicAuth string
	tracer    trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBasicAuth sets the credentials used by calls that authenticate with
// HTTP basic auth (categories and media lookups).
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		if username == "" && password == "" {
			c.basicAuth = ""
			return
		}
		raw := username + ":" + password
		c.basicAuth = "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	}
}

// WithTracer overrides the tracer used for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for the API root (for example
// http://localhost/wp/wp_plugins/wp-json). tokens may be nil, in which case
// every bearer call fails with ErrAuthMissing.
func NewClient(apiBase string, tokens TokenSource, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		tokens:    tokens,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IssueToken exchanges credentials for a JWT at /jwt-auth/v1/token.
func (c *Client) IssueToken(ctx context.Context, username, password string) (*Token, error) {
	body := map[string]string{"username": username, "password": password}
	var payload Token
	if err := c.doJSON(ctx, http.MethodPost, "/jwt-auth/v1/token", nil, authNone, body, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.Token) == "" {
		return nil, fmt.Errorf("token exchange returned an empty token")
	}
	return &payload, nil
}

// ValidateToken asks the JWT plugin whether the stored token is valid.
func (c *Client) ValidateToken(ctx context.Context) (*TokenValidation, error) {
	var payload TokenValidation
	if err := c.doJSON(ctx, http.MethodPost, "/jwt-auth/v1/token/validate", nil, authBearer, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ListPosts fetches the first page of posts in the given statuses.
func (c *Client) ListPosts(ctx context.Context, statuses ...Status) ([]Post, error) {
	values := url.Values{}
	if len(statuses) > 0 {
		parts := make([]string, 0, len(statuses))
		for _, s := range statuses {
			parts = append(parts, string(s))
		}
		values.Set("status", strings.Join(parts, ","))
	}
	var payload []Post
	if err := c.doJSON(ctx, http.MethodGet, "/wp/v2/posts", values, authBearer, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetPost fetches a single post in edit context so raw fields are present.
func (c *Client) GetPost(ctx context.Context, id int) (*Post, error) {
	if id <= 0 {
		return nil, fmt.Errorf("post id required")
	}
	values := url.Values{}
	values.Set("context", "edit")
	var payload Post
	if err := c.doJSON(ctx, http.MethodGet, postPath(id), values, authBearer, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CreatePost creates a post.
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	var payload Post
	if err := c.doJSON(ctx, http.MethodPost, "/wp/v2/posts", nil, authBearer, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// UpdatePost replaces the given fields of an existing post.
func (c *Client) UpdatePost(ctx context.Context, id int, req UpdatePostRequest) (*Post, error) {
	if id <= 0 {
		return nil, fmt.Errorf("post id required")
	}
	var payload Post
	if err := c.doJSON(ctx, http.MethodPut, postPath(id), nil, authBearer, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DeletePost deletes a post. With force the post bypasses the trash.
func (c *Client) DeletePost(ctx context.Context, id int, force bool) error {
	if id <= 0 {
		return fmt.Errorf("post id required")
	}
	values := url.Values{}
	if force {
		values.Set("force", "true")
	}
	return c.doJSON(ctx, http.MethodDelete, postPath(id), values, authBearer, nil, nil)
}

// ListCategories fetches the first page of categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var payload []Category
	if err := c.doJSON(ctx, http.MethodGet, "/wp/v2/categories", nil, authBasic, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetMedia fetches a media record.
func (c *Client) GetMedia(ctx context.Context, id int) (*Media, error) {
	if id <= 0 {
		return nil, fmt.Errorf("media id required")
	}
	var payload Media
	path := "/wp/v2/media/" + strconv.Itoa(id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, authBasic, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Upload describes a file sent to /wp/v2/media.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	AltText     string
}

// UploadMedia uploads a JPEG or PNG image as multipart form data. Any other
// content type is rejected before a request is made.
func (c *Client) UploadMedia(ctx context.Context, upload Upload) (*Media, error) {
	if err := CheckImageType(upload.ContentType); err != nil {
		return nil, err
	}
	if upload.Body == nil {
		return nil, fmt.Errorf("upload body required")
	}
	filename := strings.TrimSpace(upload.Filename)
	if filename == "" {
		filename = "featured-image"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, upload.Body); err != nil {
		return nil, fmt.Errorf("copy file data: %w", err)
	}
	if alt := strings.TrimSpace(upload.AltText); alt != "" {
		if err := writer.WriteField("alt_text", alt); err != nil {
			return nil, fmt.Errorf("write alt_text: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	var payload Media
	req := request{
		method:      http.MethodPost,
		path:        "/wp/v2/media",
		auth:        authBearer,
		body:        &buf,
		contentType: writer.FormDataContentType(),
	}
	if err := c.do(ctx, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	auth        authMode
	body        io.Reader
	contentType string
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, auth authMode, body, dest any) error {
	req := request{method: method, path: path, query: query, auth: auth}
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		req.body = bytes.NewReader(encoded)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, dest)
}

func (c *Client) do(ctx context.Context, r request, dest any) (err error) {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	ctx, span := c.tracer.Start(ctx, "wp "+r.method+" "+r.path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.method),
			attribute.String("url.path", r.path),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	authHeader, err := c.authorization(r.auth)
	if err != nil {
		return err
	}

	reqURL := c.resolve(r.path, r.query)
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL.String(), r.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Method: r.method, Path: r.path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeRemoteError(r, resp)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorization(mode authMode) (string, error) {
	switch mode {
	case authBearer:
		if c.tokens == nil {
			return "", ErrAuthMissing
		}
		token := strings.TrimSpace(c.tokens.Token())
		if token == "" {
			return "", ErrAuthMissing
		}
		return "Bearer " + token, nil
	case authBasic:
		return c.basicAuth, nil
	default:
		return "", nil
	}
}

func (c *Client) resolve(path string, query url.Values) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

func decodeRemoteError(r request, resp *http.Response) error {
	remote := &RemoteError{Method: r.method, Path: r.path, Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(raw) == 0 {
		return remote
	}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		remote.Code = body.Code
		remote.Message = body.Message
	}
	return remote
}

func postPath(id int) string {
	return "/wp/v2/posts/" + strconv.Itoa(id)
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		return nil, fmt.Errorf("api base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base %q: %w", apiBase, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api base %q: missing host", apiBase)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
