// Package wptest provides an in-process fake of the WordPress REST API
// endpoints quill talks to, for use in tests.
package wptest

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/five82/quill/internal/wp"
)

const (
	// Username and Password are the credentials the fake accepts.
	Username = "admin"
	Password = "secret"

	signingKey = "wptest-signing-key"
)

// Request is a recorded inbound request.
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	ContentType   string
	Body          []byte
	// Form holds multipart text fields; FileName and FileBytes the "file" part.
	Form      map[string]string
	FileName  string
	FileBytes []byte
}

// Server is a fake WordPress site. The zero value is not usable; call
// NewServer. Exported fields may be changed between requests while holding
// no lock only before the first request is issued; use the setters
// otherwise.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	requests   []Request
	posts      map[int]wp.Post
	categories []wp.Category
	media      map[int]wp.Media
	failures   map[string]int
	mediaDelay time.Duration
	nextID     int
	validToken string
}

// NewServer starts a fake site and registers cleanup on t.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		posts:    make(map[int]wp.Post),
		media:    make(map[int]wp.Media),
		failures: make(map[string]int),
		nextID:   1000,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /wp-json/jwt-auth/v1/token", s.handleToken)
	mux.HandleFunc("POST /wp-json/jwt-auth/v1/token/validate", s.handleValidate)
	mux.HandleFunc("GET /wp-json/wp/v2/posts", s.handleListPosts)
	mux.HandleFunc("POST /wp-json/wp/v2/posts", s.handleCreatePost)
	mux.HandleFunc("GET /wp-json/wp/v2/posts/{id}", s.handleGetPost)
	mux.HandleFunc("PUT /wp-json/wp/v2/posts/{id}", s.handleUpdatePost)
	mux.HandleFunc("DELETE /wp-json/wp/v2/posts/{id}", s.handleDeletePost)
	mux.HandleFunc("GET /wp-json/wp/v2/categories", s.handleCategories)
	mux.HandleFunc("GET /wp-json/wp/v2/media/{id}", s.handleGetMedia)
	mux.HandleFunc("POST /wp-json/wp/v2/media", s.handleUpload)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// APIBase returns the /wp-json root for wp.NewClient.
func (s *Server) APIBase() string {
	return s.URL + "/wp-json"
}

// AddPost seeds a post.
func (s *Server) AddPost(p wp.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = p
}

// AddCategory seeds a category.
func (s *Server) AddCategory(c wp.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

// AddMedia seeds a media record.
func (s *Server) AddMedia(m wp.Media) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[m.ID] = m
}

// Fail makes requests matching "METHOD /path" answer with status and a
// WordPress error body. Path is relative to /wp-json, for example
// "GET /wp/v2/media/7".
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = status
}

// DelayMedia slows every media lookup by d.
func (s *Server) DelayMedia(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaDelay = d
}

// Post returns the stored post.
func (s *Server) Post(id int) (wp.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	return p, ok
}

// Requests returns a copy of every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and a path prefix
// relative to /wp-json.
func (s *Server) Count(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, "/wp-json"+pathPrefix) {
			n++
		}
	}
	return n
}

// Last returns the most recent request matching method and path prefix.
func (s *Server) Last(method, pathPrefix string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && strings.HasPrefix(reqs[i].Path, "/wp-json"+pathPrefix) {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// MintToken returns a signed token carrying the given user id.
func MintToken(userID string, expires time.Time) string {
	claims := jwt.MapClaims{
		"iss": "http://wptest.local",
		"iat": time.Now().Unix(),
		"exp": expires.Unix(),
		"data": map[string]any{
			"user": map[string]any{"id": userID},
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(strings.NewReader(string(body)))

	rec := Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		Body:          body,
	}
	if mediaType, params, err := mime.ParseMediaType(rec.ContentType); err == nil && mediaType == "multipart/form-data" {
		rec.Form = make(map[string]string)
		reader := multipart.NewReader(strings.NewReader(string(body)), params["boundary"])
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			data, _ := io.ReadAll(part)
			if part.FormName() == "file" {
				rec.FileName = part.FileName()
				rec.FileBytes = data
				continue
			}
			rec.Form[part.FormName()] = string(data)
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()
}

func (s *Server) failure(r *http.Request) (int, bool) {
	route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/wp-json")
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.failures[route]
	return status, ok
}

func (s *Server) requireBearer(w http.ResponseWriter, r *http.Request) bool {
	if status, ok := s.failure(r); ok {
		writeError(w, status, "wptest_forced_failure", "forced failure")
		return false
	}
	auth := r.Header.Get("Authorization")
	s.mu.Lock()
	valid := s.validToken
	s.mu.Unlock()
	if !strings.HasPrefix(auth, "Bearer ") || valid == "" || strings.TrimPrefix(auth, "Bearer ") != valid {
		writeError(w, http.StatusForbidden, "jwt_auth_invalid_token", "Wrong number of segments")
		return false
	}
	return true
}

func (s *Server) requireBasic(w http.ResponseWriter, r *http.Request) bool {
	if status, ok := s.failure(r); ok {
		writeError(w, status, "wptest_forced_failure", "forced failure")
		return false
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != Username || pass != Password {
		writeError(w, http.StatusUnauthorized, "rest_not_logged_in", "You are not currently logged in.")
		return false
	}
	return true
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failure(r); ok {
		writeError(w, status, "wptest_forced_failure", "forced failure")
		return
	}
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "rest_invalid_json", "invalid body")
		return
	}
	if creds.Username != Username || creds.Password != Password {
		writeError(w, http.StatusForbidden, "[jwt_auth] incorrect_password", "The password you entered is incorrect.")
		return
	}
	token := MintToken("1", time.Now().Add(7*24*time.Hour))
	s.mu.Lock()
	s.validToken = token
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, wp.Token{
		Token:           token,
		UserEmail:       "admin@example.com",
		UserNicename:    "admin",
		UserDisplayName: "Admin",
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	var v wp.TokenValidation
	v.Code = "jwt_auth_valid_token"
	v.Data.Status = http.StatusOK
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	allowed := map[string]bool{}
	for _, st := range strings.Split(r.URL.Query().Get("status"), ",") {
		if st = strings.TrimSpace(st); st != "" {
			allowed[st] = true
		}
	}
	if len(allowed) == 0 {
		allowed[string(wp.StatusPublish)] = true
	}

	s.mu.Lock()
	posts := make([]wp.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if allowed[string(p.Status)] {
			posts = append(posts, p)
		}
	}
	s.mu.Unlock()

	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	p, ok := s.lookupPost(r)
	if !ok {
		writeError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type postBody struct {
	Title         *string    `json:"title"`
	Content       *string    `json:"content"`
	Categories    []int      `json:"categories"`
	Status        *wp.Status `json:"status"`
	FeaturedMedia *int       `json:"featured_media"`
}

func (b postBody) apply(p *wp.Post) {
	if b.Title != nil {
		p.Title = wp.RenderedField{Raw: *b.Title, Rendered: *b.Title}
	}
	if b.Content != nil {
		p.Content = wp.RenderedField{Raw: *b.Content, Rendered: *b.Content}
	}
	if b.Categories != nil {
		p.Categories = b.Categories
	}
	if b.Status != nil {
		p.Status = *b.Status
	}
	if b.FeaturedMedia != nil {
		p.FeaturedMedia = *b.FeaturedMedia
	}
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	var body postBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "rest_invalid_json", "invalid body")
		return
	}
	if body.Title == nil || strings.TrimSpace(*body.Title) == "" {
		writeError(w, http.StatusBadRequest, "empty_content", "Content, title, and excerpt are empty.")
		return
	}
	s.mu.Lock()
	s.nextID++
	p := wp.Post{ID: s.nextID, Date: time.Now().Format("2006-01-02T15:04:05"), Status: wp.StatusDraft}
	body.apply(&p)
	s.posts[p.ID] = p
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	p, ok := s.lookupPost(r)
	if !ok {
		writeError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	var body postBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "rest_invalid_json", "invalid body")
		return
	}
	body.apply(&p)
	s.mu.Lock()
	s.posts[p.ID] = p
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	p, ok := s.lookupPost(r)
	if !ok {
		writeError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	if r.URL.Query().Get("force") != "true" {
		p.Status = wp.StatusTrash
		s.mu.Lock()
		s.posts[p.ID] = p
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, p)
		return
	}
	s.mu.Lock()
	delete(s.posts, p.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "previous": p})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !s.requireBasic(w, r) {
		return
	}
	s.mu.Lock()
	cats := append([]wp.Category(nil), s.categories...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delay := s.mediaDelay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if !s.requireBasic(w, r) {
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	s.mu.Lock()
	m, ok := s.media[id]
	s.mu.Unlock()
	if err != nil || !ok {
		writeError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "rest_upload_no_data", "No data supplied.")
		return
	}
	_ = file.Close()

	s.mu.Lock()
	s.nextID++
	m := wp.Media{
		ID:        s.nextID,
		SourceURL: s.URL + "/wp-content/uploads/" + header.Filename,
	}
	s.media[m.ID] = m
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) lookupPost(r *http.Request) (wp.Post, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return wp.Post{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	return p, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":    code,
		"message": message,
		"data":    map[string]int{"status": status},
	})
}
