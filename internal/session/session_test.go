package session

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/five82/quill/internal/storage"
)

type memKV struct {
	values map[string]string
	err    error
}

func (m *memKV) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *memKV) Set(key, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return m.err
}

func TestSession_TokenSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.toml")

	kv, err := storage.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	s := New(kv)
	if s.Token() != "" {
		t.Fatalf("fresh session token = %q, want empty", s.Token())
	}
	if err := s.SetToken("first"); err != nil {
		t.Fatalf("SetToken returned error: %v", err)
	}
	if err := s.SetToken("second"); err != nil {
		t.Fatalf("SetToken returned error: %v", err)
	}

	kv2, err := storage.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if got := New(kv2).Token(); got != "second" {
		t.Fatalf("restored token = %q, want second", got)
	}
}

func TestSession_SetTokenKeepsMemoryOnPersistFailure(t *testing.T) {
	kv := &memKV{err: errors.New("disk full")}
	s := New(kv)
	if err := s.SetToken("tok"); err == nil {
		t.Fatalf("expected persist error")
	}
	if s.Token() != "tok" {
		t.Fatalf("token = %q, want tok", s.Token())
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetToken("t")
		}()
		go func() {
			defer wg.Done()
			_ = s.Token()
		}()
	}
	wg.Wait()
	if s.Token() != "t" {
		t.Fatalf("token = %q", s.Token())
	}
}

func TestParseClaims_WordPressPayload(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  "http://localhost/wp",
		"iat":  time.Now().Unix(),
		"exp":  exp.Unix(),
		"data": map[string]any{"user": map[string]any{"id": "1"}},
	}).SignedString([]byte("any-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s := New(&memKV{values: map[string]string{TokenKey: tok}})
	c, ok := s.Claims()
	if !ok {
		t.Fatalf("Claims not decoded")
	}
	if c.UserID != "1" || c.Issuer != "http://localhost/wp" {
		t.Fatalf("claims = %#v", c)
	}
	if !c.ExpiresAt.Equal(exp) {
		t.Fatalf("ExpiresAt = %v, want %v", c.ExpiresAt, exp)
	}
	if c.Expired(time.Now()) {
		t.Fatalf("fresh token reported expired")
	}
	if !c.Expired(exp.Add(time.Minute)) {
		t.Fatalf("token not expired after exp")
	}
}

func TestParseClaims_Garbage(t *testing.T) {
	if _, ok := ParseClaims("not-a-jwt"); ok {
		t.Fatalf("expected garbage token to fail")
	}
	if _, ok := New(nil).Claims(); ok {
		t.Fatalf("expected empty session to have no claims")
	}
}
