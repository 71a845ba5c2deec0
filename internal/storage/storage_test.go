package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := Open("")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	want := filepath.Join(home, ".local", "state", "quill", "store.toml")
	if s.Path() != want {
		t.Fatalf("Path = %q, want %q", s.Path(), want)
	}
	if _, ok := s.Get("jwt_token"); ok {
		t.Fatalf("expected empty store")
	}
}

func TestSet_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.toml")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := s.Set("jwt_token", "abc.def.ghi"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set("theme", "Slate"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set("jwt_token", "second"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if v, _ := reopened.Get("jwt_token"); v != "second" {
		t.Fatalf("jwt_token = %q, want second", v)
	}
	if v, _ := reopened.Get("theme"); v != "Slate" {
		t.Fatalf("theme = %q, want Slate", v)
	}
	if keys := reopened.Keys(); len(keys) != 2 || keys[0] != "jwt_token" {
		t.Fatalf("Keys = %v", keys)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}
}

func TestOpen_InvalidTOMLFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("Keys = %v, want none", s.Keys())
	}
	if err := s.Set("theme", "Nord"); err != nil {
		t.Fatalf("Set over corrupt file returned error: %v", err)
	}
}
