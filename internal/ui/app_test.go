package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/quill/internal/editor"
	"github.com/five82/quill/internal/listing"
	"github.com/five82/quill/internal/state"
	"github.com/five82/quill/internal/wp"
)

type fakeSync struct {
	mu        sync.Mutex
	deleteErr error
	deleted   []int
	refreshes int
}

func (f *fakeSync) Bootstrap(context.Context) error { return nil }

func (f *fakeSync) Refresh(context.Context) (state.ViewState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return state.ViewState{}, nil
}

func (f *fakeSync) DeletePost(_ context.Context, id int, confirm func(int) bool) error {
	if !confirm(id) {
		return listing.ErrCancelled
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeSync) deletedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.deleted...)
}

type fakeEditor struct {
	preload  editor.Preloaded
	forms    []editor.Form
	closes   int
	failWith error
	warn     error
}

func (f *fakeEditor) Preload(context.Context, int) (editor.Preloaded, error) {
	return f.preload, nil
}

func (f *fakeEditor) Submit(ctx context.Context, _ editor.Mode, _ int, form editor.Form, hooks editor.Hooks) (*wp.Post, error) {
	f.forms = append(f.forms, form)
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.warn != nil && hooks.Warn != nil {
		hooks.Warn(f.warn)
	}
	if hooks.Refresh != nil {
		_ = hooks.Refresh(ctx)
	}
	if hooks.Close != nil {
		f.closes++
		hooks.Close()
	}
	return &wp.Post{ID: 1001}, nil
}

type fakeCategories []wp.Category

func (f fakeCategories) List() []wp.Category { return f }

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, s Sync, ed PostEditor) Model {
	t.Helper()
	m := New(Options{
		Sync:       s,
		Editor:     ed,
		Categories: fakeCategories{{ID: 3, Name: "News"}, {ID: 5, Name: "Travel"}},
		Store:      &state.Store{},
	})
	m.applySnapshot(state.Snapshot{
		HasView: true,
		View: state.ViewState{
			Posts: []wp.Post{
				{ID: 7, Title: wp.RenderedField{Rendered: "Hello"}, Status: wp.StatusPublish},
				{ID: 4, Title: wp.RenderedField{Rendered: "Older"}, Status: wp.StatusDraft},
			},
		},
	})
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out, cmd
}

// runAsync runs cmd on its own goroutine, as Bubble Tea would.
func runAsync(cmd tea.Cmd) <-chan tea.Msg {
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	return out
}

func receive(t *testing.T, ch <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("command did not finish")
		return nil
	}
}

func TestDeleteConfirmed(t *testing.T) {
	fs := &fakeSync{}
	m := newTestModel(t, fs, nil)

	m, cmd := update(t, m, keyRunes("d"))
	if len(m.modals) != 1 {
		t.Fatalf("modals = %d, want 1", len(m.modals))
	}
	done := runAsync(cmd)

	m, _ = update(t, m, keyRunes("y"))
	msg := receive(t, done)

	m, cmd = update(t, m, msg)
	if len(m.modals) != 0 {
		t.Fatalf("modal still open after delete")
	}
	if got := fs.deletedIDs(); len(got) != 1 || got[0] != 7 {
		t.Fatalf("deleted = %v, want [7]", got)
	}
	if cmd == nil {
		t.Fatalf("expected a follow-up command after delete")
	}
	if _, ok := cmd().(viewChangedMsg); !ok {
		t.Fatalf("expected viewChangedMsg")
	}
}

func TestDeleteDeclinedSendsNothing(t *testing.T) {
	fs := &fakeSync{}
	m := newTestModel(t, fs, nil)

	m, cmd := update(t, m, keyRunes("d"))
	done := runAsync(cmd)

	m, _ = update(t, m, keyRunes("n"))
	if len(m.modals) != 0 {
		t.Fatalf("modal should close on decline")
	}

	msg := receive(t, done)
	dm, ok := msg.(deleteDoneMsg)
	if !ok || !errors.Is(dm.err, listing.ErrCancelled) {
		t.Fatalf("msg = %#v, want ErrCancelled", msg)
	}
	m, cmd = update(t, m, msg)
	if cmd != nil || len(m.modals) != 0 {
		t.Fatalf("cancelled result should be dropped")
	}
	if got := fs.deletedIDs(); len(got) != 0 {
		t.Fatalf("deleted = %v, want none", got)
	}
}

func TestDeleteFailureOpensAlert(t *testing.T) {
	fs := &fakeSync{deleteErr: &wp.RemoteError{Status: 500, Message: "Sorry, you are not allowed to delete this post."}}
	m := newTestModel(t, fs, nil)

	m, cmd := update(t, m, keyRunes("d"))
	done := runAsync(cmd)
	m, _ = update(t, m, keyRunes("y"))

	m, cmd = update(t, m, receive(t, done))
	if cmd == nil {
		t.Fatalf("expected alert command")
	}
	m, _ = update(t, m, cmd())

	if len(m.modals) != 1 {
		t.Fatalf("modals = %d, want alert only", len(m.modals))
	}
	alert, ok := m.modals[0].(alertModal)
	if !ok {
		t.Fatalf("top modal = %T, want alertModal", m.modals[0])
	}
	if alert.title != "Delete failed" || alert.text != "Sorry, you are not allowed to delete this post." {
		t.Fatalf("alert = %q / %q", alert.title, alert.text)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.modals) != 0 {
		t.Fatalf("alert should close on enter")
	}
}

func TestStaleResultsAreDropped(t *testing.T) {
	ed := &fakeEditor{preload: editor.Preloaded{Form: editor.Form{Title: "Loaded", CategoryID: 3, Status: wp.StatusDraft}}}
	m := newTestModel(t, &fakeSync{}, ed)

	m, cmd := update(t, m, keyRunes("e"))
	if len(m.modals) != 1 {
		t.Fatalf("editor not opened")
	}
	gen := m.modals[0].Gen()
	preload := cmd()

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.modals) != 0 {
		t.Fatalf("esc should close the editor")
	}

	m, cmd = update(t, m, preload)
	if cmd != nil || len(m.modals) != 0 {
		t.Fatalf("stale preload should be dropped")
	}
	m, cmd = update(t, m, submitDoneMsg{gen: gen, err: errors.New("late failure")})
	if cmd != nil || len(m.modals) != 0 {
		t.Fatalf("stale submit result should be dropped")
	}
}

func TestEditorPreloadFillsForm(t *testing.T) {
	ed := &fakeEditor{preload: editor.Preloaded{
		Form:     editor.Form{Title: "Loaded", CategoryID: 5, Content: "Body", Status: wp.StatusDraft},
		ImageURL: "http://example.test/a.png",
	}}
	m := newTestModel(t, &fakeSync{}, ed)

	m, cmd := update(t, m, keyRunes("e"))
	m, _ = update(t, m, cmd())

	em := m.modals[0].(editorModal)
	if em.loading {
		t.Fatalf("still loading after preload")
	}
	form := em.form()
	if form.Title != "Loaded" || form.CategoryID != 5 || form.Content != "Body" || form.Status != wp.StatusDraft {
		t.Fatalf("form = %#v", form)
	}
	if em.imageURL != "http://example.test/a.png" {
		t.Fatalf("imageURL = %q", em.imageURL)
	}
}

func TestEditorSubmitClosesOnSuccess(t *testing.T) {
	fs := &fakeSync{}
	ed := &fakeEditor{}
	m := newTestModel(t, fs, ed)

	m, _ = update(t, m, keyRunes("n"))
	m, _ = update(t, m, keyRunes("Hi"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatalf("expected submit command")
	}
	m, cmd = update(t, m, cmd())

	if len(m.modals) != 0 {
		t.Fatalf("editor should close after a successful save")
	}
	if len(ed.forms) != 1 {
		t.Fatalf("submits = %d, want 1", len(ed.forms))
	}
	if got := ed.forms[0]; got.Title != "Hi" || got.CategoryID != 3 || got.Status != wp.StatusPublish {
		t.Fatalf("form = %#v", got)
	}
	if ed.closes != 1 || fs.refreshes != 1 {
		t.Fatalf("closes = %d refreshes = %d, want 1 and 1", ed.closes, fs.refreshes)
	}
	if cmd == nil {
		t.Fatalf("expected snapshot refresh command")
	}
}

func TestEditorSkippedImageRaisesAlert(t *testing.T) {
	ed := &fakeEditor{warn: fmt.Errorf("%w (got %q)", wp.ErrUnsupportedImage, "image/gif")}
	m := newTestModel(t, &fakeSync{}, ed)

	m, _ = update(t, m, keyRunes("n"))
	m, _ = update(t, m, keyRunes("Hi"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, cmd = update(t, m, cmd())

	if len(m.modals) != 0 {
		t.Fatalf("editor should close once the post is saved")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("expected a batch of follow-up commands")
	}
	var alert *alertMsg
	for _, c := range batch {
		if a, ok := c().(alertMsg); ok {
			alert = &a
		}
	}
	if alert == nil {
		t.Fatalf("no alert for the skipped image")
	}
	m, _ = update(t, m, *alert)
	if len(m.modals) != 1 {
		t.Fatalf("modals = %d, want the alert", len(m.modals))
	}
	if _, ok := m.modals[0].(alertModal); !ok {
		t.Fatalf("top modal = %T, want alertModal", m.modals[0])
	}
}

func TestEditorSubmitFailureKeepsModalOpen(t *testing.T) {
	ed := &fakeEditor{failWith: wp.ErrAuthMissing}
	m := newTestModel(t, &fakeSync{}, ed)

	m, _ = update(t, m, keyRunes("n"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, cmd = update(t, m, cmd())

	if len(m.modals) != 1 {
		t.Fatalf("editor should stay open on failure")
	}
	if em := m.modals[0].(editorModal); em.submitting {
		t.Fatalf("submitting flag not cleared")
	}
	m, _ = update(t, m, cmd())
	if len(m.modals) != 2 {
		t.Fatalf("expected alert over the editor, got %d modals", len(m.modals))
	}
	if a := m.modals[1].(alertModal); a.text != wp.ErrAuthMissing.Error() {
		t.Fatalf("alert text = %q", a.text)
	}
}

func TestApplySnapshotKeepsSelection(t *testing.T) {
	m := newTestModel(t, &fakeSync{}, nil)
	m, _ = update(t, m, keyRunes("j"))
	if p, _ := m.selectedPost(); p.ID != 4 {
		t.Fatalf("selected = %d, want 4", p.ID)
	}

	m.applySnapshot(state.Snapshot{
		HasView: true,
		View: state.ViewState{Posts: []wp.Post{
			{ID: 9}, {ID: 7}, {ID: 4},
		}},
	})
	if p, _ := m.selectedPost(); p.ID != 4 {
		t.Fatalf("selected after refresh = %d, want 4", p.ID)
	}

	m.applySnapshot(state.Snapshot{HasView: true, View: state.ViewState{Posts: []wp.Post{{ID: 9}}}})
	if m.selectedRow != 0 {
		t.Fatalf("selectedRow = %d, want clamped to 0", m.selectedRow)
	}
}
