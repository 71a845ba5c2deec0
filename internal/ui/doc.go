// Package ui renders quill's terminal interface using Bubble Tea.
//
// The root Model shows one of two views, the post list or the activity log,
// under a header and a command bar. The post list is a table of posts with a
// detail pane for the selected one. Dialogs (the post editor, delete
// confirmation, and error alerts) sit on a modal stack and only the top
// modal receives keys.
//
// Network work never runs in Update. Opening a modal creates a context and a
// generation number; the modal's commands carry that generation back in
// their result messages. A result whose modal has since closed finds no
// match on the stack and is dropped, and closing a modal cancels its
// context so the request itself stops too.
//
// The root model never talks to WordPress directly. It drives the listing
// synchronizer and the editor through small interfaces, and reads the
// published view from the shared state.Store on every tick.
package ui
