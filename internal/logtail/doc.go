// Package logtail reads the tail of quill's own log file for the in-app log
// view.
//
// Read uses a ring buffer so only the last maxLines are held regardless of
// file size. Parse splits a line written by slog's text handler into its
// time, level, message, and attributes so the UI can color and filter it.
// Anything else (a panic trace, say) is passed through as Raw.
package logtail
