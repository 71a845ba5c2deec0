package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutDateWidth is the minimum table width that shows the date column.
	LayoutDateWidth = 70

	// LayoutExtraWideWidth is the threshold for extra-wide layouts.
	LayoutExtraWideWidth = 160
)

// Modal widths.
const (
	helpModalWidth    = 44
	alertModalWidth   = 56
	confirmModalWidth = 52
	editorModalWidth  = 76
)

// Log display limits.
const (
	// LogTailLines is how many lines of the log file are read per refresh.
	LogTailLines = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second
)
