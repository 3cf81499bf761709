package tui

import (
	"github.com/csheth/docchat/internal/conversation"
	"github.com/csheth/docchat/internal/ragapi"
)

type stage int

const (
	stageChat stage = iota
	stagePicker
)

const heroTagline = "Ask questions of an indexed document."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	summaryPreviewLimit       = 90
	recordPreviewLimit        = 600
)

const (
	composerPlaceholder        = "Ask about the selected document…"
	composerNoScopePlaceholder = "Press Ctrl+O to pick a document…"
)

// queryResultMsg carries the outcome of one controller request back to Update.
type queryResultMsg struct {
	outcome conversation.Outcome
}

type documentsResultMsg struct {
	documents []ragapi.Document
	err       error
}

type deleteResultMsg struct {
	fileID  string
	message string
	err     error
}
