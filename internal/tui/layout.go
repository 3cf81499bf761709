package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/docchat/internal/conversation"
)

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	composerWidth  int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 20,
		composerWidth:  70,
	}
}

// Update sizes the transcript viewport to whatever the hero, composer and status lines
// leave over.
func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	l.composerWidth = innerWidth - 4
	const chrome = 15
	l.viewportHeight = height - chrome
	if l.viewportHeight < 5 {
		l.viewportHeight = 5
	}
}

func (m *model) buildTranscriptContent(state conversation.State) string {
	cb := &strings.Builder{}
	if len(state.Entries) == 0 {
		if state.Scope == "" {
			cb.WriteString(helperStyle.Render("No document selected. Press Ctrl+O to pick one."))
		} else {
			cb.WriteString(helperStyle.Render("Ask a question below to search " + state.Scope + "."))
		}
		cb.WriteRune('\n')
		return cb.String()
	}
	wrap := m.wrapWidth(4)
	for idx, entry := range state.Entries {
		if idx > 0 {
			cb.WriteRune('\n')
		}
		switch entry.Kind {
		case conversation.KindMessage:
			writeMessage(cb, entry, wrap)
		case conversation.KindResultSet:
			writeResultSet(cb, entry, wrap)
		}
	}
	return cb.String()
}

func writeMessage(cb *strings.Builder, entry conversation.Entry, wrap int) {
	switch entry.Origin {
	case conversation.OriginUser:
		cb.WriteString(userLabelStyle.Render("You"))
		cb.WriteRune('\n')
		cb.WriteString(indentMultiline(wrapText(entry.Text, wrap), "  "))
	default:
		cb.WriteString(assistantLabelStyle.Render("Assistant"))
		cb.WriteRune('\n')
		cb.WriteString(assistantStyle.Render(indentMultiline(wrapText(entry.Text, wrap), "  ")))
	}
	cb.WriteRune('\n')
}

func writeResultSet(cb *strings.Builder, entry conversation.Entry, wrap int) {
	cb.WriteString(assistantLabelStyle.Render("Results"))
	cb.WriteRune('\n')
	if len(entry.Records) == 0 {
		cb.WriteString(helperStyle.Render("  No matching passages."))
		cb.WriteRune('\n')
		return
	}
	for idx, record := range entry.Records {
		header := fmt.Sprintf("  %d. score %.2f", idx+1, record.Score)
		if source := record.Source(); source != "" {
			header += " · " + source
		}
		cb.WriteString(recordHeaderStyle.Render(header))
		cb.WriteRune('\n')
		body := previewText(record.Text, recordPreviewLimit)
		if body == "" {
			body = "(no text)"
		}
		cb.WriteString(indentMultiline(wrapText(body, wrap-2), "     "))
		cb.WriteRune('\n')
	}
}

func wrapText(text string, width int) string {
	if width < 10 {
		width = 10
	}
	return wordwrap.String(text, width)
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
