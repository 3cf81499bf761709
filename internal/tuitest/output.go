package tuitest

import (
	"regexp"
	"strings"
)

var (
	csiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscPattern = regexp.MustCompile(`\x1b\][^\x07]*(\x07|\x1b\\)`)
)

// PlainText returns the whole stream with escape sequences removed. The renderer only
// repaints changed lines, so text drawn once stays searchable here.
func (r *Recording) PlainText() string {
	if r == nil {
		return ""
	}
	return plain(r.Raw)
}

// Contains reports whether text was drawn at any point during the run.
func (r *Recording) Contains(text string) bool {
	return strings.Contains(r.PlainText(), text)
}

func plain(raw []byte) string {
	return normalizeLines(stripANSI(strings.ReplaceAll(string(raw), "\r", "")))
}

func stripANSI(s string) string {
	s = oscPattern.ReplaceAllString(s, "")
	s = csiPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\x0f", "")
	s = strings.ReplaceAll(s, "\x0e", "")
	return s
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
