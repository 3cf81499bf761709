package tuitest

import (
	"bytes"
	"io"
)

// terminalReplies answers the capability queries Bubble Tea and termenv send on startup;
// a PTY without a real terminal behind it would otherwise leave them hanging.
var terminalReplies = []struct {
	query []byte
	reply []byte
}{
	{[]byte("\x1b[6n"), []byte("\x1b[1;1R")},
	{[]byte("\x1b]10;?\x07"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
	{[]byte("\x1b]10;?\x1b\\"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
	{[]byte("\x1b]11;?\x07"), []byte("\x1b]11;rgb:0000/0000/0000\x07")},
	{[]byte("\x1b]11;?\x1b\\"), []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
}

type responder struct {
	w    io.Writer
	tail []byte
}

func newResponder(w io.Writer) *responder {
	return &responder{w: w, tail: make([]byte, 0, 128)}
}

// Process scans a chunk of program output for queries, including ones split across reads.
func (r *responder) Process(chunk []byte) {
	r.tail = append(r.tail, chunk...)
	for r.answerOne() {
	}
	if len(r.tail) > 256 {
		r.tail = r.tail[len(r.tail)-64:]
	}
}

func (r *responder) answerOne() bool {
	for _, entry := range terminalReplies {
		idx := bytes.Index(r.tail, entry.query)
		if idx < 0 {
			continue
		}
		r.tail = r.tail[idx+len(entry.query):]
		_, _ = r.w.Write(entry.reply)
		return true
	}
	return false
}
