package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/csheth/docchat/internal/tuitest"
)

type recordedQuery struct {
	path string
	text string
}

type retrievalStub struct {
	mu      sync.Mutex
	queries []recordedQuery
}

func (s *retrievalStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/list_summaries", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"file_id":"doc-42","file_name":"handbook.pdf","summary":"Company policies"}]`))
	})
	mux.HandleFunc("/query_chunks/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			QueryText string `json:"query_text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.queries = append(s.queries, recordedQuery{path: r.URL.Path, text: body.QueryText})
		s.mu.Unlock()
		if r.URL.Path != "/query_chunks/doc-42" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Index not found for file doc-404"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"text":"Refunds within 30 days...","score":0.91,"metadata":{"page":4}}]}`))
	})
	return mux
}

func (s *retrievalStub) recorded() []recordedQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedQuery(nil), s.queries...)
}

func TestPickDocumentAndAsk(t *testing.T) {
	t.Parallel()

	stub := &retrievalStub{}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	binary := buildBinary(t, moduleDir(t))
	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "--no-alt-screen", "--api-url", server.URL, "--log-file", filepath.Join(t.TempDir(), "docchat.log")},
		Env:     []string{"DOCCHAT_CONFIG="},
		Width:   100,
		Height:  32,
		Steps: []tuitest.Step{
			{WaitFor: "handbook.pdf (doc-42)", Input: tuitest.KeyEnter},
			{WaitFor: "Chatting with handbook.pdf.", Input: []byte("What is the refund policy?")},
			{Delay: 200 * time.Millisecond, Input: tuitest.KeyEnter},
			{WaitFor: "Refunds within 30 days...", Input: tuitest.KeyCtrlC},
		},
		Timeout:        15 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run CLI: %v", err)
	}

	for _, want := range []string{"score 0.91 · page 4", "1 passage found."} {
		if !rec.Contains(want) {
			t.Fatalf("output missing %q:\n%s", want, rec.PlainText())
		}
	}
	queries := stub.recorded()
	if len(queries) != 1 || queries[0].path != "/query_chunks/doc-42" || queries[0].text != "What is the refund policy?" {
		t.Fatalf("unexpected queries %#v", queries)
	}
}

func TestServiceErrorBecomesAssistantReply(t *testing.T) {
	t.Parallel()

	stub := &retrievalStub{}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	binary := buildBinary(t, moduleDir(t))
	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "--no-alt-screen", "--api-url", server.URL, "--log-file=", "doc-404"},
		Env:     []string{"DOCCHAT_CONFIG="},
		Width:   100,
		Height:  32,
		Steps: []tuitest.Step{
			{WaitFor: "Composer", Input: []byte("anything")},
			{Delay: 200 * time.Millisecond, Input: tuitest.KeyEnter},
			{WaitFor: "Sorry, there was an error: Index not found for file doc-404", Input: tuitest.KeyCtrlC},
		},
		Timeout:        15 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run CLI: %v", err)
	}
	if !rec.Contains("Error: Index not found for file doc-404") {
		t.Fatalf("error line missing:\n%s", rec.PlainText())
	}
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

var (
	buildOnce sync.Once
	buildPath string
	buildErr  error
	buildOut  []byte
)

// buildBinary compiles the CLI once per test run.
func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "docchat-bin-")
		if err != nil {
			buildErr = err
			return
		}
		name := "docchat-integration"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		buildPath = filepath.Join(dir, name)
		cmd := exec.Command("go", "build", "-o", buildPath, ".")
		cmd.Dir = cmdDir
		buildOut, buildErr = cmd.CombinedOutput()
	})
	if buildErr != nil {
		t.Fatalf("build CLI: %v\n%s", buildErr, strings.TrimSpace(string(buildOut)))
	}
	return buildPath
}
