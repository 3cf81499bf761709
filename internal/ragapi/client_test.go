package ragapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{BaseURL: server.URL + "/", HTTPClient: server.Client()})
}

func TestQuerySendsBodyAndDecodesRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/query_chunks/doc-42", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "What is the refund policy?", payload["query_text"])
		assert.EqualValues(t, 3, payload["n_results"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"text":"Refunds within 30 days...","score":0.91,"metadata":{"page":4},"chunk_id":"c-7"}]}`))
	})

	records, err := client.Query(context.Background(), "doc-42", "What is the refund policy?", 3)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Refunds within 30 days...", records[0].Text)
	assert.InDelta(t, 0.91, records[0].Score, 1e-9)
	assert.Equal(t, "page 4", records[0].Source())
	assert.Contains(t, string(records[0].Raw), `"chunk_id":"c-7"`)
}

func TestQueryEscapesFileID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query_chunks/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	records, err := client.Query(context.Background(), "a/b", "q", 1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestServiceErrorDetail(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "string detail", status: http.StatusNotFound, body: `{"detail":"Index not found for file doc-9"}`, want: "Index not found for file doc-9"},
		{name: "validation detail", status: http.StatusUnprocessableEntity, body: `{"detail": [ {"loc": ["body","query_text"], "msg": "field required"} ]}`, want: `[{"loc":["body","query_text"],"msg":"field required"}]`},
		{name: "no detail", status: http.StatusInternalServerError, body: `{}`, want: "Failed to query chunks"},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, want: "Failed to query chunks"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Query(context.Background(), "doc-9", "anything", 3)
			require.Error(t, err)
			var svcErr *ServiceError
			require.True(t, errors.As(err, &svcErr), "expected ServiceError, got %T", err)
			assert.Equal(t, tc.status, svcErr.StatusCode)
			assert.Equal(t, tc.want, svcErr.Detail)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestMalformedSuccessBodyIsTransportError(t *testing.T) {
	cases := map[string]string{
		"truncated":    `{"results":[`,
		"empty":        "",
		"blank":        "  \n",
		"null":         "null",
		"no results":   `{"answer":"x"}`,
		"null results": `{"results":null}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			records, err := client.Query(context.Background(), "doc-1", "q", 3)
			assert.Nil(t, records)
			var transportErr *TransportError
			require.True(t, errors.As(err, &transportErr), "expected TransportError, got %T", err)
			assert.Equal(t, "query chunks", transportErr.Op)
		})
	}
}

func TestEmptyResultsArrayIsSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	records, err := client.Query(context.Background(), "doc-1", "q", 3)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteIndexAcceptsEmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp, err := client.DeleteIndex(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Empty(t, resp.Message)
}

func TestUnreachableServiceIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client := New(Config{BaseURL: base})
	_, err := client.Query(context.Background(), "doc-1", "q", 3)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "expected TransportError, got %T", err)
}

func TestContextDeadlineIsTransportError(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Query(ctx, "doc-1", "q", 3)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "expected TransportError, got %T", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListSummariesCachesAndDeleteInvalidates(t *testing.T) {
	var listHits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/list_summaries":
			listHits.Add(1)
			_, _ = w.Write([]byte(`[{"file_id":"doc-42","file_name":"handbook.pdf","summary":"Company policies"},{"file_id":"doc-7"}]`))
		case r.Method == http.MethodDelete && r.URL.Path == "/delete_index/doc-7":
			_, _ = w.Write([]byte(`{"message":"Index doc-7 deleted"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})
	ctx := context.Background()

	docs, err := client.ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "handbook.pdf", docs[0].Label())
	assert.Equal(t, "doc-7", docs[1].Label())

	_, err = client.ListSummaries(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, listHits.Load())

	resp, err := client.DeleteIndex(ctx, "doc-7")
	require.NoError(t, err)
	assert.Equal(t, "Index doc-7 deleted", resp.Message)

	_, err = client.ListSummaries(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, listHits.Load())
}

func TestInvalidateSummariesForcesRefetch(t *testing.T) {
	var listHits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		listHits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	})
	ctx := context.Background()

	_, err := client.ListSummaries(ctx)
	require.NoError(t, err)
	client.InvalidateSummaries()
	_, err = client.ListSummaries(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, listHits.Load())
}

func TestListSummariesAcceptsWrappedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"summaries":[{"file_id":"doc-1","file_name":"a.pdf"}]}`))
	})

	docs, err := client.ListSummaries(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].FileID)
}

func TestDeleteIndexFailureUsesFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.DeleteIndex(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Equal(t, "Failed to delete index", err.Error())
}

func TestQuerySummariesAndChat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/query_summaries":
			_, _ = w.Write([]byte(`{"results":[{"file_id":"doc-42","file_name":"handbook.pdf","summary":"Policies","score":0.8}]}`))
		case "/query_chunks/doc-42/chat":
			var payload ChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "refunds?", payload.QueryText)
			_, _ = w.Write([]byte(`{"answer":"Within 30 days.","results":[{"text":"Refunds within 30 days...","score":0.91}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	hits, err := client.QuerySummaries(ctx, QueryRequest{QueryText: "policies", NResults: 3})
	require.NoError(t, err)
	require.Len(t, hits.Results, 1)
	assert.Equal(t, "doc-42", hits.Results[0].FileID)

	chat, err := client.QueryChunksChat(ctx, "doc-42", ChatRequest{QueryText: "refunds?", NResults: 3})
	require.NoError(t, err)
	assert.Equal(t, "Within 30 days.", chat.Answer)
	require.Len(t, chat.Results, 1)
}

func TestPickHTTPClientHonorsCustomClient(t *testing.T) {
	custom := &http.Client{Timeout: 42 * time.Second}
	assert.Same(t, custom, pickHTTPClient(custom))
	assert.Equal(t, defaultHTTPTimeout, pickHTTPClient(nil).Timeout)
}

func TestRecordCloneIsDeep(t *testing.T) {
	original := Record{
		Text:     "a",
		Metadata: map[string]any{"page": 4.0, "nested": map[string]any{"section": "2"}},
		Raw:      json.RawMessage(`{"text":"a"}`),
	}

	copied := original.Clone()
	copied.Metadata["page"] = 9.0
	copied.Metadata["nested"].(map[string]any)["section"] = "9"
	copied.Raw[0] = 'X'

	assert.Equal(t, 4.0, original.Metadata["page"])
	assert.Equal(t, "2", original.Metadata["nested"].(map[string]any)["section"])
	assert.Equal(t, `{"text":"a"}`, string(original.Raw))
	assert.Nil(t, CloneRecords(nil))
	assert.Nil(t, CloneRecords([]Record{}))
}
