package ragapi

import (
	"bytes"
	"encoding/json"
)

// QueryRequest is the body of the chunk and summary query endpoints.
type QueryRequest struct {
	QueryText string `json:"query_text"`
	NResults  int    `json:"n_results"`
}

// ChatTurn is one prior exchange forwarded to the chat endpoint.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of the chunk chat endpoint.
type ChatRequest struct {
	QueryText string     `json:"query_text"`
	NResults  int        `json:"n_results"`
	History   []ChatTurn `json:"history,omitempty"`
}

// Record is one ranked retrieval hit. Text, Score and Metadata are decoded for display;
// Raw keeps the object exactly as the service sent it.
type Record struct {
	Text     string          `json:"text"`
	Score    float64         `json:"score"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and retains the raw payload.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Record(decoded)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the raw payload back when one was captured.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain Record
	return json.Marshal(plain(r))
}

// Clone returns a copy that shares no maps or slices with r.
func (r Record) Clone() Record {
	if r.Metadata != nil {
		r.Metadata = cloneValue(r.Metadata).(map[string]any)
	}
	if r.Raw != nil {
		r.Raw = append(json.RawMessage(nil), r.Raw...)
	}
	return r
}

// CloneRecords copies records with Clone. A nil or empty input yields nil.
func CloneRecords(records []Record) []Record {
	if len(records) == 0 {
		return nil
	}
	out := make([]Record, len(records))
	for i, record := range records {
		out[i] = record.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[key] = cloneValue(value)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, value := range typed {
			out[i] = cloneValue(value)
		}
		return out
	default:
		return v
	}
}

// Source returns a human-readable locator from the record metadata, if any.
func (r Record) Source() string {
	for _, key := range []string{"source", "file_name", "filename", "page"} {
		if v, ok := r.Metadata[key]; ok && v != nil {
			if s, ok := v.(string); ok {
				if s != "" {
					return s
				}
				continue
			}
			raw, err := json.Marshal(v)
			if err == nil {
				return key + " " + string(raw)
			}
		}
	}
	return ""
}

// QueryChunksResponse is returned by POST /query_chunks/{file_id}.
type QueryChunksResponse struct {
	Results []Record `json:"results"`
}

// ChatResponse is returned by POST /query_chunks/{file_id}/chat.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Results []Record `json:"results"`
}

// SummaryHit is one document-level match from POST /query_summaries.
type SummaryHit struct {
	FileID   string  `json:"file_id"`
	FileName string  `json:"file_name"`
	Summary  string  `json:"summary"`
	Score    float64 `json:"score"`
}

// QuerySummariesResponse is returned by POST /query_summaries.
type QuerySummariesResponse struct {
	Results []SummaryHit `json:"results"`
}

// Document describes one indexed document as listed by GET /list_summaries.
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Summary  string `json:"summary"`
}

// Label is the name shown to users, falling back to the identifier.
func (d Document) Label() string {
	if d.FileName != "" {
		return d.FileName
	}
	return d.FileID
}

// DeleteResponse is the confirmation returned by DELETE /delete_index/{file_id}.
type DeleteResponse struct {
	Message string          `json:"message"`
	Raw     json.RawMessage `json:"-"`
}

func decodeDocuments(body []byte) ([]Document, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var wrapped struct {
		Summaries []Document `json:"summaries"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Summaries, nil
}
