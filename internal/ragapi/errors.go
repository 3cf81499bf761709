package ragapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ServiceError is returned when the retrieval service answers with a non-2xx status.
// Detail is the human-readable message surfaced to users.
type ServiceError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	return e.Detail
}

// TransportError is returned when a call cannot complete: the request failed, the context
// ended, or the response body could not be decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// parseDetail extracts the detail message from an error body. FastAPI sends a string for
// HTTPException and a list of objects for validation failures.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}
	if bytes.Equal(bytes.TrimSpace(payload.Detail), []byte("null")) {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload.Detail); err != nil {
		return string(payload.Detail)
	}
	return compact.String()
}
