// Package conversation owns the transcript of one document chat and the
// submit → pending → resolve cycle that grows it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/csheth/docchat/internal/ragapi"
)

const (
	// DefaultResultLimit bounds how many records a query asks for when Options leaves it unset.
	DefaultResultLimit = 3

	MissingScopeMessage = "Missing file ID. Cannot query chunks."
	UnknownErrorMessage = "An unknown error occurred"

	errorReplyPrefix = "Sorry, there was an error: "
	resultIDPrefix   = "result-"
)

// Gateway runs one retrieval query scoped to a document.
type Gateway interface {
	Query(ctx context.Context, scopeID, queryText string, limit int) ([]ragapi.Record, error)
}

// ValidationError reports a problem detected before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Options configures a Controller.
type Options struct {
	Scope       string
	Gateway     Gateway
	ResultLimit int
	// Timeout bounds each gateway call. Zero means no deadline.
	Timeout time.Duration
	Logger  *zap.Logger
	Clock   func() time.Time
}

// State is a consistent read of everything a view renders.
type State struct {
	Scope     string
	Entries   []Entry
	Busy      bool
	LastError string
	Input     string
}

// Controller holds the transcript, input buffer, busy flag and last error of a single
// conversation. Begin and Resolve are expected to be called from one event loop; the
// gateway call in Request.Run may happen anywhere.
type Controller struct {
	id      string
	gateway Gateway
	limit   int
	timeout time.Duration
	clock   func() time.Time
	logger  *zap.Logger
	ids     idSource

	root context.Context
	stop context.CancelFunc

	mu         sync.RWMutex
	closed     bool
	scope      string
	transcript []Entry
	input      string
	lastErr    string
	inFlight   map[*Request]struct{}
}

// New returns an empty conversation bound to opts.Scope.
func New(opts Options) *Controller {
	limit := opts.ResultLimit
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	root, stop := context.WithCancel(context.Background())
	return &Controller{
		id:       id,
		gateway:  opts.Gateway,
		limit:    limit,
		timeout:  opts.Timeout,
		clock:    clock,
		logger:   logger.Named("conversation").With(zap.String("session", id)),
		root:     root,
		stop:     stop,
		scope:    strings.TrimSpace(opts.Scope),
		inFlight: map[*Request]struct{}{},
	}
}

// ID identifies this conversation instance in logs.
func (c *Controller) ID() string {
	return c.id
}

// ResultLimit is the n_results bound sent with every query.
func (c *Controller) ResultLimit() int {
	return c.limit
}

// Request is one submitted query waiting for its gateway call.
type Request struct {
	ctrl        *Controller
	scope       string
	query       string
	limit       int
	userEntryID string
	ctx         context.Context
	cancel      context.CancelFunc
}

// Scope is the document the request is restricted to.
func (r *Request) Scope() string { return r.scope }

// Query is the text exactly as submitted.
func (r *Request) Query() string { return r.query }

// UserEntryID is the transcript entry the outcome will point back to.
func (r *Request) UserEntryID() string { return r.userEntryID }

// Outcome is the result of Request.Run, fed back through Controller.Resolve.
type Outcome struct {
	Request *Request
	Records []ragapi.Record
	Err     error
}

// Submit runs a whole cycle synchronously: Begin, the gateway call, then Resolve.
func (c *Controller) Submit(text string) {
	req := c.Begin(text)
	if req == nil {
		return
	}
	c.Resolve(req.Run())
}

// Begin appends the user's message, clears the input buffer and marks the conversation
// busy. It returns the request to run, or nil when there is nothing to run: blank text is
// ignored outright, and a missing scope is answered immediately with an error entry.
func (c *Controller) Begin(text string) *Request {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("submit after close ignored")
		return nil
	}

	now := c.clock()
	user := newUserMessage(c.ids.next(now), text, now)
	c.transcript = append(c.transcript, user)
	c.input = ""
	c.lastErr = ""

	if c.scope == "" {
		c.failLocked(user.ID, &ValidationError{Message: MissingScopeMessage})
		return nil
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(c.root, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(c.root)
	}
	req := &Request{
		ctrl:        c,
		scope:       c.scope,
		query:       text,
		limit:       c.limit,
		userEntryID: user.ID,
		ctx:         ctx,
		cancel:      cancel,
	}
	c.inFlight[req] = struct{}{}
	c.logger.Debug("query started",
		zap.String("scope", req.scope),
		zap.String("entry", user.ID),
		zap.Int("limit", req.limit),
		zap.Int("inFlight", len(c.inFlight)),
	)
	return req
}

// Run performs the single gateway call for r. It never panics and never retries.
func (r *Request) Run() (out Outcome) {
	out.Request = r
	defer r.cancel()
	defer func() {
		if p := recover(); p != nil {
			out.Records = nil
			out.Err = fmt.Errorf("query gateway failed: %v", p)
		}
	}()
	if r.ctrl.gateway == nil {
		out.Err = &ValidationError{Message: "No query service configured."}
		return out
	}
	records, err := r.ctrl.gateway.Query(r.ctx, r.scope, r.query, r.limit)
	if err != nil && errors.Is(r.ctx.Err(), context.DeadlineExceeded) {
		err = &ragapi.TransportError{
			Op:  "query chunks",
			Err: fmt.Errorf("no response within %s", r.ctrl.timeout),
		}
	}
	out.Records = records
	out.Err = err
	return out
}

// Resolve applies the outcome of a request: a result entry on success, an assistant error
// entry on failure. Outcomes of requests discarded by Retarget or Close are dropped.
func (c *Controller) Resolve(out Outcome) {
	req := out.Request
	if req == nil || req.ctrl != c {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inFlight[req]; !ok {
		c.logger.Debug("stale outcome dropped", zap.String("entry", req.userEntryID))
		return
	}
	delete(c.inFlight, req)
	req.cancel()

	if out.Err != nil {
		c.failLocked(req.userEntryID, out.Err)
		return
	}
	now := c.clock()
	entry := newResultSet(resultIDPrefix+c.ids.next(now), out.Records, req.userEntryID, now)
	c.transcript = append(c.transcript, entry)
	c.logger.Debug("query resolved",
		zap.String("entry", entry.ID),
		zap.String("causedBy", req.userEntryID),
		zap.Int("records", len(entry.Records)),
	)
}

func (c *Controller) failLocked(causedBy string, err error) {
	message := Describe(err)
	c.lastErr = message
	now := c.clock()
	entry := newAssistantMessage(c.ids.next(now), errorReplyPrefix+message, causedBy, now)
	c.transcript = append(c.transcript, entry)
	c.logger.Warn("query failed",
		zap.String("scope", c.scope),
		zap.String("causedBy", causedBy),
		zap.Error(err),
	)
}

// Describe turns any failure into the message shown to users. ServiceError and
// TransportError already carry readable text; an empty message gets a generic fallback.
func Describe(err error) string {
	if err == nil {
		return UnknownErrorMessage
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return UnknownErrorMessage
	}
	return message
}

// Retarget switches the conversation to another document. The transcript and pending
// state are discarded and in-flight requests are cancelled.
func (c *Controller) Retarget(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelInFlightLocked()
	c.scope = strings.TrimSpace(scope)
	c.transcript = nil
	c.input = ""
	c.lastErr = ""
	c.logger.Debug("conversation retargeted", zap.String("scope", c.scope))
}

// Close cancels in-flight requests. Later submits are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancelInFlightLocked()
	c.stop()
}

func (c *Controller) cancelInFlightLocked() {
	for req := range c.inFlight {
		req.cancel()
	}
	c.inFlight = map[*Request]struct{}{}
}

// SetInput replaces the input buffer.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// Input returns the input buffer.
func (c *Controller) Input() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.input
}

// Scope returns the current document identifier; empty when none is selected.
func (c *Controller) Scope() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scope
}

// Busy reports whether a query is waiting on the gateway.
func (c *Controller) Busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.inFlight) > 0
}

// LastError returns the message of the most recent failure, or "" when the latest
// submit has not failed.
func (c *Controller) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Len returns the number of transcript entries.
func (c *Controller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.transcript)
}

// Transcript returns a copy of the entries in append order.
func (c *Controller) Transcript() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyTranscriptLocked()
}

// Snapshot returns all observable state under a single lock.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Scope:     c.scope,
		Entries:   c.copyTranscriptLocked(),
		Busy:      len(c.inFlight) > 0,
		LastError: c.lastErr,
		Input:     c.input,
	}
}

func (c *Controller) copyTranscriptLocked() []Entry {
	out := make([]Entry, len(c.transcript))
	for i, entry := range c.transcript {
		out[i] = entry.clone()
	}
	return out
}

// Trigger finds the user entry an outcome entry answers. It follows CausedBy and falls back
// to the nearest earlier user message.
func Trigger(entries []Entry, index int) (Entry, bool) {
	if index < 0 || index >= len(entries) {
		return Entry{}, false
	}
	target := entries[index]
	if target.CausedBy != "" {
		for i := index - 1; i >= 0; i-- {
			if entries[i].ID == target.CausedBy {
				return entries[i], true
			}
		}
	}
	for i := index - 1; i >= 0; i-- {
		if entries[i].IsUser() {
			return entries[i], true
		}
	}
	return Entry{}, false
}
