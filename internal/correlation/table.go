// Package correlation owns in-flight request state keyed by correlation id.
//
// A Table holds two kinds of entries per id:
// - a one-shot Continuation, removed on first settle (reply, timeout or reject)
// - an optional persistent callback, invoked for every later event on the id
//
// Removal is the only race between the reply path and the timeout path; the
// first caller to observe a present entry wins and the other becomes a no-op.
package correlation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/hostlink/internal/identity"
	"github.com/danmuck/hostlink/internal/wire"
)

var (
	ErrDuplicateID = errors.New("correlation: id already registered")
	ErrUnknownID   = errors.New("correlation: unknown id")
	ErrEmptyID     = errors.New("correlation: empty id")
)

// Continuation is the settle pair for one pending request.
type Continuation struct {
	Resolve func(wire.Value)
	Reject  func(error)
}

type pending struct {
	cont       Continuation
	timer      *time.Timer
	registered time.Time
}

// Entry is a read-only view of one pending id.
type Entry struct {
	ID           string
	RegisteredAt time.Time
	Armed        bool
	HasCallback  bool
}

// Table is safe for concurrent use.
type Table struct {
	ids identity.IDGenerator
	now func() time.Time

	mu        sync.Mutex
	pending   map[string]*pending
	callbacks map[string]func(wire.Value)
}

func NewTable(ids identity.IDGenerator) *Table {
	if ids == nil {
		ids = identity.UUIDGenerator{}
	}
	return &Table{
		ids:       ids,
		now:       time.Now,
		pending:   make(map[string]*pending),
		callbacks: make(map[string]func(wire.Value)),
	}
}

// Register stores c under a freshly generated id.
func (t *Table) Register(c Continuation) (string, error) {
	id, err := t.ids.NewID()
	if err != nil {
		return "", err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyID
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, live := t.pending[id]; live {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	t.pending[id] = &pending{cont: c, registered: t.now()}
	return id, nil
}

// RegisterCallback stores fn as the persistent callback for id, replacing any previous one.
func (t *Table) RegisterCallback(id string, fn func(wire.Value)) error {
	if id == "" {
		return ErrEmptyID
	}
	if fn == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks[id] = fn
	return nil
}

// Arm schedules fire(id) after d while the continuation for id is pending.
func (t *Table) Arm(id string, d time.Duration, fire func(id string)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(d, func() { fire(id) })
	return nil
}

// Outcome is the dispatch path taken for one inbound message.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSettled
	OutcomeCallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSettled:
		return "settled"
	case OutcomeCallback:
		return "callback"
	default:
		return "none"
	}
}

// Resolve settles the continuation for id, or failing that invokes its
// persistent callback. It reports false when neither exists.
func (t *Table) Resolve(id string, payload wire.Value) bool {
	return t.Dispatch(id, payload) != OutcomeNone
}

// Dispatch is Resolve reporting which path handled the payload.
func (t *Table) Dispatch(id string, payload wire.Value) Outcome {
	if p, ok := t.take(id); ok {
		if p.cont.Resolve != nil {
			p.cont.Resolve(payload)
		}
		return OutcomeSettled
	}
	t.mu.Lock()
	fn, ok := t.callbacks[id]
	t.mu.Unlock()
	if !ok {
		return OutcomeNone
	}
	fn(payload)
	return OutcomeCallback
}

// Expire settles a still-pending continuation with payload; callbacks are not consulted.
func (t *Table) Expire(id string, payload wire.Value) bool {
	p, ok := t.take(id)
	if !ok {
		return false
	}
	if p.cont.Resolve != nil {
		p.cont.Resolve(payload)
	}
	return true
}

// Reject settles a still-pending continuation with err.
func (t *Table) Reject(id string, err error) bool {
	p, ok := t.take(id)
	if !ok {
		return false
	}
	if p.cont.Reject != nil {
		p.cont.Reject(err)
	}
	return true
}

func (t *Table) take(id string) (*pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	if !ok {
		return nil, false
	}
	delete(t.pending, id)
	if p.timer != nil {
		p.timer.Stop()
	}
	return p, true
}

// Forget drops the persistent callback for id.
func (t *Table) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.callbacks, id)
}

// ClearCallbacks drops every persistent callback and reports how many were removed.
func (t *Table) ClearCallbacks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.callbacks)
	t.callbacks = make(map[string]func(wire.Value))
	return n
}

func (t *Table) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Table) Callbacks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.callbacks)
}

// IsPending reports whether a continuation for id is still waiting.
func (t *Table) IsPending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[id]
	return ok
}

// List returns pending entries sorted by id.
func (t *Table) List() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.pending))
	for id, p := range t.pending {
		_, cb := t.callbacks[id]
		out = append(out, Entry{
			ID:           id,
			RegisteredAt: p.registered,
			Armed:        p.timer != nil,
			HasCallback:  cb,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
