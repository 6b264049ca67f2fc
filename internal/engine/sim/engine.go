// Package sim is an in-process engine that implements the complete
// [engine.Native] surface.
//
// It keeps accounts, configuration, chats, contacts and messages in SQLite,
// emits the events a real engine emits for each operation, and answers the
// JSON-RPC methods the client layer uses. Network activity is simulated:
// outgoing messages are marked delivered while IO runs, and incoming
// messages are injected with [Engine.Deliver].
//
// The engine tracks every handle and string it hands out so tests can check
// that callers release each of them exactly once.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

// Option configures an Engine.
type Option func(*Engine)

// WithStepDelay sets the pause between progress events of long-running
// operations (configure, import/export, secure join).
func WithStepDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.stepDelay = d
	}
}

// WithFetchDelay sets how long a background fetch pretends to talk to the
// server before it returns.
func WithFetchDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.fetchDelay = d
	}
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Stats counts live handles and strings.
type Stats struct {
	Handles int
	Strings int
	ByKind  map[string]int
	// Misuse counts unref calls on unknown or already released handles.
	Misuse int
}

// Engine is the simulated engine. It is safe for concurrent use.
type Engine struct {
	stepDelay  time.Duration
	fetchDelay time.Duration
	now        func() time.Time

	mu      sync.Mutex
	next    uintptr
	objects map[engine.Handle]any
	strs    map[engine.Str]string
	misuse  int
	current *accountSet
	backups map[string]*backupObj
}

var _ engine.Native = (*Engine)(nil)

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		stepDelay:  10 * time.Millisecond,
		fetchDelay: 20 * time.Millisecond,
		now:        time.Now,
		objects:    make(map[engine.Handle]any),
		strs:       make(map[engine.Str]string),
		backups:    make(map[string]*backupObj),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats returns the current handle and string counts.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Stats{
		Handles: len(e.objects),
		Strings: len(e.strs),
		ByKind:  make(map[string]int),
		Misuse:  e.misuse,
	}
	for _, obj := range e.objects {
		st.ByKind[kindOf(obj)]++
	}
	return st
}

func kindOf(obj any) string {
	switch obj.(type) {
	case *accountSet:
		return "accounts"
	case *contextObj:
		return "context"
	case *emitterObj:
		return "event_emitter"
	case *eventObj:
		return "event"
	case *rpcObj:
		return "jsonrpc"
	case *msgObj:
		return "message"
	case *chatObj:
		return "chat"
	case *chatlistObj:
		return "chatlist"
	case *contactObj:
		return "contact"
	case *arrayObj:
		return "array"
	case *lotObj:
		return "lot"
	case *providerObj:
		return "provider"
	case *backupObj:
		return "backup_provider"
	default:
		return fmt.Sprintf("%T", obj)
	}
}

func (e *Engine) alloc(obj any) engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	h := engine.Handle(e.next)
	e.objects[h] = obj
	return h
}

func lookup[T any](e *Engine, h engine.Handle) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects[h].(T)
	return obj, ok
}

func release[T any](e *Engine, h engine.Handle) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects[h].(T)
	if !ok {
		e.misuse++
		return obj, false
	}
	delete(e.objects, h)
	return obj, true
}

func (e *Engine) str(s string) engine.Str {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	id := engine.Str(e.next)
	e.strs[id] = s
	return id
}

// StrData implements engine.Strings.
func (e *Engine) StrData(s engine.Str) string {
	if s == 0 {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strs[s]
}

// StrUnref implements engine.Strings.
func (e *Engine) StrUnref(s engine.Str) {
	if s == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.strs[s]; !ok {
		e.misuse++
		return
	}
	delete(e.strs, s)
}

func (e *Engine) sleep(d time.Duration, stop <-chan struct{}) bool {
	if d <= 0 {
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
