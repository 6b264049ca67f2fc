package handle

import (
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

// EventData is an owned copy of an engine event. It carries no release
// obligation.
type EventData struct {
	AccountID uint32           `cbor:"1,keyasint" json:"account_id"`
	Kind      engine.EventKind `cbor:"2,keyasint" json:"kind"`
	Data1     int              `cbor:"3,keyasint,omitempty" json:"data1,omitempty"`
	Data2     int              `cbor:"4,keyasint,omitempty" json:"data2,omitempty"`
	Data1Str  string           `cbor:"5,keyasint,omitempty" json:"data1_str,omitempty"`
	Data2Str  string           `cbor:"6,keyasint,omitempty" json:"data2_str,omitempty"`
}

// Event wraps an event handle pulled from an emitter.
type Event struct {
	ref Ref
	api engine.Native
}

// NewEvent takes ownership of h.
func NewEvent(api engine.Native, h engine.Handle) *Event {
	e := &Event{api: api}
	Attach(e, &e.ref, h, api.EventUnref)
	return e
}

// Close releases the handle.
func (e *Event) Close() error { return e.ref.Release() }

// Kind returns the event code.
func (e *Event) Kind() engine.EventKind {
	if e.ref.IsNull() {
		return 0
	}
	return engine.EventKind(e.api.EventGetID(e.ref.h))
}

// AccountID returns the id of the account the event belongs to.
func (e *Event) AccountID() uint32 {
	if e.ref.IsNull() {
		return 0
	}
	return e.api.EventGetAccountID(e.ref.h)
}

func (e *Event) Data1Int() int {
	if e.ref.IsNull() {
		return 0
	}
	return e.api.EventGetData1Int(e.ref.h)
}

func (e *Event) Data2Int() int {
	if e.ref.IsNull() {
		return 0
	}
	return e.api.EventGetData2Int(e.ref.h)
}

func (e *Event) Data1Str() string {
	if e.ref.IsNull() {
		return ""
	}
	return TakeString(e.api, e.api.EventGetData1Str(e.ref.h))
}

func (e *Event) Data2Str() string {
	if e.ref.IsNull() {
		return ""
	}
	return TakeString(e.api, e.api.EventGetData2Str(e.ref.h))
}

// Data copies every field of the event.
func (e *Event) Data() EventData {
	return EventData{
		AccountID: e.AccountID(),
		Kind:      e.Kind(),
		Data1:     e.Data1Int(),
		Data2:     e.Data2Int(),
		Data1Str:  e.Data1Str(),
		Data2Str:  e.Data2Str(),
	}
}

// EventEmitter wraps the process-wide event source of an account set.
// Releasing the account set ends a pull in progress; events queued before
// that are still returned. The goroutine that pulls closes the emitter once
// Next reports teardown.
type EventEmitter struct {
	api engine.Native
	h   atomic.Uintptr

	mu  sync.Mutex
	ref Ref
}

// NewEventEmitter takes ownership of h.
func NewEventEmitter(api engine.Native, h engine.Handle) *EventEmitter {
	e := &EventEmitter{api: api}
	e.h.Store(uintptr(h))
	Attach(e, &e.ref, h, api.EventEmitterUnref)
	return e
}

// Close releases the emitter. Pulls issued afterwards return nil. It must
// not be called while a pull is in progress.
func (e *EventEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.h.Store(0)
	return e.ref.Release()
}

// NextEvent blocks until the engine produces an event. It returns nil once
// the source has been torn down.
func (e *EventEmitter) NextEvent() *Event {
	h := engine.Handle(e.h.Load())
	if h == 0 {
		return nil
	}
	ev := e.api.GetNextEvent(h)
	if ev == 0 {
		return nil
	}
	return NewEvent(e.api, ev)
}

// Next pulls one event, copies it and releases the handle. The second result
// is false once the source has been torn down.
func (e *EventEmitter) Next() (EventData, bool) {
	ev := e.NextEvent()
	if ev == nil {
		return EventData{}, false
	}
	data := ev.Data()
	_ = ev.Close()
	return data, true
}
