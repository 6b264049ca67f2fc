package sim

import (
	"sync"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

type eventObj struct {
	accountID uint32
	kind      engine.EventKind
	data1     int
	data2     int
	data1Str  string
	data2Str  string
}

// eventQueue is the unbounded FIFO behind an account set's event emitter.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []eventObj
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(ev eventObj) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, ev)
	q.cond.Broadcast()
}

// pop blocks until an event is queued or the queue is closed. Events
// queued before close are still handed out; pop fails once none are left.
func (q *eventQueue) pop() (eventObj, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return eventObj{}, false
	}
	ev := q.items[0]
	q.items[0] = eventObj{}
	q.items = q.items[1:]
	return ev, true
}

func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

type emitterObj struct {
	q *eventQueue
}

// Emit queues a synthetic event on the most recently opened account set.
// Tests use it to drive the event bridge with exact event sequences.
func (e *Engine) Emit(accountID uint32, kind engine.EventKind, data1, data2 int, data1Str, data2Str string) bool {
	e.mu.Lock()
	set := e.current
	e.mu.Unlock()
	if set == nil {
		return false
	}
	set.events.push(eventObj{
		accountID: accountID,
		kind:      kind,
		data1:     data1,
		data2:     data2,
		data1Str:  data1Str,
		data2Str:  data2Str,
	})
	return true
}

// EventEmitterUnref implements engine.EventAPI.
func (e *Engine) EventEmitterUnref(emitter engine.Handle) {
	release[*emitterObj](e, emitter)
}

// GetNextEvent implements engine.EventAPI.
func (e *Engine) GetNextEvent(emitter engine.Handle) engine.Handle {
	em, ok := lookup[*emitterObj](e, emitter)
	if !ok {
		return 0
	}
	ev, ok := em.q.pop()
	if !ok {
		return 0
	}
	obj := ev
	return e.alloc(&obj)
}

// EventUnref implements engine.EventAPI.
func (e *Engine) EventUnref(ev engine.Handle) {
	release[*eventObj](e, ev)
}

func (e *Engine) event(h engine.Handle) *eventObj {
	ev, ok := lookup[*eventObj](e, h)
	if !ok {
		return &eventObj{}
	}
	return ev
}

// EventGetID implements engine.EventAPI.
func (e *Engine) EventGetID(ev engine.Handle) int { return int(e.event(ev).kind) }

// EventGetData1Int implements engine.EventAPI.
func (e *Engine) EventGetData1Int(ev engine.Handle) int { return e.event(ev).data1 }

// EventGetData2Int implements engine.EventAPI.
func (e *Engine) EventGetData2Int(ev engine.Handle) int { return e.event(ev).data2 }

// EventGetData1Str implements engine.EventAPI.
func (e *Engine) EventGetData1Str(ev engine.Handle) engine.Str {
	obj := e.event(ev)
	if obj.data1Str == "" {
		return 0
	}
	return e.str(obj.data1Str)
}

// EventGetData2Str implements engine.EventAPI.
func (e *Engine) EventGetData2Str(ev engine.Handle) engine.Str {
	obj := e.event(ev)
	if obj.data2Str == "" {
		return 0
	}
	return e.str(obj.data2Str)
}

// EventGetAccountID implements engine.EventAPI.
func (e *Engine) EventGetAccountID(ev engine.Handle) uint32 { return e.event(ev).accountID }
