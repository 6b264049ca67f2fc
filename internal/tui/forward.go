package tui

import (
	"sync"

	"github.com/Iron-Ham/chatcore/internal/event"
)

const forwardBuffer = 64

// Forward subscribes to progress of op and to warning/error log events for
// one account and hands them to a channel a ProgressModel can read.
// Intermediate progress is dropped when the reader falls behind; terminal
// progress is always delivered unless stop has been called. stop
// unsubscribes and closes the channel.
func Forward(bus *event.Bus, accountID uint32, op event.Operation) (events <-chan event.Event, stop func()) {
	ch := make(chan event.Event, forwardBuffer)
	done := make(chan struct{})
	var mu sync.RWMutex
	closed := false

	send := func(ev event.Event) {
		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		if p, ok := ev.(event.ProgressEvent); ok && (p.Done || p.Error) {
			select {
			case ch <- ev:
			case <-done:
			}
			return
		}
		select {
		case ch <- ev:
		default:
		}
	}

	ids := []string{
		bus.Subscribe(event.TypeProgress(op), event.ForAccount(accountID, send)),
		bus.Subscribe(event.TypeLog, event.ForAccount(accountID, func(ev event.Event) {
			if l, ok := ev.(event.LogEvent); ok && l.Level != event.LogInfo {
				send(ev)
			}
		})),
	}

	var once sync.Once
	stop = func() {
		once.Do(func() {
			for _, id := range ids {
				bus.Unsubscribe(id)
			}
			close(done)
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, stop
}
