package bridge

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/event"
	"github.com/Iron-Ham/chatcore/internal/handle"
	"github.com/Iron-Ham/chatcore/internal/logging"
)

// Bridge turns engine events into notifications on an event.Bus.
//
// A pump goroutine owns the blocking pull from the Source. It translates
// each event and hands the notification to a dispatcher goroutine through
// a single ordered channel. Only the dispatcher publishes, so observers see
// notifications one at a time and in engine order.
type Bridge struct {
	source    Source
	bus       *event.Bus
	logger    *logging.Logger
	responder StringResponder
	recorder  Recorder
	queueSize int

	queue  chan event.Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu      sync.Mutex
	started bool
	diag    string

	fetchDone  *generation
	translated atomic.Uint64
	published  atomic.Uint64
}

// New creates a Bridge reading from source and publishing to bus.
//
// source and bus must be non-nil. Passing nil will panic early to surface
// wiring bugs immediately.
func New(source Source, bus *event.Bus, opts ...Option) *Bridge {
	if source == nil {
		panic("bridge: Source must not be nil")
	}
	if bus == nil {
		panic("bridge: event.Bus must not be nil")
	}

	cfg := &config{
		queueSize: defaultQueueSize,
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.queueSize <= 0 {
		cfg.queueSize = defaultQueueSize
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}

	return &Bridge{
		source:    source,
		bus:       bus,
		logger:    cfg.logger.WithComponent("bridge"),
		responder: cfg.responder,
		recorder:  cfg.recorder,
		queueSize: cfg.queueSize,
		fetchDone: newGeneration(),
	}
}

// Start launches the pump and the dispatcher. It returns immediately.
// Cancelling ctx stops delivery: later notifications are dropped, but the
// pump keeps draining the source until it is torn down.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return fmt.Errorf("bridge: already started")
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	b.queue = make(chan event.Event, b.queueSize)
	b.started = true

	b.wg.Go(b.pump)
	b.wg.Go(b.dispatch)

	b.logger.Debug("bridge started", "queue_size", b.queueSize)
	return nil
}

// Wait blocks until the source has been torn down and every queued
// notification has been handled. The source is closed by then if it
// implements io.Closer.
func (b *Bridge) Wait() {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return
	}
	b.wg.Wait()
}

// Stop cancels delivery and waits for both goroutines. The pump only ends
// once the source reports teardown, so the source must be closed before or
// concurrently with Stop.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.cancel()
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Debug("bridge stopped",
		"translated", b.translated.Load(),
		"published", b.published.Load())
}

// LastDiagnostic returns the text of the most recent engine error event.
func (b *Bridge) LastDiagnostic() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.diag
}

// FetchGeneration returns how many background-fetch-done notifications have
// been delivered so far. Pass it to WaitFetchDone before starting a fetch.
func (b *Bridge) FetchGeneration() uint64 {
	return b.fetchDone.Load()
}

// WaitFetchDone blocks until a background-fetch-done notification newer
// than since has been delivered. Every notification the fetch produced has
// been published by then.
func (b *Bridge) WaitFetchDone(ctx context.Context, since uint64) error {
	return b.fetchDone.WaitPast(ctx, since)
}

// Counts returns how many events were translated and how many notifications
// were published.
func (b *Bridge) Counts() (translated, published uint64) {
	return b.translated.Load(), b.published.Load()
}

func (b *Bridge) pump() {
	defer close(b.queue)

	for {
		data, ok := b.source.Next()
		if !ok {
			b.logger.Debug("event source closed")
			b.closeSource()
			return
		}
		if b.recorder != nil {
			if err := b.recorder.Record(data); err != nil {
				b.logger.Warn("failed to record event", "kind", data.Kind.String(), "error", err)
			}
		}

		n := b.translate(data)
		b.translated.Add(1)

		select {
		case b.queue <- n:
		case <-b.ctx.Done():
		}
	}
}

// closeSource releases a source that can be closed. Only the pump does so,
// after Next has reported teardown, so no pull is in flight.
func (b *Bridge) closeSource() {
	c, ok := b.source.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		b.logger.Warn("failed to close event source", "error", err)
	}
}

func (b *Bridge) dispatch() {
	for n := range b.queue {
		if b.ctx.Err() != nil {
			continue
		}
		b.bus.Publish(n)
		b.published.Add(1)
		if _, ok := n.(event.BackgroundFetchDoneEvent); ok {
			b.fetchDone.Advance()
		}
	}
}

// translate maps one engine event to exactly one notification.
func (b *Bridge) translate(d handle.EventData) event.Event {
	acct := d.AccountID
	u1, u2 := uint32(d.Data1), uint32(d.Data2)

	switch k := d.Kind; {
	case k >= engine.EventInfo && k < engine.EventWarning:
		b.logger.WithAccount(acct).Debug(d.Data2Str, "kind", k.String())
		return event.NewLogEvent(acct, event.LogInfo, k, d.Data2Str)
	case k >= engine.EventWarning && k < engine.EventError:
		b.logger.WithAccount(acct).Warn(d.Data2Str, "kind", k.String())
		return event.NewLogEvent(acct, event.LogWarning, k, d.Data2Str)
	case k.IsError():
		b.mu.Lock()
		b.diag = d.Data2Str
		b.mu.Unlock()
		b.logger.WithAccount(acct).Error(d.Data2Str, "kind", k.String())
		return event.NewLogEvent(acct, event.LogError, k, d.Data2Str)
	}

	switch d.Kind {
	case engine.EventMsgsChanged:
		return event.NewMessagesChangedEvent(acct, u1, u2)
	case engine.EventReactionsChanged:
		return event.NewMessageStateEvent(acct, event.StateReactionsChanged, u1, u2)
	case engine.EventIncomingReaction:
		return event.NewMessageStateEvent(acct, event.StateIncomingReaction, u1, u2)
	case engine.EventMsgRead:
		return event.NewMessageStateEvent(acct, event.StateRead, u1, u2)
	case engine.EventMsgDelivered:
		return event.NewMessageStateEvent(acct, event.StateDelivered, u1, u2)
	case engine.EventMsgFailed:
		return event.NewMessageStateEvent(acct, event.StateFailed, u1, u2)
	case engine.EventIncomingMsg:
		return event.NewIncomingMessageEvent(acct, u1, u2)
	case engine.EventIncomingMsgBunch:
		return event.NewIncomingBunchEvent(acct)
	case engine.EventMsgDeleted:
		return event.NewMessageDeletedEvent(acct, u1, u2)
	case engine.EventMsgsNoticed:
		return event.NewMessagesNoticedEvent(acct, u1)
	case engine.EventChatModified:
		return event.NewChatModifiedEvent(acct, u1)
	case engine.EventChatEphemeralTimerModified:
		return event.NewEphemeralTimerModifiedEvent(acct, u1, d.Data2)
	case engine.EventChatDeleted:
		return event.NewChatDeletedEvent(acct, u1)
	case engine.EventContactsChanged:
		return event.NewContactsChangedEvent(acct, u1)

	case engine.EventConfigureProgress:
		return b.progress(acct, event.OpConfigure, d.Data1, d.Data2Str)
	case engine.EventImexProgress:
		return b.progress(acct, event.OpImex, d.Data1, d.Data2Str)
	case engine.EventImexFileWritten:
		return event.NewBackupFileWrittenEvent(acct, d.Data1Str)
	case engine.EventSecurejoinInviterProgress:
		p := b.progress(acct, event.OpSecurejoinInviter, d.Data2, "")
		p.ContactID = u1
		return p
	case engine.EventSecurejoinJoinerProgress:
		p := b.progress(acct, event.OpSecurejoinJoiner, d.Data2, "")
		p.ContactID = u1
		return p

	case engine.EventGetString:
		// Answered before the event is released so the engine sees the
		// translation on its next lookup.
		answered := b.responder != nil && b.responder.RespondStockString(acct, u1)
		return event.NewTranslationRequestEvent(acct, u1, answered)
	case engine.EventConnectivityChanged:
		return event.NewConnectivityChangedEvent(acct)
	case engine.EventWebxdcStatusUpdate:
		return event.NewWebxdcStatusUpdateEvent(acct, u1, d.Data2)
	case engine.EventWebxdcRealtimeData:
		return event.NewWebxdcRealtimeDataEvent(acct, u1, []byte(d.Data2Str))
	case engine.EventAccountsBackgroundFetchDone:
		return event.NewBackgroundFetchDoneEvent()
	case engine.EventAccountsChanged:
		return event.NewAccountsChangedEvent(acct, false)
	case engine.EventAccountsItemChanged:
		return event.NewAccountsChangedEvent(acct, true)
	}

	return event.NewEngineEvent(acct, d.Kind, d.Data1, d.Data2, d.Data1Str, d.Data2Str)
}

// progress builds a progress notification. A failure without its own
// message falls back to the most recent engine error.
func (b *Bridge) progress(acct uint32, op event.Operation, permille int, msg string) event.ProgressEvent {
	if msg == "" && permille == event.ProgressFailed {
		msg = b.LastDiagnostic()
	}
	if permille == event.ProgressFailed || permille == event.ProgressDone {
		b.logger.WithAccount(acct).Info("operation finished",
			"operation", string(op), "failed", permille == event.ProgressFailed, "message", msg)
	}
	return event.NewProgressEvent(acct, op, permille, msg)
}
