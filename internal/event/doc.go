// Package event defines the notifications produced from engine events and
// the bus that delivers them to observers.
//
// # Main Types
//
//   - [Event]: Interface that all notifications implement, providing
//     EventType(), Timestamp() and AccountID()
//   - [Bus]: Synchronous pub-sub dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Messages:
//   - [MessagesChangedEvent], [MessageStateEvent], [IncomingMessageEvent],
//     [MessageDeletedEvent], [MessagesNoticedEvent]
//
// Chats and contacts:
//   - [ChatModifiedEvent], [EphemeralTimerModifiedEvent], [ChatDeletedEvent],
//     [ContactsChangedEvent]
//
// Long-running operations:
//   - [ProgressEvent]: configure, import/export and secure-join progress.
//     Its event type is "progress." followed by the operation name.
//   - [BackupFileWrittenEvent]
//
// Account set:
//   - [ConnectivityChangedEvent], [BackgroundFetchDoneEvent],
//     [AccountsChangedEvent], [TranslationRequestEvent]
//
// Webxdc:
//   - [WebxdcStatusUpdateEvent], [WebxdcRealtimeDataEvent]
//
// Everything else:
//   - [LogEvent] for engine info, warning and error lines
//   - [EngineEvent] for kinds without a dedicated type
//
// # Account Filters
//
// Every engine event is published exactly once. Observers that only care
// about one account wrap their handler with [ForAccount], or with
// [ForSelected] to follow whichever account is selected:
//
//	bus.Subscribe(event.TypeChatModified, event.ForSelected(mgr.SelectedID, func(e event.Event) {
//	    refresh(e.(event.ChatModifiedEvent).ChatID)
//	}))
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine and protected against panics.
package event
