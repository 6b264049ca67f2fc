package event

import (
	"time"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "chat.modified", "progress.configure")
	EventType() string

	// Timestamp returns when the event was translated.
	Timestamp() time.Time

	// AccountID returns the account the event belongs to, or 0 for events
	// of the whole account set.
	AccountID() uint32
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
	accountID uint32
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }
func (e baseEvent) AccountID() uint32    { return e.accountID }

func newBaseEvent(eventType string, accountID uint32) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
		accountID: accountID,
	}
}

// Event types.
const (
	TypeLog                    = "engine.log"
	TypeMessagesChanged        = "messages.changed"
	TypeMessageState           = "message.state_changed"
	TypeIncomingMessage        = "message.incoming"
	TypeMessageDeleted         = "message.deleted"
	TypeMessagesNoticed        = "messages.noticed"
	TypeChatModified           = "chat.modified"
	TypeEphemeralTimerModified = "chat.ephemeral_timer_modified"
	TypeChatDeleted            = "chat.deleted"
	TypeContactsChanged        = "contacts.changed"
	TypeConnectivityChanged    = "connectivity.changed"
	TypeWebxdcStatusUpdate     = "webxdc.status_update"
	TypeWebxdcRealtimeData     = "webxdc.realtime_data"
	TypeBackgroundFetchDone    = "accounts.background_fetch_done"
	TypeAccountsChanged        = "accounts.changed"
	TypeTranslationRequest     = "translation.requested"
	TypeBackupFileWritten      = "backup.file_written"
)

// -----------------------------------------------------------------------------
// Log Events
// -----------------------------------------------------------------------------

// LogLevel classifies engine log events.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// LogEvent carries an engine info, warning or error line.
type LogEvent struct {
	baseEvent
	Level   LogLevel
	Kind    engine.EventKind
	Message string
}

// NewLogEvent creates a LogEvent.
func NewLogEvent(accountID uint32, level LogLevel, kind engine.EventKind, message string) LogEvent {
	return LogEvent{
		baseEvent: newBaseEvent(TypeLog, accountID),
		Level:     level,
		Kind:      kind,
		Message:   message,
	}
}

// -----------------------------------------------------------------------------
// Message Events
// -----------------------------------------------------------------------------

// MessagesChangedEvent is emitted when messages of a chat changed. Zero ids
// mean "anything may have changed".
type MessagesChangedEvent struct {
	baseEvent
	ChatID uint32
	MsgID  uint32
}

// NewMessagesChangedEvent creates a MessagesChangedEvent.
func NewMessagesChangedEvent(accountID, chatID, msgID uint32) MessagesChangedEvent {
	return MessagesChangedEvent{
		baseEvent: newBaseEvent(TypeMessagesChanged, accountID),
		ChatID:    chatID,
		MsgID:     msgID,
	}
}

// StateChange names what happened to a message.
type StateChange string

const (
	StateRead             StateChange = "read"
	StateDelivered        StateChange = "delivered"
	StateFailed           StateChange = "failed"
	StateReactionsChanged StateChange = "reactions_changed"
	StateIncomingReaction StateChange = "incoming_reaction"
)

// MessageStateEvent is emitted when a message was read, delivered, failed or
// got a reaction.
type MessageStateEvent struct {
	baseEvent
	Change StateChange
	ChatID uint32
	MsgID  uint32
}

// NewMessageStateEvent creates a MessageStateEvent.
func NewMessageStateEvent(accountID uint32, change StateChange, chatID, msgID uint32) MessageStateEvent {
	return MessageStateEvent{
		baseEvent: newBaseEvent(TypeMessageState, accountID),
		Change:    change,
		ChatID:    chatID,
		MsgID:     msgID,
	}
}

// IncomingMessageEvent is emitted for a newly received message. Bunch is set
// when the engine reports a batch without individual ids.
type IncomingMessageEvent struct {
	baseEvent
	ChatID uint32
	MsgID  uint32
	Bunch  bool
}

// NewIncomingMessageEvent creates an IncomingMessageEvent.
func NewIncomingMessageEvent(accountID, chatID, msgID uint32) IncomingMessageEvent {
	return IncomingMessageEvent{
		baseEvent: newBaseEvent(TypeIncomingMessage, accountID),
		ChatID:    chatID,
		MsgID:     msgID,
	}
}

// NewIncomingBunchEvent creates an IncomingMessageEvent for a batch.
func NewIncomingBunchEvent(accountID uint32) IncomingMessageEvent {
	return IncomingMessageEvent{
		baseEvent: newBaseEvent(TypeIncomingMessage, accountID),
		Bunch:     true,
	}
}

// MessageDeletedEvent is emitted when a message was deleted.
type MessageDeletedEvent struct {
	baseEvent
	ChatID uint32
	MsgID  uint32
}

// NewMessageDeletedEvent creates a MessageDeletedEvent.
func NewMessageDeletedEvent(accountID, chatID, msgID uint32) MessageDeletedEvent {
	return MessageDeletedEvent{
		baseEvent: newBaseEvent(TypeMessageDeleted, accountID),
		ChatID:    chatID,
		MsgID:     msgID,
	}
}

// MessagesNoticedEvent is emitted when the messages of a chat were noticed.
type MessagesNoticedEvent struct {
	baseEvent
	ChatID uint32
}

// NewMessagesNoticedEvent creates a MessagesNoticedEvent.
func NewMessagesNoticedEvent(accountID, chatID uint32) MessagesNoticedEvent {
	return MessagesNoticedEvent{
		baseEvent: newBaseEvent(TypeMessagesNoticed, accountID),
		ChatID:    chatID,
	}
}

// -----------------------------------------------------------------------------
// Chat and Contact Events
// -----------------------------------------------------------------------------

// ChatModifiedEvent is emitted when a chat's name, members or settings changed.
type ChatModifiedEvent struct {
	baseEvent
	ChatID uint32
}

// NewChatModifiedEvent creates a ChatModifiedEvent.
func NewChatModifiedEvent(accountID, chatID uint32) ChatModifiedEvent {
	return ChatModifiedEvent{
		baseEvent: newBaseEvent(TypeChatModified, accountID),
		ChatID:    chatID,
	}
}

// EphemeralTimerModifiedEvent is emitted when a chat's disappearing-message
// timer changed.
type EphemeralTimerModifiedEvent struct {
	baseEvent
	ChatID uint32
	Timer  int // seconds, 0 disables
}

// NewEphemeralTimerModifiedEvent creates an EphemeralTimerModifiedEvent.
func NewEphemeralTimerModifiedEvent(accountID, chatID uint32, timer int) EphemeralTimerModifiedEvent {
	return EphemeralTimerModifiedEvent{
		baseEvent: newBaseEvent(TypeEphemeralTimerModified, accountID),
		ChatID:    chatID,
		Timer:     timer,
	}
}

// ChatDeletedEvent is emitted when a chat was deleted.
type ChatDeletedEvent struct {
	baseEvent
	ChatID uint32
}

// NewChatDeletedEvent creates a ChatDeletedEvent.
func NewChatDeletedEvent(accountID, chatID uint32) ChatDeletedEvent {
	return ChatDeletedEvent{
		baseEvent: newBaseEvent(TypeChatDeleted, accountID),
		ChatID:    chatID,
	}
}

// ContactsChangedEvent is emitted when a contact, or the contact list when
// ContactID is 0, changed.
type ContactsChangedEvent struct {
	baseEvent
	ContactID uint32
}

// NewContactsChangedEvent creates a ContactsChangedEvent.
func NewContactsChangedEvent(accountID, contactID uint32) ContactsChangedEvent {
	return ContactsChangedEvent{
		baseEvent: newBaseEvent(TypeContactsChanged, accountID),
		ContactID: contactID,
	}
}

// -----------------------------------------------------------------------------
// Progress Events
// -----------------------------------------------------------------------------

// Operation names a long-running engine operation that reports progress.
type Operation string

const (
	OpConfigure         Operation = "configure"
	OpImex              Operation = "imex"
	OpSecurejoinInviter Operation = "securejoin_inviter"
	OpSecurejoinJoiner  Operation = "securejoin_joiner"
)

// TypeProgress returns the event type ProgressEvents for op are published
// under.
func TypeProgress(op Operation) string {
	return "progress." + string(op)
}

// Progress bounds, in permille.
const (
	ProgressFailed = 0
	ProgressDone   = 1000
)

// ProgressEvent reports progress of a long-running operation. Progress is
// in permille: 0 means the operation failed, 1000 means it finished.
type ProgressEvent struct {
	baseEvent
	Operation Operation
	Progress  int
	Error     bool
	Done      bool
	Message   string
	ContactID uint32 // secure-join only
}

// NewProgressEvent creates a ProgressEvent and derives Error and Done from
// progress.
func NewProgressEvent(accountID uint32, op Operation, progress int, message string) ProgressEvent {
	return ProgressEvent{
		baseEvent: newBaseEvent(TypeProgress(op), accountID),
		Operation: op,
		Progress:  progress,
		Error:     progress == ProgressFailed,
		Done:      progress == ProgressDone,
		Message:   message,
	}
}

// -----------------------------------------------------------------------------
// Connectivity and Account Set Events
// -----------------------------------------------------------------------------

// ConnectivityChangedEvent is emitted when an account's connectivity may
// have changed. Observers query the account for the new value.
type ConnectivityChangedEvent struct {
	baseEvent
}

// NewConnectivityChangedEvent creates a ConnectivityChangedEvent.
func NewConnectivityChangedEvent(accountID uint32) ConnectivityChangedEvent {
	return ConnectivityChangedEvent{baseEvent: newBaseEvent(TypeConnectivityChanged, accountID)}
}

// BackgroundFetchDoneEvent is emitted when a background fetch finished.
type BackgroundFetchDoneEvent struct {
	baseEvent
}

// NewBackgroundFetchDoneEvent creates a BackgroundFetchDoneEvent.
func NewBackgroundFetchDoneEvent() BackgroundFetchDoneEvent {
	return BackgroundFetchDoneEvent{baseEvent: newBaseEvent(TypeBackgroundFetchDone, 0)}
}

// AccountsChangedEvent is emitted when the account set or one account's
// listing data changed.
type AccountsChangedEvent struct {
	baseEvent
	Item bool
}

// NewAccountsChangedEvent creates an AccountsChangedEvent.
func NewAccountsChangedEvent(accountID uint32, item bool) AccountsChangedEvent {
	return AccountsChangedEvent{
		baseEvent: newBaseEvent(TypeAccountsChanged, accountID),
		Item:      item,
	}
}

// TranslationRequestEvent is emitted when the engine asked for a stock
// string. It is published after the request has been answered.
type TranslationRequestEvent struct {
	baseEvent
	StockID  uint32
	Answered bool
}

// NewTranslationRequestEvent creates a TranslationRequestEvent.
func NewTranslationRequestEvent(accountID, stockID uint32, answered bool) TranslationRequestEvent {
	return TranslationRequestEvent{
		baseEvent: newBaseEvent(TypeTranslationRequest, accountID),
		StockID:   stockID,
		Answered:  answered,
	}
}

// BackupFileWrittenEvent is emitted for every file an export wrote.
type BackupFileWrittenEvent struct {
	baseEvent
	Path string
}

// NewBackupFileWrittenEvent creates a BackupFileWrittenEvent.
func NewBackupFileWrittenEvent(accountID uint32, path string) BackupFileWrittenEvent {
	return BackupFileWrittenEvent{
		baseEvent: newBaseEvent(TypeBackupFileWritten, accountID),
		Path:      path,
	}
}

// -----------------------------------------------------------------------------
// Webxdc Events
// -----------------------------------------------------------------------------

// WebxdcStatusUpdateEvent is emitted when a webxdc app received a status update.
type WebxdcStatusUpdateEvent struct {
	baseEvent
	MsgID  uint32
	Serial int
}

// NewWebxdcStatusUpdateEvent creates a WebxdcStatusUpdateEvent.
func NewWebxdcStatusUpdateEvent(accountID, msgID uint32, serial int) WebxdcStatusUpdateEvent {
	return WebxdcStatusUpdateEvent{
		baseEvent: newBaseEvent(TypeWebxdcStatusUpdate, accountID),
		MsgID:     msgID,
		Serial:    serial,
	}
}

// WebxdcRealtimeDataEvent carries realtime data for a webxdc app.
type WebxdcRealtimeDataEvent struct {
	baseEvent
	MsgID uint32
	Data  []byte
}

// NewWebxdcRealtimeDataEvent creates a WebxdcRealtimeDataEvent.
func NewWebxdcRealtimeDataEvent(accountID, msgID uint32, data []byte) WebxdcRealtimeDataEvent {
	return WebxdcRealtimeDataEvent{
		baseEvent: newBaseEvent(TypeWebxdcRealtimeData, accountID),
		MsgID:     msgID,
		Data:      data,
	}
}

// -----------------------------------------------------------------------------
// Untranslated Events
// -----------------------------------------------------------------------------

// EngineEvent carries an engine event without a dedicated type. Its event
// type is "engine." followed by the kind name.
type EngineEvent struct {
	baseEvent
	Kind     engine.EventKind
	Data1    int
	Data2    int
	Data1Str string
	Data2Str string
}

// NewEngineEvent creates an EngineEvent.
func NewEngineEvent(accountID uint32, kind engine.EventKind, data1, data2 int, data1Str, data2Str string) EngineEvent {
	return EngineEvent{
		baseEvent: newBaseEvent("engine."+kind.String(), accountID),
		Kind:      kind,
		Data1:     data1,
		Data2:     data2,
		Data1Str:  data1Str,
		Data2Str:  data2Str,
	}
}
