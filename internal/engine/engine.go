// Package engine describes the boundary with the native messaging engine.
//
// Every engine resource is reached through an opaque [Handle]. Handles are
// never duplicated: whoever receives a non-null Handle from a "new" or "get"
// style call owns it and must pass it to the matching Unref call exactly once.
// Text returned by the engine arrives as a [Str], an engine-owned allocation
// that the caller copies with StrData and then frees with StrUnref.
//
// The interface is split per resource kind so that wrappers can depend on the
// narrowest surface they need. [Native] is the union implemented by a real
// binding or by the simulated engine in package sim.
package engine

// Handle is an opaque reference to an engine-owned resource. Zero is null.
type Handle uintptr

// Str is an engine-owned text allocation. Zero is null.
type Str uintptr

// Strings covers the text ownership convention.
type Strings interface {
	// StrData copies the bytes of s. A null Str yields "".
	StrData(s Str) string
	// StrUnref frees s. Freeing a null Str is a no-op.
	StrUnref(s Str)
}

// AccountsAPI is the account-set surface, including IO control.
type AccountsAPI interface {
	AccountsNew(dir string, writable bool) Handle
	AccountsUnref(accounts Handle)
	AccountsAddAccount(accounts Handle) uint32
	AccountsMigrateAccount(accounts Handle, dbPath string) uint32
	AccountsRemoveAccount(accounts Handle, id uint32) int
	AccountsGetAll(accounts Handle) Handle
	AccountsGetAccount(accounts Handle, id uint32) Handle
	AccountsGetSelectedAccount(accounts Handle) Handle
	AccountsSelectAccount(accounts Handle, id uint32) int
	AccountsStartIO(accounts Handle)
	AccountsStopIO(accounts Handle)
	AccountsMaybeNetwork(accounts Handle)
	AccountsMaybeNetworkLost(accounts Handle)
	AccountsAllWorkDone(accounts Handle) int
	AccountsBackgroundFetch(accounts Handle, timeoutSeconds uint64) int
	AccountsGetEventEmitter(accounts Handle) Handle
}

// EventAPI is the event source and event record surface.
type EventAPI interface {
	EventEmitterUnref(emitter Handle)
	// GetNextEvent blocks until an event is available. It returns null once
	// the emitter or its account set has been torn down.
	GetNextEvent(emitter Handle) Handle
	EventUnref(ev Handle)
	EventGetID(ev Handle) int
	EventGetData1Int(ev Handle) int
	EventGetData2Int(ev Handle) int
	EventGetData1Str(ev Handle) Str
	EventGetData2Str(ev Handle) Str
	EventGetAccountID(ev Handle) uint32
}

// JSONRPCAPI is the secondary request/response transport.
type JSONRPCAPI interface {
	JsonrpcInit(accounts Handle) Handle
	JsonrpcUnref(rpc Handle)
	// JsonrpcBlockingCall blocks the caller until the engine has produced
	// the response for request.
	JsonrpcBlockingCall(rpc Handle, request string) Str
}

// ContextAPI is the per-account surface.
type ContextAPI interface {
	ContextUnref(ctx Handle)
	GetID(ctx Handle) uint32
	ContextOpen(ctx Handle, passphrase string) int
	ContextIsOpen(ctx Handle) int
	GetLastError(ctx Handle) Str
	GetConfig(ctx Handle, key string) Str
	// SetConfig stores value under key. A nil value unsets the key.
	SetConfig(ctx Handle, key string, value *string) int
	SetConfigFromQR(ctx Handle, qr string) int
	IsConfigured(ctx Handle) int
	Configure(ctx Handle)
	StopOngoingProcess(ctx Handle)
	GetInfo(ctx Handle) Str
	GetConnectivity(ctx Handle) int
	SetStockTranslation(ctx Handle, stockID uint32, text string) int
	MayBeValidAddr(addr string) int

	Imex(ctx Handle, what int, dir string, passphrase string)
	ImexHasBackup(ctx Handle, dir string) Str
	GetSecurejoinQR(ctx Handle, chatID uint32) Str
	JoinSecurejoin(ctx Handle, qr string) uint32
	CheckQR(ctx Handle, qr string) Handle
	ReceiveBackup(ctx Handle, qr string) int
}

// MessageAPI covers message handles and message operations on a context.
type MessageAPI interface {
	MsgNew(ctx Handle, viewtype int) Handle
	GetMsg(ctx Handle, msgID uint32) Handle
	MsgUnref(msg Handle)
	MsgGetID(msg Handle) uint32
	MsgGetChatID(msg Handle) uint32
	MsgGetFromID(msg Handle) uint32
	MsgGetViewtype(msg Handle) int
	MsgGetState(msg Handle) int
	MsgGetTimestamp(msg Handle) int64
	MsgGetText(msg Handle) Str
	MsgSetText(msg Handle, text string)
	MsgGetSubject(msg Handle) Str
	MsgGetFile(msg Handle) Str
	MsgGetFilename(msg Handle) Str
	MsgGetFilemime(msg Handle) Str
	MsgGetFilebytes(msg Handle) uint64
	MsgSetFile(msg Handle, path, name, mime string)
	MsgIsInfo(msg Handle) int
	MsgIsForwarded(msg Handle) int
	MsgGetSummarytext(msg Handle, approxChars int) Str
	MsgGetSummary(msg Handle, chat Handle) Handle

	SendMsg(ctx Handle, chatID uint32, msg Handle) uint32
	SendTextMsg(ctx Handle, chatID uint32, text string) uint32
	ForwardMsgs(ctx Handle, msgIDs []uint32, chatID uint32)
	DeleteMsgs(ctx Handle, msgIDs []uint32)
	ResendMsgs(ctx Handle, msgIDs []uint32) int
	MarkseenMsgs(ctx Handle, msgIDs []uint32)
	GetChatMsgs(ctx Handle, chatID uint32, flags uint32, marker uint32) Handle
	SearchMsgs(ctx Handle, chatID uint32, query string) Handle
	GetFreshMsgs(ctx Handle) Handle
	GetFreshMsgCnt(ctx Handle, chatID uint32) int
	GetMsgInfo(ctx Handle, msgID uint32) Str
}

// ChatAPI covers chat handles, chat lists and chat operations.
type ChatAPI interface {
	GetChat(ctx Handle, chatID uint32) Handle
	ChatUnref(chat Handle)
	ChatGetID(chat Handle) uint32
	ChatGetName(chat Handle) Str
	ChatGetType(chat Handle) int
	ChatIsSelfTalk(chat Handle) int
	ChatIsDeviceTalk(chat Handle) int
	ChatCanSend(chat Handle) int
	ChatIsMuted(chat Handle) int
	ChatGetColor(chat Handle) uint32
	ChatGetProfileImage(chat Handle) Str
	ChatGetVisibility(chat Handle) int

	GetChatlist(ctx Handle, flags int, query string, queryContactID uint32) Handle
	ChatlistUnref(list Handle)
	ChatlistGetCnt(list Handle) int
	ChatlistGetChatID(list Handle, index int) uint32
	ChatlistGetMsgID(list Handle, index int) uint32
	ChatlistGetSummary(list Handle, index int, chat Handle) Handle

	CreateChatByContactID(ctx Handle, contactID uint32) uint32
	GetChatIDByContactID(ctx Handle, contactID uint32) uint32
	CreateGroupChat(ctx Handle, protect int, name string) uint32
	DeleteChat(ctx Handle, chatID uint32)
	SetChatVisibility(ctx Handle, chatID uint32, visibility int)
	AcceptChat(ctx Handle, chatID uint32)
	BlockChat(ctx Handle, chatID uint32)
	MarknoticedChat(ctx Handle, chatID uint32)
	SetChatName(ctx Handle, chatID uint32, name string) int
	AddContactToChat(ctx Handle, chatID, contactID uint32) int
	RemoveContactFromChat(ctx Handle, chatID, contactID uint32) int
	GetChatContacts(ctx Handle, chatID uint32) Handle
}

// ContactAPI covers contact handles and contact operations.
type ContactAPI interface {
	CreateContact(ctx Handle, name, addr string) uint32
	LookupContactIDByAddr(ctx Handle, addr string) uint32
	GetContacts(ctx Handle, flags uint32, query string) Handle
	GetBlockedContacts(ctx Handle) Handle
	GetContact(ctx Handle, contactID uint32) Handle
	BlockContact(ctx Handle, contactID uint32, block int)
	DeleteContact(ctx Handle, contactID uint32) int
	GetContactEncrinfo(ctx Handle, contactID uint32) Str

	ContactUnref(contact Handle)
	ContactGetID(contact Handle) uint32
	ContactGetDisplayName(contact Handle) Str
	ContactGetName(contact Handle) Str
	ContactGetAddr(contact Handle) Str
	ContactGetStatus(contact Handle) Str
	ContactGetColor(contact Handle) uint32
	ContactIsBlocked(contact Handle) int
	ContactIsVerified(contact Handle) int
	ContactGetLastSeen(contact Handle) int64
}

// ValueAPI covers the plain value containers: arrays, lots, provider info
// and backup providers.
type ValueAPI interface {
	ArrayUnref(arr Handle)
	ArrayGetCnt(arr Handle) int
	ArrayGetID(arr Handle, index int) uint32

	LotUnref(lot Handle)
	LotGetText1(lot Handle) Str
	LotGetText2(lot Handle) Str
	LotGetText1Meaning(lot Handle) int
	LotGetState(lot Handle) int
	LotGetID(lot Handle) uint32
	LotGetTimestamp(lot Handle) int64

	ProviderNewFromEmail(ctx Handle, addr string) Handle
	ProviderUnref(provider Handle)
	ProviderGetOverviewPage(provider Handle) Str
	ProviderGetBeforeLoginHint(provider Handle) Str
	ProviderGetStatus(provider Handle) int

	BackupProviderNew(ctx Handle) Handle
	BackupProviderUnref(bp Handle)
	BackupProviderGetQR(bp Handle) Str
	BackupProviderWait(bp Handle)
}

// Native is the complete engine surface.
type Native interface {
	Strings
	AccountsAPI
	EventAPI
	JSONRPCAPI
	ContextAPI
	MessageAPI
	ChatAPI
	ContactAPI
	ValueAPI
}
