package engine

import "fmt"

// EventKind is the numeric event code reported by EventGetID.
type EventKind int

// Event kinds. Values match the engine's C header.
const (
	EventInfo                        EventKind = 100
	EventSMTPConnected               EventKind = 101
	EventIMAPConnected               EventKind = 102
	EventSMTPMessageSent             EventKind = 103
	EventIMAPMessageDeleted          EventKind = 104
	EventIMAPMessageMoved            EventKind = 105
	EventIMAPInboxIdle               EventKind = 106
	EventNewBlobFile                 EventKind = 150
	EventDeletedBlobFile             EventKind = 151
	EventWarning                     EventKind = 300
	EventError                       EventKind = 400
	EventErrorSelfNotInGroup         EventKind = 410
	EventMsgsChanged                 EventKind = 2000
	EventReactionsChanged            EventKind = 2001
	EventIncomingReaction            EventKind = 2002
	EventIncomingWebxdcNotify        EventKind = 2003
	EventIncomingMsg                 EventKind = 2005
	EventIncomingMsgBunch            EventKind = 2006
	EventMsgsNoticed                 EventKind = 2008
	EventMsgDelivered                EventKind = 2010
	EventMsgFailed                   EventKind = 2012
	EventMsgRead                     EventKind = 2015
	EventMsgDeleted                  EventKind = 2016
	EventChatModified                EventKind = 2020
	EventChatEphemeralTimerModified  EventKind = 2021
	EventChatDeleted                 EventKind = 2023
	EventContactsChanged             EventKind = 2030
	EventLocationChanged             EventKind = 2035
	EventConfigureProgress           EventKind = 2041
	EventImexProgress                EventKind = 2051
	EventImexFileWritten             EventKind = 2052
	EventSecurejoinInviterProgress   EventKind = 2060
	EventSecurejoinJoinerProgress    EventKind = 2061
	EventGetString                   EventKind = 2091
	EventConnectivityChanged         EventKind = 2100
	EventSelfavatarChanged           EventKind = 2110
	EventWebxdcStatusUpdate          EventKind = 2120
	EventWebxdcInstanceDeleted       EventKind = 2121
	EventWebxdcRealtimeData          EventKind = 2150
	EventWebxdcRealtimeAdvertisement EventKind = 2151
	EventAccountsBackgroundFetchDone EventKind = 2200
	EventAccountsChanged             EventKind = 2302
	EventAccountsItemChanged         EventKind = 2303
)

var eventKindNames = map[EventKind]string{
	EventInfo:                        "info",
	EventSMTPConnected:               "smtp_connected",
	EventIMAPConnected:               "imap_connected",
	EventSMTPMessageSent:             "smtp_message_sent",
	EventIMAPMessageDeleted:          "imap_message_deleted",
	EventIMAPMessageMoved:            "imap_message_moved",
	EventIMAPInboxIdle:               "imap_inbox_idle",
	EventNewBlobFile:                 "new_blob_file",
	EventDeletedBlobFile:             "deleted_blob_file",
	EventWarning:                     "warning",
	EventError:                       "error",
	EventErrorSelfNotInGroup:         "error_self_not_in_group",
	EventMsgsChanged:                 "msgs_changed",
	EventReactionsChanged:            "reactions_changed",
	EventIncomingReaction:            "incoming_reaction",
	EventIncomingWebxdcNotify:        "incoming_webxdc_notify",
	EventIncomingMsg:                 "incoming_msg",
	EventIncomingMsgBunch:            "incoming_msg_bunch",
	EventMsgsNoticed:                 "msgs_noticed",
	EventMsgDelivered:                "msg_delivered",
	EventMsgFailed:                   "msg_failed",
	EventMsgRead:                     "msg_read",
	EventMsgDeleted:                  "msg_deleted",
	EventChatModified:                "chat_modified",
	EventChatEphemeralTimerModified:  "chat_ephemeral_timer_modified",
	EventChatDeleted:                 "chat_deleted",
	EventContactsChanged:             "contacts_changed",
	EventLocationChanged:             "location_changed",
	EventConfigureProgress:           "configure_progress",
	EventImexProgress:                "imex_progress",
	EventImexFileWritten:             "imex_file_written",
	EventSecurejoinInviterProgress:   "securejoin_inviter_progress",
	EventSecurejoinJoinerProgress:    "securejoin_joiner_progress",
	EventGetString:                   "get_string",
	EventConnectivityChanged:         "connectivity_changed",
	EventSelfavatarChanged:           "selfavatar_changed",
	EventWebxdcStatusUpdate:          "webxdc_status_update",
	EventWebxdcInstanceDeleted:       "webxdc_instance_deleted",
	EventWebxdcRealtimeData:          "webxdc_realtime_data",
	EventWebxdcRealtimeAdvertisement: "webxdc_realtime_advertisement",
	EventAccountsBackgroundFetchDone: "accounts_background_fetch_done",
	EventAccountsChanged:             "accounts_changed",
	EventAccountsItemChanged:         "accounts_item_changed",
}

// String returns the snake_case name of the kind, or "event_<code>" for
// codes this package does not know.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event_%d", int(k))
}

// IsError reports whether k falls in the error range 400..499.
func (k EventKind) IsError() bool {
	return k >= 400 && k <= 499
}

// Special ids.
const (
	ContactIDSelf        uint32 = 1
	ContactIDInfo        uint32 = 2
	ContactIDDevice      uint32 = 5
	ContactIDLastSpecial uint32 = 9

	ChatIDTrash        uint32 = 3
	ChatIDArchivedLink uint32 = 6
	ChatIDAllDoneHint  uint32 = 7
	ChatIDLastSpecial  uint32 = 9

	MsgIDMarker1     uint32 = 1
	MsgIDDaymarker   uint32 = 9
	MsgIDLastSpecial uint32 = 9
)

// Message view types.
const (
	MsgText    = 10
	MsgImage   = 20
	MsgGif     = 21
	MsgSticker = 23
	MsgAudio   = 40
	MsgVoice   = 41
	MsgVideo   = 50
	MsgFile    = 60
	MsgVcard   = 90
	MsgWebxdc  = 80
)

// Message states.
const (
	StateUndefined    = 0
	StateInFresh      = 10
	StateInNoticed    = 13
	StateInSeen       = 16
	StateOutPreparing = 18
	StateOutDraft     = 19
	StateOutPending   = 20
	StateOutFailed    = 24
	StateOutDelivered = 26
	StateOutMdnRcvd   = 28
)

// Chat types.
const (
	ChatTypeUndefined   = 0
	ChatTypeSingle      = 100
	ChatTypeGroup       = 120
	ChatTypeMailinglist = 140
	ChatTypeBroadcast   = 160
)

// Chat visibility.
const (
	ChatVisibilityNormal   = 0
	ChatVisibilityArchived = 1
	ChatVisibilityPinned   = 2
)

// Chat list flags.
const (
	GcflArchivedOnly   = 0x01
	GcflNoSpecials     = 0x02
	GcflAddAllDoneHint = 0x04
	GcflForForwarding  = 0x08
)

// Contact list flags.
const (
	GclAddSelf      = 0x02
	GclVerifiedOnly = 0x01
)

// Chat message list flags.
const (
	GcmAddDayMarker = 0x01
	GcmInfoOnly     = 0x02
)

// Import/export modes.
const (
	ImexExportSelfKeys = 1
	ImexImportSelfKeys = 2
	ImexExportBackup   = 11
	ImexImportBackup   = 12
)

// Connectivity levels reported by GetConnectivity.
const (
	ConnectivityNotConnected = 1000
	ConnectivityConnecting   = 2000
	ConnectivityWorking      = 3000
	ConnectivityConnected    = 4000
)

// Lot meanings for the summary text1 field.
const (
	Text1Draft    = 1
	Text1Username = 2
	Text1Self     = 3
)

// QR check results stored in the lot state.
const (
	QRAskVerifyContact = 200
	QRAskVerifyGroup   = 202
	QRFprOK            = 210
	QRAccount          = 250
	QRBackup2          = 252
	QRAddr             = 320
	QRText             = 330
	QRURL              = 332
	QRError            = 400
)

// Provider status.
const (
	ProviderStatusOK          = 1
	ProviderStatusPreparation = 2
	ProviderStatusBroken      = 3
)

// Config keys used by this layer.
const (
	ConfigAddr                  = "addr"
	ConfigMailPassword          = "mail_pw"
	ConfigDisplayName           = "displayname"
	ConfigSelfStatus            = "selfstatus"
	ConfigSelfAvatar            = "selfavatar"
	ConfigMDNsEnabled           = "mdns_enabled"
	ConfigShowEmails            = "show_emails"
	ConfigIsChatmail            = "is_chatmail"
	ConfigProxyEnabled          = "proxy_enabled"
	ConfigProxyURL              = "proxy_url"
	ConfigVerifiedOneOnOneChats = "verified_one_on_one_chats"
	ConfigConfigured            = "configured"
	ConfigUIHasWebxdc           = "ui.has_webxdc"
	ConfigUIMuteMentions        = "ui.mute_mentions_if_muted"
)
