package handle

import (
	"os"
	"time"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

// Message wraps a message handle.
type Message struct {
	ref Ref
	api engine.Native

	image       []byte
	imageLoaded bool
}

// NewMessage takes ownership of h.
func NewMessage(api engine.Native, h engine.Handle) *Message {
	m := &Message{api: api}
	Attach(m, &m.ref, h, api.MsgUnref)
	return m
}

// Close releases the handle.
func (m *Message) Close() error { return m.ref.Release() }

// Handle returns the raw handle for passing back to the engine.
func (m *Message) Handle() engine.Handle { return m.ref.Handle() }

// IsNull reports whether the message holds no handle.
func (m *Message) IsNull() bool { return m.ref.IsNull() }

// ID returns the message id.
func (m *Message) ID() uint32 {
	if m.ref.IsNull() {
		return 0
	}
	return m.api.MsgGetID(m.ref.h)
}

// ChatID returns the id of the chat the message belongs to.
func (m *Message) ChatID() uint32 {
	if m.ref.IsNull() {
		return 0
	}
	return m.api.MsgGetChatID(m.ref.h)
}

// FromID returns the sender's contact id.
func (m *Message) FromID() uint32 {
	if m.ref.IsNull() {
		return 0
	}
	return m.api.MsgGetFromID(m.ref.h)
}

// Viewtype returns one of the engine.Msg* view types.
func (m *Message) Viewtype() int {
	if m.ref.IsNull() {
		return 0
	}
	return m.api.MsgGetViewtype(m.ref.h)
}

// State returns one of the engine.State* values.
func (m *Message) State() int {
	if m.ref.IsNull() {
		return engine.StateUndefined
	}
	return m.api.MsgGetState(m.ref.h)
}

// Timestamp returns the sort timestamp.
func (m *Message) Timestamp() time.Time {
	if m.ref.IsNull() {
		return time.Time{}
	}
	return time.Unix(m.api.MsgGetTimestamp(m.ref.h), 0)
}

// Text returns the message text.
func (m *Message) Text() string {
	if m.ref.IsNull() {
		return ""
	}
	return TakeString(m.api, m.api.MsgGetText(m.ref.h))
}

// SetText sets the text of a message that has not been sent yet.
func (m *Message) SetText(text string) {
	if m.ref.IsNull() {
		return
	}
	m.api.MsgSetText(m.ref.h, text)
}

// Subject returns the email subject, if any.
func (m *Message) Subject() string {
	if m.ref.IsNull() {
		return ""
	}
	return TakeString(m.api, m.api.MsgGetSubject(m.ref.h))
}

// File returns the path of the attachment.
func (m *Message) File() (string, bool) {
	if m.ref.IsNull() {
		return "", false
	}
	return TakeOptional(m.api, m.api.MsgGetFile(m.ref.h))
}

// Filename returns the original attachment name.
func (m *Message) Filename() string {
	if m.ref.IsNull() {
		return ""
	}
	return TakeString(m.api, m.api.MsgGetFilename(m.ref.h))
}

// Filemime returns the attachment's mime type.
func (m *Message) Filemime() (string, bool) {
	if m.ref.IsNull() {
		return "", false
	}
	return TakeOptional(m.api, m.api.MsgGetFilemime(m.ref.h))
}

// Filebytes returns the attachment size.
func (m *Message) Filebytes() uint64 {
	if m.ref.IsNull() {
		return 0
	}
	return m.api.MsgGetFilebytes(m.ref.h)
}

// SetFile attaches a file. An empty mime lets the engine guess.
func (m *Message) SetFile(path, name, mime string) {
	if m.ref.IsNull() {
		return
	}
	m.api.MsgSetFile(m.ref.h, path, name, mime)
	m.image = nil
	m.imageLoaded = false
}

// IsInfo reports whether this is a system/info message.
func (m *Message) IsInfo() bool {
	return !m.ref.IsNull() && boolOf(m.api.MsgIsInfo(m.ref.h))
}

// IsForwarded reports whether the message was forwarded.
func (m *Message) IsForwarded() bool {
	return !m.ref.IsNull() && boolOf(m.api.MsgIsForwarded(m.ref.h))
}

// IsOutgoing reports whether the message was sent by self.
func (m *Message) IsOutgoing() bool {
	return m.FromID() == engine.ContactIDSelf
}

// SummaryText returns a one-line preview of at most approxChars characters.
func (m *Message) SummaryText(approxChars int) string {
	if m.ref.IsNull() {
		return ""
	}
	return TakeString(m.api, m.api.MsgGetSummarytext(m.ref.h, approxChars))
}

// Summary returns the summary lot. chat may be nil.
func (m *Message) Summary(chat *Chat) *Lot {
	if m.ref.IsNull() {
		return NewLot(m.api, 0)
	}
	var ch engine.Handle
	if chat != nil {
		ch = chat.Handle()
	}
	return NewLot(m.api, m.api.MsgGetSummary(m.ref.h, ch))
}

// Image returns the bytes of an image attachment. The result is read once and
// cached for the lifetime of the wrapper; a later SetFile drops the cache.
func (m *Message) Image() ([]byte, error) {
	if m.imageLoaded {
		return m.image, nil
	}
	switch m.Viewtype() {
	case engine.MsgImage, engine.MsgGif, engine.MsgSticker:
	default:
		return nil, nil
	}
	path, ok := m.File()
	if !ok {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m.image = data
	m.imageLoaded = true
	return data, nil
}
