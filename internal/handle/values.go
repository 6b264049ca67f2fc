package handle

import (
	"time"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

// Array wraps an id array handle.
type Array struct {
	ref Ref
	api engine.Native
}

// NewArray takes ownership of h.
func NewArray(api engine.Native, h engine.Handle) *Array {
	a := &Array{api: api}
	Attach(a, &a.ref, h, api.ArrayUnref)
	return a
}

// Close releases the handle.
func (a *Array) Close() error { return a.ref.Release() }

// Len returns the number of entries.
func (a *Array) Len() int {
	if a.ref.IsNull() {
		return 0
	}
	return a.api.ArrayGetCnt(a.ref.h)
}

// ID returns the id at index.
func (a *Array) ID(index int) uint32 {
	if a.ref.IsNull() {
		return 0
	}
	return a.api.ArrayGetID(a.ref.h, index)
}

// IDs copies all ids out of the array.
func (a *Array) IDs() []uint32 {
	n := a.Len()
	ids := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, a.api.ArrayGetID(a.ref.h, i))
	}
	return ids
}

// CollectIDs copies the ids of h and releases it.
func CollectIDs(api engine.Native, h engine.Handle) []uint32 {
	arr := NewArray(api, h)
	defer arr.Close()
	return arr.IDs()
}

// Lot wraps a summary lot. A null lot ("no summary yet") answers with
// defaults.
type Lot struct {
	ref Ref
	api engine.Native
}

// NewLot takes ownership of h.
func NewLot(api engine.Native, h engine.Handle) *Lot {
	l := &Lot{api: api}
	Attach(l, &l.ref, h, api.LotUnref)
	return l
}

// Close releases the handle.
func (l *Lot) Close() error { return l.ref.Release() }

// IsNull reports whether the lot holds no handle.
func (l *Lot) IsNull() bool { return l.ref.IsNull() }

func (l *Lot) Text1() string {
	if l.ref.IsNull() {
		return ""
	}
	return TakeString(l.api, l.api.LotGetText1(l.ref.h))
}

func (l *Lot) Text2() string {
	if l.ref.IsNull() {
		return ""
	}
	return TakeString(l.api, l.api.LotGetText2(l.ref.h))
}

// Text1Meaning returns one of the engine.Text1* values.
func (l *Lot) Text1Meaning() int {
	if l.ref.IsNull() {
		return 0
	}
	return l.api.LotGetText1Meaning(l.ref.h)
}

// State returns a message state for summaries, or a QR* code for QR checks.
func (l *Lot) State() int {
	if l.ref.IsNull() {
		return 0
	}
	return l.api.LotGetState(l.ref.h)
}

func (l *Lot) ID() uint32 {
	if l.ref.IsNull() {
		return 0
	}
	return l.api.LotGetID(l.ref.h)
}

func (l *Lot) Timestamp() time.Time {
	if l.ref.IsNull() {
		return time.Time{}
	}
	ts := l.api.LotGetTimestamp(l.ref.h)
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// Chatlist wraps a chat list handle.
type Chatlist struct {
	ref Ref
	api engine.Native
}

// NewChatlist takes ownership of h.
func NewChatlist(api engine.Native, h engine.Handle) *Chatlist {
	l := &Chatlist{api: api}
	Attach(l, &l.ref, h, api.ChatlistUnref)
	return l
}

// Close releases the handle.
func (l *Chatlist) Close() error { return l.ref.Release() }

// Len returns the number of rows.
func (l *Chatlist) Len() int {
	if l.ref.IsNull() {
		return 0
	}
	return l.api.ChatlistGetCnt(l.ref.h)
}

// ChatID returns the chat id of row index.
func (l *Chatlist) ChatID(index int) uint32 {
	if l.ref.IsNull() {
		return 0
	}
	return l.api.ChatlistGetChatID(l.ref.h, index)
}

// MsgID returns the id of the last message of row index.
func (l *Chatlist) MsgID(index int) uint32 {
	if l.ref.IsNull() {
		return 0
	}
	return l.api.ChatlistGetMsgID(l.ref.h, index)
}

// Summary returns the summary of row index. chat may be nil.
func (l *Chatlist) Summary(index int, chat *Chat) *Lot {
	if l.ref.IsNull() {
		return NewLot(l.api, 0)
	}
	var ch engine.Handle
	if chat != nil {
		ch = chat.Handle()
	}
	return NewLot(l.api, l.api.ChatlistGetSummary(l.ref.h, index, ch))
}

// Provider wraps provider information looked up by email address.
type Provider struct {
	ref Ref
	api engine.Native
}

// NewProvider takes ownership of h.
func NewProvider(api engine.Native, h engine.Handle) *Provider {
	p := &Provider{api: api}
	Attach(p, &p.ref, h, api.ProviderUnref)
	return p
}

// Close releases the handle.
func (p *Provider) Close() error { return p.ref.Release() }

// IsNull reports whether no provider information was found.
func (p *Provider) IsNull() bool { return p.ref.IsNull() }

func (p *Provider) OverviewPage() string {
	if p.ref.IsNull() {
		return ""
	}
	return TakeString(p.api, p.api.ProviderGetOverviewPage(p.ref.h))
}

func (p *Provider) BeforeLoginHint() string {
	if p.ref.IsNull() {
		return ""
	}
	return TakeString(p.api, p.api.ProviderGetBeforeLoginHint(p.ref.h))
}

// Status returns one of the engine.ProviderStatus* values, or 0.
func (p *Provider) Status() int {
	if p.ref.IsNull() {
		return 0
	}
	return p.api.ProviderGetStatus(p.ref.h)
}

// BackupProvider wraps a running backup transfer offer.
type BackupProvider struct {
	ref Ref
	api engine.Native
}

// NewBackupProvider takes ownership of h.
func NewBackupProvider(api engine.Native, h engine.Handle) *BackupProvider {
	b := &BackupProvider{api: api}
	Attach(b, &b.ref, h, api.BackupProviderUnref)
	return b
}

// Close releases the handle.
func (b *BackupProvider) Close() error { return b.ref.Release() }

// IsNull reports whether the engine refused to create the provider.
func (b *BackupProvider) IsNull() bool { return b.ref.IsNull() }

// QR returns the text to show as QR code on the sending device.
func (b *BackupProvider) QR() string {
	if b.ref.IsNull() {
		return ""
	}
	return TakeString(b.api, b.api.BackupProviderGetQR(b.ref.h))
}

// Wait blocks until the transfer finished or failed.
func (b *BackupProvider) Wait() {
	if b.ref.IsNull() {
		return
	}
	b.api.BackupProviderWait(b.ref.h)
}
