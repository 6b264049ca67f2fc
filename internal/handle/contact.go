package handle

import (
	"time"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

// Contact wraps a contact handle. A null contact answers with defaults.
type Contact struct {
	ref Ref
	api engine.Native
}

// NewContact takes ownership of h.
func NewContact(api engine.Native, h engine.Handle) *Contact {
	c := &Contact{api: api}
	Attach(c, &c.ref, h, api.ContactUnref)
	return c
}

// Close releases the handle.
func (c *Contact) Close() error { return c.ref.Release() }

// IsNull reports whether the contact holds no handle.
func (c *Contact) IsNull() bool { return c.ref.IsNull() }

func (c *Contact) ID() uint32 {
	if c.ref.IsNull() {
		return 0
	}
	return c.api.ContactGetID(c.ref.h)
}

// DisplayName returns the name, falling back to the address.
func (c *Contact) DisplayName() string {
	if c.ref.IsNull() {
		return ""
	}
	return TakeString(c.api, c.api.ContactGetDisplayName(c.ref.h))
}

// Name returns the name given locally, which may be empty.
func (c *Contact) Name() string {
	if c.ref.IsNull() {
		return ""
	}
	return TakeString(c.api, c.api.ContactGetName(c.ref.h))
}

func (c *Contact) Addr() string {
	if c.ref.IsNull() {
		return ""
	}
	return TakeString(c.api, c.api.ContactGetAddr(c.ref.h))
}

// Status returns the contact's signature/status text.
func (c *Contact) Status() string {
	if c.ref.IsNull() {
		return ""
	}
	return TakeString(c.api, c.api.ContactGetStatus(c.ref.h))
}

func (c *Contact) Color() uint32 {
	if c.ref.IsNull() {
		return 0
	}
	return c.api.ContactGetColor(c.ref.h)
}

func (c *Contact) IsBlocked() bool {
	return !c.ref.IsNull() && boolOf(c.api.ContactIsBlocked(c.ref.h))
}

func (c *Contact) IsVerified() bool {
	return !c.ref.IsNull() && boolOf(c.api.ContactIsVerified(c.ref.h))
}

// LastSeen returns zero time when the contact was never seen.
func (c *Contact) LastSeen() time.Time {
	if c.ref.IsNull() {
		return time.Time{}
	}
	ts := c.api.ContactGetLastSeen(c.ref.h)
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}
