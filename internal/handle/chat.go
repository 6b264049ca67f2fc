package handle

import "github.com/Iron-Ham/chatcore/internal/engine"

// Chat wraps a chat handle. A null chat answers with defaults.
type Chat struct {
	ref Ref
	api engine.Native
}

// NewChat takes ownership of h.
func NewChat(api engine.Native, h engine.Handle) *Chat {
	c := &Chat{api: api}
	Attach(c, &c.ref, h, api.ChatUnref)
	return c
}

// Close releases the handle.
func (c *Chat) Close() error { return c.ref.Release() }

// Handle returns the raw handle.
func (c *Chat) Handle() engine.Handle { return c.ref.Handle() }

// IsNull reports whether the chat holds no handle.
func (c *Chat) IsNull() bool { return c.ref.IsNull() }

func (c *Chat) ID() uint32 {
	if c.ref.IsNull() {
		return 0
	}
	return c.api.ChatGetID(c.ref.h)
}

func (c *Chat) Name() string {
	if c.ref.IsNull() {
		return ""
	}
	return TakeString(c.api, c.api.ChatGetName(c.ref.h))
}

// Type returns one of the engine.ChatType* values.
func (c *Chat) Type() int {
	if c.ref.IsNull() {
		return engine.ChatTypeUndefined
	}
	return c.api.ChatGetType(c.ref.h)
}

// IsGroup reports whether the chat is a group.
func (c *Chat) IsGroup() bool {
	return c.Type() == engine.ChatTypeGroup
}

func (c *Chat) IsSelfTalk() bool {
	return !c.ref.IsNull() && boolOf(c.api.ChatIsSelfTalk(c.ref.h))
}

func (c *Chat) IsDeviceTalk() bool {
	return !c.ref.IsNull() && boolOf(c.api.ChatIsDeviceTalk(c.ref.h))
}

func (c *Chat) CanSend() bool {
	return !c.ref.IsNull() && boolOf(c.api.ChatCanSend(c.ref.h))
}

func (c *Chat) IsMuted() bool {
	return !c.ref.IsNull() && boolOf(c.api.ChatIsMuted(c.ref.h))
}

// Color returns the chat's RGB color.
func (c *Chat) Color() uint32 {
	if c.ref.IsNull() {
		return 0
	}
	return c.api.ChatGetColor(c.ref.h)
}

// ProfileImage returns the path of the chat avatar.
func (c *Chat) ProfileImage() (string, bool) {
	if c.ref.IsNull() {
		return "", false
	}
	return TakeOptional(c.api, c.api.ChatGetProfileImage(c.ref.h))
}

// Visibility returns one of the engine.ChatVisibility* values.
func (c *Chat) Visibility() int {
	if c.ref.IsNull() {
		return engine.ChatVisibilityNormal
	}
	return c.api.ChatGetVisibility(c.ref.h)
}

// IsArchived reports whether the chat is archived.
func (c *Chat) IsArchived() bool {
	return c.Visibility() == engine.ChatVisibilityArchived
}
