package account

import (
	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/handle"
)

// NewMessage creates an unsent draft of the given view type.
func (c *Context) NewMessage(viewtype int) *handle.Message {
	if c.IsNull() {
		return handle.NewMessage(c.api, 0)
	}
	return handle.NewMessage(c.api, c.api.MsgNew(c.h(), viewtype))
}

// GetMessage loads a message. Unknown ids yield a null message.
func (c *Context) GetMessage(msgID uint32) *handle.Message {
	if c.IsNull() {
		return handle.NewMessage(c.api, 0)
	}
	m := handle.NewMessage(c.api, c.api.GetMsg(c.h(), msgID))
	if m.Viewtype() == engine.MsgWebxdc {
		c.noteWebxdc()
	}
	return m
}

// SendMessage queues msg in chatID and returns the new message id, 0 on
// failure.
func (c *Context) SendMessage(chatID uint32, msg *handle.Message) uint32 {
	if c.IsNull() || msg == nil || msg.IsNull() {
		return 0
	}
	return c.api.SendMsg(c.h(), chatID, msg.Handle())
}

// SendMessageErr is SendMessage with the engine diagnostic as an error.
func (c *Context) SendMessageErr(chatID uint32, msg *handle.Message) (uint32, error) {
	id := c.SendMessage(chatID, msg)
	if id == 0 {
		return 0, c.fail("send_msg")
	}
	return id, nil
}

// SendText sends a text message and returns its id, 0 on failure.
func (c *Context) SendText(chatID uint32, text string) uint32 {
	if c.IsNull() {
		return 0
	}
	return c.api.SendTextMsg(c.h(), chatID, text)
}

// SendTextErr is SendText with the engine diagnostic as an error.
func (c *Context) SendTextErr(chatID uint32, text string) (uint32, error) {
	id := c.SendText(chatID, text)
	if id == 0 {
		return 0, c.fail("send_text_msg")
	}
	return id, nil
}

func (c *Context) ForwardMessages(msgIDs []uint32, chatID uint32) {
	if c.IsNull() || len(msgIDs) == 0 {
		return
	}
	c.api.ForwardMsgs(c.h(), msgIDs, chatID)
}

func (c *Context) DeleteMessages(msgIDs []uint32) {
	if c.IsNull() || len(msgIDs) == 0 {
		return
	}
	c.api.DeleteMsgs(c.h(), msgIDs)
}

// ResendMessages retries failed outgoing messages.
func (c *Context) ResendMessages(msgIDs []uint32) bool {
	return !c.IsNull() && c.api.ResendMsgs(c.h(), msgIDs) != 0
}

// ResendMessagesErr is ResendMessages with the engine diagnostic as an error.
func (c *Context) ResendMessagesErr(msgIDs []uint32) error {
	if !c.ResendMessages(msgIDs) {
		return c.fail("resend_msgs")
	}
	return nil
}

// MarkSeen marks incoming messages as seen.
func (c *Context) MarkSeen(msgIDs []uint32) {
	if c.IsNull() || len(msgIDs) == 0 {
		return
	}
	c.api.MarkseenMsgs(c.h(), msgIDs)
}

// GetChatMessages returns the message ids of a chat, oldest first. flags is
// a combination of engine.Gcm* values; marker, if not 0, places a marker
// before that message.
func (c *Context) GetChatMessages(chatID uint32, flags uint32, marker uint32) []uint32 {
	if c.IsNull() {
		return nil
	}
	defer c.timed("get_chat_msgs")()
	return handle.CollectIDs(c.api, c.api.GetChatMsgs(c.h(), chatID, flags, marker))
}

// FreshMessageCount returns the number of unread messages in chatID.
func (c *Context) FreshMessageCount(chatID uint32) int {
	if c.IsNull() {
		return 0
	}
	return c.api.GetFreshMsgCnt(c.h(), chatID)
}

// FreshMessages returns the ids of all unread messages across chats.
func (c *Context) FreshMessages() []uint32 {
	if c.IsNull() {
		return nil
	}
	return handle.CollectIDs(c.api, c.api.GetFreshMsgs(c.h()))
}

// SearchMessages searches chatID, or all chats when chatID is 0.
func (c *Context) SearchMessages(chatID uint32, query string) []uint32 {
	if c.IsNull() {
		return nil
	}
	defer c.timed("search_msgs")()
	return handle.CollectIDs(c.api, c.api.SearchMsgs(c.h(), chatID, query))
}

// MessageInfo returns the engine's human-readable details of a message.
func (c *Context) MessageInfo(msgID uint32) string {
	if c.IsNull() {
		return ""
	}
	return handle.TakeString(c.api, c.api.GetMsgInfo(c.h(), msgID))
}
