package account

import (
	"github.com/Iron-Ham/chatcore/internal/handle"
)

// GetChat loads a chat. Unknown ids yield a null chat.
func (c *Context) GetChat(chatID uint32) *handle.Chat {
	if c.IsNull() {
		return handle.NewChat(c.api, 0)
	}
	return handle.NewChat(c.api, c.api.GetChat(c.h(), chatID))
}

// GetChatlist returns the chat list. flags is a combination of engine.Gcfl*
// values; query filters by name and queryContactID by member.
func (c *Context) GetChatlist(flags int, query string, queryContactID uint32) *handle.Chatlist {
	if c.IsNull() {
		return handle.NewChatlist(c.api, 0)
	}
	defer c.timed("get_chatlist")()
	return handle.NewChatlist(c.api, c.api.GetChatlist(c.h(), flags, query, queryContactID))
}

// CreateChatByContactID returns the one-to-one chat with a contact, creating
// it if needed.
func (c *Context) CreateChatByContactID(contactID uint32) uint32 {
	if c.IsNull() {
		return 0
	}
	return c.api.CreateChatByContactID(c.h(), contactID)
}

// ChatIDByContactID returns the existing one-to-one chat with a contact, 0
// if there is none.
func (c *Context) ChatIDByContactID(contactID uint32) uint32 {
	if c.IsNull() {
		return 0
	}
	return c.api.GetChatIDByContactID(c.h(), contactID)
}

// CreateGroupChat creates a group with self as the only member.
func (c *Context) CreateGroupChat(protected bool, name string) uint32 {
	if c.IsNull() {
		return 0
	}
	p := 0
	if protected {
		p = 1
	}
	return c.api.CreateGroupChat(c.h(), p, name)
}

// CreateGroupChatErr is CreateGroupChat with the engine diagnostic as an
// error.
func (c *Context) CreateGroupChatErr(protected bool, name string) (uint32, error) {
	id := c.CreateGroupChat(protected, name)
	if id == 0 {
		return 0, c.fail("create_group_chat")
	}
	return id, nil
}

func (c *Context) DeleteChat(chatID uint32) {
	if !c.IsNull() {
		c.api.DeleteChat(c.h(), chatID)
	}
}

// MarkNoticedChat marks all fresh messages of a chat as noticed.
func (c *Context) MarkNoticedChat(chatID uint32) {
	if !c.IsNull() {
		c.api.MarknoticedChat(c.h(), chatID)
	}
}

// SetChatVisibility archives, pins or restores a chat.
func (c *Context) SetChatVisibility(chatID uint32, visibility int) {
	if !c.IsNull() {
		c.api.SetChatVisibility(c.h(), chatID, visibility)
	}
}

// AcceptChat accepts a contact request.
func (c *Context) AcceptChat(chatID uint32) {
	if !c.IsNull() {
		c.api.AcceptChat(c.h(), chatID)
	}
}

// BlockChat blocks a chat and, for one-to-one chats, its contact.
func (c *Context) BlockChat(chatID uint32) {
	if !c.IsNull() {
		c.api.BlockChat(c.h(), chatID)
	}
}

func (c *Context) SetChatName(chatID uint32, name string) bool {
	return !c.IsNull() && c.api.SetChatName(c.h(), chatID, name) != 0
}

// SetChatNameErr is SetChatName with the engine diagnostic as an error.
func (c *Context) SetChatNameErr(chatID uint32, name string) error {
	if !c.SetChatName(chatID, name) {
		return c.fail("set_chat_name")
	}
	return nil
}

func (c *Context) AddContactToChat(chatID, contactID uint32) bool {
	return !c.IsNull() && c.api.AddContactToChat(c.h(), chatID, contactID) != 0
}

// AddContactToChatErr is AddContactToChat with the engine diagnostic as an
// error.
func (c *Context) AddContactToChatErr(chatID, contactID uint32) error {
	if !c.AddContactToChat(chatID, contactID) {
		return c.fail("add_contact_to_chat")
	}
	return nil
}

func (c *Context) RemoveContactFromChat(chatID, contactID uint32) bool {
	return !c.IsNull() && c.api.RemoveContactFromChat(c.h(), chatID, contactID) != 0
}

// RemoveContactFromChatErr is RemoveContactFromChat with the engine
// diagnostic as an error.
func (c *Context) RemoveContactFromChatErr(chatID, contactID uint32) error {
	if !c.RemoveContactFromChat(chatID, contactID) {
		return c.fail("remove_contact_from_chat")
	}
	return nil
}

// GetChatContacts returns the member contact ids of a chat.
func (c *Context) GetChatContacts(chatID uint32) []uint32 {
	if c.IsNull() {
		return nil
	}
	return handle.CollectIDs(c.api, c.api.GetChatContacts(c.h(), chatID))
}
