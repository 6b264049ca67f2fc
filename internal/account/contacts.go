package account

import (
	"github.com/Iron-Ham/chatcore/internal/handle"
)

// CreateContact adds a contact or renames an existing one and returns its
// id, 0 on failure.
func (c *Context) CreateContact(name, addr string) uint32 {
	if c.IsNull() {
		return 0
	}
	return c.api.CreateContact(c.h(), name, addr)
}

// CreateContactErr is CreateContact with the engine diagnostic as an error.
func (c *Context) CreateContactErr(name, addr string) (uint32, error) {
	id := c.CreateContact(name, addr)
	if id == 0 {
		return 0, c.fail("create_contact")
	}
	return id, nil
}

// LookupContactIDByAddr returns the id of the contact with addr, 0 if
// unknown.
func (c *Context) LookupContactIDByAddr(addr string) uint32 {
	if c.IsNull() {
		return 0
	}
	return c.api.LookupContactIDByAddr(c.h(), addr)
}

// GetContact loads a contact. Unknown ids yield a null contact.
func (c *Context) GetContact(contactID uint32) *handle.Contact {
	if c.IsNull() {
		return handle.NewContact(c.api, 0)
	}
	return handle.NewContact(c.api, c.api.GetContact(c.h(), contactID))
}

// GetContacts lists contacts. flags is a combination of engine.Gcl* values.
func (c *Context) GetContacts(flags uint32, query string) []uint32 {
	if c.IsNull() {
		return nil
	}
	defer c.timed("get_contacts")()
	return handle.CollectIDs(c.api, c.api.GetContacts(c.h(), flags, query))
}

// BlockedContacts lists blocked contacts.
func (c *Context) BlockedContacts() []uint32 {
	if c.IsNull() {
		return nil
	}
	return handle.CollectIDs(c.api, c.api.GetBlockedContacts(c.h()))
}

func (c *Context) BlockContact(contactID uint32) {
	if !c.IsNull() {
		c.api.BlockContact(c.h(), contactID, 1)
	}
}

func (c *Context) UnblockContact(contactID uint32) {
	if !c.IsNull() {
		c.api.BlockContact(c.h(), contactID, 0)
	}
}

// DeleteContact deletes a contact that is not a member of any chat.
func (c *Context) DeleteContact(contactID uint32) bool {
	return !c.IsNull() && c.api.DeleteContact(c.h(), contactID) != 0
}

// DeleteContactErr is DeleteContact with the engine diagnostic as an error.
func (c *Context) DeleteContactErr(contactID uint32) error {
	if !c.DeleteContact(contactID) {
		return c.fail("delete_contact")
	}
	return nil
}

// ContactEncryptionInfo returns a human-readable description of the
// encryption state with a contact.
func (c *Context) ContactEncryptionInfo(contactID uint32) string {
	if c.IsNull() {
		return ""
	}
	return handle.TakeString(c.api, c.api.GetContactEncrinfo(c.h(), contactID))
}
