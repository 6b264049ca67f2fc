package sim

import (
	"fmt"
	"hash/fnv"
	"strings"

	"zombiezen.com/go/sqlite"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

type contactObj struct {
	id       uint32
	name     string
	addr     string
	status   string
	blocked  bool
	verified bool
	lastSeen int64
	self     string
}

func (c *contactObj) displayName() string {
	switch {
	case c.id == engine.ContactIDSelf && c.self != "":
		return c.self
	case c.name != "":
		return c.name
	default:
		return c.addr
	}
}

func colorOf(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(s)))
	return h.Sum32() & 0xffffff
}

const contactColumns = "id, name, addr, status, blocked, verified, last_seen"

func scanContact(stmt *sqlite.Stmt) *contactObj {
	return &contactObj{
		id:       uint32(stmt.ColumnInt64(0)),
		name:     stmt.ColumnText(1),
		addr:     stmt.ColumnText(2),
		status:   stmt.ColumnText(3),
		blocked:  stmt.ColumnInt(4) != 0,
		verified: stmt.ColumnInt(5) != 0,
		lastSeen: stmt.ColumnInt64(6),
	}
}

func (s *accountSet) loadContact(accountID, contactID uint32) (*contactObj, bool) {
	if contactID == engine.ContactIDSelf {
		addr, _ := s.getConfig(accountID, engine.ConfigAddr)
		name, _ := s.getConfig(accountID, engine.ConfigDisplayName)
		status, _ := s.getConfig(accountID, engine.ConfigSelfStatus)
		return &contactObj{
			id:       engine.ContactIDSelf,
			name:     name,
			addr:     addr,
			status:   status,
			verified: true,
			self:     s.stockString(accountID, stockSelf),
		}, true
	}
	var c *contactObj
	err := s.db.query("SELECT "+contactColumns+" FROM contacts WHERE account_id = ? AND id = ?",
		func(stmt *sqlite.Stmt) error {
			c = scanContact(stmt)
			return nil
		}, int64(accountID), int64(contactID))
	return c, err == nil && c != nil
}

func (s *accountSet) contactByAddr(accountID uint32, addr string) uint32 {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if self, _ := s.getConfig(accountID, engine.ConfigAddr); strings.EqualFold(self, addr) && addr != "" {
		return engine.ContactIDSelf
	}
	id, err := s.db.int64("SELECT id FROM contacts WHERE account_id = ? AND addr = ?", int64(accountID), addr)
	if err != nil {
		return 0
	}
	return uint32(id)
}

// createContact returns the id of the contact for addr, creating it when
// needed. A non-empty name replaces the stored one.
func (s *accountSet) createContact(accountID uint32, name, addr string) (uint32, error) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if !validAddr(addr) {
		return 0, fmt.Errorf("bad address supplied: %q", addr)
	}
	if id := s.contactByAddr(accountID, addr); id != 0 {
		if name != "" && id != engine.ContactIDSelf {
			if err := s.db.exec("UPDATE contacts SET name = ? WHERE id = ?", name, int64(id)); err != nil {
				return 0, err
			}
			s.emit(accountID, engine.EventContactsChanged, int(id), 0, "")
		}
		return id, nil
	}
	id, err := s.db.insert(`INSERT INTO contacts (id, account_id, name, addr)
		VALUES ((SELECT COALESCE(MAX(id), ?) + 1 FROM contacts), ?, ?, ?)`,
		int64(engine.ContactIDLastSpecial), int64(accountID), name, addr)
	if err != nil {
		return 0, err
	}
	s.emit(accountID, engine.EventContactsChanged, int(id), 0, "")
	return uint32(id), nil
}

// CreateContact implements engine.ContactAPI.
func (e *Engine) CreateContact(ctx engine.Handle, name, addr string) uint32 {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	id, err := c.set.createContact(c.id, name, addr)
	if err != nil {
		c.set.setLastError(c.id, err.Error())
		return 0
	}
	return id
}

// LookupContactIDByAddr implements engine.ContactAPI.
func (e *Engine) LookupContactIDByAddr(ctx engine.Handle, addr string) uint32 {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	return c.set.contactByAddr(c.id, addr)
}

// GetContacts implements engine.ContactAPI. Blocked contacts are excluded.
func (e *Engine) GetContacts(ctx engine.Handle, flags uint32, query string) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	q := "SELECT id FROM contacts WHERE account_id = ? AND blocked = 0"
	args := []any{int64(c.id)}
	if flags&engine.GclVerifiedOnly != 0 {
		q += " AND verified = 1"
	}
	if query != "" {
		q += " AND (name LIKE ? OR addr LIKE ?)"
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	q += " ORDER BY CASE WHEN name = '' THEN addr ELSE name END COLLATE NOCASE, id"
	ids, err := c.set.db.int64s(q, args...)
	if err != nil {
		c.set.setLastError(c.id, err.Error())
		return 0
	}

	out := make([]uint32, 0, len(ids)+1)
	if flags&engine.GclAddSelf != 0 {
		self, _ := c.set.loadContact(c.id, engine.ContactIDSelf)
		if query == "" || strings.Contains(strings.ToLower(self.addr+" "+self.name), strings.ToLower(query)) {
			out = append(out, engine.ContactIDSelf)
		}
	}
	for _, id := range ids {
		out = append(out, uint32(id))
	}
	return e.alloc(&arrayObj{ids: out})
}

// GetBlockedContacts implements engine.ContactAPI.
func (e *Engine) GetBlockedContacts(ctx engine.Handle) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	ids, err := c.set.db.int64s("SELECT id FROM contacts WHERE account_id = ? AND blocked = 1 ORDER BY id", int64(c.id))
	if err != nil {
		return 0
	}
	return e.alloc(&arrayObj{ids: toU32(ids)})
}

// GetContact implements engine.ContactAPI.
func (e *Engine) GetContact(ctx engine.Handle, contactID uint32) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	contact, ok := c.set.loadContact(c.id, contactID)
	if !ok {
		return 0
	}
	return e.alloc(contact)
}

// BlockContact implements engine.ContactAPI. Blocking also blocks the
// one-to-one chat with the contact.
func (e *Engine) BlockContact(ctx engine.Handle, contactID uint32, block int) {
	c := e.ctx(ctx)
	if c == nil || contactID <= engine.ContactIDLastSpecial {
		return
	}
	n, err := c.set.db.changes("UPDATE contacts SET blocked = ? WHERE account_id = ? AND id = ?",
		int64(b2i(block != 0)), int64(c.id), int64(contactID))
	if err != nil || n == 0 {
		return
	}
	if chatID := c.set.findSingleChat(c.id, contactID); chatID != 0 {
		_ = c.set.db.exec("UPDATE chats SET blocked = ? WHERE id = ?", int64(b2i(block != 0)), int64(chatID))
		c.set.emit(c.id, engine.EventChatModified, int(chatID), 0, "")
	}
	c.set.emit(c.id, engine.EventContactsChanged, int(contactID), 0, "")
}

// DeleteContact implements engine.ContactAPI. Contacts that are members of
// a chat cannot be deleted.
func (e *Engine) DeleteContact(ctx engine.Handle, contactID uint32) int {
	c := e.ctx(ctx)
	if c == nil || contactID <= engine.ContactIDLastSpecial {
		return 0
	}
	inUse, _ := c.set.db.int64("SELECT COUNT(*) FROM chat_contacts WHERE contact_id = ?", int64(contactID))
	if inUse > 0 {
		c.set.setLastError(c.id, "Cannot delete contacts with ongoing chats.")
		return 0
	}
	n, err := c.set.db.changes("DELETE FROM contacts WHERE account_id = ? AND id = ?", int64(c.id), int64(contactID))
	if err != nil || n == 0 {
		return 0
	}
	c.set.emit(c.id, engine.EventContactsChanged, 0, 0, "")
	return 1
}

// GetContactEncrinfo implements engine.ContactAPI.
func (e *Engine) GetContactEncrinfo(ctx engine.Handle, contactID uint32) engine.Str {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	contact, ok := c.set.loadContact(c.id, contactID)
	if !ok {
		return 0
	}
	self, _ := c.set.getConfig(c.id, engine.ConfigAddr)
	return e.str(fmt.Sprintf("End-to-end encryption available.\n\nFingerprints:\n\nMe (%s):\n%s\n\n%s (%s):\n%s",
		self, fingerprint(self), contact.displayName(), contact.addr, fingerprint(contact.addr)))
}

func (e *Engine) contact(h engine.Handle) *contactObj {
	c, ok := lookup[*contactObj](e, h)
	if !ok {
		return &contactObj{}
	}
	return c
}

// ContactUnref implements engine.ContactAPI.
func (e *Engine) ContactUnref(contact engine.Handle) { release[*contactObj](e, contact) }

// ContactGetID implements engine.ContactAPI.
func (e *Engine) ContactGetID(contact engine.Handle) uint32 { return e.contact(contact).id }

// ContactGetDisplayName implements engine.ContactAPI.
func (e *Engine) ContactGetDisplayName(contact engine.Handle) engine.Str {
	return e.str(e.contact(contact).displayName())
}

// ContactGetName implements engine.ContactAPI.
func (e *Engine) ContactGetName(contact engine.Handle) engine.Str {
	return e.str(e.contact(contact).name)
}

// ContactGetAddr implements engine.ContactAPI.
func (e *Engine) ContactGetAddr(contact engine.Handle) engine.Str {
	return e.str(e.contact(contact).addr)
}

// ContactGetStatus implements engine.ContactAPI.
func (e *Engine) ContactGetStatus(contact engine.Handle) engine.Str {
	return e.str(e.contact(contact).status)
}

// ContactGetColor implements engine.ContactAPI.
func (e *Engine) ContactGetColor(contact engine.Handle) uint32 {
	return colorOf(e.contact(contact).addr)
}

// ContactIsBlocked implements engine.ContactAPI.
func (e *Engine) ContactIsBlocked(contact engine.Handle) int {
	return b2i(e.contact(contact).blocked)
}

// ContactIsVerified implements engine.ContactAPI.
func (e *Engine) ContactIsVerified(contact engine.Handle) int {
	return b2i(e.contact(contact).verified)
}

// ContactGetLastSeen implements engine.ContactAPI.
func (e *Engine) ContactGetLastSeen(contact engine.Handle) int64 {
	return e.contact(contact).lastSeen
}

func toU32(ids []int64) []uint32 {
	out := make([]uint32, 0, len(ids))
	for _, id := range ids {
		out = append(out, uint32(id))
	}
	return out
}
