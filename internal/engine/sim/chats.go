package sim

import (
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

type chatObj struct {
	id           uint32
	typ          int
	name         string
	visibility   int
	blocked      bool
	muted        bool
	profileImage string
	selfTalk     bool
	deviceTalk   bool
	selfInChat   bool
}

func (c *chatObj) canSend() bool {
	if c.id <= engine.ChatIDLastSpecial || c.blocked || c.deviceTalk {
		return false
	}
	switch c.typ {
	case engine.ChatTypeMailinglist:
		return false
	case engine.ChatTypeGroup, engine.ChatTypeBroadcast:
		return c.selfInChat
	default:
		return true
	}
}

func (s *accountSet) loadChat(accountID, chatID uint32) (*chatObj, bool) {
	var c *chatObj
	err := s.db.query(`SELECT id, type, name, visibility, blocked, muted, profile_image
		FROM chats WHERE account_id = ? AND id = ?`, func(stmt *sqlite.Stmt) error {
		c = &chatObj{
			id:           uint32(stmt.ColumnInt64(0)),
			typ:          stmt.ColumnInt(1),
			name:         stmt.ColumnText(2),
			visibility:   stmt.ColumnInt(3),
			blocked:      stmt.ColumnInt(4) != 0,
			muted:        stmt.ColumnInt(5) != 0,
			profileImage: stmt.ColumnText(6),
		}
		return nil
	}, int64(accountID), int64(chatID))
	if err != nil || c == nil {
		return nil, false
	}

	members := s.members(chatID)
	for _, m := range members {
		if m == engine.ContactIDSelf {
			c.selfInChat = true
		}
	}
	if c.typ == engine.ChatTypeSingle && len(members) == 1 {
		switch members[0] {
		case engine.ContactIDSelf:
			c.selfTalk = true
			c.name = s.stockString(accountID, stockSavedMessages)
		case engine.ContactIDDevice:
			c.deviceTalk = true
			c.name = s.stockString(accountID, stockDeviceMessages)
		}
	}
	return c, true
}

func (s *accountSet) members(chatID uint32) []uint32 {
	ids, err := s.db.int64s("SELECT contact_id FROM chat_contacts WHERE chat_id = ? ORDER BY contact_id", int64(chatID))
	if err != nil {
		return nil
	}
	return toU32(ids)
}

func (s *accountSet) findSingleChat(accountID, contactID uint32) uint32 {
	id, err := s.db.int64(`SELECT c.id FROM chats c JOIN chat_contacts cc ON cc.chat_id = c.id
		WHERE c.account_id = ? AND c.type = ? AND cc.contact_id = ?
		AND (SELECT COUNT(*) FROM chat_contacts WHERE chat_id = c.id) = 1`,
		int64(accountID), int64(engine.ChatTypeSingle), int64(contactID))
	if err != nil {
		return 0
	}
	return uint32(id)
}

func (s *accountSet) newChat(accountID uint32, typ int, name string, members ...uint32) (uint32, error) {
	var chatID uint32
	err := s.db.tx(func(conn *sqlite.Conn) error {
		if err := execConn(conn, `INSERT INTO chats (id, account_id, type, name)
			VALUES ((SELECT COALESCE(MAX(id), ?) + 1 FROM chats), ?, ?, ?)`,
			int64(engine.ChatIDLastSpecial), int64(accountID), int64(typ), name); err != nil {
			return err
		}
		chatID = uint32(conn.LastInsertRowID())
		for _, m := range members {
			if err := execConn(conn, "INSERT OR IGNORE INTO chat_contacts (chat_id, contact_id) VALUES (?, ?)",
				int64(chatID), int64(m)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.emit(accountID, engine.EventMsgsChanged, 0, 0, "")
	return chatID, nil
}

// singleChat returns the one-to-one chat with contactID, creating it when
// needed.
func (s *accountSet) singleChat(accountID, contactID uint32) (uint32, error) {
	if id := s.findSingleChat(accountID, contactID); id != 0 {
		return id, nil
	}
	contact, ok := s.loadContact(accountID, contactID)
	if !ok {
		return 0, fmt.Errorf("contact %d not found", contactID)
	}
	return s.newChat(accountID, engine.ChatTypeSingle, contact.displayName(), contactID)
}

func (s *accountSet) createGroupChat(accountID uint32, typ int, name string) (uint32, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("group name must not be empty")
	}
	chatID, err := s.newChat(accountID, typ, name, engine.ContactIDSelf)
	if err != nil {
		return 0, err
	}
	s.emit(accountID, engine.EventChatModified, int(chatID), 0, "")
	return chatID, nil
}

func (s *accountSet) addMember(chatID, contactID uint32) error {
	return s.db.exec("INSERT OR IGNORE INTO chat_contacts (chat_id, contact_id) VALUES (?, ?)",
		int64(chatID), int64(contactID))
}

// GetChat implements engine.ChatAPI.
func (e *Engine) GetChat(ctx engine.Handle, chatID uint32) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	chat, ok := c.set.loadChat(c.id, chatID)
	if !ok {
		return 0
	}
	return e.alloc(chat)
}

func (e *Engine) chat(h engine.Handle) *chatObj {
	c, ok := lookup[*chatObj](e, h)
	if !ok {
		return &chatObj{}
	}
	return c
}

// ChatUnref implements engine.ChatAPI.
func (e *Engine) ChatUnref(chat engine.Handle) { release[*chatObj](e, chat) }

// ChatGetID implements engine.ChatAPI.
func (e *Engine) ChatGetID(chat engine.Handle) uint32 { return e.chat(chat).id }

// ChatGetName implements engine.ChatAPI.
func (e *Engine) ChatGetName(chat engine.Handle) engine.Str { return e.str(e.chat(chat).name) }

// ChatGetType implements engine.ChatAPI.
func (e *Engine) ChatGetType(chat engine.Handle) int { return e.chat(chat).typ }

// ChatIsSelfTalk implements engine.ChatAPI.
func (e *Engine) ChatIsSelfTalk(chat engine.Handle) int { return b2i(e.chat(chat).selfTalk) }

// ChatIsDeviceTalk implements engine.ChatAPI.
func (e *Engine) ChatIsDeviceTalk(chat engine.Handle) int { return b2i(e.chat(chat).deviceTalk) }

// ChatCanSend implements engine.ChatAPI.
func (e *Engine) ChatCanSend(chat engine.Handle) int { return b2i(e.chat(chat).canSend()) }

// ChatIsMuted implements engine.ChatAPI.
func (e *Engine) ChatIsMuted(chat engine.Handle) int { return b2i(e.chat(chat).muted) }

// ChatGetColor implements engine.ChatAPI.
func (e *Engine) ChatGetColor(chat engine.Handle) uint32 { return colorOf(e.chat(chat).name) }

// ChatGetProfileImage implements engine.ChatAPI.
func (e *Engine) ChatGetProfileImage(chat engine.Handle) engine.Str {
	c := e.chat(chat)
	if c.profileImage == "" {
		return 0
	}
	return e.str(c.profileImage)
}

// ChatGetVisibility implements engine.ChatAPI.
func (e *Engine) ChatGetVisibility(chat engine.Handle) int { return e.chat(chat).visibility }

type chatlistEntry struct {
	chatID uint32
	msgID  uint32
}

type chatlistObj struct {
	set       *accountSet
	accountID uint32
	entries   []chatlistEntry
}

// GetChatlist implements engine.ChatAPI. Pinned chats come first, then
// chats by their newest message.
func (e *Engine) GetChatlist(ctx engine.Handle, flags int, query string, queryContactID uint32) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	s := c.set

	q := `SELECT c.id, COALESCE((SELECT m.id FROM msgs m WHERE m.chat_id = c.id ORDER BY m.timestamp DESC, m.id DESC LIMIT 1), 0)
		FROM chats c WHERE c.account_id = ? AND c.blocked = 0`
	args := []any{int64(c.id)}
	archivedOnly := flags&engine.GcflArchivedOnly != 0
	if archivedOnly {
		q += " AND c.visibility = ?"
	} else {
		q += " AND c.visibility != ?"
	}
	args = append(args, int64(engine.ChatVisibilityArchived))
	if query != "" {
		q += " AND c.name LIKE ?"
		args = append(args, "%"+query+"%")
	}
	if queryContactID != 0 {
		q += " AND EXISTS (SELECT 1 FROM chat_contacts cc WHERE cc.chat_id = c.id AND cc.contact_id = ?)"
		args = append(args, int64(queryContactID))
	}
	q += ` ORDER BY c.visibility = 2 DESC,
		COALESCE((SELECT MAX(m.timestamp) FROM msgs m WHERE m.chat_id = c.id), 0) DESC, c.id DESC`

	list := &chatlistObj{set: s, accountID: c.id}
	err := s.db.query(q, func(stmt *sqlite.Stmt) error {
		list.entries = append(list.entries, chatlistEntry{
			chatID: uint32(stmt.ColumnInt64(0)),
			msgID:  uint32(stmt.ColumnInt64(1)),
		})
		return nil
	}, args...)
	if err != nil {
		s.setLastError(c.id, err.Error())
		return 0
	}

	if flags&engine.GcflForForwarding != 0 {
		kept := list.entries[:0]
		for _, en := range list.entries {
			if ch, ok := s.loadChat(c.id, en.chatID); ok && ch.canSend() {
				kept = append(kept, en)
			}
		}
		list.entries = kept
	}

	specials := flags&engine.GcflNoSpecials == 0 && query == "" && queryContactID == 0
	if specials && !archivedOnly {
		archived, _ := s.db.int64("SELECT COUNT(*) FROM chats WHERE account_id = ? AND visibility = ? AND blocked = 0",
			int64(c.id), int64(engine.ChatVisibilityArchived))
		if archived > 0 {
			list.entries = append(list.entries, chatlistEntry{chatID: engine.ChatIDArchivedLink})
		}
	}
	if specials && flags&engine.GcflAddAllDoneHint != 0 && len(list.entries) > 0 {
		fresh, _ := s.db.int64(`SELECT COUNT(*) FROM msgs m JOIN chats c ON c.id = m.chat_id
			WHERE m.account_id = ? AND m.state = ? AND c.visibility != ?`,
			int64(c.id), int64(engine.StateInFresh), int64(engine.ChatVisibilityArchived))
		if fresh == 0 {
			list.entries = append(list.entries, chatlistEntry{chatID: engine.ChatIDAllDoneHint})
		}
	}
	return e.alloc(list)
}

func (e *Engine) chatlist(h engine.Handle) *chatlistObj {
	l, ok := lookup[*chatlistObj](e, h)
	if !ok {
		return &chatlistObj{}
	}
	return l
}

func (l *chatlistObj) at(i int) (chatlistEntry, bool) {
	if i < 0 || i >= len(l.entries) {
		return chatlistEntry{}, false
	}
	return l.entries[i], true
}

// ChatlistUnref implements engine.ChatAPI.
func (e *Engine) ChatlistUnref(list engine.Handle) { release[*chatlistObj](e, list) }

// ChatlistGetCnt implements engine.ChatAPI.
func (e *Engine) ChatlistGetCnt(list engine.Handle) int { return len(e.chatlist(list).entries) }

// ChatlistGetChatID implements engine.ChatAPI.
func (e *Engine) ChatlistGetChatID(list engine.Handle, i int) uint32 {
	en, _ := e.chatlist(list).at(i)
	return en.chatID
}

// ChatlistGetMsgID implements engine.ChatAPI.
func (e *Engine) ChatlistGetMsgID(list engine.Handle, i int) uint32 {
	en, _ := e.chatlist(list).at(i)
	return en.msgID
}

// ChatlistGetSummary implements engine.ChatAPI. A null chat handle makes
// the engine load the chat itself.
func (e *Engine) ChatlistGetSummary(list engine.Handle, i int, chat engine.Handle) engine.Handle {
	l := e.chatlist(list)
	en, ok := l.at(i)
	if !ok || l.set == nil {
		return 0
	}
	var ch *chatObj
	if chat != 0 {
		ch = e.chat(chat)
	} else if loaded, ok := l.set.loadChat(l.accountID, en.chatID); ok {
		ch = loaded
	}
	if en.msgID == 0 {
		return e.alloc(&lotObj{})
	}
	m, ok := l.set.loadMsg(l.accountID, en.msgID)
	if !ok {
		return e.alloc(&lotObj{})
	}
	return e.alloc(l.set.summary(l.accountID, m, ch))
}

// CreateChatByContactID implements engine.ChatAPI. An existing blocked chat
// is unblocked.
func (e *Engine) CreateChatByContactID(ctx engine.Handle, contactID uint32) uint32 {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	chatID, err := c.set.singleChat(c.id, contactID)
	if err != nil {
		c.set.setLastError(c.id, err.Error())
		return 0
	}
	if n, _ := c.set.db.changes("UPDATE chats SET blocked = 0 WHERE id = ? AND blocked != 0", int64(chatID)); n > 0 {
		c.set.emit(c.id, engine.EventChatModified, int(chatID), 0, "")
	}
	return chatID
}

// GetChatIDByContactID implements engine.ChatAPI.
func (e *Engine) GetChatIDByContactID(ctx engine.Handle, contactID uint32) uint32 {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	return c.set.findSingleChat(c.id, contactID)
}

// CreateGroupChat implements engine.ChatAPI.
func (e *Engine) CreateGroupChat(ctx engine.Handle, protect int, name string) uint32 {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	_ = protect
	chatID, err := c.set.createGroupChat(c.id, engine.ChatTypeGroup, name)
	if err != nil {
		c.set.setLastError(c.id, err.Error())
		return 0
	}
	return chatID
}

// DeleteChat implements engine.ChatAPI.
func (e *Engine) DeleteChat(ctx engine.Handle, chatID uint32) {
	c := e.ctx(ctx)
	if c == nil || chatID <= engine.ChatIDLastSpecial {
		return
	}
	if _, ok := c.set.loadChat(c.id, chatID); !ok {
		return
	}
	err := c.set.db.tx(func(conn *sqlite.Conn) error {
		for _, q := range []string{
			"DELETE FROM reactions WHERE msg_id IN (SELECT id FROM msgs WHERE chat_id = ?)",
			"DELETE FROM msgs WHERE chat_id = ?",
			"DELETE FROM chat_contacts WHERE chat_id = ?",
			"DELETE FROM chats WHERE id = ?",
		} {
			if err := execConn(conn, q, int64(chatID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.set.setLastError(c.id, err.Error())
		return
	}
	c.set.emit(c.id, engine.EventChatDeleted, int(chatID), 0, "")
	c.set.emit(c.id, engine.EventMsgsChanged, 0, 0, "")
}

func (e *Engine) updateChat(ctx engine.Handle, chatID uint32, query string, args ...any) (*contextObj, bool) {
	c := e.ctx(ctx)
	if c == nil || chatID <= engine.ChatIDLastSpecial {
		return nil, false
	}
	args = append(args, int64(c.id), int64(chatID))
	n, err := c.set.db.changes(query+" WHERE account_id = ? AND id = ?", args...)
	if err != nil || n == 0 {
		return c, false
	}
	c.set.emit(c.id, engine.EventChatModified, int(chatID), 0, "")
	return c, true
}

// SetChatVisibility implements engine.ChatAPI.
func (e *Engine) SetChatVisibility(ctx engine.Handle, chatID uint32, visibility int) {
	switch visibility {
	case engine.ChatVisibilityNormal, engine.ChatVisibilityArchived, engine.ChatVisibilityPinned:
	default:
		return
	}
	if c, ok := e.updateChat(ctx, chatID, "UPDATE chats SET visibility = ?", int64(visibility)); ok {
		c.set.emit(c.id, engine.EventMsgsChanged, 0, 0, "")
	}
}

// AcceptChat implements engine.ChatAPI.
func (e *Engine) AcceptChat(ctx engine.Handle, chatID uint32) {
	e.updateChat(ctx, chatID, "UPDATE chats SET blocked = 0")
}

// BlockChat implements engine.ChatAPI. Blocking a one-to-one chat blocks the
// contact as well.
func (e *Engine) BlockChat(ctx engine.Handle, chatID uint32) {
	c, ok := e.updateChat(ctx, chatID, "UPDATE chats SET blocked = 1")
	if !ok {
		return
	}
	if ch, ok := c.set.loadChat(c.id, chatID); ok && ch.typ == engine.ChatTypeSingle && !ch.selfTalk {
		for _, m := range c.set.members(chatID) {
			_ = c.set.db.exec("UPDATE contacts SET blocked = 1 WHERE id = ?", int64(m))
			c.set.emit(c.id, engine.EventContactsChanged, int(m), 0, "")
		}
	}
}

// MarknoticedChat implements engine.ChatAPI.
func (e *Engine) MarknoticedChat(ctx engine.Handle, chatID uint32) {
	c := e.ctx(ctx)
	if c == nil {
		return
	}
	n, err := c.set.db.changes("UPDATE msgs SET state = ? WHERE account_id = ? AND chat_id = ? AND state = ?",
		int64(engine.StateInNoticed), int64(c.id), int64(chatID), int64(engine.StateInFresh))
	if err == nil && n > 0 {
		c.set.emit(c.id, engine.EventMsgsNoticed, int(chatID), 0, "")
	}
}

// SetChatName implements engine.ChatAPI.
func (e *Engine) SetChatName(ctx engine.Handle, chatID uint32, name string) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	name = strings.TrimSpace(name)
	ch, ok := c.set.loadChat(c.id, chatID)
	if !ok || name == "" || ch.typ == engine.ChatTypeSingle {
		return 0
	}
	if ch.typ == engine.ChatTypeGroup && !ch.selfInChat {
		c.set.setLastError(c.id, "Cannot set chat name; self not in group")
		c.set.emit(c.id, engine.EventErrorSelfNotInGroup, 0, 0, "Cannot set chat name; self not in group")
		return 0
	}
	if _, ok := e.updateChat(ctx, chatID, "UPDATE chats SET name = ?", name); !ok {
		return 0
	}
	c.set.addInfoMsg(c.id, chatID, fmt.Sprintf("Group name changed from %q to %q.", ch.name, name))
	return 1
}

func (e *Engine) groupForMembership(c *contextObj, chatID uint32) (*chatObj, bool) {
	ch, ok := c.set.loadChat(c.id, chatID)
	if !ok || ch.typ == engine.ChatTypeSingle || ch.typ == engine.ChatTypeMailinglist {
		return nil, false
	}
	if ch.typ == engine.ChatTypeGroup && !ch.selfInChat {
		c.set.setLastError(c.id, "Cannot change members; self not in group")
		c.set.emit(c.id, engine.EventErrorSelfNotInGroup, 0, 0, "Cannot change members; self not in group")
		return nil, false
	}
	return ch, true
}

// AddContactToChat implements engine.ChatAPI.
func (e *Engine) AddContactToChat(ctx engine.Handle, chatID, contactID uint32) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	if _, ok := e.groupForMembership(c, chatID); !ok {
		return 0
	}
	contact, ok := c.set.loadContact(c.id, contactID)
	if !ok {
		return 0
	}
	if err := c.set.addMember(chatID, contactID); err != nil {
		c.set.setLastError(c.id, err.Error())
		return 0
	}
	c.set.addInfoMsg(c.id, chatID, fmt.Sprintf("Member %s added.", contact.displayName()))
	c.set.emit(c.id, engine.EventChatModified, int(chatID), 0, "")
	return 1
}

// RemoveContactFromChat implements engine.ChatAPI. Removing self leaves the
// group.
func (e *Engine) RemoveContactFromChat(ctx engine.Handle, chatID, contactID uint32) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	if _, ok := e.groupForMembership(c, chatID); !ok {
		return 0
	}
	contact, ok := c.set.loadContact(c.id, contactID)
	if !ok {
		return 0
	}
	n, err := c.set.db.changes("DELETE FROM chat_contacts WHERE chat_id = ? AND contact_id = ?",
		int64(chatID), int64(contactID))
	if err != nil || n == 0 {
		return 0
	}
	text := fmt.Sprintf("Member %s removed.", contact.displayName())
	if contactID == engine.ContactIDSelf {
		text = "You left the group."
	}
	c.set.addInfoMsg(c.id, chatID, text)
	c.set.emit(c.id, engine.EventChatModified, int(chatID), 0, "")
	return 1
}

// GetChatContacts implements engine.ChatAPI.
func (e *Engine) GetChatContacts(ctx engine.Handle, chatID uint32) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	if _, ok := c.set.loadChat(c.id, chatID); !ok {
		return 0
	}
	return e.alloc(&arrayObj{ids: c.set.members(chatID)})
}
