package sim

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"zombiezen.com/go/sqlite"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

type msgObj struct {
	set       *accountSet
	accountID uint32

	id        uint32
	chatID    uint32
	fromID    uint32
	viewtype  int
	state     int
	timestamp int64
	text      string
	subject   string
	file      string
	filename  string
	filemime  string
	filebytes uint64
	isInfo    bool
	forwarded bool
}

const msgColumns = `id, chat_id, from_id, viewtype, state, timestamp, text, subject,
	file, filename, filemime, filebytes, is_info, forwarded`

func scanMsg(stmt *sqlite.Stmt) *msgObj {
	return &msgObj{
		id:        uint32(stmt.ColumnInt64(0)),
		chatID:    uint32(stmt.ColumnInt64(1)),
		fromID:    uint32(stmt.ColumnInt64(2)),
		viewtype:  stmt.ColumnInt(3),
		state:     stmt.ColumnInt(4),
		timestamp: stmt.ColumnInt64(5),
		text:      stmt.ColumnText(6),
		subject:   stmt.ColumnText(7),
		file:      stmt.ColumnText(8),
		filename:  stmt.ColumnText(9),
		filemime:  stmt.ColumnText(10),
		filebytes: uint64(stmt.ColumnInt64(11)),
		isInfo:    stmt.ColumnInt(12) != 0,
		forwarded: stmt.ColumnInt(13) != 0,
	}
}

func (s *accountSet) loadMsg(accountID, msgID uint32) (*msgObj, bool) {
	var m *msgObj
	err := s.db.query("SELECT "+msgColumns+" FROM msgs WHERE account_id = ? AND id = ?",
		func(stmt *sqlite.Stmt) error {
			m = scanMsg(stmt)
			return nil
		}, int64(accountID), int64(msgID))
	if err != nil || m == nil {
		return nil, false
	}
	m.set, m.accountID = s, accountID
	return m, true
}

func (s *accountSet) insertMsg(accountID uint32, m *msgObj) error {
	id, err := s.db.insert(`INSERT INTO msgs (id, account_id, chat_id, from_id, viewtype, state, timestamp,
		text, subject, file, filename, filemime, filebytes, is_info, forwarded)
		VALUES ((SELECT COALESCE(MAX(id), ?) + 1 FROM msgs), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(engine.MsgIDLastSpecial), int64(accountID), int64(m.chatID), int64(m.fromID),
		int64(m.viewtype), int64(m.state), m.timestamp, m.text, m.subject,
		m.file, m.filename, m.filemime, int64(m.filebytes), int64(b2i(m.isInfo)), int64(b2i(m.forwarded)))
	if err != nil {
		return err
	}
	m.id = uint32(id)
	m.set, m.accountID = s, accountID
	return nil
}

func (s *accountSet) addInfoMsg(accountID, chatID uint32, text string) {
	m := &msgObj{
		chatID:    chatID,
		fromID:    engine.ContactIDInfo,
		viewtype:  engine.MsgText,
		state:     engine.StateInNoticed,
		timestamp: s.e.now().Unix(),
		text:      text,
		isInfo:    true,
	}
	if err := s.insertMsg(accountID, m); err == nil {
		s.emit(accountID, engine.EventMsgsChanged, int(chatID), int(m.id), "")
	}
}

// receive stores an incoming message in the one-to-one chat with its
// sender. Messages from blocked contacts are dropped.
func (s *accountSet) receive(in incoming) bool {
	contactID, err := s.createContact(in.accountID, in.name, in.from)
	if err != nil {
		s.emit(in.accountID, engine.EventWarning, 0, 0, err.Error())
		return false
	}
	if contact, ok := s.loadContact(in.accountID, contactID); ok && contact.blocked {
		s.info(in.accountID, "Ignoring message from blocked contact "+contact.addr)
		return false
	}
	chatID, err := s.singleChat(in.accountID, contactID)
	if err != nil {
		s.emit(in.accountID, engine.EventWarning, 0, 0, err.Error())
		return false
	}
	now := s.e.now().Unix()
	m := &msgObj{
		chatID:    chatID,
		fromID:    contactID,
		viewtype:  engine.MsgText,
		state:     engine.StateInFresh,
		timestamp: now,
		text:      in.text,
	}
	if err := s.insertMsg(in.accountID, m); err != nil {
		s.emit(in.accountID, engine.EventWarning, 0, 0, err.Error())
		return false
	}
	_ = s.db.exec("UPDATE contacts SET last_seen = ? WHERE id = ?", now, int64(contactID))
	s.emit(in.accountID, engine.EventIncomingMsg, int(chatID), int(m.id), "")
	return true
}

// flushOutgoing marks every pending outgoing message of the account as
// delivered.
func (s *accountSet) flushOutgoing(accountID uint32) {
	type sent struct{ chatID, msgID uint32 }
	var out []sent
	err := s.db.query("SELECT chat_id, id FROM msgs WHERE account_id = ? AND state = ? ORDER BY id",
		func(stmt *sqlite.Stmt) error {
			out = append(out, sent{uint32(stmt.ColumnInt64(0)), uint32(stmt.ColumnInt64(1))})
			return nil
		}, int64(accountID), int64(engine.StateOutPending))
	if err != nil {
		return
	}
	for _, m := range out {
		if err := s.db.exec("UPDATE msgs SET state = ? WHERE id = ?", int64(engine.StateOutDelivered), int64(m.msgID)); err != nil {
			s.emit(accountID, engine.EventMsgFailed, int(m.chatID), int(m.msgID), "")
			continue
		}
		s.emit(accountID, engine.EventSMTPMessageSent, 0, 0, fmt.Sprintf("Message %d sent", m.msgID))
		s.emit(accountID, engine.EventMsgDelivered, int(m.chatID), int(m.msgID), "")
	}
}

// Deliver simulates an incoming message for accountID. While IO runs the
// message is received at once; otherwise it waits for the next IO start or
// background fetch.
func (e *Engine) Deliver(accountID uint32, from, name, text string) bool {
	e.mu.Lock()
	set := e.current
	e.mu.Unlock()
	if set == nil || set.isClosed() || !set.exists(accountID) {
		return false
	}
	in := incoming{accountID: accountID, from: from, name: name, text: text}
	set.mu.Lock()
	running := set.ioRunning
	if !running {
		set.pending = append(set.pending, in)
	}
	set.mu.Unlock()
	if running {
		return set.receive(in)
	}
	return true
}

func viewtypeLabel(viewtype int) string {
	switch viewtype {
	case engine.MsgImage:
		return "Image"
	case engine.MsgGif:
		return "GIF"
	case engine.MsgSticker:
		return "Sticker"
	case engine.MsgAudio:
		return "Audio"
	case engine.MsgVoice:
		return "Voice message"
	case engine.MsgVideo:
		return "Video"
	case engine.MsgFile:
		return "File"
	case engine.MsgVcard:
		return "Contact"
	case engine.MsgWebxdc:
		return "App"
	default:
		return ""
	}
}

func (m *msgObj) summaryText(approxChars int) string {
	text := m.text
	if label := viewtypeLabel(m.viewtype); label != "" {
		if text == "" {
			text = label
			if m.filename != "" {
				text += ": " + m.filename
			}
		} else {
			text = label + ": " + text
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if approxChars > 0 && utf8.RuneCountInString(text) > approxChars {
		text = string([]rune(text)[:approxChars]) + "…"
	}
	return text
}

// summary builds the lot shown for a message in a chat list.
func (s *accountSet) summary(accountID uint32, m *msgObj, chat *chatObj) *lotObj {
	lot := &lotObj{
		text2:     m.summaryText(160),
		state:     m.state,
		id:        m.id,
		timestamp: m.timestamp,
	}
	switch {
	case m.state == engine.StateOutDraft:
		lot.text1 = s.stockString(accountID, stockDraft)
		lot.meaning = engine.Text1Draft
	case m.isInfo:
	case m.fromID == engine.ContactIDSelf:
		if chat == nil || !chat.selfTalk {
			lot.text1 = s.stockString(accountID, stockSelf)
			lot.meaning = engine.Text1Self
		}
	case chat != nil && chat.typ != engine.ChatTypeSingle:
		if contact, ok := s.loadContact(accountID, m.fromID); ok {
			lot.text1 = contact.displayName()
			lot.meaning = engine.Text1Username
		}
	}
	return lot
}

func (e *Engine) msg(h engine.Handle) *msgObj {
	m, ok := lookup[*msgObj](e, h)
	if !ok {
		return &msgObj{}
	}
	return m
}

// MsgNew implements engine.MessageAPI. The message is unsaved until sent.
func (e *Engine) MsgNew(ctx engine.Handle, viewtype int) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	return e.alloc(&msgObj{set: c.set, accountID: c.id, viewtype: viewtype, fromID: engine.ContactIDSelf})
}

// GetMsg implements engine.MessageAPI.
func (e *Engine) GetMsg(ctx engine.Handle, msgID uint32) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	m, ok := c.set.loadMsg(c.id, msgID)
	if !ok {
		return 0
	}
	return e.alloc(m)
}

// MsgUnref implements engine.MessageAPI.
func (e *Engine) MsgUnref(msg engine.Handle) { release[*msgObj](e, msg) }

// MsgGetID implements engine.MessageAPI.
func (e *Engine) MsgGetID(msg engine.Handle) uint32 { return e.msg(msg).id }

// MsgGetChatID implements engine.MessageAPI.
func (e *Engine) MsgGetChatID(msg engine.Handle) uint32 { return e.msg(msg).chatID }

// MsgGetFromID implements engine.MessageAPI.
func (e *Engine) MsgGetFromID(msg engine.Handle) uint32 { return e.msg(msg).fromID }

// MsgGetViewtype implements engine.MessageAPI.
func (e *Engine) MsgGetViewtype(msg engine.Handle) int { return e.msg(msg).viewtype }

// MsgGetState implements engine.MessageAPI.
func (e *Engine) MsgGetState(msg engine.Handle) int { return e.msg(msg).state }

// MsgGetTimestamp implements engine.MessageAPI.
func (e *Engine) MsgGetTimestamp(msg engine.Handle) int64 { return e.msg(msg).timestamp }

// MsgGetText implements engine.MessageAPI.
func (e *Engine) MsgGetText(msg engine.Handle) engine.Str { return e.str(e.msg(msg).text) }

// MsgSetText implements engine.MessageAPI.
func (e *Engine) MsgSetText(msg engine.Handle, text string) {
	if m, ok := lookup[*msgObj](e, msg); ok {
		m.text = text
	}
}

// MsgGetSubject implements engine.MessageAPI.
func (e *Engine) MsgGetSubject(msg engine.Handle) engine.Str { return e.str(e.msg(msg).subject) }

// MsgGetFile implements engine.MessageAPI.
func (e *Engine) MsgGetFile(msg engine.Handle) engine.Str { return e.str(e.msg(msg).file) }

// MsgGetFilename implements engine.MessageAPI.
func (e *Engine) MsgGetFilename(msg engine.Handle) engine.Str { return e.str(e.msg(msg).filename) }

// MsgGetFilemime implements engine.MessageAPI.
func (e *Engine) MsgGetFilemime(msg engine.Handle) engine.Str { return e.str(e.msg(msg).filemime) }

// MsgGetFilebytes implements engine.MessageAPI.
func (e *Engine) MsgGetFilebytes(msg engine.Handle) uint64 { return e.msg(msg).filebytes }

// MsgSetFile implements engine.MessageAPI. An empty name or mime type is
// derived from the path.
func (e *Engine) MsgSetFile(msg engine.Handle, path, name, mimeType string) {
	m, ok := lookup[*msgObj](e, msg)
	if !ok {
		return
	}
	if name == "" {
		name = filepath.Base(path)
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}
	m.file, m.filename, m.filemime, m.filebytes = path, name, mimeType, 0
	if fi, err := os.Stat(path); err == nil {
		m.filebytes = uint64(fi.Size())
	}
}

// MsgIsInfo implements engine.MessageAPI.
func (e *Engine) MsgIsInfo(msg engine.Handle) int { return b2i(e.msg(msg).isInfo) }

// MsgIsForwarded implements engine.MessageAPI.
func (e *Engine) MsgIsForwarded(msg engine.Handle) int { return b2i(e.msg(msg).forwarded) }

// MsgGetSummarytext implements engine.MessageAPI.
func (e *Engine) MsgGetSummarytext(msg engine.Handle, approxChars int) engine.Str {
	return e.str(e.msg(msg).summaryText(approxChars))
}

// MsgGetSummary implements engine.MessageAPI.
func (e *Engine) MsgGetSummary(msg engine.Handle, chat engine.Handle) engine.Handle {
	m := e.msg(msg)
	if m.set == nil {
		return 0
	}
	var ch *chatObj
	if chat != 0 {
		ch = e.chat(chat)
	} else if loaded, ok := m.set.loadChat(m.accountID, m.chatID); ok {
		ch = loaded
	}
	return e.alloc(m.set.summary(m.accountID, m, ch))
}

// send stores m as a pending outgoing message in chatID. While IO runs it
// is delivered immediately.
func (s *accountSet) send(accountID, chatID uint32, m *msgObj) uint32 {
	chat, ok := s.loadChat(accountID, chatID)
	if !ok {
		s.setLastError(accountID, fmt.Sprintf("chat %d not found", chatID))
		return 0
	}
	if !chat.canSend() {
		s.fail(accountID, fmt.Sprintf("Cannot send to chat %d.", chatID))
		return 0
	}
	if m.viewtype == 0 {
		m.viewtype = engine.MsgText
	}
	m.chatID, m.fromID = chatID, engine.ContactIDSelf
	m.state = engine.StateOutPending
	m.timestamp = s.e.now().Unix()
	if err := s.insertMsg(accountID, m); err != nil {
		s.fail(accountID, err.Error())
		return 0
	}
	s.emit(accountID, engine.EventMsgsChanged, int(chatID), int(m.id), "")
	if s.isIORunning() {
		s.flushOutgoing(accountID)
		m.state = engine.StateOutDelivered
	}
	return m.id
}

// SendMsg implements engine.MessageAPI. The message handle is updated with
// its new id and state.
func (e *Engine) SendMsg(ctx engine.Handle, chatID uint32, msg engine.Handle) uint32 {
	c := e.ctx(ctx)
	m, ok := lookup[*msgObj](e, msg)
	if c == nil || !ok {
		return 0
	}
	if m.viewtype == engine.MsgText && strings.TrimSpace(m.text) == "" {
		c.set.setLastError(c.id, "Cannot send empty text message.")
		return 0
	}
	return c.set.send(c.id, chatID, m)
}

// SendTextMsg implements engine.MessageAPI.
func (e *Engine) SendTextMsg(ctx engine.Handle, chatID uint32, text string) uint32 {
	c := e.ctx(ctx)
	if c == nil || strings.TrimSpace(text) == "" {
		return 0
	}
	return c.set.send(c.id, chatID, &msgObj{viewtype: engine.MsgText, text: text})
}

// ForwardMsgs implements engine.MessageAPI.
func (e *Engine) ForwardMsgs(ctx engine.Handle, msgIDs []uint32, chatID uint32) {
	c := e.ctx(ctx)
	if c == nil {
		return
	}
	for _, id := range msgIDs {
		orig, ok := c.set.loadMsg(c.id, id)
		if !ok || orig.isInfo {
			continue
		}
		fwd := *orig
		fwd.id, fwd.forwarded = 0, true
		if c.set.send(c.id, chatID, &fwd) == 0 {
			return
		}
	}
}

// DeleteMsgs implements engine.MessageAPI.
func (e *Engine) DeleteMsgs(ctx engine.Handle, msgIDs []uint32) {
	c := e.ctx(ctx)
	if c == nil {
		return
	}
	for _, id := range msgIDs {
		m, ok := c.set.loadMsg(c.id, id)
		if !ok {
			continue
		}
		err := c.set.db.tx(func(conn *sqlite.Conn) error {
			if err := execConn(conn, "DELETE FROM reactions WHERE msg_id = ?", int64(id)); err != nil {
				return err
			}
			return execConn(conn, "DELETE FROM msgs WHERE id = ?", int64(id))
		})
		if err != nil {
			continue
		}
		c.set.emit(c.id, engine.EventMsgDeleted, int(m.chatID), int(id), "")
	}
	c.set.emit(c.id, engine.EventMsgsChanged, 0, 0, "")
}

// ResendMsgs implements engine.MessageAPI. Only own messages can be resent.
func (e *Engine) ResendMsgs(ctx engine.Handle, msgIDs []uint32) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	for _, id := range msgIDs {
		m, ok := c.set.loadMsg(c.id, id)
		if !ok || m.fromID != engine.ContactIDSelf || m.isInfo {
			c.set.setLastError(c.id, fmt.Sprintf("message %d cannot be resent", id))
			return 0
		}
	}
	for _, id := range msgIDs {
		_ = c.set.db.exec("UPDATE msgs SET state = ? WHERE id = ?", int64(engine.StateOutPending), int64(id))
	}
	if c.set.isIORunning() {
		c.set.flushOutgoing(c.id)
	}
	return 1
}

// MarkseenMsgs implements engine.MessageAPI.
func (e *Engine) MarkseenMsgs(ctx engine.Handle, msgIDs []uint32) {
	c := e.ctx(ctx)
	if c == nil {
		return
	}
	noticed := make(map[uint32]bool)
	for _, id := range msgIDs {
		m, ok := c.set.loadMsg(c.id, id)
		if !ok || (m.state != engine.StateInFresh && m.state != engine.StateInNoticed) {
			continue
		}
		if err := c.set.db.exec("UPDATE msgs SET state = ? WHERE id = ?", int64(engine.StateInSeen), int64(id)); err == nil {
			noticed[m.chatID] = true
		}
	}
	for chatID := range noticed {
		c.set.emit(c.id, engine.EventMsgsNoticed, int(chatID), 0, "")
	}
}

// GetChatMsgs implements engine.MessageAPI. Day markers are placed on UTC
// day boundaries.
func (e *Engine) GetChatMsgs(ctx engine.Handle, chatID uint32, flags, marker1Before uint32) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	q := "SELECT id, timestamp FROM msgs WHERE account_id = ? AND chat_id = ?"
	if flags&engine.GcmInfoOnly != 0 {
		q += " AND is_info = 1"
	}
	q += " ORDER BY timestamp, id"

	var ids []uint32
	var lastDay string
	err := c.set.db.query(q, func(stmt *sqlite.Stmt) error {
		id := uint32(stmt.ColumnInt64(0))
		if flags&engine.GcmAddDayMarker != 0 {
			day := time.Unix(stmt.ColumnInt64(1), 0).UTC().Format(time.DateOnly)
			if day != lastDay {
				ids = append(ids, engine.MsgIDDaymarker)
				lastDay = day
			}
		}
		if marker1Before != 0 && id == marker1Before {
			ids = append(ids, engine.MsgIDMarker1)
		}
		ids = append(ids, id)
		return nil
	}, int64(c.id), int64(chatID))
	if err != nil {
		c.set.setLastError(c.id, err.Error())
		return 0
	}
	return e.alloc(&arrayObj{ids: ids})
}

// SearchMsgs implements engine.MessageAPI. A chat-wide search is oldest
// first; a global search is newest first.
func (e *Engine) SearchMsgs(ctx engine.Handle, chatID uint32, query string) engine.Handle {
	c := e.ctx(ctx)
	query = strings.TrimSpace(query)
	if c == nil || query == "" {
		return 0
	}
	q := "SELECT id FROM msgs WHERE account_id = ? AND is_info = 0 AND text LIKE ?"
	args := []any{int64(c.id), "%" + query + "%"}
	if chatID != 0 {
		q += " AND chat_id = ? ORDER BY timestamp, id"
		args = append(args, int64(chatID))
	} else {
		q += " ORDER BY timestamp DESC, id DESC"
	}
	ids, err := c.set.db.int64s(q, args...)
	if err != nil {
		return 0
	}
	return e.alloc(&arrayObj{ids: toU32(ids)})
}

// GetFreshMsgs implements engine.MessageAPI. Muted and blocked chats are
// skipped.
func (e *Engine) GetFreshMsgs(ctx engine.Handle) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	ids, err := c.set.db.int64s(`SELECT m.id FROM msgs m JOIN chats c ON c.id = m.chat_id
		WHERE m.account_id = ? AND m.state = ? AND c.muted = 0 AND c.blocked = 0
		ORDER BY m.timestamp DESC, m.id DESC`, int64(c.id), int64(engine.StateInFresh))
	if err != nil {
		return 0
	}
	return e.alloc(&arrayObj{ids: toU32(ids)})
}

// GetFreshMsgCnt implements engine.MessageAPI.
func (e *Engine) GetFreshMsgCnt(ctx engine.Handle, chatID uint32) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	n, err := c.set.db.int64("SELECT COUNT(*) FROM msgs WHERE account_id = ? AND chat_id = ? AND state = ?",
		int64(c.id), int64(chatID), int64(engine.StateInFresh))
	if err != nil {
		return 0
	}
	return int(n)
}

// GetMsgInfo implements engine.MessageAPI.
func (e *Engine) GetMsgInfo(ctx engine.Handle, msgID uint32) engine.Str {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	m, ok := c.set.loadMsg(c.id, msgID)
	if !ok {
		return 0
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Sent: %s\n", time.Unix(m.timestamp, 0).UTC().Format(time.RFC3339))
	if contact, ok := c.set.loadContact(c.id, m.fromID); ok {
		fmt.Fprintf(&b, "From: %s <%s>\n", contact.displayName(), contact.addr)
	}
	fmt.Fprintf(&b, "State: %d\n", m.state)
	if m.file != "" {
		fmt.Fprintf(&b, "File: %s, %d bytes\n", m.filename, m.filebytes)
		if m.filemime != "" {
			fmt.Fprintf(&b, "Type: %s\n", m.filemime)
		}
	}
	fmt.Fprintf(&b, "\nMessage-ID: %d@chatcore.sim", m.id)
	return e.str(b.String())
}
