package sim

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

const passphraseKey = "_passphrase"

var configDefaults = map[string]string{
	engine.ConfigMDNsEnabled: "1",
	engine.ConfigShowEmails:  "0",
	"bcc_self":               "1",
	"sys.version":            "chatcore-sim 1.0",
}

func (e *Engine) ctx(h engine.Handle) *contextObj {
	c, ok := lookup[*contextObj](e, h)
	if !ok || c.set.isClosed() {
		return nil
	}
	return c
}

// ContextUnref implements engine.ContextAPI.
func (e *Engine) ContextUnref(ctx engine.Handle) {
	release[*contextObj](e, ctx)
}

// GetID implements engine.ContextAPI.
func (e *Engine) GetID(ctx engine.Handle) uint32 {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	return c.id
}

// ContextOpen implements engine.ContextAPI. The first non-empty passphrase
// given to a store without one becomes its passphrase, even when the store
// is already open; reopening the account set then requires it.
func (e *Engine) ContextOpen(ctx engine.Handle, passphrase string) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	s := c.set
	s.mu.Lock()
	open := s.open[c.id]
	s.mu.Unlock()

	stored, hasStored := s.rawConfig(c.id, passphraseKey)
	switch {
	case hasStored && stored != passphrase && !open:
		s.setLastError(c.id, "Wrong passphrase.")
		return 0
	case !hasStored && passphrase != "":
		if err := s.setConfig(c.id, passphraseKey, passphrase); err != nil {
			s.setLastError(c.id, err.Error())
			return 0
		}
	}

	s.mu.Lock()
	s.open[c.id] = true
	s.mu.Unlock()
	return 1
}

// ContextIsOpen implements engine.ContextAPI.
func (e *Engine) ContextIsOpen(ctx engine.Handle) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	c.set.mu.Lock()
	defer c.set.mu.Unlock()
	return b2i(c.set.open[c.id])
}

// GetLastError implements engine.ContextAPI.
func (e *Engine) GetLastError(ctx engine.Handle) engine.Str {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	c.set.mu.Lock()
	msg, ok := c.set.lastErr[c.id]
	c.set.mu.Unlock()
	if !ok {
		return 0
	}
	return e.str(msg)
}

func (s *accountSet) rawConfig(id uint32, key string) (string, bool) {
	v, ok, err := s.db.text("SELECT value FROM config WHERE account_id = ? AND key = ?", int64(id), key)
	if err != nil || !ok {
		return "", false
	}
	return v, true
}

func (s *accountSet) getConfig(id uint32, key string) (string, bool) {
	if v, ok := s.rawConfig(id, key); ok {
		return v, true
	}
	d, ok := configDefaults[key]
	return d, ok
}

func (s *accountSet) setConfig(id uint32, key, value string) error {
	return s.db.exec(`INSERT INTO config (account_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(account_id, key) DO UPDATE SET value = excluded.value`,
		int64(id), key, value)
}

func (s *accountSet) unsetConfig(id uint32, key string) error {
	return s.db.exec("DELETE FROM config WHERE account_id = ? AND key = ?", int64(id), key)
}

func (s *accountSet) isConfigured(id uint32) bool {
	v, _ := s.getConfig(id, engine.ConfigConfigured)
	return v == "1"
}

// GetConfig implements engine.ContextAPI. Unknown keys yield "".
func (e *Engine) GetConfig(ctx engine.Handle, key string) engine.Str {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	if strings.HasPrefix(key, "_") {
		return e.str("")
	}
	v, _ := c.set.getConfig(c.id, key)
	return e.str(v)
}

// SetConfig implements engine.ContextAPI.
func (e *Engine) SetConfig(ctx engine.Handle, key string, value *string) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	if key == "" || strings.HasPrefix(key, "_") {
		c.set.setLastError(c.id, fmt.Sprintf("invalid config key %q", key))
		return 0
	}

	var err error
	if value == nil {
		err = c.set.unsetConfig(c.id, key)
	} else {
		err = c.set.setConfig(c.id, key, *value)
	}
	if err != nil {
		c.set.setLastError(c.id, err.Error())
		return 0
	}
	if key == engine.ConfigSelfAvatar {
		c.set.emit(c.id, engine.EventSelfavatarChanged, 0, 0, "")
	}
	return 1
}

// IsConfigured implements engine.ContextAPI.
func (e *Engine) IsConfigured(ctx engine.Handle) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	return b2i(c.set.isConfigured(c.id))
}

// Configure implements engine.ContextAPI. Progress is reported with
// configure-progress events; the call itself returns immediately.
func (e *Engine) Configure(ctx engine.Handle) {
	c := e.ctx(ctx)
	if c == nil {
		return
	}
	s, id := c.set, c.id
	progress := func(p int, msg string) {
		s.emit(id, engine.EventConfigureProgress, p, 0, msg)
	}

	started := s.startJob(id, func(stop <-chan struct{}) {
		addr, _ := s.getConfig(id, engine.ConfigAddr)
		password, _ := s.getConfig(id, engine.ConfigMailPassword)

		for _, p := range []int{100, 200, 400, 600} {
			if !e.sleep(e.stepDelay, stop) {
				s.fail(id, "Configuration canceled.")
				progress(0, "")
				return
			}
			progress(p, "")
		}

		switch {
		case addr == "" || password == "":
			// The terminal event carries no text; the diagnostic is only in
			// the preceding error event.
			s.fail(id, "Please enter an email address and a password.")
			progress(0, "")
			return
		case strings.HasSuffix(addr, ".invalid"):
			msg := fmt.Sprintf("Cannot login as %q. Please check if the email address and the password are correct.", addr)
			s.fail(id, msg)
			progress(0, msg)
			return
		}

		if !e.sleep(e.stepDelay, stop) {
			s.fail(id, "Configuration canceled.")
			progress(0, "")
			return
		}
		if err := s.setConfig(id, engine.ConfigConfigured, "1"); err != nil {
			s.fail(id, err.Error())
			progress(0, "")
			return
		}
		_ = s.setConfig(id, "configured_addr", addr)
		_ = s.db.exec("INSERT OR IGNORE INTO transports (account_id, addr, password) VALUES (?, ?, ?)",
			int64(id), addr, password)
		progress(900, "")
		progress(1000, "")
		if s.isIORunning() {
			s.emit(id, engine.EventConnectivityChanged, 0, 0, "")
		}
	})
	if !started {
		progress(0, "")
	}
}

// StopOngoingProcess implements engine.ContextAPI.
func (e *Engine) StopOngoingProcess(ctx engine.Handle) {
	c := e.ctx(ctx)
	if c == nil {
		return
	}
	c.set.stopJob(c.id)
}

// GetInfo implements engine.ContextAPI.
func (e *Engine) GetInfo(ctx engine.Handle) engine.Str {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	s := c.set
	chats, _ := s.db.int64("SELECT COUNT(*) FROM chats WHERE account_id = ?", int64(c.id))
	msgs, _ := s.db.int64("SELECT COUNT(*) FROM msgs WHERE account_id = ?", int64(c.id))
	contacts, _ := s.db.int64("SELECT COUNT(*) FROM contacts WHERE account_id = ?", int64(c.id))
	addr, _ := s.getConfig(c.id, engine.ConfigAddr)
	version, _ := s.getConfig(c.id, "sys.version")

	var b strings.Builder
	fmt.Fprintf(&b, "engine_version=%s\n", version)
	fmt.Fprintf(&b, "number_of_chats=%d\n", chats)
	fmt.Fprintf(&b, "number_of_chat_messages=%d\n", msgs)
	fmt.Fprintf(&b, "number_of_contacts=%d\n", contacts)
	fmt.Fprintf(&b, "is_configured=%d\n", b2i(s.isConfigured(c.id)))
	fmt.Fprintf(&b, "entered_account_settings=%s\n", addr)
	fmt.Fprintf(&b, "io_running=%d\n", b2i(s.isIORunning()))
	fmt.Fprintf(&b, "database_dir=%s\n", s.dir)
	return e.str(b.String())
}

// GetConnectivity implements engine.ContextAPI.
func (e *Engine) GetConnectivity(ctx engine.Handle) int {
	c := e.ctx(ctx)
	if c == nil {
		return engine.ConnectivityNotConnected
	}
	switch {
	case !c.set.isIORunning():
		return engine.ConnectivityNotConnected
	case !c.set.isConfigured(c.id):
		return engine.ConnectivityConnecting
	default:
		return engine.ConnectivityConnected
	}
}

// SetStockTranslation implements engine.ContextAPI.
func (e *Engine) SetStockTranslation(ctx engine.Handle, stockID uint32, text string) int {
	c := e.ctx(ctx)
	if c == nil || text == "" {
		return 0
	}
	c.set.mu.Lock()
	defer c.set.mu.Unlock()
	m := c.set.stock[c.id]
	if m == nil {
		m = make(map[uint32]string)
		c.set.stock[c.id] = m
	}
	m[stockID] = text
	return 1
}

// Stock string ids the simulated engine asks the host to translate.
const (
	stockSelf           uint32 = 2
	stockDraft          uint32 = 3
	stockDeviceMessages uint32 = 68
	stockSavedMessages  uint32 = 69
)

var stockDefaults = map[uint32]string{
	stockSelf:           "Me",
	stockDraft:          "Draft",
	stockDeviceMessages: "Device Messages",
	stockSavedMessages:  "Saved Messages",
}

// stockString returns the host's translation of id, or the English default.
// The first miss per account and id asks the host through a get-string
// event.
func (s *accountSet) stockString(accountID, id uint32) string {
	s.mu.Lock()
	m := s.stock[accountID]
	if m == nil {
		m = make(map[uint32]string)
		s.stock[accountID] = m
	}
	text, ok := m[id]
	if !ok {
		// Remember the request so the host is asked only once.
		m[id] = ""
	}
	s.mu.Unlock()

	if !ok {
		s.emit(accountID, engine.EventGetString, int(id), 0, "")
	}
	if text == "" {
		return stockDefaults[id]
	}
	return text
}

// MayBeValidAddr implements engine.ContextAPI.
func (e *Engine) MayBeValidAddr(addr string) int {
	return b2i(validAddr(addr))
}

func validAddr(addr string) bool {
	if strings.ContainsAny(addr, " \t\r\n") {
		return false
	}
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return false
	}
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
