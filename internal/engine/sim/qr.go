package sim

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

type qrInfo struct {
	state    int
	addr     string
	name     string
	fpr      string
	invite   string
	auth     string
	group    string
	groupID  string
	password string
	text     string
}

func fingerprint(addr string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(addr)))
	return fmt.Sprintf("%X", sum[:20])
}

func parseQR(qr string) (qrInfo, error) {
	qr = strings.TrimSpace(qr)
	upper := strings.ToUpper(qr)
	switch {
	case strings.HasPrefix(upper, "OPENPGP4FPR:"):
		rest := qr[len("OPENPGP4FPR:"):]
		fpr, fragment, _ := strings.Cut(rest, "#")
		params, err := url.ParseQuery(fragment)
		if err != nil {
			return qrInfo{}, fmt.Errorf("bad secure-join QR code: %w", err)
		}
		info := qrInfo{
			fpr:     fpr,
			addr:    params.Get("a"),
			name:    params.Get("n"),
			invite:  params.Get("i"),
			auth:    params.Get("s"),
			group:   params.Get("g"),
			groupID: params.Get("x"),
		}
		if !validAddr(info.addr) {
			return qrInfo{}, fmt.Errorf("bad e-mail address in QR code: %q", info.addr)
		}
		switch {
		case info.invite == "" || info.auth == "":
			info.state = engine.QRFprOK
		case info.groupID != "":
			info.state = engine.QRAskVerifyGroup
		default:
			info.state = engine.QRAskVerifyContact
		}
		return info, nil

	case strings.HasPrefix(upper, "MAILTO:"):
		addr, _, _ := strings.Cut(qr[len("mailto:"):], "?")
		if !validAddr(addr) {
			return qrInfo{}, fmt.Errorf("bad e-mail address in QR code: %q", addr)
		}
		return qrInfo{state: engine.QRAddr, addr: addr}, nil

	case strings.HasPrefix(upper, "DCLOGIN:"):
		rest := strings.TrimPrefix(qr[len("dclogin:"):], "//")
		addr, query, _ := strings.Cut(rest, "?")
		params, err := url.ParseQuery(query)
		if err != nil || !validAddr(addr) {
			return qrInfo{}, fmt.Errorf("bad dclogin QR code")
		}
		return qrInfo{state: engine.QRAccount, addr: addr, password: params.Get("p")}, nil

	case strings.HasPrefix(upper, "DCACCOUNT:"):
		return qrInfo{state: engine.QRAccount, text: qr[len("DCACCOUNT:"):]}, nil

	case strings.HasPrefix(upper, "DCBACKUP2:"):
		return qrInfo{state: engine.QRBackup2, text: qr}, nil

	case strings.HasPrefix(upper, "HTTP://"), strings.HasPrefix(upper, "HTTPS://"):
		return qrInfo{state: engine.QRURL, text: qr}, nil

	case validAddr(qr):
		return qrInfo{state: engine.QRAddr, addr: qr}, nil

	default:
		return qrInfo{state: engine.QRText, text: qr}, nil
	}
}

// GetSecurejoinQR implements engine.ContextAPI. chatID 0 yields a contact
// invitation, a group id yields a group invitation.
func (e *Engine) GetSecurejoinQR(ctx engine.Handle, chatID uint32) engine.Str {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	s := c.set
	if !s.isConfigured(c.id) {
		s.setLastError(c.id, "Not configured, cannot generate QR code.")
		return 0
	}
	addr, _ := s.getConfig(c.id, engine.ConfigAddr)
	name, _ := s.getConfig(c.id, engine.ConfigDisplayName)

	params := url.Values{}
	params.Set("a", addr)
	params.Set("n", name)
	params.Set("i", uuid.NewString()[:8])
	params.Set("s", uuid.NewString()[:8])
	if chatID != 0 {
		ch, ok := s.loadChat(c.id, chatID)
		if !ok || ch.typ != engine.ChatTypeGroup {
			s.setLastError(c.id, fmt.Sprintf("chat %d is not a group", chatID))
			return 0
		}
		params.Set("g", ch.name)
		params.Set("x", fmt.Sprintf("grp%d", chatID))
	}
	return e.str(fmt.Sprintf("OPENPGP4FPR:%s#%s", fingerprint(addr), params.Encode()))
}

// JoinSecurejoin implements engine.ContextAPI. It returns the chat that the
// handshake will verify; progress arrives as joiner-progress events.
func (e *Engine) JoinSecurejoin(ctx engine.Handle, qr string) uint32 {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	s, id := c.set, c.id
	info, err := parseQR(qr)
	if err == nil && info.state != engine.QRAskVerifyContact && info.state != engine.QRAskVerifyGroup {
		err = fmt.Errorf("QR code is not a secure-join invitation")
	}
	if err != nil {
		s.fail(id, err.Error())
		return 0
	}

	contactID, err := s.createContact(id, info.name, info.addr)
	if err != nil {
		s.fail(id, err.Error())
		return 0
	}
	var chatID uint32
	if info.state == engine.QRAskVerifyGroup {
		chatID, err = s.createGroupChat(id, engine.ChatTypeGroup, info.group)
		if err == nil {
			err = s.addMember(chatID, contactID)
		}
	} else {
		chatID, err = s.singleChat(id, contactID)
	}
	if err != nil {
		s.fail(id, err.Error())
		return 0
	}

	started := s.startJob(id, func(stop <-chan struct{}) {
		for _, p := range []int{300, 400, 600} {
			if !e.sleep(e.stepDelay, stop) {
				s.fail(id, "Secure join canceled.")
				s.emit(id, engine.EventSecurejoinJoinerProgress, int(contactID), 0, "")
				return
			}
			s.emit(id, engine.EventSecurejoinJoinerProgress, int(contactID), p, "")
		}
		_ = s.db.exec("UPDATE contacts SET verified = 1 WHERE id = ?", int64(contactID))
		s.emit(id, engine.EventContactsChanged, int(contactID), 0, "")
		s.emit(id, engine.EventSecurejoinJoinerProgress, int(contactID), 1000, "")
	})
	if !started {
		return 0
	}
	return chatID
}

// CheckQR implements engine.ContextAPI.
func (e *Engine) CheckQR(ctx engine.Handle, qr string) engine.Handle {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	info, err := parseQR(qr)
	if err != nil {
		return e.alloc(&lotObj{state: engine.QRError, text1: err.Error()})
	}
	lot := &lotObj{state: info.state, text1: info.text}
	if info.addr != "" {
		lot.text1 = info.addr
		lot.id = c.set.contactByAddr(c.id, info.addr)
	}
	if info.state == engine.QRAskVerifyGroup {
		lot.text1 = info.group
	}
	return e.alloc(lot)
}

// SetConfigFromQR implements engine.ContextAPI. Only dclogin codes carry
// enough data to configure offline.
func (e *Engine) SetConfigFromQR(ctx engine.Handle, qr string) int {
	c := e.ctx(ctx)
	if c == nil {
		return 0
	}
	info, err := parseQR(qr)
	if err == nil && (info.state != engine.QRAccount || info.addr == "") {
		err = fmt.Errorf("QR code cannot be used to set up an account offline")
	}
	if err != nil {
		c.set.setLastError(c.id, err.Error())
		return 0
	}
	if err := c.set.setConfig(c.id, engine.ConfigAddr, info.addr); err != nil {
		c.set.setLastError(c.id, err.Error())
		return 0
	}
	if info.password != "" {
		if err := c.set.setConfig(c.id, engine.ConfigMailPassword, info.password); err != nil {
			c.set.setLastError(c.id, err.Error())
			return 0
		}
	}
	return 1
}
