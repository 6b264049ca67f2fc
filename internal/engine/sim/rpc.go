package sim

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"zombiezen.com/go/sqlite"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeDomain         = -1
)

type rpcObj struct {
	set *accountSet
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcErrorBody   `json:"error,omitempty"`
}

type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string { return e.msg }

func invalidParams(format string, args ...any) error {
	return &rpcError{code: codeInvalidParams, msg: fmt.Sprintf(format, args...)}
}

type rpcMethod func(s *accountSet, params []json.RawMessage) (any, error)

var rpcMethods map[string]rpcMethod

func init() {
	rpcMethods = map[string]rpcMethod{
		"get_all_account_ids":                rpcAllAccountIDs,
		"get_system_info":                    rpcSystemInfo,
		"get_message_reactions":              rpcMessageReactions,
		"send_reaction":                      rpcSendReaction,
		"make_vcard":                         rpcMakeVcard,
		"parse_vcard":                        rpcParseVcard,
		"import_vcard":                       rpcImportVcard,
		"change_contact_name":                rpcChangeContactName,
		"create_broadcast":                   rpcCreateBroadcast,
		"create_group_chat_unencrypted":      rpcCreateGroupUnencrypted,
		"list_transports":                    rpcListTransports,
		"add_or_update_transport":            rpcAddOrUpdateTransport,
		"add_transport_from_qr":              rpcAddTransportFromQR,
		"delete_transport":                   rpcDeleteTransport,
		"ice_servers":                        rpcIceServers,
		"get_storage_usage_report_string":    rpcStorageUsageReport,
		"send_webxdc_realtime_advertisement": rpcRealtimeAdvertisement,
		"send_webxdc_realtime_data":          rpcRealtimeData,
		"leave_webxdc_realtime":              rpcLeaveRealtime,
	}
}

// JsonrpcInit implements engine.JSONRPCAPI.
func (e *Engine) JsonrpcInit(accounts engine.Handle) engine.Handle {
	set := e.set(accounts)
	if set == nil {
		return 0
	}
	return e.alloc(&rpcObj{set: set})
}

// JsonrpcUnref implements engine.JSONRPCAPI.
func (e *Engine) JsonrpcUnref(rpc engine.Handle) { release[*rpcObj](e, rpc) }

// JsonrpcBlockingCall implements engine.JSONRPCAPI. A null string means the
// request never reached a live instance.
func (e *Engine) JsonrpcBlockingCall(rpc engine.Handle, request string) engine.Str {
	r, ok := lookup[*rpcObj](e, rpc)
	if !ok || r.set.isClosed() {
		return 0
	}
	resp := r.handle(request)
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(rpcResponse{
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &rpcErrorBody{Code: codeDomain, Message: err.Error()},
		})
	}
	return e.str(string(data))
}

func (r *rpcObj) handle(request string) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: json.RawMessage("null")}
	var req rpcRequest
	if err := json.Unmarshal([]byte(request), &req); err != nil {
		resp.Error = &rpcErrorBody{Code: codeParseError, Message: err.Error()}
		return resp
	}
	if len(req.ID) > 0 {
		resp.ID = req.ID
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		resp.Error = &rpcErrorBody{Code: codeInvalidRequest, Message: "invalid request"}
		return resp
	}
	method, ok := rpcMethods[req.Method]
	if !ok {
		resp.Error = &rpcErrorBody{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
		return resp
	}
	result, err := method(r.set, req.Params)
	if err != nil {
		code := codeDomain
		if re, ok := err.(*rpcError); ok {
			code = re.code
		}
		resp.Error = &rpcErrorBody{Code: code, Message: err.Error()}
		return resp
	}
	if result == nil {
		// Keep "result": null in the envelope.
		result = json.RawMessage("null")
	}
	resp.Result = result
	return resp
}

// decodeParams decodes positional params into dst. Params past the first
// required ones may be omitted.
func decodeParams(params []json.RawMessage, required int, dst ...any) error {
	if len(params) < required || len(params) > len(dst) {
		return invalidParams("expected %d params, got %d", len(dst), len(params))
	}
	for i, p := range params {
		if err := json.Unmarshal(p, dst[i]); err != nil {
			return invalidParams("param %d: %v", i, err)
		}
	}
	return nil
}

func (s *accountSet) requireAccount(id uint32) error {
	if !s.exists(id) {
		return fmt.Errorf("account %d does not exist", id)
	}
	return nil
}

func accountParams(s *accountSet, params []json.RawMessage, required int, dst ...any) (uint32, error) {
	var acct uint32
	if err := decodeParams(params, required+1, append([]any{&acct}, dst...)...); err != nil {
		return 0, err
	}
	return acct, s.requireAccount(acct)
}

func rpcAllAccountIDs(s *accountSet, params []json.RawMessage) (any, error) {
	if err := decodeParams(params, 0); err != nil {
		return nil, err
	}
	return s.accountIDs(), nil
}

func rpcSystemInfo(s *accountSet, params []json.RawMessage) (any, error) {
	return map[string]string{
		"engine_version": "chatcore-sim 1.0",
		"arch":           runtime.GOARCH,
		"os":             runtime.GOOS,
		"num_cpus":       fmt.Sprint(runtime.NumCPU()),
		"accounts":       fmt.Sprint(len(s.accountIDs())),
	}, nil
}

type reactionJSON struct {
	Emoji      string `json:"emoji"`
	Count      int    `json:"count"`
	IsFromSelf bool   `json:"isFromSelf"`
}

type reactionsJSON struct {
	ReactionsByContact map[string][]string `json:"reactionsByContact"`
	Reactions          []reactionJSON      `json:"reactions"`
}

// rpcMessageReactions returns null when the message has no reactions.
func rpcMessageReactions(s *accountSet, params []json.RawMessage) (any, error) {
	var msgID uint32
	acct, err := accountParams(s, params, 1, &msgID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.loadMsg(acct, msgID); !ok {
		return nil, fmt.Errorf("message %d not found", msgID)
	}
	out := reactionsJSON{ReactionsByContact: make(map[string][]string)}
	counts := make(map[string]*reactionJSON)
	err = s.db.query("SELECT contact_id, emoji FROM reactions WHERE msg_id = ? ORDER BY contact_id, emoji",
		func(stmt *sqlite.Stmt) error {
			contactID, emoji := stmt.ColumnInt64(0), stmt.ColumnText(1)
			key := fmt.Sprint(contactID)
			out.ReactionsByContact[key] = append(out.ReactionsByContact[key], emoji)
			r := counts[emoji]
			if r == nil {
				r = &reactionJSON{Emoji: emoji}
				counts[emoji] = r
			}
			r.Count++
			if uint32(contactID) == engine.ContactIDSelf {
				r.IsFromSelf = true
			}
			return nil
		}, int64(msgID))
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}
	for _, r := range counts {
		out.Reactions = append(out.Reactions, *r)
	}
	sort.Slice(out.Reactions, func(i, j int) bool {
		if out.Reactions[i].Count != out.Reactions[j].Count {
			return out.Reactions[i].Count > out.Reactions[j].Count
		}
		return out.Reactions[i].Emoji < out.Reactions[j].Emoji
	})
	return out, nil
}

// rpcSendReaction replaces the own reactions on a message. An empty list
// retracts them.
func rpcSendReaction(s *accountSet, params []json.RawMessage) (any, error) {
	var msgID uint32
	var reactions []string
	acct, err := accountParams(s, params, 2, &msgID, &reactions)
	if err != nil {
		return nil, err
	}
	m, ok := s.loadMsg(acct, msgID)
	if !ok {
		return nil, fmt.Errorf("message %d not found", msgID)
	}
	err = s.db.tx(func(conn *sqlite.Conn) error {
		if err := execConn(conn, "DELETE FROM reactions WHERE msg_id = ? AND contact_id = ?",
			int64(msgID), int64(engine.ContactIDSelf)); err != nil {
			return err
		}
		for _, r := range reactions {
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			if err := execConn(conn, "INSERT OR IGNORE INTO reactions (msg_id, contact_id, emoji) VALUES (?, ?, ?)",
				int64(msgID), int64(engine.ContactIDSelf), r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(acct, engine.EventReactionsChanged, int(m.chatID), int(msgID), "")
	return msgID, nil
}

func rpcMakeVcard(s *accountSet, params []json.RawMessage) (any, error) {
	var ids []uint32
	acct, err := accountParams(s, params, 1, &ids)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, id := range ids {
		c, ok := s.loadContact(acct, id)
		if !ok {
			return nil, fmt.Errorf("contact %d not found", id)
		}
		fmt.Fprintf(&b, "BEGIN:VCARD\r\nVERSION:4.0\r\nEMAIL:%s\r\nFN:%s\r\nEND:VCARD\r\n", c.addr, c.displayName())
	}
	return b.String(), nil
}

type vcardContact struct {
	Addr        string `json:"addr"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

// parseVcards reads the EMAIL and FN properties of every card.
func parseVcards(text string) []vcardContact {
	var out []vcardContact
	var cur *vcardContact
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Drop property parameters such as EMAIL;TYPE=work.
		name, _, _ = strings.Cut(strings.ToUpper(name), ";")
		switch name {
		case "BEGIN":
			cur = &vcardContact{}
		case "EMAIL":
			if cur != nil {
				cur.Addr = strings.ToLower(value)
			}
		case "FN":
			if cur != nil {
				cur.DisplayName = value
			}
		case "END":
			if cur != nil && cur.Addr != "" {
				if cur.DisplayName == "" {
					cur.DisplayName = cur.Addr
				}
				cur.Color = fmt.Sprintf("#%06x", colorOf(cur.Addr))
				out = append(out, *cur)
			}
			cur = nil
		}
	}
	return out
}

func rpcParseVcard(_ *accountSet, params []json.RawMessage) (any, error) {
	var path string
	if err := decodeParams(params, 1, &path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseVcards(string(data)), nil
}

func rpcImportVcard(s *accountSet, params []json.RawMessage) (any, error) {
	var path string
	acct, err := accountParams(s, params, 1, &path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ids := []uint32{}
	for _, c := range parseVcards(string(data)) {
		name := c.DisplayName
		if name == c.Addr {
			name = ""
		}
		id, err := s.createContact(acct, name, c.Addr)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func rpcChangeContactName(s *accountSet, params []json.RawMessage) (any, error) {
	var contactID uint32
	var name string
	acct, err := accountParams(s, params, 2, &contactID, &name)
	if err != nil {
		return nil, err
	}
	if contactID <= engine.ContactIDLastSpecial {
		return nil, fmt.Errorf("cannot rename special contact %d", contactID)
	}
	n, err := s.db.changes("UPDATE contacts SET name = ? WHERE account_id = ? AND id = ?",
		strings.TrimSpace(name), int64(acct), int64(contactID))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("contact %d not found", contactID)
	}
	s.emit(acct, engine.EventContactsChanged, int(contactID), 0, "")
	return nil, nil
}

func rpcCreateBroadcast(s *accountSet, params []json.RawMessage) (any, error) {
	var name string
	acct, err := accountParams(s, params, 1, &name)
	if err != nil {
		return nil, err
	}
	return s.createGroupChat(acct, engine.ChatTypeBroadcast, name)
}

func rpcCreateGroupUnencrypted(s *accountSet, params []json.RawMessage) (any, error) {
	var name string
	acct, err := accountParams(s, params, 1, &name)
	if err != nil {
		return nil, err
	}
	return s.createGroupChat(acct, engine.ChatTypeGroup, name)
}

type transportJSON struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
}

func (s *accountSet) transports(acct uint32) ([]transportJSON, error) {
	out := []transportJSON{}
	err := s.db.query("SELECT addr, password FROM transports WHERE account_id = ? ORDER BY addr",
		func(stmt *sqlite.Stmt) error {
			out = append(out, transportJSON{Addr: stmt.ColumnText(0), Password: stmt.ColumnText(1)})
			return nil
		}, int64(acct))
	return out, err
}

// addTransport stores the transport and makes it the primary one when the
// account has none yet.
func (s *accountSet) addTransport(acct uint32, t transportJSON) error {
	t.Addr = strings.ToLower(strings.TrimSpace(t.Addr))
	if !validAddr(t.Addr) {
		return fmt.Errorf("bad address supplied: %q", t.Addr)
	}
	err := s.db.exec(`INSERT INTO transports (account_id, addr, password) VALUES (?, ?, ?)
		ON CONFLICT(account_id, addr) DO UPDATE SET password = excluded.password`,
		int64(acct), t.Addr, t.Password)
	if err != nil {
		return err
	}
	if s.isConfigured(acct) {
		return nil
	}
	for k, v := range map[string]string{
		engine.ConfigAddr:         t.Addr,
		engine.ConfigMailPassword: t.Password,
		"configured_addr":         t.Addr,
		engine.ConfigConfigured:   "1",
	} {
		if err := s.setConfig(acct, k, v); err != nil {
			return err
		}
	}
	s.emit(acct, engine.EventConfigureProgress, 1000, 0, "")
	return nil
}

func rpcListTransports(s *accountSet, params []json.RawMessage) (any, error) {
	acct, err := accountParams(s, params, 0)
	if err != nil {
		return nil, err
	}
	return s.transports(acct)
}

func rpcAddOrUpdateTransport(s *accountSet, params []json.RawMessage) (any, error) {
	var t transportJSON
	acct, err := accountParams(s, params, 1, &t)
	if err != nil {
		return nil, err
	}
	return nil, s.addTransport(acct, t)
}

func rpcAddTransportFromQR(s *accountSet, params []json.RawMessage) (any, error) {
	var qr string
	acct, err := accountParams(s, params, 1, &qr)
	if err != nil {
		return nil, err
	}
	info, err := parseQR(qr)
	if err != nil {
		return nil, err
	}
	if info.state != engine.QRAccount || info.addr == "" {
		return nil, fmt.Errorf("QR code does not describe a transport")
	}
	return nil, s.addTransport(acct, transportJSON{Addr: info.addr, Password: info.password})
}

func rpcDeleteTransport(s *accountSet, params []json.RawMessage) (any, error) {
	var addr string
	acct, err := accountParams(s, params, 1, &addr)
	if err != nil {
		return nil, err
	}
	addr = strings.ToLower(strings.TrimSpace(addr))
	if primary, _ := s.getConfig(acct, "configured_addr"); primary == addr {
		return nil, fmt.Errorf("cannot delete the primary transport %s", addr)
	}
	n, err := s.db.changes("DELETE FROM transports WHERE account_id = ? AND addr = ?", int64(acct), addr)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("transport %s not found", addr)
	}
	return nil, nil
}

// rpcIceServers returns the ICE server list as a JSON document in a string.
func rpcIceServers(s *accountSet, params []json.RawMessage) (any, error) {
	acct, err := accountParams(s, params, 0)
	if err != nil {
		return nil, err
	}
	addr, _ := s.getConfig(acct, engine.ConfigAddr)
	host := "turn.example.org"
	if _, domain, ok := strings.Cut(addr, "@"); ok {
		host = "turn." + domain
	}
	servers := []map[string]any{{
		"urls":       []string{"turn:" + host},
		"username":   "ohV8aec1",
		"credential": "zo3theiY",
	}}
	data, err := json.Marshal(servers)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func rpcStorageUsageReport(s *accountSet, params []json.RawMessage) (any, error) {
	acct, err := accountParams(s, params, 0)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Storage usage for account %d\n", acct)
	for _, t := range []struct{ label, query string }{
		{"Messages", "SELECT COUNT(*) FROM msgs WHERE account_id = ?"},
		{"Chats", "SELECT COUNT(*) FROM chats WHERE account_id = ?"},
		{"Contacts", "SELECT COUNT(*) FROM contacts WHERE account_id = ?"},
		{"Attachment bytes", "SELECT COALESCE(SUM(filebytes), 0) FROM msgs WHERE account_id = ?"},
	} {
		n, err := s.db.int64(t.query, int64(acct))
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "%s: %d\n", t.label, n)
	}
	return b.String(), nil
}

func (s *accountSet) webxdcMsg(params []json.RawMessage, dst ...any) (uint32, *msgObj, error) {
	var msgID uint32
	acct, err := accountParams(s, params, 1+len(dst), append([]any{&msgID}, dst...)...)
	if err != nil {
		return 0, nil, err
	}
	m, ok := s.loadMsg(acct, msgID)
	if !ok || m.viewtype != engine.MsgWebxdc {
		return 0, nil, fmt.Errorf("message %d is not a webxdc instance", msgID)
	}
	return acct, m, nil
}

func rpcRealtimeAdvertisement(s *accountSet, params []json.RawMessage) (any, error) {
	acct, m, err := s.webxdcMsg(params)
	if err != nil {
		return nil, err
	}
	s.emit(acct, engine.EventWebxdcRealtimeAdvertisement, int(m.id), 0, "")
	return nil, nil
}

// rpcRealtimeData loops the payload back as a realtime data event; there
// are no peers to send it to.
func rpcRealtimeData(s *accountSet, params []json.RawMessage) (any, error) {
	var data []byte
	var raw []int
	acct, m, err := s.webxdcMsg(params, &raw)
	if err != nil {
		return nil, err
	}
	for _, v := range raw {
		if v < 0 || v > 255 {
			return nil, invalidParams("realtime data must be bytes")
		}
		data = append(data, byte(v))
	}
	s.emit(acct, engine.EventWebxdcRealtimeData, int(m.id), 0, string(data))
	return nil, nil
}

func rpcLeaveRealtime(s *accountSet, params []json.RawMessage) (any, error) {
	if _, _, err := s.webxdcMsg(params); err != nil {
		return nil, err
	}
	return nil, nil
}
