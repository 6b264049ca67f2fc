package rpc

// Reaction is one emoji with the number of contacts that sent it.
type Reaction struct {
	Emoji      string `json:"emoji"`
	Count      int    `json:"count"`
	IsFromSelf bool   `json:"isFromSelf"`
}

// Reactions summarizes the reactions to one message.
type Reactions struct {
	// ByContact maps a contact id (as a decimal string) to its emojis.
	ByContact map[string][]string `json:"reactionsByContact"`
	// Reactions is ordered by count, most frequent first.
	Reactions []Reaction `json:"reactions"`
}

// IsEmpty reports whether nobody reacted.
func (r *Reactions) IsEmpty() bool {
	return r == nil || len(r.Reactions) == 0
}

// VcardContact is one contact parsed from a vCard file.
type VcardContact struct {
	Addr        string `json:"addr"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

// Transport is one email relay of a multi-transport account.
type Transport struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
}

// IceServer is a TURN/STUN server entry for calls.
type IceServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

func (c *Channel) AllAccountIDs() ([]uint32, error) {
	return Call[[]uint32](c, "get_all_account_ids")
}

func (c *Channel) SystemInfo() (map[string]string, error) {
	return Call[map[string]string](c, "get_system_info")
}

// MessageReactions returns the reactions to a message. A message without
// reactions yields an empty, non-nil Reactions.
func (c *Channel) MessageReactions(accountID, msgID uint32) (*Reactions, error) {
	r, err := Call[*Reactions](c, "get_message_reactions", accountID, msgID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = &Reactions{}
	}
	if r.ByContact == nil {
		r.ByContact = map[string][]string{}
	}
	return r, nil
}

// SendReaction replaces the own reactions to a message; no reactions
// retracts them. It returns the id of the reacted-to message.
func (c *Channel) SendReaction(accountID, msgID uint32, reactions ...string) (uint32, error) {
	if reactions == nil {
		reactions = []string{}
	}
	return Call[uint32](c, "send_reaction", accountID, msgID, reactions)
}

// MakeVcard renders contacts as vCard text.
func (c *Channel) MakeVcard(accountID uint32, contactIDs ...uint32) (string, error) {
	if contactIDs == nil {
		contactIDs = []uint32{}
	}
	return Call[string](c, "make_vcard", accountID, contactIDs)
}

// ParseVcard reads the contacts of a vCard file without importing them.
func (c *Channel) ParseVcard(path string) ([]VcardContact, error) {
	return Call[[]VcardContact](c, "parse_vcard", path)
}

// ImportVcard creates contacts from a vCard file and returns their ids.
func (c *Channel) ImportVcard(accountID uint32, path string) ([]uint32, error) {
	return Call[[]uint32](c, "import_vcard", accountID, path)
}

func (c *Channel) ChangeContactName(accountID, contactID uint32, name string) error {
	_, err := c.Call("change_contact_name", accountID, contactID, name)
	return err
}

// CreateBroadcast creates a broadcast channel and returns its chat id.
func (c *Channel) CreateBroadcast(accountID uint32, name string) (uint32, error) {
	return Call[uint32](c, "create_broadcast", accountID, name)
}

// CreateGroupChatUnencrypted creates a plain email group.
func (c *Channel) CreateGroupChatUnencrypted(accountID uint32, name string) (uint32, error) {
	return Call[uint32](c, "create_group_chat_unencrypted", accountID, name)
}

func (c *Channel) ListTransports(accountID uint32) ([]Transport, error) {
	return Call[[]Transport](c, "list_transports", accountID)
}

// AddOrUpdateTransport adds a relay. The first relay of an unconfigured
// account configures it.
func (c *Channel) AddOrUpdateTransport(accountID uint32, t Transport) error {
	_, err := c.Call("add_or_update_transport", accountID, t)
	return err
}

// AddTransportFromQR adds a relay from a dclogin QR code.
func (c *Channel) AddTransportFromQR(accountID uint32, qr string) error {
	_, err := c.Call("add_transport_from_qr", accountID, qr)
	return err
}

// DeleteTransport removes a relay. The primary relay cannot be removed.
func (c *Channel) DeleteTransport(accountID uint32, addr string) error {
	_, err := c.Call("delete_transport", accountID, addr)
	return err
}

// IceServers returns the ICE servers for calls. The engine answers with a
// JSON document inside a string.
func (c *Channel) IceServers(accountID uint32) ([]IceServer, error) {
	doc, err := Call[string](c, "ice_servers", accountID)
	if err != nil {
		return nil, err
	}
	var servers []IceServer
	if err := unmarshalString(doc, &servers); err != nil {
		return nil, &DecodeError{Method: "ice_servers", Raw: doc, Err: err}
	}
	return servers, nil
}

func (c *Channel) StorageUsageReport(accountID uint32) (string, error) {
	return Call[string](c, "get_storage_usage_report_string", accountID)
}

// SendWebxdcRealtimeAdvertisement announces participation in the realtime
// channel of a webxdc app.
func (c *Channel) SendWebxdcRealtimeAdvertisement(accountID, msgID uint32) error {
	_, err := c.Call("send_webxdc_realtime_advertisement", accountID, msgID)
	return err
}

// SendWebxdcRealtimeData sends data to the peers of a webxdc app. Bytes are
// sent as a JSON array of numbers.
func (c *Channel) SendWebxdcRealtimeData(accountID, msgID uint32, data []byte) error {
	nums := make([]int, len(data))
	for i, b := range data {
		nums[i] = int(b)
	}
	_, err := c.Call("send_webxdc_realtime_data", accountID, msgID, nums)
	return err
}

func (c *Channel) LeaveWebxdcRealtime(accountID, msgID uint32) error {
	_, err := c.Call("leave_webxdc_realtime", accountID, msgID)
	return err
}
