package rpc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/engine/sim"
	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/testutil"
)

// scripted answers every request with a fixed response and records the
// requests it saw.
type scripted struct {
	mu       sync.Mutex
	reply    string
	null     bool
	requests []string
	strs     map[engine.Str]string
	next     engine.Str
	unrefs   int

	// When gate is set, calls signal entered and block until gate closes.
	entered chan struct{}
	gate    chan struct{}
}

func (s *scripted) StrData(str engine.Str) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strs[str]
}

func (s *scripted) StrUnref(str engine.Str) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.strs, str)
}

func (s *scripted) JsonrpcInit(engine.Handle) engine.Handle { return 1 }

func (s *scripted) JsonrpcUnref(engine.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unrefs++
}

func (s *scripted) JsonrpcBlockingCall(_ engine.Handle, request string) engine.Str {
	if s.gate != nil {
		s.entered <- struct{}{}
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request)
	if s.null {
		return 0
	}
	if s.strs == nil {
		s.strs = make(map[engine.Str]string)
	}
	s.next++
	s.strs[s.next] = s.reply
	return s.next
}

func newScripted(t *testing.T, reply string) (*scripted, *Channel) {
	t.Helper()
	testutil.PinHandles(t)
	s := &scripted{reply: reply}
	return s, Open(s, 1)
}

func TestCallEncodesRequests(t *testing.T) {
	s, ch := newScripted(t, `{"jsonrpc":"2.0","id":1,"result":[1,2]}`)

	raw, err := ch.Call("get_all_account_ids")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(raw))
	_, err = ch.Call("send_reaction", 1, 10, []string{"👍"})
	require.NoError(t, err)

	require.Len(t, s.requests, 2)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"get_all_account_ids","params":[],"id":1}`, s.requests[0])
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"send_reaction","params":[1,10,["👍"]],"id":2}`, s.requests[1])
	assert.Empty(t, s.strs, "response strings are released")
}

func TestCallResults(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(t *testing.T, raw []byte, err error)
	}{
		{
			name:  "null result",
			reply: `{"jsonrpc":"2.0","id":1,"result":null}`,
			check: func(t *testing.T, raw []byte, err error) {
				require.NoError(t, err)
				assert.Equal(t, "null", string(raw))
			},
		},
		{
			name:  "error envelope",
			reply: `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found: nope"}}`,
			check: func(t *testing.T, _ []byte, err error) {
				var rpcErr *Error
				require.True(t, errors.As(err, &rpcErr))
				assert.Equal(t, -32601, rpcErr.Code)
				assert.Equal(t, "method not found: nope", rpcErr.Message())
				assert.Equal(t, "nope", rpcErr.Method)
			},
		},
		{
			name:  "not json",
			reply: `<html>`,
			check: func(t *testing.T, _ []byte, err error) {
				var decErr *DecodeError
				require.True(t, errors.As(err, &decErr))
				assert.Equal(t, "<html>", decErr.Raw)
				assert.ErrorIs(t, err, errors.ErrMalformedResponse)
			},
		},
		{
			name:  "wrong version",
			reply: `{"jsonrpc":"1.0","id":1,"result":1}`,
			check: func(t *testing.T, _ []byte, err error) {
				assert.ErrorIs(t, err, errors.ErrMalformedResponse)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ch := newScripted(t, tt.reply)
			raw, err := ch.Call("nope")
			tt.check(t, raw, err)
		})
	}
}

func TestNoResponse(t *testing.T) {
	s, ch := newScripted(t, "")
	s.null = true
	_, err := ch.Call("get_system_info")
	assert.ErrorIs(t, err, ErrNoResponse)

	s.null = false
	require.NoError(t, ch.Close())
	assert.Equal(t, 1, s.unrefs)
	assert.ErrorIs(t, ch.Close(), errors.ErrReleased)
	assert.Equal(t, 1, s.unrefs, "instance released once")

	_, err = ch.Call("get_system_info")
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestTypedCallDecodeFailure(t *testing.T) {
	_, ch := newScripted(t, `{"jsonrpc":"2.0","id":1,"result":"not a number"}`)
	_, err := Call[uint32](ch, "create_broadcast", 1, "x")
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "create_broadcast", decErr.Method)
}

type simFixture struct {
	e       *sim.Engine
	ch      *Channel
	ctx     engine.Handle
	account uint32
}

func newSimFixture(t *testing.T) *simFixture {
	t.Helper()
	testutil.PinHandles(t)

	e := testutil.NewEngine()
	accounts := testutil.OpenAccountSet(t, e)
	id, ctx := testutil.AddAccount(t, e, accounts)
	ch := Open(e, accounts)
	t.Cleanup(func() {
		_ = ch.Close()
		e.ContextUnref(ctx)
	})
	return &simFixture{e: e, ch: ch, ctx: ctx, account: id}
}

func (f *simFixture) sendText(t *testing.T, addr, text string) (uint32, uint32) {
	t.Helper()
	contact := f.e.CreateContact(f.ctx, "", addr)
	chatID := f.e.CreateChatByContactID(f.ctx, contact)
	msgID := f.e.SendTextMsg(f.ctx, chatID, text)
	require.NotZero(t, msgID)
	return chatID, msgID
}

func TestMessageReactions(t *testing.T) {
	f := newSimFixture(t)
	_, msgID := f.sendText(t, "bob@example.org", "hi")

	r, err := f.ch.MessageReactions(f.account, msgID)
	require.NoError(t, err)
	assert.True(t, r.IsEmpty(), "no reactions yields an empty result")
	assert.NotNil(t, r.ByContact)

	got, err := f.ch.SendReaction(f.account, msgID, "👍", "🎉")
	require.NoError(t, err)
	assert.Equal(t, msgID, got)

	r, err = f.ch.MessageReactions(f.account, msgID)
	require.NoError(t, err)
	require.Len(t, r.Reactions, 2)
	assert.True(t, r.Reactions[0].IsFromSelf)
	assert.ElementsMatch(t, []string{"👍", "🎉"}, r.ByContact["1"])

	_, err = f.ch.SendReaction(f.account, msgID)
	require.NoError(t, err)
	r, err = f.ch.MessageReactions(f.account, msgID)
	require.NoError(t, err)
	assert.True(t, r.IsEmpty(), "an empty reaction list retracts")

	_, err = f.ch.MessageReactions(99, msgID)
	var rpcErr *Error
	assert.True(t, errors.As(err, &rpcErr))
}

func TestVcards(t *testing.T) {
	f := newSimFixture(t)
	bob := f.e.CreateContact(f.ctx, "Bob", "bob@example.org")

	card, err := f.ch.MakeVcard(f.account, bob)
	require.NoError(t, err)
	assert.Contains(t, card, "EMAIL:bob@example.org")

	path := filepath.Join(t.TempDir(), "bob.vcf")
	require.NoError(t, os.WriteFile(path, []byte(card), 0o600))

	parsed, err := f.ch.ParseVcard(path)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "Bob", parsed[0].DisplayName)

	ids, err := f.ch.ImportVcard(f.account, path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{bob}, ids)

	require.NoError(t, f.ch.ChangeContactName(f.account, bob, "Robert"))
	assert.Error(t, f.ch.ChangeContactName(f.account, engine.ContactIDSelf, "Me"))
}

func TestTransports(t *testing.T) {
	f := newSimFixture(t)

	list, err := f.ch.ListTransports(f.account)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, f.ch.AddOrUpdateTransport(f.account, Transport{Addr: "me@example.org", Password: "pw"}))
	require.NoError(t, f.ch.AddTransportFromQR(f.account, "dclogin:second@example.net?p=pw2"))
	list, err = f.ch.ListTransports(f.account)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Error(t, f.ch.DeleteTransport(f.account, "me@example.org"), "primary transport stays")
	require.NoError(t, f.ch.DeleteTransport(f.account, "second@example.net"))

	servers, err := f.ch.IceServers(f.account)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, []string{"turn:turn.example.org"}, servers[0].URLs)

	report, err := f.ch.StorageUsageReport(f.account)
	require.NoError(t, err)
	assert.Contains(t, report, "Messages:")
}

func TestGroupsAndBroadcasts(t *testing.T) {
	f := newSimFixture(t)

	chatID, err := f.ch.CreateBroadcast(f.account, "News")
	require.NoError(t, err)
	assert.Equal(t, engine.ChatTypeBroadcast, f.e.ChatGetType(chatHandle(t, f, chatID)))

	groupID, err := f.ch.CreateGroupChatUnencrypted(f.account, "Plain")
	require.NoError(t, err)
	assert.NotEqual(t, chatID, groupID)

	ids, err := f.ch.AllAccountIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint32{f.account}, ids)

	info, err := f.ch.SystemInfo()
	require.NoError(t, err)
	assert.Equal(t, "1", info["accounts"])
}

func chatHandle(t *testing.T, f *simFixture, chatID uint32) engine.Handle {
	t.Helper()
	h := f.e.GetChat(f.ctx, chatID)
	require.NotZero(t, h)
	t.Cleanup(func() { f.e.ChatUnref(h) })
	return h
}

func TestRealtimeRequiresWebxdc(t *testing.T) {
	f := newSimFixture(t)
	_, textID := f.sendText(t, "bob@example.org", "not an app")
	assert.Error(t, f.ch.SendWebxdcRealtimeAdvertisement(f.account, textID))

	contact := f.e.CreateContact(f.ctx, "", "carol@example.org")
	chatID := f.e.CreateChatByContactID(f.ctx, contact)
	msg := f.e.MsgNew(f.ctx, engine.MsgWebxdc)
	appID := f.e.SendMsg(f.ctx, chatID, msg)
	f.e.MsgUnref(msg)
	require.NotZero(t, appID)

	require.NoError(t, f.ch.SendWebxdcRealtimeAdvertisement(f.account, appID))
	require.NoError(t, f.ch.SendWebxdcRealtimeData(f.account, appID, []byte{0, 1, 255}))
	require.NoError(t, f.ch.LeaveWebxdcRealtime(f.account, appID))
}

func TestRequestIDsAreUnique(t *testing.T) {
	s, ch := newScripted(t, `{"jsonrpc":"2.0","id":0,"result":null}`)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ch.Call("get_system_info")
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for _, r := range s.requests {
		var req struct {
			ID uint64 `json:"id"`
		}
		require.NoError(t, json.Unmarshal([]byte(r), &req))
		assert.False(t, seen[req.ID], "id %d reused", req.ID)
		seen[req.ID] = true
	}
	assert.Len(t, seen, 20)
}

func TestCloseWaitsForCallInFlight(t *testing.T) {
	s, ch := newScripted(t, `{"jsonrpc":"2.0","id":1,"result":true}`)
	s.entered = make(chan struct{})
	s.gate = make(chan struct{})

	called := make(chan error, 1)
	go func() {
		_, err := ch.Call("is_configured", 1)
		called <- err
	}()
	<-s.entered

	closed := make(chan error, 1)
	go func() { closed <- ch.Close() }()
	select {
	case <-closed:
		t.Fatal("Close returned while a call was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	s.mu.Lock()
	assert.Zero(t, s.unrefs, "instance released under a running call")
	s.mu.Unlock()

	close(s.gate)
	require.NoError(t, <-called)
	require.NoError(t, <-closed)
	assert.Equal(t, 1, s.unrefs)

	_, err := ch.Call("is_configured", 1)
	assert.ErrorIs(t, err, ErrNoResponse)
}
