package handle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/engine/sim"
	"github.com/Iron-Ham/chatcore/internal/errors"
)

type fixture struct {
	e        *sim.Engine
	accounts engine.Handle
	ctx      engine.Handle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	SetCleanupEnabled(false)
	t.Cleanup(func() { SetCleanupEnabled(true) })

	e := sim.New(sim.WithStepDelay(time.Millisecond))
	accounts := e.AccountsNew(t.TempDir(), true)
	require.NotZero(t, accounts)
	ctx := e.AccountsGetAccount(accounts, e.AccountsAddAccount(accounts))
	require.NotZero(t, ctx)
	t.Cleanup(func() {
		e.ContextUnref(ctx)
		e.AccountsUnref(accounts)
	})
	return &fixture{e: e, accounts: accounts, ctx: ctx}
}

func TestReleaseExactlyOnce(t *testing.T) {
	f := newFixture(t)
	before := f.e.Stats()

	chatID := f.e.CreateChatByContactID(f.ctx, engine.ContactIDSelf)
	chat := NewChat(f.e, f.e.GetChat(f.ctx, chatID))
	require.False(t, chat.IsNull())
	assert.Equal(t, chatID, chat.ID())
	assert.True(t, chat.IsSelfTalk())
	assert.Equal(t, "Saved Messages", chat.Name())
	assert.Equal(t, before.Handles+1, f.e.Stats().Handles)

	require.NoError(t, chat.Close())
	assert.True(t, chat.IsNull())
	assert.ErrorIs(t, chat.Close(), errors.ErrReleased)

	after := f.e.Stats()
	assert.Equal(t, before.Handles, after.Handles)
	assert.Equal(t, before.Strings, after.Strings, "strings are freed after copying")
	assert.Zero(t, after.Misuse)
}

func TestNullWrappersAnswerDefaults(t *testing.T) {
	f := newFixture(t)

	chat := NewChat(f.e, 0)
	assert.True(t, chat.IsNull())
	assert.Zero(t, chat.ID())
	assert.Empty(t, chat.Name())
	assert.False(t, chat.CanSend())
	_, ok := chat.ProfileImage()
	assert.False(t, ok)

	contact := NewContact(f.e, 0)
	assert.Empty(t, contact.DisplayName())
	assert.True(t, contact.LastSeen().IsZero())

	lot := NewLot(f.e, 0)
	assert.Empty(t, lot.Text1())
	assert.Zero(t, lot.State())

	msg := NewMessage(f.e, 0)
	assert.Empty(t, msg.Text())
	assert.True(t, msg.Summary(nil).IsNull())

	assert.NoError(t, chat.Close())
	assert.ErrorIs(t, chat.Close(), errors.ErrReleased)
	assert.Zero(t, f.e.Stats().Misuse)
}

func TestMessageAccessors(t *testing.T) {
	f := newFixture(t)
	chatID := f.e.CreateChatByContactID(f.ctx, engine.ContactIDSelf)

	draft := NewMessage(f.e, f.e.MsgNew(f.ctx, engine.MsgText))
	draft.SetText("hello there")
	msgID := f.e.SendMsg(f.ctx, chatID, draft.Handle())
	require.NotZero(t, msgID)
	require.NoError(t, draft.Close())

	msg := NewMessage(f.e, f.e.GetMsg(f.ctx, msgID))
	defer msg.Close()
	assert.Equal(t, msgID, msg.ID())
	assert.Equal(t, chatID, msg.ChatID())
	assert.True(t, msg.IsOutgoing())
	assert.Equal(t, "hello there", msg.Text())
	assert.Equal(t, "hello", msg.SummaryText(5)[:5])
	assert.False(t, msg.Timestamp().IsZero())
	_, ok := msg.Filemime()
	assert.False(t, ok, "no attachment means no mime type")

	img, err := msg.Image()
	require.NoError(t, err)
	assert.Nil(t, img)

	lot := msg.Summary(nil)
	defer lot.Close()
	assert.Equal(t, "hello there", lot.Text2())
	assert.Equal(t, msgID, lot.ID())
}

func TestMessageImageIsCached(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o600))

	msg := NewMessage(f.e, f.e.MsgNew(f.ctx, engine.MsgImage))
	defer msg.Close()
	msg.SetFile(path, "", "")
	mime, ok := msg.Filemime()
	require.True(t, ok)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, uint64(9), msg.Filebytes())

	img, err := msg.Image()
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), img)

	require.NoError(t, os.Remove(path))
	img, err = msg.Image()
	require.NoError(t, err, "second read comes from the cache")
	assert.Equal(t, []byte("png-bytes"), img)
}

func TestCollectIDs(t *testing.T) {
	f := newFixture(t)
	f.e.AccountsAddAccount(f.accounts)
	before := f.e.Stats().Handles

	ids := CollectIDs(f.e, f.e.AccountsGetAll(f.accounts))
	assert.Equal(t, []uint32{1, 2}, ids)
	assert.Equal(t, before, f.e.Stats().Handles)
}

func TestEventEmitterNext(t *testing.T) {
	f := newFixture(t)
	em := NewEventEmitter(f.e, f.e.AccountsGetEventEmitter(f.accounts))
	before := f.e.Stats()

	require.True(t, f.e.Emit(3, engine.EventConfigureProgress, 400, 0, "", "almost"))
	var data EventData
	for {
		d, ok := em.Next()
		require.True(t, ok)
		if d.Kind == engine.EventConfigureProgress {
			data = d
			break
		}
	}
	assert.Equal(t, EventData{AccountID: 3, Kind: engine.EventConfigureProgress, Data1: 400, Data2Str: "almost"}, data)
	assert.Equal(t, before.Handles, f.e.Stats().Handles, "event handles are released after copying")

	require.NoError(t, em.Close())
	_, ok := em.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, em.Close(), errors.ErrReleased)
}

func TestEventEmitterEndsWithAccountSet(t *testing.T) {
	SetCleanupEnabled(false)
	defer SetCleanupEnabled(true)

	e := sim.New()
	accounts := e.AccountsNew(t.TempDir(), true)
	em := NewEventEmitter(e, e.AccountsGetEventEmitter(accounts))
	defer em.Close()

	done := make(chan bool)
	go func() {
		for {
			if _, ok := em.Next(); !ok {
				done <- true
				return
			}
		}
	}()
	e.AccountsUnref(accounts)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after the account set was closed")
	}
}
