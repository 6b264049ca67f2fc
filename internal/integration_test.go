// Package internal holds tests that run the account manager, the event
// bridge and the bus together against the simulated engine.
package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/chatcore/internal/accounts"
	"github.com/Iron-Ham/chatcore/internal/bridge"
	"github.com/Iron-Ham/chatcore/internal/engine/sim"
	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/event"
	"github.com/Iron-Ham/chatcore/internal/iostate"
	"github.com/Iron-Ham/chatcore/internal/testutil"
)

type session struct {
	e      *sim.Engine
	mgr    *accounts.Manager
	bus    *event.Bus
	bridge *bridge.Bridge

	mu       sync.Mutex
	incoming []event.IncomingMessageEvent
}

func newSession(t *testing.T) *session {
	t.Helper()
	testutil.PinHandles(t)

	s := &session{
		e:   testutil.NewEngine(sim.WithFetchDelay(time.Millisecond)),
		bus: event.NewBus(),
	}
	mgr, err := accounts.Open(s.e, t.TempDir())
	require.NoError(t, err)
	s.mgr = mgr

	s.bus.Subscribe(event.TypeIncomingMessage, func(ev event.Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.incoming = append(s.incoming, ev.(event.IncomingMessageEvent))
	})

	s.bridge = bridge.New(mgr.EventEmitter(), s.bus, bridge.WithStringResponder(mgr))
	require.NoError(t, s.bridge.Start(context.Background()))
	t.Cleanup(func() {
		_ = s.mgr.Close()
		s.bridge.Wait()
	})
	return s
}

func (s *session) received() []event.IncomingMessageEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.IncomingMessageEvent(nil), s.incoming...)
}

func TestLiveIODeliversIncomingMessages(t *testing.T) {
	s := newSession(t)
	first := s.mgr.Add()
	second := s.mgr.Add()

	require.NoError(t, s.mgr.StartIO(context.Background()))
	assert.Equal(t, iostate.MainIORunning, s.mgr.IOState())

	require.True(t, s.e.Deliver(second, "bob@example.org", "Bob", "hello"))

	require.Eventually(t, func() bool { return len(s.received()) == 1 }, 5*time.Second, 5*time.Millisecond)
	got := s.received()[0]
	assert.Equal(t, second, got.AccountID(), "notifications carry the receiving account")
	assert.NotZero(t, got.ChatID)
	assert.NotZero(t, got.MsgID)

	assert.Equal(t, 1, s.mgr.FreshMessageCount(false))
	require.True(t, s.mgr.Select(second))
	assert.Equal(t, 0, s.mgr.FreshMessageCount(true), "the selected account is skipped")
	require.True(t, s.mgr.Select(first))
	assert.Equal(t, 1, s.mgr.FreshMessageCount(true))

	s.mgr.StopIO()
	assert.Equal(t, iostate.Idle, s.mgr.IOState())
}

func TestBackgroundFetchDrainsPendingMessages(t *testing.T) {
	s := newSession(t)
	id := s.mgr.Add()
	require.True(t, s.e.Deliver(id, "carol@example.org", "Carol", "while you were away"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	since := s.bridge.FetchGeneration()
	got, err := s.mgr.BackgroundFetch(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, got, "a pending message was fetched")

	require.NoError(t, s.bridge.WaitFetchDone(ctx, since))
	assert.Len(t, s.received(), 1, "notifications of the fetch are published before it reports done")
	assert.Greater(t, s.bridge.FetchGeneration(), since)

	since = s.bridge.FetchGeneration()
	got, err = s.mgr.BackgroundFetch(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, got, "nothing new the second time")
	require.NoError(t, s.bridge.WaitFetchDone(ctx, since))
}

func TestBackgroundFetchRefusedWhileIORuns(t *testing.T) {
	s := newSession(t)
	s.mgr.Add()
	require.NoError(t, s.mgr.StartIO(context.Background()))
	require.NoError(t, s.mgr.StartIO(context.Background()), "starting twice is fine")

	_, err := s.mgr.BackgroundFetch(context.Background(), time.Second)
	assert.True(t, errors.Is(err, iostate.ErrIOBusy), "got %v", err)
}

func TestRPCSeesAccountsAddedThroughManager(t *testing.T) {
	s := newSession(t)
	s.mgr.Add()
	s.mgr.Add()

	raw, err := s.mgr.BlockingCall("get_all_account_ids")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(raw))
}

func TestBridgeCountsTranslatedEvents(t *testing.T) {
	s := newSession(t)
	id := s.mgr.Add()
	require.NoError(t, s.mgr.StartIO(context.Background()))
	require.True(t, s.e.Deliver(id, "dave@example.org", "", "ping"))

	require.Eventually(t, func() bool { return len(s.received()) == 1 }, 5*time.Second, 5*time.Millisecond)
	translated, published := s.bridge.Counts()
	assert.Positive(t, translated)
	assert.LessOrEqual(t, published, translated)
	assert.Empty(t, s.bridge.LastDiagnostic())
}

func TestCloseDeliversStopEventsAndReleasesEverything(t *testing.T) {
	s := newSession(t)
	a, b := s.mgr.Add(), s.mgr.Add()

	var mu sync.Mutex
	var changed []uint32
	s.bus.Subscribe(event.TypeConnectivityChanged, func(ev event.Event) {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, ev.AccountID())
	})
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(changed)
	}

	require.NoError(t, s.mgr.StartIO(context.Background()))
	require.Eventually(t, func() bool { return count() == 2 }, 5*time.Second, time.Millisecond)

	require.NoError(t, s.mgr.Close())
	s.bridge.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changed, 4, "stopping IO during Close reports every account")
	assert.ElementsMatch(t, []uint32{a, b}, changed[2:])

	st := s.e.Stats()
	assert.Zero(t, st.Handles, "handles left: %v", st.ByKind)
	assert.Zero(t, st.Misuse)
}
