package accounts

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/engine/sim"
	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/i18n"
	"github.com/Iron-Ham/chatcore/internal/iostate"
	"github.com/Iron-Ham/chatcore/internal/testutil"
)

func newTestManager(t *testing.T, simOpts []sim.Option, opts ...Option) (*sim.Engine, *Manager) {
	t.Helper()
	testutil.PinHandles(t)

	e := testutil.NewEngine(simOpts...)
	m, err := Open(e, t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return e, m
}

// instrumentedEngine records what the engine is doing so tests can compare
// it with the manager's view. It can hold AccountsStartIO at its entry and
// make account removal fail.
type instrumentedEngine struct {
	*sim.Engine

	startEntered chan struct{}
	startGate    chan struct{}
	failRemove   bool

	ioRunning       atomic.Bool
	fetchOverlapIO  atomic.Bool
	fetching        atomic.Int32
	unrefWhileFetch atomic.Bool
}

func (e *instrumentedEngine) AccountsStartIO(h engine.Handle) {
	if e.startGate != nil {
		e.startEntered <- struct{}{}
		<-e.startGate
	}
	e.ioRunning.Store(true)
	e.Engine.AccountsStartIO(h)
}

func (e *instrumentedEngine) AccountsStopIO(h engine.Handle) {
	e.Engine.AccountsStopIO(h)
	e.ioRunning.Store(false)
}

func (e *instrumentedEngine) AccountsBackgroundFetch(h engine.Handle, timeoutSeconds uint64) int {
	if e.ioRunning.Load() {
		e.fetchOverlapIO.Store(true)
	}
	e.fetching.Add(1)
	defer e.fetching.Add(-1)
	return e.Engine.AccountsBackgroundFetch(h, timeoutSeconds)
}

func (e *instrumentedEngine) AccountsRemoveAccount(h engine.Handle, id uint32) int {
	if e.failRemove {
		return 0
	}
	return e.Engine.AccountsRemoveAccount(h, id)
}

func (e *instrumentedEngine) AccountsUnref(h engine.Handle) {
	if e.fetching.Load() != 0 {
		e.unrefWhileFetch.Store(true)
	}
	e.Engine.AccountsUnref(h)
}

func newInstrumentedManager(t *testing.T, simOpts ...sim.Option) (*instrumentedEngine, *Manager) {
	t.Helper()
	testutil.PinHandles(t)

	e := &instrumentedEngine{Engine: testutil.NewEngine(simOpts...)}
	m, err := Open(e, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return e, m
}

func TestAddSelectsAndRemembersFreshAccounts(t *testing.T) {
	_, m := newTestManager(t, nil)

	first := m.Add()
	require.Equal(t, uint32(1), first)
	require.True(t, m.Select(first))

	second := m.Add()
	assert.Equal(t, uint32(2), second, "next id after 1")
	assert.Equal(t, second, m.SelectedID())
	assert.Equal(t, []uint32{1, 2}, m.GetAll())

	assert.True(t, m.IsFreshlyAdded(first))
	assert.True(t, m.IsFreshlyAdded(second))
	m.ClearFreshlyAdded()
	assert.False(t, m.IsFreshlyAdded(second))

	c := m.Get(second)
	defer c.Close()
	assert.True(t, c.VerifiedOneOnOne())
	assert.False(t, c.IsConfigured())
}

func TestOpenEnablesVerifiedChats(t *testing.T) {
	testutil.PinHandles(t)

	e := sim.New()
	dir := t.TempDir()

	m, err := Open(e, dir)
	require.NoError(t, err)
	id := m.Add()
	c := m.Get(id)
	require.True(t, c.SetConfigBool(engine.ConfigVerifiedOneOnOneChats, false))
	require.NoError(t, c.Close())
	require.NoError(t, m.Close())

	m, err = Open(e, dir)
	require.NoError(t, err)
	defer m.Close()
	c = m.Get(id)
	defer c.Close()
	assert.True(t, c.VerifiedOneOnOne())
	assert.False(t, m.IsFreshlyAdded(id), "only ids added in this session are fresh")
}

func TestSelectAndRemove(t *testing.T) {
	_, m := newTestManager(t, nil)
	a, b := m.Add(), m.Add()

	require.True(t, m.Select(a))
	assert.Equal(t, a, m.SelectedID())
	assert.False(t, m.Select(99))
	assert.Equal(t, a, m.SelectedID())

	require.True(t, m.Remove(a))
	assert.False(t, m.IsFreshlyAdded(a))
	assert.Equal(t, []uint32{b}, m.GetAll())
	assert.Equal(t, b, m.SelectedID())
	assert.False(t, m.Remove(a))

	_, err := m.GetErr(a)
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
	var notFound *errors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "account", notFound.ResourceType)
	assert.Equal(t, "1", notFound.ResourceID)

	c := m.Get(a)
	defer c.Close()
	assert.True(t, c.IsNull())
}

func TestFailedRemoveKeepsCachedState(t *testing.T) {
	e, m := newInstrumentedManager(t)
	id := m.Add()
	require.NoError(t, m.OpenAccount(id, "hunter2"))

	e.failRemove = true
	assert.False(t, m.Remove(id))
	assert.True(t, m.IsFreshlyAdded(id))
	assert.True(t, m.IsAnyDatabaseEncrypted())
	assert.Equal(t, []uint32{id}, m.GetAll())

	e.failRemove = false
	require.True(t, m.Remove(id))
	assert.False(t, m.IsFreshlyAdded(id))
	assert.False(t, m.IsAnyDatabaseEncrypted())
}

func TestEmptySetHasNoSelection(t *testing.T) {
	_, m := newTestManager(t, nil)
	assert.Empty(t, m.GetAll())
	assert.Zero(t, m.SelectedID())
	assert.Zero(t, m.FreshMessageCount(false))
}

func TestIOTransitions(t *testing.T) {
	_, m := newTestManager(t, nil)
	m.Add()
	ctx := context.Background()

	require.NoError(t, m.StartIO(ctx))
	assert.Equal(t, iostate.MainIORunning, m.IOState())
	require.NoError(t, m.StartIO(ctx), "starting twice is a no-op")

	_, err := m.BackgroundFetch(ctx, time.Second)
	assert.ErrorIs(t, err, iostate.ErrIOBusy)
	assert.Equal(t, iostate.MainIORunning, m.IOState())

	m.StopIO()
	assert.Equal(t, iostate.Idle, m.IOState())
	m.StopIO()
	assert.Equal(t, iostate.Idle, m.IOState())

	got, err := m.BackgroundFetch(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, got, "nothing to fetch")
	assert.Equal(t, iostate.Idle, m.IOState())
}

func TestStopIODuringStartIOLeavesEngineStopped(t *testing.T) {
	e, m := newInstrumentedManager(t)
	m.Add()
	e.startEntered = make(chan struct{})
	e.startGate = make(chan struct{})

	started := make(chan error, 1)
	go func() { started <- m.StartIO(context.Background()) }()
	<-e.startEntered

	stopped := make(chan struct{})
	go func() {
		m.StopIO()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("StopIO finished before StartIO reached the engine")
	case <-time.After(20 * time.Millisecond):
	}

	close(e.startGate)
	require.NoError(t, <-started)
	<-stopped

	assert.Equal(t, iostate.Idle, m.IOState())
	assert.False(t, e.ioRunning.Load(), "engine IO outlived StopIO")

	_, err := m.BackgroundFetch(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, e.fetchOverlapIO.Load())
}

func TestConcurrentIOTransitionsStayConsistent(t *testing.T) {
	e, m := newInstrumentedManager(t, sim.WithFetchDelay(time.Millisecond))
	m.Add()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 40 {
				switch (w + i) % 3 {
				case 0:
					assert.NoError(t, m.StartIO(ctx))
				case 1:
					m.StopIO()
				case 2:
					if _, err := m.BackgroundFetch(ctx, time.Second); err != nil {
						assert.ErrorIs(t, err, iostate.ErrIOBusy)
					}
				}
			}
		}()
	}
	wg.Wait()

	assert.False(t, e.fetchOverlapIO.Load(), "a fetch ran while engine IO was running")
	require.Eventually(t, func() bool { return e.fetching.Load() == 0 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, m.IOState() == iostate.MainIORunning, e.ioRunning.Load(),
		"state %s disagrees with the engine", m.IOState())

	m.StopIO()
	assert.Equal(t, iostate.Idle, m.IOState())
	assert.False(t, e.ioRunning.Load())
}

func TestStartIOWaitsForBackgroundFetch(t *testing.T) {
	_, m := newTestManager(t, []sim.Option{sim.WithFetchDelay(300 * time.Millisecond)})
	m.Add()

	fetched := make(chan error, 1)
	go func() {
		_, err := m.BackgroundFetch(context.Background(), 5*time.Second)
		fetched <- err
	}()
	require.Eventually(t, func() bool {
		return m.IOState() == iostate.BackgroundFetching
	}, 5*time.Second, time.Millisecond)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.StartIO(short), context.DeadlineExceeded)
	assert.Equal(t, iostate.BackgroundFetching, m.IOState())

	require.NoError(t, m.StartIO(context.Background()))
	assert.Equal(t, iostate.MainIORunning, m.IOState())
	select {
	case err := <-fetched:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("background fetch did not return")
	}
}

func TestBackgroundFetchReceivesPendingMessages(t *testing.T) {
	e, m := newTestManager(t, nil)
	id := m.Add()

	require.True(t, e.Deliver(id, "bob@example.org", "Bob", "hi"))
	got, err := m.BackgroundFetch(context.Background(), time.Second)
	require.NoError(t, err)
	assert.True(t, got)
	assert.Equal(t, 1, m.FreshMessageCount(false))
}

func TestBackgroundFetchAbandonedByContext(t *testing.T) {
	_, m := newTestManager(t, []sim.Option{sim.WithFetchDelay(200 * time.Millisecond)})
	m.Add()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.BackgroundFetch(ctx, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, errors.ErrTimeout)
	var timeoutErr *errors.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "background fetch", timeoutErr.Operation)

	canceled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	require.Eventually(t, func() bool { return m.IOState() == iostate.Idle }, 5*time.Second, time.Millisecond)
	_, err = m.BackgroundFetch(canceled, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errors.ErrTimeout)

	// The pass keeps the state until the engine returns.
	require.Eventually(t, func() bool {
		return m.IOState() == iostate.Idle
	}, 5*time.Second, time.Millisecond)
}

func TestCloseWaitsForAbandonedFetch(t *testing.T) {
	e, m := newInstrumentedManager(t, sim.WithFetchDelay(200*time.Millisecond))
	m.Add()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.BackgroundFetch(ctx, 5*time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Eventually(t, func() bool { return e.fetching.Load() == 1 }, time.Second, time.Millisecond,
		"the pass is still running")

	require.NoError(t, m.Close())
	assert.False(t, e.unrefWhileFetch.Load(), "account set released under a running fetch")
	assert.Zero(t, e.fetching.Load())

	_, err = m.BackgroundFetch(context.Background(), time.Second)
	assert.ErrorIs(t, err, errors.ErrReleased)
}

func TestFreshMessageCount(t *testing.T) {
	e, m := newTestManager(t, nil)
	a, b := m.Add(), m.Add()
	require.NoError(t, m.StartIO(context.Background()))

	require.True(t, e.Deliver(a, "bob@example.org", "Bob", "one"))
	require.True(t, e.Deliver(a, "bob@example.org", "Bob", "two"))
	require.True(t, e.Deliver(b, "carol@example.org", "Carol", "three"))

	require.True(t, m.Select(a))
	assert.Equal(t, 3, m.FreshMessageCount(false))
	assert.Equal(t, 1, m.FreshMessageCount(true))
	require.True(t, m.Select(b))
	assert.Equal(t, 2, m.FreshMessageCount(true))
}

func TestOpenAccountTracksEncryption(t *testing.T) {
	_, m := newTestManager(t, nil)
	a, b := m.Add(), m.Add()

	assert.False(t, m.IsAnyDatabaseEncrypted())
	require.NoError(t, m.OpenAccount(a, ""))
	assert.False(t, m.IsAnyDatabaseEncrypted())
	require.NoError(t, m.OpenAccount(b, "hunter2"))
	assert.True(t, m.IsAnyDatabaseEncrypted())

	require.True(t, m.Remove(b))
	assert.False(t, m.IsAnyDatabaseEncrypted(), "remove drops the cached flag")

	assert.ErrorIs(t, m.OpenAccount(42, ""), errors.ErrAccountNotFound)
}

func TestBlockingCall(t *testing.T) {
	_, m := newTestManager(t, nil)
	m.Add()
	m.Add()

	raw, err := m.BlockingCall("get_all_account_ids")
	require.NoError(t, err)
	var ids []uint32
	require.NoError(t, json.Unmarshal(raw, &ids))
	assert.Equal(t, []uint32{1, 2}, ids)

	_, err = m.BlockingCall("no_such_method")
	var rpcErr *errors.RPCError
	assert.ErrorAs(t, err, &rpcErr)
}

func TestRespondStockString(t *testing.T) {
	bundle, err := i18n.NewBundle()
	require.NoError(t, err)

	_, m := newTestManager(t, nil, WithTranslator(bundle.NewTranslator("de")))
	id := m.Add()

	assert.True(t, m.RespondStockString(id, 2))
	assert.False(t, m.RespondStockString(id, 4242), "unknown stock id")

	_, bare := newTestManager(t, nil)
	assert.False(t, bare.RespondStockString(bare.Add(), 2), "no translator")
}

func TestCloseReleasesEverything(t *testing.T) {
	testutil.PinHandles(t)

	e := sim.New()
	m, err := Open(e, t.TempDir())
	require.NoError(t, err)
	m.Add()
	require.NoError(t, m.StartIO(context.Background()))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "Close is idempotent")

	st := e.Stats()
	assert.Zero(t, st.Handles, "handles left: %v", st.ByKind)
	assert.Zero(t, st.Misuse)

	assert.Zero(t, m.Add())
	assert.Nil(t, m.GetAll())
	assert.ErrorIs(t, m.StartIO(context.Background()), errors.ErrReleased)
	_, err = m.BlockingCall("get_all_account_ids")
	assert.ErrorIs(t, err, errors.ErrNoResponse)
}
