// Package accounts owns the engine's account set: which accounts exist,
// which one is selected, the IO lifecycle shared by all of them, the single
// event source and the JSON-RPC channel.
package accounts

import (
	"context"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/Iron-Ham/chatcore/internal/account"
	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/handle"
	"github.com/Iron-Ham/chatcore/internal/i18n"
	"github.com/Iron-Ham/chatcore/internal/iostate"
	"github.com/Iron-Ham/chatcore/internal/logging"
	"github.com/Iron-Ham/chatcore/internal/rpc"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for the manager and the contexts it hands out.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithReadOnly opens the account set without write access.
func WithReadOnly() Option {
	return func(m *Manager) {
		m.writable = false
	}
}

// WithTranslator sets the stock string source used by RespondStockString.
func WithTranslator(t *i18n.Translator) Option {
	return func(m *Manager) {
		m.translator = t
	}
}

// Manager wraps an engine account set.
//
// All methods are safe for concurrent use. Context values returned by Get
// and GetSelected are owned by the caller and must be closed.
type Manager struct {
	api      engine.Native
	dir      string
	writable bool

	h   atomic.Uintptr
	ref handle.Ref
	rpc *rpc.Channel

	// ioMu keeps each IO state transition and its engine call together.
	ioMu    sync.Mutex
	io      *iostate.Machine
	fetches sync.WaitGroup

	emitter      *handle.EventEmitter
	emitterTaken atomic.Bool

	translator *i18n.Translator
	logger     *logging.Logger

	mu        sync.Mutex
	fresh     map[uint32]struct{}
	encrypted map[uint32]bool
	closed    bool
}

// Open opens the account set in dir, creating it when writable. Every
// existing account gets verified one-to-one chats enabled.
func Open(api engine.Native, dir string, opts ...Option) (*Manager, error) {
	m := &Manager{
		api:       api,
		dir:       dir,
		writable:  true,
		io:        iostate.New(),
		logger:    logging.NopLogger(),
		fresh:     make(map[uint32]struct{}),
		encrypted: make(map[uint32]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("accounts")

	h := api.AccountsNew(dir, m.writable)
	if h == 0 {
		return nil, errors.NewAccountError("cannot open account set at "+dir, errors.ErrNullHandle)
	}
	m.h.Store(uintptr(h))
	handle.Attach(m, &m.ref, h, api.AccountsUnref)

	if m.writable {
		for _, id := range m.GetAll() {
			m.enableVerifiedChats(id)
		}
	}

	m.emitter = handle.NewEventEmitter(api, api.AccountsGetEventEmitter(h))
	m.rpc = rpc.Open(api, h, rpc.WithLogger(m.logger))

	m.logger.Info("account set opened", "dir", dir, "writable", m.writable, "accounts", len(m.GetAll()))
	return m, nil
}

// Close stops IO, waits for a background fetch still in flight, closes the
// RPC channel and releases the account set. Releasing the set wakes a
// goroutine blocked on the event source; events queued before that are
// still delivered to it. The event source itself is closed here only if
// EventEmitter was never called. It is safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.StopIO()
	m.fetches.Wait()

	errs := []error{m.rpc.Close()}
	m.h.Store(0)
	errs = append(errs, m.ref.Release())
	if !m.emitterTaken.Load() {
		errs = append(errs, m.emitter.Close())
	}
	m.logger.Info("account set closed", "dir", m.dir)
	return errors.Join(errs...)
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) set() engine.Handle { return engine.Handle(m.h.Load()) }

// Dir returns the account set directory.
func (m *Manager) Dir() string { return m.dir }

func (m *Manager) context(h engine.Handle) *account.Context {
	return account.New(m.api, h, account.WithLogger(m.logger))
}

func (m *Manager) enableVerifiedChats(id uint32) {
	c := m.Get(id)
	defer c.Close()
	if !c.SetConfigBool(engine.ConfigVerifiedOneOnOneChats, true) {
		m.logger.WithAccount(id).Warn("cannot enable verified chats", "error", c.LastError())
	}
}

// Add creates a new unconfigured account and selects it. The id is
// remembered as freshly added until ClearFreshlyAdded. Returns 0 on failure.
func (m *Manager) Add() uint32 {
	h := m.set()
	if h == 0 {
		return 0
	}
	id := m.api.AccountsAddAccount(h)
	if id == 0 {
		m.logger.Error("cannot add account")
		return 0
	}
	m.enableVerifiedChats(id)

	m.mu.Lock()
	m.fresh[id] = struct{}{}
	m.mu.Unlock()

	m.logger.WithAccount(id).Info("account added")
	return id
}

// IsFreshlyAdded reports whether id was created by Add in this session and
// not cleared since.
func (m *Manager) IsFreshlyAdded(id uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.fresh[id]
	return ok
}

// ClearFreshlyAdded forgets all freshly added ids.
func (m *Manager) ClearFreshlyAdded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.fresh)
}

// Migrate imports the account database at dbPath as a new account.
// Returns 0 on failure.
func (m *Manager) Migrate(dbPath string) uint32 {
	h := m.set()
	if h == 0 {
		return 0
	}
	id := m.api.AccountsMigrateAccount(h, dbPath)
	if id == 0 {
		m.logger.Error("cannot migrate account", "path", dbPath)
		return 0
	}
	m.logger.WithAccount(id).Info("account migrated", "path", dbPath)
	return id
}

// Get returns the context of account id. The context is null when the
// account does not exist.
func (m *Manager) Get(id uint32) *account.Context {
	h := m.set()
	if h == 0 {
		return m.context(0)
	}
	return m.context(m.api.AccountsGetAccount(h, id))
}

// GetErr is Get that reports a missing account as a *errors.NotFoundError
// matching ErrAccountNotFound.
func (m *Manager) GetErr(id uint32) (*account.Context, error) {
	c := m.Get(id)
	if c.IsNull() {
		_ = c.Close()
		return nil, errors.NewNotFoundError("account", strconv.FormatUint(uint64(id), 10)).
			WithCause(errors.ErrAccountNotFound)
	}
	return c, nil
}

// GetSelected returns the context of the selected account, which is null
// when the set is empty.
func (m *Manager) GetSelected() *account.Context {
	h := m.set()
	if h == 0 {
		return m.context(0)
	}
	return m.context(m.api.AccountsGetSelectedAccount(h))
}

// SelectedID returns the id of the selected account, or 0.
func (m *Manager) SelectedID() uint32 {
	c := m.GetSelected()
	defer c.Close()
	if c.IsNull() {
		return 0
	}
	return c.ID()
}

// GetAll returns the ids of all accounts in ascending order.
func (m *Manager) GetAll() []uint32 {
	h := m.set()
	if h == 0 {
		return nil
	}
	return handle.CollectIDs(m.api, m.api.AccountsGetAll(h))
}

// Select makes id the selected account. It does not start or stop IO.
func (m *Manager) Select(id uint32) bool {
	h := m.set()
	if h == 0 || m.api.AccountsSelectAccount(h, id) == 0 {
		return false
	}
	m.logger.WithAccount(id).Info("account selected")
	return true
}

// Remove deletes account id and forgets what the manager cached about it.
// A failed removal keeps the cached state.
func (m *Manager) Remove(id uint32) bool {
	h := m.set()
	if h == 0 || m.api.AccountsRemoveAccount(h, id) == 0 {
		return false
	}

	m.mu.Lock()
	delete(m.fresh, id)
	delete(m.encrypted, id)
	m.mu.Unlock()

	m.logger.WithAccount(id).Info("account removed")
	return true
}

// OpenAccount opens the store of an encrypted account and remembers that it
// is encrypted.
func (m *Manager) OpenAccount(id uint32, passphrase string) error {
	c, err := m.GetErr(id)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.OpenErr(passphrase); err != nil {
		return err
	}
	m.mu.Lock()
	m.encrypted[id] = c.IsDatabaseEncrypted()
	m.mu.Unlock()
	return nil
}

// IsAnyDatabaseEncrypted reports whether an account opened through
// OpenAccount uses an encrypted store.
func (m *Manager) IsAnyDatabaseEncrypted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, enc := range m.encrypted {
		if enc {
			return true
		}
	}
	return false
}

// StartIO starts network activity for all accounts. A running background
// fetch is waited for first; the wait ends early when ctx does. Starting
// while IO already runs is a no-op. A concurrent StopIO takes effect either
// before the engine is told to start or after it has started.
func (m *Manager) StartIO(ctx context.Context) error {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	h := m.set()
	if h == 0 || m.isClosed() {
		return errors.ErrReleased
	}
	err := m.io.AcquireMainIO(ctx)
	if errors.Is(err, iostate.ErrAlreadyRunning) {
		return nil
	}
	if err != nil {
		return err
	}
	m.api.AccountsStartIO(h)
	m.logger.Info("io started")
	return nil
}

// StopIO stops network activity. It does nothing unless main IO runs; a
// background fetch is left to finish on its own.
func (m *Manager) StopIO() {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	if m.io.State() != iostate.MainIORunning {
		return
	}
	if h := m.set(); h != 0 {
		m.api.AccountsStopIO(h)
	}
	m.io.ReleaseMainIO()
	m.logger.Info("io stopped")
}

// IOState returns the current IO mode.
func (m *Manager) IOState() iostate.State { return m.io.State() }

// MaybeNetwork tells the engine that the network may be back.
func (m *Manager) MaybeNetwork() {
	if h := m.set(); h != 0 {
		m.api.AccountsMaybeNetwork(h)
	}
}

// MaybeNetworkLost tells the engine that the network may be gone.
func (m *Manager) MaybeNetworkLost() {
	if h := m.set(); h != 0 {
		m.api.AccountsMaybeNetworkLost(h)
	}
}

// IsAllWorkDone reports whether the engine has no pending work.
func (m *Manager) IsAllWorkDone() bool {
	h := m.set()
	return h == 0 || m.api.AccountsAllWorkDone(h) != 0
}

// BackgroundFetch runs one bounded synchronization pass and reports whether
// new messages arrived. It returns iostate.ErrIOBusy while main IO runs.
// When ctx ends first, the call returns early and the pass finishes in the
// background, keeping the IO state until it does; Close waits for it. An
// expired ctx deadline is reported as a *errors.TimeoutError, cancellation
// as ctx.Err().
func (m *Manager) BackgroundFetch(ctx context.Context, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	h := m.set()
	if h == 0 || m.closed {
		m.mu.Unlock()
		return false, errors.ErrReleased
	}
	if err := m.io.AcquireBackgroundFetch(); err != nil {
		m.mu.Unlock()
		return false, err
	}
	m.fetches.Add(1)
	m.mu.Unlock()

	secs := uint64(math.Ceil(timeout.Seconds()))
	if secs == 0 {
		secs = 1
	}
	start := time.Now()
	m.logger.Info("background fetch started", "timeout_s", secs)

	done := make(chan bool, 1)
	go func() {
		defer m.fetches.Done()
		defer m.io.ReleaseBackgroundFetch()
		done <- m.api.AccountsBackgroundFetch(h, secs) != 0
	}()

	select {
	case got := <-done:
		m.logger.Info("background fetch finished",
			"new_messages", got, "duration_ms", time.Since(start).Milliseconds())
		return got, nil
	case <-ctx.Done():
		err := ctx.Err()
		m.logger.Warn("background fetch abandoned", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return false, errors.NewTimeoutError("background fetch", time.Since(start).Round(time.Millisecond)).
				WithCause(err)
		}
		return false, err
	}
}

// FreshMessageCount sums the unread messages of all accounts, optionally
// skipping the selected one.
func (m *Manager) FreshMessageCount(skipCurrent bool) int {
	ids := m.GetAll()
	var skip uint32
	if skipCurrent {
		skip = m.SelectedID()
	}

	counts := iter.Map(ids, func(id *uint32) int {
		if *id == skip {
			return 0
		}
		c := m.Get(*id)
		defer c.Close()
		return len(c.FreshMessages())
	})

	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// EventEmitter returns the account set's single event source and hands its
// ownership to the caller, who pulls from it until Next reports teardown
// and then closes it. Close releases the account set, which ends the pull;
// a bridge.Bridge closes the source on its own once drained.
func (m *Manager) EventEmitter() *handle.EventEmitter {
	m.emitterTaken.Store(true)
	return m.emitter
}

// RPC returns the JSON-RPC channel.
func (m *Manager) RPC() *rpc.Channel { return m.rpc }

// BlockingCall sends one JSON-RPC request and returns the raw result.
func (m *Manager) BlockingCall(method string, params ...any) ([]byte, error) {
	return m.rpc.Call(method, params...)
}

// RespondStockString hands the engine the translation of stockID for
// accountID. It reports false when no translation is available.
func (m *Manager) RespondStockString(accountID, stockID uint32) bool {
	if m.translator == nil {
		return false
	}
	text, ok := m.translator.Translate(stockID)
	if !ok {
		return false
	}
	c := m.Get(accountID)
	defer c.Close()
	return c.SetStockTranslation(stockID, text)
}
