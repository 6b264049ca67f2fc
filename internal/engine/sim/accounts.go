package sim

import (
	"os"
	"strconv"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

type accountSet struct {
	e      *Engine
	dir    string
	db     *store
	events *eventQueue
	stop   chan struct{}
	jobsWG sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	ioRunning bool
	fetching  bool
	open      map[uint32]bool
	lastErr   map[uint32]string
	jobs      map[uint32]*job
	pending   []incoming
	stock     map[uint32]map[uint32]string
}

type incoming struct {
	accountID uint32
	from      string
	name      string
	text      string
}

type contextObj struct {
	set *accountSet
	id  uint32
}

// AccountsNew implements engine.AccountsAPI.
func (e *Engine) AccountsNew(dir string, writable bool) engine.Handle {
	if writable {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0
		}
	}
	db, err := openStore(dir)
	if err != nil {
		return 0
	}
	set := &accountSet{
		e:       e,
		dir:     dir,
		db:      db,
		events:  newEventQueue(),
		stop:    make(chan struct{}),
		open:    make(map[uint32]bool),
		lastErr: make(map[uint32]string),
		jobs:    make(map[uint32]*job),
		stock:   make(map[uint32]map[uint32]string),
	}
	ids, _ := db.int64s("SELECT id FROM accounts")
	for _, id := range ids {
		_, locked := set.rawConfig(uint32(id), passphraseKey)
		set.open[uint32(id)] = !locked
	}

	e.mu.Lock()
	e.current = set
	e.mu.Unlock()
	return e.alloc(set)
}

// AccountsUnref implements engine.AccountsAPI. It stops IO and any ongoing
// process, wakes every goroutine blocked on the event source and closes the
// store.
func (e *Engine) AccountsUnref(accounts engine.Handle) {
	set, ok := release[*accountSet](e, accounts)
	if !ok {
		return
	}
	set.mu.Lock()
	set.closed = true
	set.ioRunning = false
	set.mu.Unlock()

	close(set.stop)
	set.jobsWG.Wait()
	set.events.close()
	_ = set.db.close()

	e.mu.Lock()
	if e.current == set {
		e.current = nil
	}
	e.mu.Unlock()
}

func (e *Engine) set(accounts engine.Handle) *accountSet {
	set, ok := lookup[*accountSet](e, accounts)
	if !ok || set.isClosed() {
		return nil
	}
	return set
}

func (s *accountSet) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *accountSet) emit(accountID uint32, kind engine.EventKind, data1, data2 int, data2Str string) {
	s.events.push(eventObj{
		accountID: accountID,
		kind:      kind,
		data1:     data1,
		data2:     data2,
		data2Str:  data2Str,
	})
}

func (s *accountSet) info(accountID uint32, msg string) {
	s.emit(accountID, engine.EventInfo, 0, 0, msg)
}

// fail records msg as the account's last error and emits an error event.
func (s *accountSet) fail(accountID uint32, msg string) {
	s.setLastError(accountID, msg)
	s.emit(accountID, engine.EventError, 0, 0, msg)
}

func (s *accountSet) setLastError(accountID uint32, msg string) {
	s.mu.Lock()
	s.lastErr[accountID] = msg
	s.mu.Unlock()
}

func (s *accountSet) exists(id uint32) bool {
	n, err := s.db.int64("SELECT COUNT(*) FROM accounts WHERE id = ?", int64(id))
	return err == nil && n > 0
}

func (s *accountSet) selected() uint32 {
	v, ok, err := s.db.text("SELECT value FROM meta WHERE key = 'selected'")
	if err != nil || !ok {
		return 0
	}
	id, _ := strconv.ParseUint(v, 10, 32)
	return uint32(id)
}

func (s *accountSet) setSelected(id uint32) error {
	return s.db.exec(
		"INSERT INTO meta (key, value) VALUES ('selected', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		strconv.FormatUint(uint64(id), 10))
}

func (s *accountSet) accountIDs() []uint32 {
	ids, err := s.db.int64s("SELECT id FROM accounts ORDER BY id")
	if err != nil {
		return nil
	}
	out := make([]uint32, 0, len(ids))
	for _, id := range ids {
		out = append(out, uint32(id))
	}
	return out
}

func (s *accountSet) addAccount() uint32 {
	id, err := s.db.insert("INSERT INTO accounts (created_at) VALUES (?)", s.e.now().Unix())
	if err != nil {
		return 0
	}
	s.mu.Lock()
	s.open[uint32(id)] = true
	s.mu.Unlock()
	if err := s.setSelected(uint32(id)); err != nil {
		return 0
	}
	s.emit(0, engine.EventAccountsChanged, 0, 0, "")
	return uint32(id)
}

func (s *accountSet) newContext(id uint32) engine.Handle {
	if id == 0 || !s.exists(id) {
		return 0
	}
	return s.e.alloc(&contextObj{set: s, id: id})
}

// AccountsAddAccount implements engine.AccountsAPI. The new account becomes
// the selected one.
func (e *Engine) AccountsAddAccount(accounts engine.Handle) uint32 {
	set := e.set(accounts)
	if set == nil {
		return 0
	}
	return set.addAccount()
}

// AccountsMigrateAccount implements engine.AccountsAPI. dbPath must point to
// a backup written by this engine.
func (e *Engine) AccountsMigrateAccount(accounts engine.Handle, dbPath string) uint32 {
	set := e.set(accounts)
	if set == nil {
		return 0
	}
	b, err := readBackup(dbPath)
	if err != nil {
		return 0
	}
	id := set.addAccount()
	if id == 0 {
		return 0
	}
	if err := set.restoreBackup(id, b); err != nil {
		return 0
	}
	return id
}

// AccountsRemoveAccount implements engine.AccountsAPI.
func (e *Engine) AccountsRemoveAccount(accounts engine.Handle, id uint32) int {
	set := e.set(accounts)
	if set == nil || !set.exists(id) {
		return 0
	}
	err := set.db.tx(func(conn *sqlite.Conn) error {
		for _, q := range []string{
			"DELETE FROM reactions WHERE msg_id IN (SELECT id FROM msgs WHERE account_id = ?)",
			"DELETE FROM chat_contacts WHERE chat_id IN (SELECT id FROM chats WHERE account_id = ?)",
			"DELETE FROM msgs WHERE account_id = ?",
			"DELETE FROM chats WHERE account_id = ?",
			"DELETE FROM contacts WHERE account_id = ?",
			"DELETE FROM config WHERE account_id = ?",
			"DELETE FROM transports WHERE account_id = ?",
			"DELETE FROM accounts WHERE id = ?",
		} {
			if err := execConn(conn, q, int64(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0
	}

	set.mu.Lock()
	delete(set.open, id)
	delete(set.lastErr, id)
	delete(set.stock, id)
	set.mu.Unlock()

	if set.selected() == id {
		next := uint32(0)
		if ids := set.accountIDs(); len(ids) > 0 {
			next = ids[0]
		}
		_ = set.setSelected(next)
	}
	set.emit(0, engine.EventAccountsChanged, 0, 0, "")
	return 1
}

// AccountsGetAll implements engine.AccountsAPI.
func (e *Engine) AccountsGetAll(accounts engine.Handle) engine.Handle {
	set := e.set(accounts)
	if set == nil {
		return 0
	}
	return e.alloc(&arrayObj{ids: set.accountIDs()})
}

// AccountsGetAccount implements engine.AccountsAPI.
func (e *Engine) AccountsGetAccount(accounts engine.Handle, id uint32) engine.Handle {
	set := e.set(accounts)
	if set == nil {
		return 0
	}
	return set.newContext(id)
}

// AccountsGetSelectedAccount implements engine.AccountsAPI.
func (e *Engine) AccountsGetSelectedAccount(accounts engine.Handle) engine.Handle {
	set := e.set(accounts)
	if set == nil {
		return 0
	}
	return set.newContext(set.selected())
}

// AccountsSelectAccount implements engine.AccountsAPI.
func (e *Engine) AccountsSelectAccount(accounts engine.Handle, id uint32) int {
	set := e.set(accounts)
	if set == nil || !set.exists(id) {
		return 0
	}
	if err := set.setSelected(id); err != nil {
		return 0
	}
	return 1
}

// AccountsStartIO implements engine.AccountsAPI.
func (e *Engine) AccountsStartIO(accounts engine.Handle) {
	set := e.set(accounts)
	if set == nil {
		return
	}
	set.mu.Lock()
	already := set.ioRunning
	set.ioRunning = true
	pending := set.pending
	set.pending = nil
	set.mu.Unlock()
	if already {
		return
	}

	for _, id := range set.accountIDs() {
		set.info(id, "IO started")
		set.emit(id, engine.EventConnectivityChanged, 0, 0, "")
		set.flushOutgoing(id)
	}
	for _, in := range pending {
		set.receive(in)
	}
}

// AccountsStopIO implements engine.AccountsAPI.
func (e *Engine) AccountsStopIO(accounts engine.Handle) {
	set := e.set(accounts)
	if set == nil {
		return
	}
	set.mu.Lock()
	was := set.ioRunning
	set.ioRunning = false
	set.mu.Unlock()
	if !was {
		return
	}
	for _, id := range set.accountIDs() {
		set.info(id, "IO stopped")
		set.emit(id, engine.EventConnectivityChanged, 0, 0, "")
	}
}

// AccountsMaybeNetwork implements engine.AccountsAPI.
func (e *Engine) AccountsMaybeNetwork(accounts engine.Handle) {
	set := e.set(accounts)
	if set == nil {
		return
	}
	for _, id := range set.accountIDs() {
		set.info(id, "network may be available")
	}
}

// AccountsMaybeNetworkLost implements engine.AccountsAPI.
func (e *Engine) AccountsMaybeNetworkLost(accounts engine.Handle) {
	set := e.set(accounts)
	if set == nil {
		return
	}
	for _, id := range set.accountIDs() {
		set.info(id, "network may be lost")
		set.emit(id, engine.EventConnectivityChanged, 0, 0, "")
	}
}

// AccountsAllWorkDone implements engine.AccountsAPI.
func (e *Engine) AccountsAllWorkDone(accounts engine.Handle) int {
	set := e.set(accounts)
	if set == nil {
		return 1
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return b2i(len(set.jobs) == 0 && !set.fetching && len(set.pending) == 0)
}

// AccountsBackgroundFetch implements engine.AccountsAPI. It returns 1 when
// new messages arrived during the fetch.
func (e *Engine) AccountsBackgroundFetch(accounts engine.Handle, timeoutSeconds uint64) int {
	set := e.set(accounts)
	if set == nil {
		return 0
	}
	set.mu.Lock()
	set.fetching = true
	set.mu.Unlock()

	wait := e.fetchDelay
	if limit := time.Duration(timeoutSeconds) * time.Second; limit < wait {
		wait = limit
	}
	completed := e.sleep(wait, set.stop)

	set.mu.Lock()
	pending := set.pending
	set.pending = nil
	set.mu.Unlock()

	for _, in := range pending {
		set.receive(in)
	}

	set.mu.Lock()
	set.fetching = false
	set.mu.Unlock()

	set.emit(0, engine.EventAccountsBackgroundFetchDone, 0, 0, "")
	return b2i(completed && len(pending) > 0)
}

// AccountsGetEventEmitter implements engine.AccountsAPI.
func (e *Engine) AccountsGetEventEmitter(accounts engine.Handle) engine.Handle {
	set := e.set(accounts)
	if set == nil {
		return 0
	}
	return e.alloc(&emitterObj{q: set.events})
}

func (s *accountSet) isIORunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ioRunning
}

// startJob runs fn as the account's ongoing process. It fails when another
// process is already running for the account.
func (s *accountSet) startJob(accountID uint32, fn func(stop <-chan struct{})) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, busy := s.jobs[accountID]; busy {
		s.mu.Unlock()
		s.fail(accountID, "There is already another ongoing process running.")
		return false
	}
	j := &job{cancel: make(chan struct{})}
	s.jobs[accountID] = j
	s.jobsWG.Add(1)
	s.mu.Unlock()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		select {
		case <-j.cancel:
			close(stop)
		case <-s.stop:
			close(stop)
		case <-done:
		}
	}()

	go func() {
		defer s.jobsWG.Done()
		fn(stop)
		close(done)
		s.mu.Lock()
		if s.jobs[accountID] == j {
			delete(s.jobs, accountID)
		}
		s.mu.Unlock()
	}()
	return true
}

// stopJob asks the account's ongoing process to stop. The process reports
// the outcome through its own events.
func (s *accountSet) stopJob(accountID uint32) {
	s.mu.Lock()
	j, ok := s.jobs[accountID]
	s.mu.Unlock()
	if ok {
		j.once.Do(func() { close(j.cancel) })
	}
}

type job struct {
	cancel chan struct{}
	once   sync.Once
}
