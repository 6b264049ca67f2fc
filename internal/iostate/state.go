// Package iostate tracks which IO mode the account set is in.
//
// Main IO and background fetch are mutually exclusive. Starting main IO
// waits for a running background fetch to finish; a background fetch is
// refused while main IO runs. Every transition between the two modes goes
// through Idle.
package iostate

import (
	"context"
	"sync"

	"github.com/Iron-Ham/chatcore/internal/errors"
)

// State is the current IO mode.
type State int

const (
	Idle State = iota
	MainIORunning
	BackgroundFetching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case MainIORunning:
		return "main_io_running"
	case BackgroundFetching:
		return "background_fetching"
	default:
		return "unknown"
	}
}

var (
	// ErrIOBusy is returned by AcquireBackgroundFetch while another mode is
	// active.
	ErrIOBusy = errors.ErrIOBusy
	// ErrAlreadyRunning is returned by AcquireMainIO when main IO already
	// runs. Callers treat it as success.
	ErrAlreadyRunning = errors.ErrIOAlreadyRunning
)

// Machine guards the IO mode with a mutex and a condition variable.
type Machine struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state State
}

// New returns a machine in Idle.
func New() *Machine {
	m := &Machine{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// AcquireMainIO moves Idle to MainIORunning, waiting while a background
// fetch is active. It returns ctx.Err() if the context ends first.
func (m *Machine) AcquireMainIO(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == MainIORunning {
		return ErrAlreadyRunning
	}

	// Wake waiters when ctx ends so they can give up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.cond.Broadcast()
			m.mu.Unlock()
		case <-done:
		}
	}()

	for m.state == BackgroundFetching {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.state == MainIORunning {
		// Another caller won the race while we waited.
		return ErrAlreadyRunning
	}
	m.state = MainIORunning
	return nil
}

// ReleaseMainIO moves MainIORunning to Idle. It is a no-op in any other
// state.
func (m *Machine) ReleaseMainIO() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == MainIORunning {
		m.state = Idle
		m.cond.Broadcast()
	}
}

// AcquireBackgroundFetch moves Idle to BackgroundFetching. It never waits.
func (m *Machine) AcquireBackgroundFetch() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return ErrIOBusy
	}
	m.state = BackgroundFetching
	return nil
}

// ReleaseBackgroundFetch moves BackgroundFetching to Idle and wakes callers
// waiting to start main IO.
func (m *Machine) ReleaseBackgroundFetch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == BackgroundFetching {
		m.state = Idle
		m.cond.Broadcast()
	}
}

// State returns the current mode.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) String() string {
	return m.State().String()
}
