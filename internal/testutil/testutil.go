// Package testutil provides fixtures for tests that drive the simulated
// engine.
package testutil

import (
	"testing"
	"time"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/engine/sim"
	"github.com/Iron-Ham/chatcore/internal/handle"
)

// PinHandles disables the garbage-collection safety net of handle wrappers
// for the duration of the test, so tests can count outstanding handles.
func PinHandles(t testing.TB) {
	t.Helper()
	handle.SetCleanupEnabled(false)
	t.Cleanup(func() { handle.SetCleanupEnabled(true) })
}

// NewEngine returns a simulated engine whose configure steps take a
// millisecond. opts are applied after that default.
func NewEngine(opts ...sim.Option) *sim.Engine {
	return sim.New(append([]sim.Option{sim.WithStepDelay(time.Millisecond)}, opts...)...)
}

// OpenAccountSet opens a writable account set in a temporary directory. The
// set is released when the test ends.
func OpenAccountSet(t testing.TB, e *sim.Engine) engine.Handle {
	t.Helper()
	h := e.AccountsNew(t.TempDir(), true)
	if h == 0 {
		t.Fatal("failed to open account set")
	}
	t.Cleanup(func() { e.AccountsUnref(h) })
	return h
}

// AddAccount adds an account to set and returns its id and a new context
// handle. The caller owns the handle.
func AddAccount(t testing.TB, e *sim.Engine, set engine.Handle) (uint32, engine.Handle) {
	t.Helper()
	id := e.AccountsAddAccount(set)
	if id == 0 {
		t.Fatal("failed to add account")
	}
	ctx := e.AccountsGetAccount(set, id)
	if ctx == 0 {
		t.Fatalf("no context for account %d", id)
	}
	return id, ctx
}
