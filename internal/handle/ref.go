// Package handle wraps opaque engine handles in owning Go values.
//
// Every wrapper holds exactly one engine handle and releases it exactly once,
// on Close. After Close the wrapper forgets the handle, so a second Close is
// reported as [errors.ErrReleased] instead of reaching the engine again.
// Wrappers that become unreachable without Close are released by a runtime
// cleanup as a safety net; explicit Close cancels that cleanup.
//
// A wrapper around a null handle is a valid empty value. Its accessors return
// zero values ("", 0, false) instead of failing.
//
// Wrappers are single-owner values. They are not safe for concurrent use.
package handle

import (
	"runtime"
	"sync/atomic"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/errors"
)

var cleanupEnabled atomic.Bool

func init() {
	cleanupEnabled.Store(true)
}

// SetCleanupEnabled toggles the garbage-collection safety net for wrappers
// created afterwards. Tests that count outstanding engine handles disable it
// so that collection cannot change the counts.
func SetCleanupEnabled(enabled bool) {
	cleanupEnabled.Store(enabled)
}

// Ref owns a single engine handle.
type Ref struct {
	h        engine.Handle
	unref    func(engine.Handle)
	cleanup  runtime.Cleanup
	tracked  bool
	released bool
}

// Attach binds h to r, with owner as the value whose reachability guards the
// cleanup safety net. owner is normally the struct that embeds r.
func Attach[T any](owner *T, r *Ref, h engine.Handle, unref func(engine.Handle)) {
	r.h = h
	r.unref = unref
	if h != 0 && cleanupEnabled.Load() {
		r.cleanup = runtime.AddCleanup(owner, unref, h)
		r.tracked = true
	}
}

// Handle returns the raw handle, or null after release.
func (r *Ref) Handle() engine.Handle {
	return r.h
}

// IsNull reports whether the wrapper holds no handle.
func (r *Ref) IsNull() bool {
	return r.h == 0
}

// Released reports whether Release has been called.
func (r *Ref) Released() bool {
	return r.released
}

// Release performs the single unref call. A second call returns
// errors.ErrReleased and does not touch the engine.
func (r *Ref) Release() error {
	if r.released {
		return errors.ErrReleased
	}
	r.released = true

	h := r.h
	r.h = 0
	if r.tracked {
		r.cleanup.Stop()
		r.tracked = false
	}
	if h != 0 {
		r.unref(h)
	}
	return nil
}

// TakeString copies an engine string and frees it.
func TakeString(api engine.Strings, s engine.Str) string {
	if s == 0 {
		return ""
	}
	defer api.StrUnref(s)
	return api.StrData(s)
}

// TakeOptional is TakeString with the empty string reported as absent.
func TakeOptional(api engine.Strings, s engine.Str) (string, bool) {
	v := TakeString(api, s)
	return v, v != ""
}

func boolOf(v int) bool {
	return v != 0
}
