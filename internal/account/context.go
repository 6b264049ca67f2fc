// Package account wraps a single account of the engine.
//
// A [Context] owns one engine context handle. Operations are synchronous
// calls into the engine; long-running work (configure, import/export,
// secure join) returns immediately and reports progress through events.
//
// Operations that can fail come in two forms. The plain form mirrors the
// engine (a bool, a zero id) and leaves the diagnostic in [Context.LastError].
// The Err form returns the diagnostic as an *errors.EngineError at the call
// site.
package account

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/handle"
	"github.com/Iron-Ham/chatcore/internal/logging"
)

// noLastError is what LastError reports when the engine has no diagnostic.
const noLastError = "ErrNull"

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger. Query timings are logged at debug level.
func WithLogger(l *logging.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// Context is one account. It is safe to use from multiple goroutines to the
// extent the engine is; Close must be called once by the owner.
type Context struct {
	ref    handle.Ref
	api    engine.Native
	id     uint32
	logger *logging.Logger

	encrypted atomic.Bool
	hasWebxdc atomic.Bool
}

// New takes ownership of the context handle h.
func New(api engine.Native, h engine.Handle, opts ...Option) *Context {
	c := &Context{api: api, logger: logging.NopLogger()}
	handle.Attach(c, &c.ref, h, api.ContextUnref)
	if h != 0 {
		c.id = api.GetID(h)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("account").WithAccount(c.id)
	return c
}

// Close releases the context handle.
func (c *Context) Close() error { return c.ref.Release() }

// IsNull reports whether the context wraps no handle.
func (c *Context) IsNull() bool { return c.ref.IsNull() }

// Handle returns the raw handle.
func (c *Context) Handle() engine.Handle { return c.ref.Handle() }

// ID returns the account id, 0 for a null context.
func (c *Context) ID() uint32 { return c.id }

func (c *Context) h() engine.Handle { return c.ref.Handle() }

// fail builds the inline error for op from the engine's last error.
func (c *Context) fail(op string) error {
	if c.IsNull() {
		return errors.NewEngineError(op, "").WithAccountID(c.id).WithCause(errors.ErrNullHandle)
	}
	msg := handle.TakeString(c.api, c.api.GetLastError(c.h()))
	return errors.NewEngineError(op, msg).WithAccountID(c.id)
}

// timed logs the duration of a query when the returned func is called.
func (c *Context) timed(op string) func() {
	if !c.logger.Enabled(logging.LevelDebug) {
		return func() {}
	}
	start := time.Now()
	return func() {
		c.logger.Debug("query finished", "op", op, "duration_ms", time.Since(start).Milliseconds())
	}
}

// Open unlocks the account store. A non-empty passphrase marks the store as
// encrypted.
func (c *Context) Open(passphrase string) bool {
	if c.IsNull() {
		return false
	}
	if c.api.ContextOpen(c.h(), passphrase) == 0 {
		return false
	}
	if passphrase != "" {
		c.encrypted.Store(true)
	}
	return true
}

// OpenErr is Open with the engine diagnostic as an error.
func (c *Context) OpenErr(passphrase string) error {
	if !c.Open(passphrase) {
		return c.fail("open")
	}
	return nil
}

// IsOpen reports whether the store is unlocked.
func (c *Context) IsOpen() bool {
	return !c.IsNull() && c.api.ContextIsOpen(c.h()) != 0
}

// IsDatabaseEncrypted reports whether the store was opened with a passphrase
// through this context.
func (c *Context) IsDatabaseEncrypted() bool {
	return c.encrypted.Load()
}

// LastError returns the engine's last diagnostic, "ErrNull" if there is none.
func (c *Context) LastError() string {
	if c.IsNull() {
		return noLastError
	}
	s, ok := handle.TakeOptional(c.api, c.api.GetLastError(c.h()))
	if !ok {
		return noLastError
	}
	return s
}

// GetConfig returns the value of key. Empty values are reported as absent.
func (c *Context) GetConfig(key string) (string, bool) {
	if c.IsNull() {
		return "", false
	}
	return handle.TakeOptional(c.api, c.api.GetConfig(c.h(), key))
}

// SetConfig stores value under key.
func (c *Context) SetConfig(key, value string) bool {
	return !c.IsNull() && c.api.SetConfig(c.h(), key, &value) != 0
}

// SetConfigErr is SetConfig with the engine diagnostic as an error.
func (c *Context) SetConfigErr(key, value string) error {
	if !c.SetConfig(key, value) {
		return c.fail("set_config " + key)
	}
	return nil
}

// UnsetConfig removes key, restoring its default.
func (c *Context) UnsetConfig(key string) bool {
	return !c.IsNull() && c.api.SetConfig(c.h(), key, nil) != 0
}

// UnsetConfigErr is UnsetConfig with the engine diagnostic as an error.
func (c *Context) UnsetConfigErr(key string) error {
	if !c.UnsetConfig(key) {
		return c.fail("unset_config " + key)
	}
	return nil
}

// GetConfigBool parses key as an integer flag. Missing or invalid values
// are false.
func (c *Context) GetConfigBool(key string) bool {
	return c.GetConfigInt(key) != 0
}

// GetConfigInt parses key as an integer. Missing or invalid values are 0.
func (c *Context) GetConfigInt(key string) int {
	v, ok := c.GetConfig(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// SetConfigBool stores a flag as "1" or "0".
func (c *Context) SetConfigBool(key string, value bool) bool {
	if value {
		return c.SetConfig(key, "1")
	}
	return c.SetConfig(key, "0")
}

// SetConfigInt stores an integer.
func (c *Context) SetConfigInt(key string, value int) bool {
	return c.SetConfig(key, strconv.Itoa(value))
}

func (c *Context) configString(key string) string {
	v, _ := c.GetConfig(key)
	return v
}

// DisplayName returns the self display name.
func (c *Context) DisplayName() string { return c.configString(engine.ConfigDisplayName) }

// SelfStatus returns the self status (signature) text.
func (c *Context) SelfStatus() string { return c.configString(engine.ConfigSelfStatus) }

// Addr returns the configured email address.
func (c *Context) Addr() string { return c.configString(engine.ConfigAddr) }

func (c *Context) MDNsEnabled() bool  { return c.GetConfigBool(engine.ConfigMDNsEnabled) }
func (c *Context) ShowEmails() bool   { return c.GetConfigBool(engine.ConfigShowEmails) }
func (c *Context) IsChatmail() bool   { return c.GetConfigBool(engine.ConfigIsChatmail) }
func (c *Context) ProxyEnabled() bool { return c.GetConfigBool(engine.ConfigProxyEnabled) }
func (c *Context) MuteMentions() bool { return c.GetConfigBool(engine.ConfigUIMuteMentions) }
func (c *Context) VerifiedOneOnOne() bool {
	return c.GetConfigBool(engine.ConfigVerifiedOneOnOneChats)
}

// ProxyURLs returns the configured proxies, stored newline separated.
func (c *Context) ProxyURLs() []string {
	v, ok := c.GetConfig(engine.ConfigProxyURL)
	if !ok {
		return nil
	}
	var urls []string
	for _, u := range strings.Split(v, "\n") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// SetProxyURLs stores proxies newline separated. An empty list unsets the key.
func (c *Context) SetProxyURLs(urls []string) bool {
	if len(urls) == 0 {
		return c.UnsetConfig(engine.ConfigProxyURL)
	}
	return c.SetConfig(engine.ConfigProxyURL, strings.Join(urls, "\n"))
}

// IsConfigured reports whether a configure run has completed successfully.
func (c *Context) IsConfigured() bool {
	return !c.IsNull() && c.api.IsConfigured(c.h()) != 0
}

// Info returns the engine's key=value diagnostics as a map.
func (c *Context) Info() map[string]string {
	info := make(map[string]string)
	if c.IsNull() {
		return info
	}
	raw := handle.TakeString(c.api, c.api.GetInfo(c.h()))
	for _, line := range strings.Split(raw, "\n") {
		k, v, ok := strings.Cut(line, "=")
		if ok {
			info[k] = v
		}
	}
	return info
}

// Connectivity returns one of the engine.Connectivity* levels.
func (c *Context) Connectivity() int {
	if c.IsNull() {
		return engine.ConnectivityNotConnected
	}
	return c.api.GetConnectivity(c.h())
}

// SetStockTranslation replaces the engine's text for a stock string.
func (c *Context) SetStockTranslation(stockID uint32, text string) bool {
	return !c.IsNull() && c.api.SetStockTranslation(c.h(), stockID, text) != 0
}

// MayBeValidAddr is a cheap syntactic check of an email address.
func (c *Context) MayBeValidAddr(addr string) bool {
	return c.api.MayBeValidAddr(addr) != 0
}

// HasWebxdc reports whether this account has ever shown a webxdc app. Once
// true the answer is cached.
func (c *Context) HasWebxdc() bool {
	if c.hasWebxdc.Load() {
		return true
	}
	if c.GetConfigBool(engine.ConfigUIHasWebxdc) {
		c.hasWebxdc.Store(true)
		return true
	}
	return false
}

func (c *Context) noteWebxdc() {
	if c.hasWebxdc.Load() {
		return
	}
	if c.SetConfigBool(engine.ConfigUIHasWebxdc, true) {
		c.hasWebxdc.Store(true)
	}
}
