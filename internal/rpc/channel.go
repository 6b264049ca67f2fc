// Package rpc is the synchronous JSON-RPC channel to the engine.
//
// A [Channel] owns one engine JSON-RPC instance. Each [Channel.Call] encodes
// a JSON-RPC 2.0 request, blocks until the engine has answered and returns
// the raw result. Error envelopes come back as *errors.RPCError.
package rpc

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/handle"
	"github.com/Iron-Ham/chatcore/internal/logging"
)

// Error is a JSON-RPC error envelope returned by the engine.
type Error = errors.RPCError

// ErrNoResponse means the engine produced no response at all, for example
// because the instance was already torn down.
var ErrNoResponse = errors.ErrNoResponse

// DecodeError reports a response that is not a JSON-RPC envelope, or a
// result that does not decode into the requested type.
type DecodeError struct {
	Method string
	Raw    string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("rpc %s: malformed response: %v", e.Method, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches errors.ErrMalformedResponse.
func (e *DecodeError) Is(target error) bool {
	return target == errors.ErrMalformedResponse
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *errorBody      `json:"error"`
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger. Calls are logged at debug level.
func WithLogger(l *logging.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

type api interface {
	engine.Strings
	engine.JSONRPCAPI
}

// Channel is safe for concurrent use. Calls are not serialized by the
// channel; the engine handles each on the calling goroutine.
type Channel struct {
	api    api
	nextID atomic.Uint64
	logger *logging.Logger

	// mu is held shared by calls on the instance and exclusively by Close.
	mu  sync.RWMutex
	h   engine.Handle
	ref handle.Ref
}

// Open creates a JSON-RPC instance on an account set.
func Open(a api, accounts engine.Handle, opts ...Option) *Channel {
	var h engine.Handle
	if accounts != 0 {
		h = a.JsonrpcInit(accounts)
	}
	return newChannel(a, h, opts...)
}

func newChannel(a api, h engine.Handle, opts ...Option) *Channel {
	c := &Channel{api: a, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("rpc")
	c.h = h
	handle.Attach(c, &c.ref, h, a.JsonrpcUnref)
	return c
}

// Close waits for calls in flight, then tears down the instance. Later
// calls fail with ErrNoResponse.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.h = 0
	return c.ref.Release()
}

// roundTrip hands req to the instance and returns the raw response. ok is
// false when the instance is gone or produced nothing.
func (c *Channel) roundTrip(req string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.h == 0 {
		return "", false
	}
	s := c.api.JsonrpcBlockingCall(c.h, req)
	if s == 0 {
		return "", false
	}
	return handle.TakeString(c.api, s), true
}

// Call performs method with positional params and returns the raw JSON of
// the result. A null result is returned as the bytes "null".
func (c *Channel) Call(method string, params ...any) ([]byte, error) {
	if params == nil {
		params = []any{}
	}
	id := c.nextID.Add(1)
	req, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		return nil, fmt.Errorf("rpc %s: encode params: %w", method, err)
	}

	start := time.Now()
	raw, ok := c.roundTrip(string(req))
	if !ok {
		return nil, fmt.Errorf("rpc %s: %w", method, ErrNoResponse)
	}
	c.logger.Debug("rpc call", "method", method, "id", id, "duration_ms", time.Since(start).Milliseconds())

	var resp response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &DecodeError{Method: method, Raw: raw, Err: err}
	}
	if resp.Error != nil {
		return nil, errors.NewRPCError(method, resp.Error.Code, resp.Error.Message)
	}
	if resp.JSONRPC != "2.0" {
		return nil, &DecodeError{Method: method, Raw: raw, Err: fmt.Errorf("unexpected jsonrpc version %q", resp.JSONRPC)}
	}
	if len(resp.Result) == 0 {
		return []byte("null"), nil
	}
	return resp.Result, nil
}

// Call performs method and decodes the result into T. A null result leaves
// T at its zero value.
func Call[T any](c *Channel, method string, params ...any) (T, error) {
	var out T
	raw, err := c.Call(method, params...)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &DecodeError{Method: method, Raw: string(raw), Err: err}
	}
	return out, nil
}

func unmarshalString(doc string, v any) error {
	return json.Unmarshal([]byte(doc), v)
}
