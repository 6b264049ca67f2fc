// Package errors provides centralized error definitions and error handling utilities
// for chatcore. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures from specific subsystems:
//   - EngineError: a direct engine call failed; carries the engine's diagnostic
//   - AccountError: errors related to account management
//   - RPCError: the engine answered a JSON-RPC request with an error envelope
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	// Inline engine failure, built from the context's last error
//	err := errors.NewEngineError("open", ctx.LastError()).WithAccountID(3)
//
//	// Checking
//	if errors.Is(err, errors.ErrIOBusy) { ... }
//
//	var rpcErr *errors.RPCError
//	if errors.As(err, &rpcErr) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
//
// This layer never retries on its own; classification exists so callers can
// decide.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Handle-related sentinel errors
var (
	// ErrReleased indicates use of a wrapper whose handle was already released.
	ErrReleased = New("handle already released")
	// ErrNullHandle indicates that the engine returned a null handle.
	ErrNullHandle = New("null handle")
)

// Account-related sentinel errors
var (
	// ErrAccountNotFound indicates that no account exists for an id.
	ErrAccountNotFound = New("account not found")
	// ErrEngineRejected indicates that the engine reported failure without a diagnostic.
	ErrEngineRejected = New("engine rejected the call")
)

// IO-related sentinel errors
var (
	// ErrIOBusy indicates that the other IO mode currently holds the IO run state.
	ErrIOBusy = New("io run state busy")
	// ErrIOAlreadyRunning indicates that main IO is already running.
	ErrIOAlreadyRunning = New("main io already running")
)

// RPC-related sentinel errors
var (
	// ErrNoResponse indicates that the transport returned nothing.
	ErrNoResponse = New("no rpc response")
	// ErrMalformedResponse indicates that the response was not a JSON-RPC envelope.
	ErrMalformedResponse = New("malformed rpc response")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// CoreError is the base interface for all chatcore errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type CoreError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

func formatPrefixed(prefix string, parts []string, message string, cause error) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if message == "" && cause != nil {
		return fmt.Sprintf("%s: %v", prefix, cause)
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// EngineError reports a direct engine call that signalled failure through a
// zero id, null handle or false result. Message is the diagnostic the engine
// left in the context's last-error slot, captured at the failure site.
//
// Example:
//
//	err := errors.NewEngineError("set_config", "no such key").WithAccountID(2)
//	fmt.Println(err) // "engine error [op=set_config, account=2]: no such key"
type EngineError struct {
	baseError
	Op        string
	AccountID uint32
}

// NewEngineError creates a new EngineError. An empty diagnostic is replaced
// by ErrEngineRejected as the cause.
func NewEngineError(op, diagnostic string) *EngineError {
	e := &EngineError{
		baseError: baseError{
			message:    diagnostic,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Op: op,
	}
	if diagnostic == "" {
		e.cause = ErrEngineRejected
	}
	return e
}

// WithAccountID adds an account id to the error context.
func (e *EngineError) WithAccountID(id uint32) *EngineError {
	e.AccountID = id
	return e
}

// WithCause sets the underlying error.
func (e *EngineError) WithCause(cause error) *EngineError {
	e.cause = cause
	return e
}

// Diagnostic returns the engine-supplied message.
func (e *EngineError) Diagnostic() string {
	return e.message
}

// Error returns the formatted error message.
func (e *EngineError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.AccountID != 0 {
		parts = append(parts, fmt.Sprintf("account=%d", e.AccountID))
	}
	return formatPrefixed("engine error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *EngineError) Is(target error) bool {
	if _, ok := target.(*EngineError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AccountError represents errors related to account management.
//
// Example:
//
//	err := errors.NewAccountError("select failed", errors.ErrAccountNotFound).WithAccountID(7)
type AccountError struct {
	baseError
	AccountID uint32
}

// NewAccountError creates a new AccountError.
func NewAccountError(message string, cause error) *AccountError {
	return &AccountError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithAccountID adds an account id to the error context.
func (e *AccountError) WithAccountID(id uint32) *AccountError {
	e.AccountID = id
	return e
}

// Error returns the formatted error message.
func (e *AccountError) Error() string {
	var parts []string
	if e.AccountID != 0 {
		parts = append(parts, fmt.Sprintf("account=%d", e.AccountID))
	}
	return formatPrefixed("account error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *AccountError) Is(target error) bool {
	if _, ok := target.(*AccountError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ConfigError indicates that the configuration could not be loaded or is
// invalid. The cause usually holds every individual validation failure.
type ConfigError struct {
	baseError
	Path string
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithPath records the config file involved.
func (e *ConfigError) WithPath(path string) *ConfigError {
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, "path="+e.Path)
	}
	return formatPrefixed("config error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	if _, ok := target.(*ConfigError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RPCError is a JSON-RPC error envelope returned by the engine.
//
// Example:
//
//	err := errors.NewRPCError("send_reaction", -32000, "message not found")
//	fmt.Println(err) // "rpc error [method=send_reaction, code=-32000]: message not found"
type RPCError struct {
	baseError
	Method string
	Code   int
}

// NewRPCError creates a new RPCError carrying the engine-supplied message.
func NewRPCError(method string, code int, message string) *RPCError {
	return &RPCError{
		baseError: baseError{
			message:    message,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Method: method,
		Code:   code,
	}
}

// Message returns the engine-supplied message.
func (e *RPCError) Message() string {
	return e.message
}

// Error returns the formatted error message.
func (e *RPCError) Error() string {
	var parts []string
	if e.Method != "" {
		parts = append(parts, fmt.Sprintf("method=%s", e.Method))
	}
	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("code=%d", e.Code))
	}
	return formatPrefixed("rpc error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *RPCError) Is(target error) bool {
	if _, ok := target.(*RPCError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("chat", "12")
//	fmt.Println(err) // "chat '12' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("must be a number").WithField("chat_id").WithValue("abc")
//	fmt.Println(err) // "validation error [field=chat_id, value=abc]: must be a number"
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			cause:      ErrInvalidInput,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return formatPrefixed("validation error", parts, e.message, nil)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that did not finish in time.
//
// Example:
//
//	err := errors.NewTimeoutError("background fetch", 25*time.Second)
//	fmt.Println(err) // "background fetch timed out after 25s"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    fmt.Sprintf("%s timed out after %v", operation, duration),
			cause:      ErrTimeout,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause records what ended the wait, typically a context error. The
// error keeps matching ErrTimeout.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = Join(ErrTimeout, cause)
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	return e.message
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing CoreError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout or ErrIOBusy
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var coreErr CoreError
	if As(err, &coreErr) {
		return coreErr.IsRetryable()
	}

	return Is(err, ErrTimeout) || Is(err, ErrIOBusy)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var coreErr CoreError
	if As(err, &coreErr) {
		return coreErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement CoreError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var coreErr CoreError
	if As(err, &coreErr) {
		return coreErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
