package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// EngineError Tests
// -----------------------------------------------------------------------------

func TestNewEngineError(t *testing.T) {
	err := NewEngineError("open", "wrong passphrase")

	if err.Diagnostic() != "wrong passphrase" {
		t.Errorf("Diagnostic() = %q, want %q", err.Diagnostic(), "wrong passphrase")
	}
	if err.Unwrap() != nil {
		t.Errorf("Unwrap() = %v, want nil", err.Unwrap())
	}
	if err.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityError)
	}
	if !err.IsUserFacing() {
		t.Error("IsUserFacing() = false, want true")
	}
}

func TestNewEngineError_EmptyDiagnostic(t *testing.T) {
	err := NewEngineError("configure", "")
	if !Is(err, ErrEngineRejected) {
		t.Errorf("expected empty diagnostic to wrap ErrEngineRejected, got %v", err)
	}
}

func TestEngineError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *EngineError
		want string
	}{
		{
			name: "op only",
			err:  NewEngineError("set_config", "bad key"),
			want: "engine error [op=set_config]: bad key",
		},
		{
			name: "op and account",
			err:  NewEngineError("set_config", "bad key").WithAccountID(2),
			want: "engine error [op=set_config, account=2]: bad key",
		},
		{
			name: "no diagnostic",
			err:  NewEngineError("open", ""),
			want: "engine error [op=open]: engine rejected the call",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngineError_Is(t *testing.T) {
	err := NewEngineError("open", "").WithAccountID(1)

	if !Is(err, &EngineError{}) {
		t.Error("expected Is(*EngineError) to match")
	}
	if !Is(err, ErrEngineRejected) {
		t.Error("expected cause to match ErrEngineRejected")
	}
	if Is(err, ErrAccountNotFound) {
		t.Error("did not expect ErrAccountNotFound to match")
	}
}

// -----------------------------------------------------------------------------
// AccountError Tests
// -----------------------------------------------------------------------------

func TestAccountError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AccountError
		want string
	}{
		{
			name: "with id",
			err:  NewAccountError("select failed", ErrAccountNotFound).WithAccountID(7),
			want: "account error [account=7]: select failed: account not found",
		},
		{
			name: "without id",
			err:  NewAccountError("add failed", nil),
			want: "account error: add failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccountError_Classification(t *testing.T) {
	err := NewAccountError("remove failed", ErrAccountNotFound).WithAccountID(2)

	if err.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityError)
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
	if !err.IsUserFacing() {
		t.Error("IsUserFacing() = false, want true")
	}
	if !Is(err, ErrAccountNotFound) {
		t.Error("expected ErrAccountNotFound in chain")
	}
}

func TestConfigError(t *testing.T) {
	cause := New("logging.level: must be one of: debug, info, warn, error (got: loud)")
	err := NewConfigError("invalid configuration", cause).WithPath("/etc/chatcore.yaml")

	want := "config error [path=/etc/chatcore.yaml]: invalid configuration: " + cause.Error()
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, cause) {
		t.Error("expected cause in chain")
	}
	var ce *ConfigError
	if !As(err, &ce) {
		t.Fatal("expected As to find *ConfigError")
	}
	if ce.Path != "/etc/chatcore.yaml" {
		t.Errorf("Path = %q, want /etc/chatcore.yaml", ce.Path)
	}
	if !IsUserFacing(err) {
		t.Error("config errors should be user facing")
	}
}

// -----------------------------------------------------------------------------
// RPCError Tests
// -----------------------------------------------------------------------------

func TestRPCError(t *testing.T) {
	err := NewRPCError("send_reaction", -32000, "message not found")

	want := "rpc error [method=send_reaction, code=-32000]: message not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Message() != "message not found" {
		t.Errorf("Message() = %q", err.Message())
	}

	wrapped := fmt.Errorf("call failed: %w", err)
	var rpcErr *RPCError
	if !As(wrapped, &rpcErr) {
		t.Fatal("expected As to find RPCError")
	}
	if rpcErr.Code != -32000 {
		t.Errorf("Code = %d, want -32000", rpcErr.Code)
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("chat", "12")
	if got := err.Error(); got != "chat '12' not found" {
		t.Errorf("Error() = %q", got)
	}

	withCause := NewNotFoundError("account", "3").WithCause(ErrAccountNotFound)
	if got := withCause.Error(); got != "account '3' not found: account not found" {
		t.Errorf("Error() = %q", got)
	}
	if !Is(withCause, &NotFoundError{}) {
		t.Error("expected Is(*NotFoundError) to match")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("must be a number").WithField("chat_id").WithValue("abc")

	want := "validation error [field=chat_id, value=abc]: must be a number"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("expected ErrInvalidInput in chain")
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("background fetch", 25*time.Second)

	if got := err.Error(); got != "background fetch timed out after 25s" {
		t.Errorf("Error() = %q", got)
	}
	if !err.IsRetryable() {
		t.Error("timeouts should be retryable")
	}
	if !Is(err, ErrTimeout) {
		t.Error("expected ErrTimeout in chain")
	}

	caused := NewTimeoutError("background fetch", time.Second).WithCause(context.DeadlineExceeded)
	if got := caused.Error(); got != "background fetch timed out after 1s" {
		t.Errorf("Error() = %q", got)
	}
	if !Is(caused, ErrTimeout) || !Is(caused, context.DeadlineExceeded) {
		t.Error("expected both ErrTimeout and the cause in chain")
	}
	var timeoutErr *TimeoutError
	if !As(Wrap(caused, "fetch"), &timeoutErr) || timeoutErr.Duration != time.Second {
		t.Error("expected *TimeoutError in chain")
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"io busy", Wrap(ErrIOBusy, "start io"), true},
		{"timeout sentinel", ErrTimeout, true},
		{"timeout error", NewTimeoutError("fetch", time.Second), true},
		{"engine error", NewEngineError("open", "x"), false},
		{"wrapped timeout error", Wrap(NewTimeoutError("fetch", time.Second), "cmd"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if IsUserFacing(errors.New("internal")) {
		t.Error("plain errors should not be user facing")
	}
	if !IsUserFacing(NewRPCError("m", 1, "msg")) {
		t.Error("rpc errors should be user facing")
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v", got)
	}
	if got := GetSeverity(errors.New("x")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v", got)
	}
	if got := GetSeverity(NewNotFoundError("chat", "1")); got != SeverityWarning {
		t.Errorf("GetSeverity(not found) = %v", got)
	}
	if got := GetSeverity(Wrap(NewEngineError("x", "y"), "ctx")); got != SeverityError {
		t.Errorf("GetSeverity(engine) = %v", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	err := Wrap(ErrNoResponse, "get_message_reactions")
	if err.Error() != "get_message_reactions: no rpc response" {
		t.Errorf("Wrap() = %q", err.Error())
	}
	if !Is(err, ErrNoResponse) {
		t.Error("expected wrapped sentinel")
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	err := Wrapf(ErrAccountNotFound, "select %d", 4)
	if err.Error() != "select 4: account not found" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
}
