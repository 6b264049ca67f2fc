package event

import (
	"testing"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

func TestNewProgressEvent(t *testing.T) {
	tests := []struct {
		progress  int
		wantError bool
		wantDone  bool
	}{
		{progress: 0, wantError: true},
		{progress: 1},
		{progress: 500},
		{progress: 999},
		{progress: 1000, wantDone: true},
	}

	for _, tt := range tests {
		e := NewProgressEvent(3, OpImex, tt.progress, "msg")
		if e.Error != tt.wantError || e.Done != tt.wantDone {
			t.Errorf("progress %d: error=%v done=%v, want error=%v done=%v",
				tt.progress, e.Error, e.Done, tt.wantError, tt.wantDone)
		}
		if e.EventType() != "progress.imex" {
			t.Errorf("EventType() = %q", e.EventType())
		}
		if e.AccountID() != 3 {
			t.Errorf("AccountID() = %d", e.AccountID())
		}
	}
}

func TestEngineEventType(t *testing.T) {
	e := NewEngineEvent(1, engine.EventLocationChanged, 4, 0, "", "")
	if e.EventType() != "engine."+engine.EventLocationChanged.String() {
		t.Errorf("EventType() = %q", e.EventType())
	}
	if e.Timestamp().IsZero() {
		t.Error("Timestamp should be set")
	}

	unknown := NewEngineEvent(1, engine.EventKind(9999), 0, 0, "", "")
	if unknown.EventType() != "engine.event_9999" {
		t.Errorf("EventType() = %q", unknown.EventType())
	}
}
