package iostate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMachine_MainIOLifecycle(t *testing.T) {
	m := New()
	ctx := context.Background()

	if err := m.AcquireMainIO(ctx); err != nil {
		t.Fatalf("AcquireMainIO: %v", err)
	}
	if got := m.State(); got != MainIORunning {
		t.Errorf("State() = %v, want %v", got, MainIORunning)
	}
	if err := m.AcquireMainIO(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second AcquireMainIO = %v, want ErrAlreadyRunning", err)
	}

	m.ReleaseMainIO()
	if got := m.State(); got != Idle {
		t.Errorf("after release: State() = %v, want %v", got, Idle)
	}
	m.ReleaseMainIO()
	if got := m.State(); got != Idle {
		t.Errorf("double release: State() = %v, want %v", got, Idle)
	}
}

func TestMachine_BackgroundFetchRefusedDuringMainIO(t *testing.T) {
	m := New()
	if err := m.AcquireMainIO(context.Background()); err != nil {
		t.Fatalf("AcquireMainIO: %v", err)
	}
	if err := m.AcquireBackgroundFetch(); !errors.Is(err, ErrIOBusy) {
		t.Errorf("AcquireBackgroundFetch = %v, want ErrIOBusy", err)
	}
	if got := m.State(); got != MainIORunning {
		t.Errorf("State() = %v, want %v", got, MainIORunning)
	}
}

func TestMachine_SecondFetchRefused(t *testing.T) {
	m := New()
	if err := m.AcquireBackgroundFetch(); err != nil {
		t.Fatalf("AcquireBackgroundFetch: %v", err)
	}
	if err := m.AcquireBackgroundFetch(); !errors.Is(err, ErrIOBusy) {
		t.Errorf("second AcquireBackgroundFetch = %v, want ErrIOBusy", err)
	}
	// Stopping main IO during a fetch must not end the fetch.
	m.ReleaseMainIO()
	if got := m.State(); got != BackgroundFetching {
		t.Errorf("State() = %v, want %v", got, BackgroundFetching)
	}
}

func TestMachine_MainIOWaitsForFetch(t *testing.T) {
	m := New()
	if err := m.AcquireBackgroundFetch(); err != nil {
		t.Fatalf("AcquireBackgroundFetch: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- m.AcquireMainIO(context.Background())
	}()

	select {
	case err := <-acquired:
		t.Fatalf("AcquireMainIO returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	m.ReleaseBackgroundFetch()
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("AcquireMainIO: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AcquireMainIO did not wake after the fetch ended")
	}
	if got := m.State(); got != MainIORunning {
		t.Errorf("State() = %v, want %v", got, MainIORunning)
	}
}

func TestMachine_MainIOWaitCanceled(t *testing.T) {
	m := New()
	if err := m.AcquireBackgroundFetch(); err != nil {
		t.Fatalf("AcquireBackgroundFetch: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	acquired := make(chan error, 1)
	go func() {
		acquired <- m.AcquireMainIO(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-acquired:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("AcquireMainIO = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AcquireMainIO did not return after cancel")
	}
	if got := m.State(); got != BackgroundFetching {
		t.Errorf("State() = %v, want %v", got, BackgroundFetching)
	}
}

func TestMachine_ConcurrentStartersOneWins(t *testing.T) {
	m := New()
	if err := m.AcquireBackgroundFetch(); err != nil {
		t.Fatalf("AcquireBackgroundFetch: %v", err)
	}

	var wins, already atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := m.AcquireMainIO(context.Background()); {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyRunning):
				already.Add(1)
			default:
				t.Errorf("AcquireMainIO: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	m.ReleaseBackgroundFetch()
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
	if already.Load() != 7 {
		t.Errorf("already running = %d, want 7", already.Load())
	}
}

func TestMachine_NeverBothModes(t *testing.T) {
	m := New()
	ctx := context.Background()

	var mainIO, fetching atomic.Int32
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if i%2 == 0 {
					if err := m.AcquireMainIO(ctx); err != nil {
						continue
					}
					mainIO.Add(1)
					if fetching.Load() != 0 {
						t.Error("main IO started during a background fetch")
					}
					mainIO.Add(-1)
					m.ReleaseMainIO()
				} else {
					if err := m.AcquireBackgroundFetch(); err != nil {
						continue
					}
					fetching.Add(1)
					if mainIO.Load() != 0 {
						t.Error("background fetch started during main IO")
					}
					fetching.Add(-1)
					m.ReleaseBackgroundFetch()
				}
			}
		}()
	}
	wg.Wait()

	if got := m.State(); got != Idle {
		t.Errorf("final State() = %v, want %v", got, Idle)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{MainIORunning, "main_io_running"},
		{BackgroundFetching, "background_fetching"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
