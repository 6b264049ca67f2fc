package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/Iron-Ham/chatcore/internal/event"
	"github.com/Iron-Ham/chatcore/internal/tui"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// longOp describes a long-running engine operation reported through
// progress events.
type longOp struct {
	accountID uint32
	op        event.Operation
	title     string
	start     func()
	cancel    func()
}

// runLongOp starts the bridge, kicks off op and follows it to completion,
// with a progress TUI on terminals and plain lines otherwise.
func (rt *runtime) runLongOp(ctx context.Context, out io.Writer, op longOp) error {
	if err := rt.startBridge(ctx); err != nil {
		return err
	}
	events, stop := tui.Forward(rt.bus, op.accountID, op.op)
	defer stop()

	op.start()

	if isTerminal(out) {
		model := tui.NewProgressModel(op.title, op.op, events, tui.WithCancel(op.cancel))
		final, err := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx)).Run()
		if err != nil {
			op.cancel()
			return err
		}
		return final.(tui.ProgressModel).Err()
	}
	return followPlain(ctx, out, op, events)
}

func followPlain(ctx context.Context, out io.Writer, op longOp, events <-chan event.Event) error {
	fmt.Fprintf(out, "%s...\n", op.title)
	last := -1
	for {
		select {
		case <-ctx.Done():
			op.cancel()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("%s: event stream closed", op.op)
			}
			switch e := ev.(type) {
			case event.LogEvent:
				fmt.Fprintf(out, "  %s: %s\n", e.Level, e.Message)
			case event.ProgressEvent:
				switch {
				case e.Error:
					if e.Message != "" {
						return fmt.Errorf("%s failed: %s", op.op, e.Message)
					}
					return fmt.Errorf("%s failed", op.op)
				case e.Done:
					fmt.Fprintf(out, "%s: done\n", op.op)
					return nil
				case e.Progress/100 != last:
					last = e.Progress / 100
					fmt.Fprintf(out, "  %3d%% %s\n", e.Progress/10, e.Message)
				}
			}
		}
	}
}
