package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/chatcore/internal/event"
)

func newIOCmd() *cobra.Command {
	ioCmd := &cobra.Command{
		Use:   "io",
		Short: "Run or inspect network IO for all accounts",
	}

	var duration time.Duration
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Run IO in the foreground until interrupted",
		Long: `Start network IO for every account and keep it running until Ctrl+C
(or --for elapses), printing incoming messages and connectivity changes.
IO stops when the command exits. Log level changes in the config file are
applied while running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := interruptContext(cmd)
			defer cancel()
			filter, _ := newTypeFilter("")
			return withRuntime(func(rt *runtime) error {
				return rt.runIO(ctx, cmd.OutOrStdout(), duration, true, filter, ioHighlights)
			})
		},
	}
	startCmd.Flags().DurationVar(&duration, "for", 0, "stop after this long (default: until interrupted)")

	ioCmd.AddCommand(
		startCmd,
		&cobra.Command{
			Use:   "status",
			Short: "Show the IO state and whether all work is done",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(func(rt *runtime) error {
					fmt.Fprintf(cmd.OutOrStdout(), "state: %s\n", rt.mgr.IOState())
					fmt.Fprintf(cmd.OutOrStdout(), "all work done: %t\n", rt.mgr.IsAllWorkDone())
					fmt.Fprintf(cmd.OutOrStdout(), "fresh messages: %d\n", rt.mgr.FreshMessageCount(false))
					return nil
				})
			},
		},
	)
	return ioCmd
}

// ioHighlights keeps what `io start` prints: incoming messages,
// connectivity changes, warnings and errors.
func ioHighlights(ev event.Event) bool {
	switch e := ev.(type) {
	case event.IncomingMessageEvent, event.ConnectivityChangedEvent:
		return true
	case event.LogEvent:
		return e.Level != event.LogInfo
	}
	return false
}

// runIO starts the bridge and, when startIO is set, main IO, then prints
// notifications accepted by filter and want until ctx ends or d elapses.
func (rt *runtime) runIO(ctx context.Context, out io.Writer, d time.Duration, startIO bool, filter *typeFilter, want func(event.Event) bool) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	color := isTerminal(out)
	var mu sync.Mutex
	id := rt.bus.SubscribeAll(func(ev event.Event) {
		if !filter.Match(ev.EventType()) || (want != nil && !want(ev)) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, formatEvent(ev, color))
	})
	defer rt.bus.Unsubscribe(id)

	if err := rt.startBridge(ctx); err != nil {
		return err
	}
	rt.watchConfig()

	if startIO {
		if err := rt.mgr.StartIO(ctx); err != nil {
			return err
		}
		defer rt.mgr.StopIO()
	}

	<-ctx.Done()
	return nil
}
