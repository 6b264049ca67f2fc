package cmd

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/chatcore/internal/event"
)

func newFetchCmd() *cobra.Command {
	var timeout time.Duration

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one bounded background fetch for all accounts",
		Long: `Run one background fetch pass: connect, download new messages for every
account and disconnect. Waits until the engine reports the fetch done and
prints how many messages arrived. Fails while IO is running elsewhere.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := interruptContext(cmd)
			defer cancel()
			return withRuntime(func(rt *runtime) error {
				if timeout <= 0 {
					timeout = rt.cfg.Engine.BackgroundFetchTimeout()
				}

				var incoming atomic.Int64
				id := rt.bus.Subscribe(event.TypeIncomingMessage, func(event.Event) {
					incoming.Add(1)
				})
				defer rt.bus.Unsubscribe(id)

				if err := rt.startBridge(ctx); err != nil {
					return err
				}
				since := rt.bridge.FetchGeneration()

				got, err := rt.mgr.BackgroundFetch(ctx, timeout)
				if err != nil {
					return err
				}

				// Drain the notifications the fetch produced.
				drainCtx, drainCancel := context.WithTimeout(ctx, timeout)
				defer drainCancel()
				if err := rt.bridge.WaitFetchDone(drainCtx, since); err != nil {
					return fmt.Errorf("waiting for fetch to finish: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "new messages: %t (%d notifications)\n", got, incoming.Load())
				return nil
			})
		},
	}
	fetchCmd.Flags().DurationVar(&timeout, "timeout", 0, "bound for the fetch (default: engine.background_fetch_timeout_seconds)")
	return fetchCmd
}
