package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/chatcore/internal/bridge"
	"github.com/Iron-Ham/chatcore/internal/event"
	"github.com/Iron-Ham/chatcore/internal/eventlog"
)

func newEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Watch or replay engine notifications",
	}

	var (
		tailFor     time.Duration
		tailType    string
		tailNoIO    bool
		replayType  string
		replayStats bool
	)

	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print notifications as they happen",
		Long: `Print every notification the event bridge publishes until Ctrl+C (or
--for elapses). IO is started unless --no-io is given. --type filters by
notification type with '.'-separated globs:

  chatcore events tail --type 'message.*'
  chatcore events tail --type 'progress.*'
  chatcore events tail --type '{chat,messages}.**'

Set bridge.record_path to also record the raw engine events for replay.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := newTypeFilter(tailType)
			if err != nil {
				return err
			}
			ctx, cancel := interruptContext(cmd)
			defer cancel()
			return withRuntime(func(rt *runtime) error {
				return rt.runIO(ctx, cmd.OutOrStdout(), tailFor, !tailNoIO, filter, nil)
			})
		},
	}
	tailCmd.Flags().DurationVar(&tailFor, "for", 0, "stop after this long (default: until interrupted)")
	tailCmd.Flags().StringVar(&tailType, "type", "", "only show notification types matching this glob")
	tailCmd.Flags().BoolVar(&tailNoIO, "no-io", false, "do not start network IO")

	replayCmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Translate a recorded event log and print the notifications",
		Long: `Feed a recording made with bridge.record_path through the event bridge
and print the resulting notifications, exactly as a live session would
have published them. Stock string requests are not answered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := newTypeFilter(replayType)
			if err != nil {
				return err
			}
			r, err := eventlog.Open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			color := isTerminal(out)
			h := r.Header()
			fmt.Fprintf(out, "# session %s started %s\n", h.SessionID, h.Started.Format(time.RFC3339))

			counts := make(map[string]int)
			bus := event.NewBus()
			bus.SubscribeAll(func(ev event.Event) {
				counts[ev.EventType()]++
				if filter.Match(ev.EventType()) && !replayStats {
					fmt.Fprintln(out, formatEvent(ev, color))
				}
			})

			b := bridge.New(r, bus)
			if err := b.Start(cmd.Context()); err != nil {
				return err
			}
			b.Wait()
			if err := r.Err(); err != nil {
				return err
			}

			if replayStats {
				for _, k := range sortedKeys(counts) {
					if filter.Match(k) {
						fmt.Fprintf(out, "%6d %s\n", counts[k], k)
					}
				}
			}
			return nil
		},
	}
	replayCmd.Flags().StringVar(&replayType, "type", "", "only show notification types matching this glob")
	replayCmd.Flags().BoolVar(&replayStats, "stats", false, "print counts per notification type instead of each notification")

	eventsCmd.AddCommand(tailCmd, replayCmd)
	return eventsCmd
}
