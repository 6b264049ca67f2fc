package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/event"
)

func newBackupCmd() *cobra.Command {
	var accountID uint32

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import an account backup",
	}
	backupCmd.PersistentFlags().Uint32VarP(&accountID, "account", "a", 0, "account id (default: selected account)")

	imex := func(what int, title string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext(cmd)
			defer cancel()
			return withRuntime(func(rt *runtime) error {
				c, err := rt.account(accountID)
				if err != nil {
					return err
				}
				defer c.Close()

				var written []string
				id := rt.bus.Subscribe(event.TypeBackupFileWritten, event.ForAccount(c.ID(), func(ev event.Event) {
					if e, ok := ev.(event.BackupFileWrittenEvent); ok {
						written = append(written, e.Path)
					}
				}))
				defer rt.bus.Unsubscribe(id)

				err = rt.runLongOp(ctx, cmd.OutOrStdout(), longOp{
					accountID: c.ID(),
					op:        event.OpImex,
					title:     fmt.Sprintf(title, c.ID()),
					start:     func() { c.Imex(what, args[0], "") },
					cancel:    c.StopOngoingProcess,
				})
				if err != nil {
					return err
				}
				for _, p := range written {
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
				}
				return nil
			})
		}
	}

	backupCmd.AddCommand(
		&cobra.Command{
			Use:   "export <dir>",
			Short: "Write a backup of the account into dir",
			Args:  cobra.ExactArgs(1),
			RunE:  imex(engine.ImexExportBackup, "Exporting account %d"),
		},
		&cobra.Command{
			Use:   "import <file>",
			Short: "Restore an unconfigured account from a backup file",
			Args:  cobra.ExactArgs(1),
			RunE:  imex(engine.ImexImportBackup, "Importing into account %d"),
		},
	)
	return backupCmd
}
