package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/tui"
)

func newAccountsCmd() *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage the account set",
		RunE:    runAccountsList,
	}

	accountsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List accounts",
			Args:  cobra.NoArgs,
			RunE:  runAccountsList,
		},
		&cobra.Command{
			Use:   "add",
			Short: "Add an empty account and select it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(func(rt *runtime) error {
					id := rt.mgr.Add()
					if id == 0 {
						return errors.NewAccountError("could not add account", errors.ErrEngineRejected)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Added account %d\n", id)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "select <id>",
			Short: "Select the account other commands act on",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "account")
				if err != nil {
					return err
				}
				return withRuntime(func(rt *runtime) error {
					if !rt.mgr.Select(id) {
						return errors.NewAccountError("cannot select account", errors.ErrAccountNotFound).WithAccountID(id)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Selected account %d\n", id)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove an account and its data",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "account")
				if err != nil {
					return err
				}
				return withRuntime(func(rt *runtime) error {
					if !rt.mgr.Remove(id) {
						return errors.NewAccountError("cannot remove account", errors.ErrAccountNotFound).WithAccountID(id)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed account %d\n", id)
					return nil
				})
			},
		},
	)
	return accountsCmd
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	return withRuntime(func(rt *runtime) error {
		selected := rt.mgr.SelectedID()
		var rows []tui.AccountRow
		for _, id := range rt.mgr.GetAll() {
			c := rt.mgr.Get(id)
			rows = append(rows, tui.AccountRow{
				ID:          id,
				Addr:        c.Addr(),
				DisplayName: c.DisplayName(),
				Configured:  c.IsConfigured(),
				Selected:    id == selected,
				Fresh:       len(c.FreshMessages()),
			})
			_ = c.Close()
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), tui.RenderAccounts(rows, rt.mgr.IOState().String()))
		return err
	})
}
