package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountConfigCmd() *cobra.Command {
	var accountID uint32

	accountConfigCmd := &cobra.Command{
		Use:   "account-config",
		Short: "Read or change an account's engine settings",
		Long: `Read or change an account's engine key/value settings such as addr,
mail_pw, displayname or selfstatus. Without a subcommand, prints the
account's info summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(func(rt *runtime) error {
				c, err := rt.account(accountID)
				if err != nil {
					return err
				}
				defer c.Close()

				info := c.Info()
				for _, k := range sortedKeys(info) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, info[k])
				}
				return nil
			})
		},
	}
	accountConfigCmd.PersistentFlags().Uint32VarP(&accountID, "account", "a", 0, "account id (default: selected account)")

	accountConfigCmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(func(rt *runtime) error {
					c, err := rt.account(accountID)
					if err != nil {
						return err
					}
					defer c.Close()
					v, ok := c.GetConfig(args[0])
					if !ok || v == "" {
						return fmt.Errorf("%s is not set", args[0])
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change a setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(func(rt *runtime) error {
					c, err := rt.account(accountID)
					if err != nil {
						return err
					}
					defer c.Close()
					return c.SetConfigErr(args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Reset a setting to the engine default",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(func(rt *runtime) error {
					c, err := rt.account(accountID)
					if err != nil {
						return err
					}
					defer c.Close()
					return c.UnsetConfigErr(args[0])
				})
			},
		},
	)
	return accountConfigCmd
}
