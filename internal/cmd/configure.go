package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/event"
)

func newConfigureCmd() *cobra.Command {
	var (
		accountID    uint32
		addr         string
		passwordFile string
	)

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure an account against its mail server",
		Long: `Configure an account: store the address and password, then let the
engine discover the servers and log in. Progress is shown until the engine
reports success or failure.

Without --password-file, the password is read from the terminal when
--addr is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := interruptContext(cmd)
			defer cancel()

			password := ""
			if passwordFile != "" {
				data, err := os.ReadFile(passwordFile)
				if err != nil {
					return fmt.Errorf("reading %s: %w", passwordFile, err)
				}
				password = strings.TrimRight(string(data), "\r\n")
			} else if addr != "" && term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprint(os.Stderr, "Password: ")
				b, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				password = string(b)
			}

			return withRuntime(func(rt *runtime) error {
				c, err := rt.account(accountID)
				if err != nil {
					return err
				}
				defer c.Close()

				if addr != "" {
					if err := c.SetConfigErr(engine.ConfigAddr, addr); err != nil {
						return err
					}
				}
				if password != "" {
					if err := c.SetConfigErr(engine.ConfigMailPassword, password); err != nil {
						return err
					}
				}

				return rt.runLongOp(ctx, cmd.OutOrStdout(), longOp{
					accountID: c.ID(),
					op:        event.OpConfigure,
					title:     fmt.Sprintf("Configuring account %d", c.ID()),
					start:     c.Configure,
					cancel:    c.StopOngoingProcess,
				})
			})
		},
	}

	addAccountFlag(configureCmd, &accountID)
	configureCmd.Flags().StringVar(&addr, "addr", "", "email address to configure")
	configureCmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from this file")
	return configureCmd
}
