package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		accountID uint32
		to        string
	)

	sendCmd := &cobra.Command{
		Use:   "send [chat-id] <text...>",
		Short: "Send a text message",
		Long: `Send a text message to a chat, or with --to to the one-to-one chat with
an address (the contact and chat are created when needed). The message is
delivered the next time IO runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(rt *runtime) error {
				c, err := rt.account(accountID)
				if err != nil {
					return err
				}
				defer c.Close()

				var chatID uint32
				if to != "" {
					contactID, err := c.CreateContactErr("", to)
					if err != nil {
						return err
					}
					chatID = c.CreateChatByContactID(contactID)
				} else {
					if len(args) < 2 {
						return fmt.Errorf("need a chat id and text, or --to")
					}
					chatID, err = parseID(args[0], "chat")
					if err != nil {
						return err
					}
					args = args[1:]
				}

				msgID, err := c.SendTextErr(chatID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent message %d to chat %d\n", msgID, chatID)
				return nil
			})
		},
	}
	addAccountFlag(sendCmd, &accountID)
	sendCmd.Flags().StringVar(&to, "to", "", "send to the one-to-one chat with this address")
	return sendCmd
}
