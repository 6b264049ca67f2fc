package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/chatcore/internal/engine"
	"github.com/Iron-Ham/chatcore/internal/util"
)

const (
	nameColumnWidth    = 32
	summaryColumnWidth = 48
)

func newChatsCmd() *cobra.Command {
	var (
		accountID uint32
		query     string
		archived  bool
	)

	chatsCmd := &cobra.Command{
		Use:   "chats",
		Short: "List chats of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(func(rt *runtime) error {
				c, err := rt.account(accountID)
				if err != nil {
					return err
				}
				defer c.Close()

				flags := engine.GcflNoSpecials
				if archived {
					flags |= engine.GcflArchivedOnly
				}
				list := c.GetChatlist(flags, query, 0)
				defer list.Close()

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tFRESH\tLAST")
				for i := range list.Len() {
					chatID := list.ChatID(i)
					chat := c.GetChat(chatID)
					summary := list.Summary(i, chat)
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", chatID, util.Cell(chat.Name(), nameColumnWidth), c.FreshMessageCount(chatID), util.Cell(summary.Text2(), summaryColumnWidth))
					_ = summary.Close()
					_ = chat.Close()
				}
				return w.Flush()
			})
		},
	}
	addAccountFlag(chatsCmd, &accountID)
	chatsCmd.Flags().StringVarP(&query, "query", "q", "", "only chats whose name contains this")
	chatsCmd.Flags().BoolVar(&archived, "archived", false, "list archived chats")
	return chatsCmd
}

func newContactsCmd() *cobra.Command {
	var (
		accountID uint32
		query     string
		blocked   bool
	)

	contactsCmd := &cobra.Command{
		Use:   "contacts",
		Short: "List contacts of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(func(rt *runtime) error {
				c, err := rt.account(accountID)
				if err != nil {
					return err
				}
				defer c.Close()

				ids := c.GetContacts(0, query)
				if blocked {
					ids = c.BlockedContacts()
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tADDRESS\tVERIFIED")
				for _, id := range ids {
					contact := c.GetContact(id)
					fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", id, util.Cell(contact.DisplayName(), nameColumnWidth), contact.Addr(), contact.IsVerified())
					_ = contact.Close()
				}
				return w.Flush()
			})
		},
	}
	addAccountFlag(contactsCmd, &accountID)
	contactsCmd.Flags().StringVarP(&query, "query", "q", "", "only contacts matching this name or address")
	contactsCmd.Flags().BoolVar(&blocked, "blocked", false, "list blocked contacts instead")
	return contactsCmd
}
