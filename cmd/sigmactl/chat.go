package main

import (
	"context"
	"fmt"

	"github.com/matheus3301/sigma/internal/api"
	"github.com/matheus3301/sigma/internal/contact"
	"github.com/matheus3301/sigma/internal/tui/client"
	"github.com/spf13/cobra"
)

func (c *cli) usersCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users you can start a chat with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Users(ctx, filter)
				if err != nil {
					return fmt.Errorf("users: %s", api.ErrorMessage(err))
				}
				if c.jsonOut {
					return outputJSON(c.out, resp.Users)
				}
				if len(resp.Users) == 0 {
					_, _ = fmt.Fprintln(c.out, "No users found.")
					return nil
				}
				tw := newTable(c.out)
				for _, u := range resp.Users {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Name, u.Phone)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "case-insensitive name or phone filter")
	return cmd
}

func (c *cli) chatsCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:     "chats",
		Aliases: []string{"conversations"},
		Short:   "List conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Conversations(ctx, filter)
				if err != nil {
					return fmt.Errorf("chats: %s", api.ErrorMessage(err))
				}
				if c.jsonOut {
					return outputJSON(c.out, resp.Conversations)
				}
				if len(resp.Conversations) == 0 {
					_, _ = fmt.Fprintln(c.out, "No conversations yet.")
					return nil
				}
				tw := newTable(c.out)
				for _, conv := range resp.Conversations {
					name := conv.PeerName
					if name == "" {
						name = conv.PeerID
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", conv.PeerID, name, formatTime(conv.LastTs), conv.LastMessage)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "case-insensitive name or phone filter")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <peer>",
		Short: "Remove a conversation from the list (its messages are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := contact.PeerArg(args[0])
			return c.run(func(ctx context.Context, cl *client.Client) error {
				if err := cl.DeleteConversation(ctx, peer.ID); err != nil {
					return fmt.Errorf("delete: %s", api.ErrorMessage(err))
				}
				_, _ = fmt.Fprintf(c.out, "Removed conversation with %s.\n", peer.ID)
				return nil
			})
		},
	}
}
