package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/matheus3301/sigma/internal/api"
	"github.com/matheus3301/sigma/internal/contact"
	"github.com/matheus3301/sigma/internal/tui/client"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
)

func (c *cli) messagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <peer>",
		Short: "Print the stored message log for a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := contact.PeerArg(args[0])
			return c.run(func(ctx context.Context, cl *client.Client) error {
				st, err := cl.Status(ctx)
				if err != nil {
					return fmt.Errorf("status: %s", api.ErrorMessage(err))
				}
				resp, err := cl.Messages(ctx, peer.ID)
				if err != nil {
					return fmt.Errorf("messages: %s", api.ErrorMessage(err))
				}
				if c.jsonOut {
					return outputJSON(c.out, resp.Messages)
				}
				if len(resp.Messages) == 0 {
					_, _ = fmt.Fprintln(c.out, "No messages.")
					return nil
				}
				return printMessages(c.out, st.UserID, resp.Messages)
			})
		},
	}
}

func (c *cli) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <text>...",
		Short: "Send a message (requires a live connection)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := contact.PeerArg(args[0])
			text := strings.Join(args[1:], " ")
			return c.run(func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Send(ctx, &api.SendRequest{
					PeerRequest: api.PeerRequest{PeerID: peer.ID, PeerName: peer.Name, PeerPhone: peer.Phone},
					Text:        text,
				})
				if api.IsCode(err, codes.Unavailable) {
					return errors.New("not connected to the chat server; message not sent")
				}
				if err != nil {
					return fmt.Errorf("send: %s", api.ErrorMessage(err))
				}
				if c.jsonOut {
					return outputJSON(c.out, resp)
				}
				if resp.Error != "" {
					return fmt.Errorf("message %s stored as pending but not delivered: %s", resp.Message.ID, resp.Error)
				}
				_, _ = fmt.Fprintf(c.out, "%s %s\n", statusMark(resp.Message), resp.Message.ID)
				return nil
			})
		},
	}
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <peer>",
		Short: "Erase the stored message log for a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := contact.PeerArg(args[0])
			return c.run(func(ctx context.Context, cl *client.Client) error {
				if err := cl.ClearThread(ctx, peer.ID); err != nil {
					return fmt.Errorf("clear: %s", api.ErrorMessage(err))
				}
				_, _ = fmt.Fprintf(c.out, "Cleared messages with %s.\n", peer.ID)
				return nil
			})
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [prefix]",
		Short: "Stream daemon events (message., conversation., session.) until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			cl, err := c.connect()
			if err != nil {
				return err
			}
			defer func() { _ = cl.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := cl.Watch(ctx, prefix)
			if err != nil {
				return fmt.Errorf("watch: %s", api.ErrorMessage(err))
			}
			for {
				evt, err := w.Recv()
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return nil
				}
				if err != nil {
					return fmt.Errorf("watch: %s", api.ErrorMessage(err))
				}
				if c.jsonOut {
					if err := outputJSON(c.out, evt); err != nil {
						return err
					}
					continue
				}
				_, _ = fmt.Fprintf(c.out, "%s  %-28s %s\n", formatTime(evt.OccurredAtMs), evt.Kind, evt.Payload)
			}
		},
	}
}
