package main

import (
	"context"
	"fmt"

	"github.com/matheus3301/sigma/internal/api"
	"github.com/matheus3301/sigma/internal/contact"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/lock"
	"github.com/matheus3301/sigma/internal/profile"
	"github.com/matheus3301/sigma/internal/tui/client"
	"github.com/spf13/cobra"
)

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection and session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(ctx context.Context, cl *client.Client) error {
				st, err := cl.Status(ctx)
				if err != nil {
					return fmt.Errorf("status: %s", api.ErrorMessage(err))
				}
				if c.jsonOut {
					return outputJSON(c.out, st)
				}
				printStatus(c.out, st)
				return nil
			})
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	var phone, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with phone and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(c.in)
			if err := p.fill(&phone, "Phone", false); err != nil {
				return err
			}
			if err := p.fill(&password, "Password", true); err != nil {
				return err
			}
			return c.run(func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Login(ctx, &api.LoginRequest{Phone: phone, Password: password})
				if err != nil {
					return fmt.Errorf("login: %s", api.ErrorMessage(err))
				}
				return c.printAuth(resp)
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var name, phone, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(c.in)
			if err := p.fill(&name, "Name", false); err != nil {
				return err
			}
			if err := p.fill(&phone, "Phone", false); err != nil {
				return err
			}
			if err := p.fill(&password, "Password", true); err != nil {
				return err
			}
			return c.run(func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Register(ctx, &api.RegisterRequest{Name: name, Phone: phone, Password: password})
				if err != nil {
					return fmt.Errorf("register: %s", api.ErrorMessage(err))
				}
				return c.printAuth(resp)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func (c *cli) printAuth(resp *api.AuthResponse) error {
	if c.jsonOut {
		return outputJSON(c.out, resp)
	}
	_, _ = fmt.Fprintf(c.out, "Signed in as %s (%s)\n", resp.Name, resp.Phone)
	return nil
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and wipe local data for the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(ctx context.Context, cl *client.Client) error {
				if err := cl.Logout(ctx); err != nil {
					return fmt.Errorf("logout: %s", api.ErrorMessage(err))
				}
				_, _ = fmt.Fprintln(c.out, "Signed out.")
				return nil
			})
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	var showQR bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and their contact link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(ctx context.Context, cl *client.Client) error {
				st, err := cl.Status(ctx)
				if err != nil {
					return fmt.Errorf("status: %s", api.ErrorMessage(err))
				}
				if !st.SignedIn {
					return fmt.Errorf("not signed in")
				}
				link := contact.Link(convindex.Peer{ID: st.UserID, Name: st.Name, Phone: st.Phone})
				if c.jsonOut {
					return outputJSON(c.out, map[string]string{
						"userId": st.UserID, "name": st.Name, "phone": st.Phone, "link": link,
					})
				}
				_, _ = fmt.Fprintf(c.out, "%s (%s)\n%s\n", st.Name, st.Phone, link)
				if showQR {
					qr, err := contact.RenderQR(link)
					if err != nil {
						return fmt.Errorf("render QR: %w", err)
					}
					_, _ = fmt.Fprint(c.out, "\n"+qr)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showQR, "qr", false, "print the contact link as a QR code")
	return cmd
}

func (c *cli) profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List local profiles and whether their daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := profile.List()
			if err != nil {
				return err
			}
			type row struct {
				Name    string `json:"name"`
				Path    string `json:"path"`
				Running bool   `json:"running"`
				PID     int    `json:"pid,omitempty"`
			}
			rows := make([]row, 0, len(names))
			for _, n := range names {
				r := row{Name: n, Path: profile.Dir(n)}
				if held, ok := lock.Held(profile.Dir(n)); ok {
					r.Running, r.PID = true, held.PID
				}
				rows = append(rows, r)
			}
			if c.jsonOut {
				return outputJSON(c.out, rows)
			}
			if len(rows) == 0 {
				_, _ = fmt.Fprintln(c.out, "No profiles found.")
				return nil
			}
			tw := newTable(c.out)
			for _, r := range rows {
				state := "stopped"
				if r.Running {
					state = fmt.Sprintf("running (pid %d)", r.PID)
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Path, state)
			}
			return tw.Flush()
		},
	}
}
