package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matheus3301/sigma/internal/profile"
	"github.com/matheus3301/sigma/internal/tui/client"
	"github.com/spf13/cobra"
)

// cli carries the global flags shared by every subcommand.
type cli struct {
	profileFlag string
	jsonOut     bool
	timeout     time.Duration
	noStart     bool

	out io.Writer
	in  *os.File
}

func newRootCmd() *cobra.Command {
	c := &cli{out: os.Stdout, in: os.Stdin}
	return c.rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sigmactl",
		Short:         "Control a sigma chat daemon",
		Long:          "sigmactl talks to the sigmad daemon of a profile over its Unix socket.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVarP(&c.profileFlag, "profile", "p", "", "profile name (overrides config default)")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "output in JSON format")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 15*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&c.noStart, "no-start", false, "do not start the daemon when it is not running")

	root.AddCommand(
		c.statusCmd(),
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.profilesCmd(),
		c.usersCmd(),
		c.chatsCmd(),
		c.deleteCmd(),
		c.messagesCmd(),
		c.sendCmd(),
		c.clearCmd(),
		c.watchCmd(),
	)
	return root
}

func (c *cli) profileName() (string, error) {
	name := profile.Resolve(c.profileFlag)
	if err := profile.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// connect returns a client for the profile's daemon, starting it if needed.
func (c *cli) connect() (*client.Client, error) {
	name, err := c.profileName()
	if err != nil {
		return nil, err
	}
	socketPath := profile.SocketPath(name)
	if c.noStart {
		if !client.Probe(socketPath) {
			return nil, fmt.Errorf("daemon not running for profile %q", name)
		}
	} else {
		started, err := client.Ensure(name, socketPath, 10*time.Second)
		if err != nil {
			return nil, err
		}
		if started {
			fmt.Fprintf(os.Stderr, "started daemon for profile %q\n", name)
		}
	}
	cl, err := client.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon for profile %q: %w", name, err)
	}
	return cl, nil
}

// run connects, applies the request timeout and hands both to fn.
func (c *cli) run(fn func(ctx context.Context, cl *client.Client) error) error {
	cl, err := c.connect()
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return fn(ctx, cl)
}
