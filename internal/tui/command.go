package tui

import (
	"fmt"
	"slices"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// commandDef documents a command and its aliases.
type commandDef struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	NeedArg bool
}

var commands = []commandDef{
	{Name: "chat", Aliases: []string{"open"}, Usage: "chat <name|id|link>", Help: "Open a conversation", NeedArg: true},
	{Name: "new", Aliases: []string{"users", "add"}, Usage: "new", Help: "Pick a user to chat with"},
	{Name: "chats", Aliases: []string{"home"}, Usage: "chats", Help: "Back to the conversation list"},
	{Name: "clear", Usage: "clear", Help: "Erase the open conversation's messages"},
	{Name: "delete", Aliases: []string{"rm"}, Usage: "delete", Help: "Remove the selected conversation"},
	{Name: "whoami", Aliases: []string{"me"}, Usage: "whoami", Help: "Show my contact card"},
	{Name: "contact", Usage: "contact", Help: "Show the open conversation's contact card"},
	{Name: "logout", Usage: "logout", Help: "Sign out and wipe local session data"},
	{Name: "help", Aliases: []string{"h"}, Usage: "help", Help: "Show this help"},
	{Name: "quit", Aliases: []string{"q", "exit"}, Usage: "quit", Help: "Quit the application"},
}

// Resolve maps aliases to the canonical command name and checks arguments.
func (c Command) Resolve() (Command, error) {
	for _, def := range commands {
		if c.Name != def.Name && !slices.Contains(def.Aliases, c.Name) {
			continue
		}
		if def.NeedArg && c.Args == "" {
			return c, fmt.Errorf("usage: :%s", def.Usage)
		}
		return Command{Name: def.Name, Args: c.Args}, nil
	}
	return c, fmt.Errorf("unknown command %q, try :help", c.Name)
}

// commandNames lists canonical names for prompt completion.
func commandNames() []string {
	names := make([]string, len(commands))
	for i, def := range commands {
		names[i] = def.Name
	}
	return names
}
