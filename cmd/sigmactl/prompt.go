package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from stdin. Passwords are read without echo when
// stdin is a terminal.
type prompter struct {
	in     *os.File
	reader *bufio.Reader
}

func newPrompter(in *os.File) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in)}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	s, err := p.reader.ReadString('\n')
	if err != nil && s == "" {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) password(label string) (string, error) {
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return p.line(label)
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// fill prompts for *v when it is empty.
func (p *prompter) fill(v *string, label string, secret bool) error {
	if *v != "" {
		return nil
	}
	var err error
	if secret {
		*v, err = p.password(label)
	} else {
		*v, err = p.line(label)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return nil
}
