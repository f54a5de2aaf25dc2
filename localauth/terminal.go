package localauth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// TerminalPrompter asks for confirmation on an interactive terminal. It
// stands in for the platform biometric/passcode UI when the authenticator
// runs as a command line agent; stdin stays free for ceremony input.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalPrompter prompts on the controlling terminal. It falls back
// to stderr for output if /dev/tty cannot be opened for writing.
func NewTerminalPrompter() (*TerminalPrompter, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	return &TerminalPrompter{In: tty, Out: tty}, nil
}

// Prompt blocks until the user answers. "y" confirms; an empty answer or
// "n" is a dismissal; anything else counts as a failed attempt so the gate
// can re-prompt.
func (p *TerminalPrompter) Prompt(ctx context.Context, kind Kind, reason string) error {
	fmt.Fprintf(p.Out, "%s\nConfirm with %s [y/N]: ", reason, kind)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case a := <-ch:
		if a.err != nil {
			return ErrCanceled
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return nil
		case "", "n", "no":
			return ErrCanceled
		default:
			return ErrMismatch
		}
	}
}
