package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads secrets from a terminal without echo, or line by line from
// piped input.
type prompter struct {
	in    *os.File
	out   io.Writer
	lines *bufio.Reader
}

func newPrompter(in *os.File, out io.Writer) *prompter {
	return &prompter{in: in, out: out, lines: bufio.NewReader(in)}
}

// secret returns the next secret value. End of input yields whatever was
// read so far, which may be empty.
func (p *prompter) secret(label string) (string, error) {
	fd := int(p.in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(p.out, "%s: ", label)
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out) // New line after hidden input
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
		return string(value), nil
	}

	line, err := p.lines.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
