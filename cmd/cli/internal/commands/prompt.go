package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks for missing input. Secrets are read without echo when the
// input is a terminal.
type Prompter struct {
	in  *bufio.Reader
	fd  int
	tty bool
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// Line returns value when set, otherwise prompts for it.
func (p *Prompter) Line(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// Secret is Line without echo.
func (p *Prompter) Secret(label, value string) (string, error) {
	if value != "" || !p.tty {
		return p.Line(label, value)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(b), nil
}
