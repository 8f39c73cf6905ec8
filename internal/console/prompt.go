package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompter reads lines from the terminal. It is shared by the command loop
// and by the managers' delete confirmation so both consume the same input.
type Prompter struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	out     *lockedWriter
}

// NewPrompter wraps in and out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: &lockedWriter{w: out}}
}

// Writer returns the prompter's output. Writes are serialised so notifier
// callbacks can print while a read is pending.
func (p *Prompter) Writer() io.Writer {
	return p.out
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// unwrap returns the terminal behind a lockedWriter so colour detection
// sees the real file.
func unwrap(w io.Writer) io.Writer {
	if l, ok := w.(*lockedWriter); ok {
		return l.w
	}
	return w
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}

// ReadLine prints prompt and returns the next trimmed line. ok is false at end
// of input.
func (p *Prompter) ReadLine(prompt string) (line string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prompt != "" {
		fmt.Fprint(p.out, prompt)
	}
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// Err returns the first non-EOF read error.
func (p *Prompter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scanner.Err()
}

// Confirm asks a yes/no question. Anything but y or yes declines.
func (p *Prompter) Confirm(message string) bool {
	answer, ok := p.ReadLine(message + " [y/N] ")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
