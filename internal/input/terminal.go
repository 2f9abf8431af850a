package input

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Channel is a line-oriented conversation with a human operator.
type Channel struct {
	r      *bufio.Reader
	w      io.Writer
	closer io.Closer
}

// NewChannel builds a channel over arbitrary streams. Used by tests and by
// OpenChannel.
func NewChannel(r io.Reader, w io.Writer) *Channel {
	return &Channel{r: bufio.NewReader(r), w: w}
}

// OpenChannel locates an interactive channel for prompting, or returns nil
// when none exists. Preference order:
//
//  1. the process's own stdin, when it is a real terminal
//  2. the controlling terminal device (/dev/tty)
//  3. the system console (/dev/console)
//
// The fallback chain matters when the script is piped into the process
// (curl | setup): stdin is then the pipe, but prompts must still reach the
// operator through the controlling terminal.
func OpenChannel() *Channel {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return NewChannel(os.Stdin, os.Stderr)
	}
	for _, dev := range []string{"/dev/tty", "/dev/console"} {
		f, err := os.OpenFile(dev, os.O_RDWR, 0)
		if err != nil {
			continue
		}
		ch := NewChannel(f, f)
		ch.closer = f
		return ch
	}
	return nil
}

// Say writes a prompt or message to the operator.
func (c *Channel) Say(format string, a ...any) {
	fmt.Fprintf(c.w, format, a...)
}

// ReadLine reads one line of operator input, without the trailing newline.
// There is deliberately no timeout: the operator may take as long as they
// like, and nothing else is running concurrently.
func (c *Channel) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return trimEOL(line), nil
}

// Close releases the terminal device if one was opened directly.
func (c *Channel) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
