// Package console connects prompts to the process terminal.
package console

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/term"

	"github.com/systmms/templatevault/internal/prompt"
)

const (
	keyInterrupt = 0x03
	keyBackspace = 0x08
	keyEscape    = 0x1b
	keyDelete    = 0x7f
)

// Terminal reads lines and raw key events from in and writes prompts to out.
// Line and key reads share one buffered reader so no typed input is lost
// when switching between them.
type Terminal struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

// NewTerminal creates a Terminal. Prompts go to out, which is usually
// stderr so rendered output on stdout stays clean.
func NewTerminal(in *os.File, out io.Writer) *Terminal {
	return &Terminal{
		in:     in,
		out:    out,
		reader: bufio.NewReader(in),
	}
}

// Stdio returns a Terminal on stdin with prompts written to stderr.
func Stdio() *Terminal {
	return NewTerminal(os.Stdin, os.Stderr)
}

func (t *Terminal) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

// IsInteractive reports whether input comes from a terminal.
func (t *Terminal) IsInteractive() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

// ReadLine returns the next line with its line terminator removed.
func (t *Terminal) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadKey returns one key event. On a terminal the device is switched to
// raw mode for the duration of the read so the key is neither echoed nor
// line buffered.
func (t *Terminal) ReadKey() (prompt.Key, error) {
	if fd := int(t.in.Fd()); term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return prompt.Key{}, err
		}
		defer func() { _ = term.Restore(fd, state) }()
	}

	r, _, err := t.reader.ReadRune()
	if err != nil {
		return prompt.Key{}, err
	}
	if r == keyEscape {
		t.skipEscapeSequence()
		return prompt.Key{Kind: prompt.KeyOther}, nil
	}
	if r == '\r' {
		t.skipLineFeed()
	}
	return DecodeKey(r), nil
}

// skipLineFeed drops a buffered '\n' after '\r' so a CRLF pair is a single
// Enter and the next ReadLine does not see an empty line.
func (t *Terminal) skipLineFeed() {
	if t.reader.Buffered() == 0 {
		return
	}
	if next, err := t.reader.Peek(1); err == nil && next[0] == '\n' {
		_, _ = t.reader.ReadByte()
	}
}

// skipEscapeSequence consumes the rest of an ANSI CSI or SS3 sequence
// (arrow and function keys) that is already buffered after ESC.
func (t *Terminal) skipEscapeSequence() {
	if t.reader.Buffered() == 0 {
		return
	}
	next, err := t.reader.Peek(1)
	if err != nil || (next[0] != '[' && next[0] != 'O') {
		return
	}
	_, _ = t.reader.ReadByte()
	for t.reader.Buffered() > 0 {
		b, err := t.reader.ReadByte()
		if err != nil || (b >= 0x40 && b <= 0x7e) {
			return
		}
	}
}

// DecodeKey classifies a single rune read from a raw terminal.
func DecodeKey(r rune) prompt.Key {
	switch {
	case r == '\r' || r == '\n':
		return prompt.Key{Kind: prompt.KeyEnter}
	case r == keyDelete || r == keyBackspace:
		return prompt.Key{Kind: prompt.KeyBackspace}
	case r == keyInterrupt:
		return prompt.Key{Kind: prompt.KeyInterrupt}
	case unicode.IsControl(r):
		return prompt.Key{Kind: prompt.KeyOther}
	default:
		return prompt.Key{Kind: prompt.KeyRune, Rune: r}
	}
}
