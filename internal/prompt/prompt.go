// Package prompt reads credential values from an interactive console.
//
// Plain values are read a line at a time. Masked values are read one key
// event at a time so nothing is echoed; the key source is abstracted behind
// Console so any device that can deliver key events satisfies it.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/awnumar/memguard"
	"github.com/systmms/templatevault/internal/secure"
)

// ErrInterrupted is returned when the user presses Ctrl-C at a masked prompt.
var ErrInterrupted = errors.New("input interrupted")

// KeyKind classifies a key event.
type KeyKind int

const (
	// KeyRune is a character key; Key.Rune holds the character.
	KeyRune KeyKind = iota
	KeyEnter
	KeyBackspace
	KeyInterrupt
	// KeyOther is any key with no meaning at a prompt (arrows, function keys).
	KeyOther
)

// Key is a single key event.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Console is an interactive terminal: prompts are written to it and
// answers are read from it.
type Console interface {
	io.Writer
	// ReadLine returns the next line without its terminator. It returns
	// io.EOF only when no further input exists.
	ReadLine() (string, error)
	// ReadKey returns the next key event without echoing it.
	ReadKey() (Key, error)
}

// Prompter implements the plain and masked credential prompts.
type Prompter struct {
	console Console
}

// New creates a Prompter on c.
func New(c Console) *Prompter {
	return &Prompter{console: c}
}

// ReadPlain prompts for a visible value. A required value is asked for
// again until it is non-blank. For an optional value left blank, ok is false
// and value is empty.
func (p *Prompter) ReadPlain(label string, required bool) (value string, ok bool, err error) {
	qualifier := "may be blank"
	if required {
		qualifier = "required"
	}

	for {
		if _, err := fmt.Fprintf(p.console, "%s (%s): ", label, qualifier); err != nil {
			return "", false, err
		}

		line, err := p.console.ReadLine()
		if err != nil {
			return "", false, err
		}

		if strings.TrimSpace(line) != "" {
			return line, true, nil
		}
		if !required {
			return "", false, nil
		}
	}
}

type maskState int

const (
	stateIdle maskState = iota
	stateBuffering
)

// ReadMasked prompts for a value without echoing it. Backspace removes the
// last character, Enter finishes once at least one character was typed,
// and other control keys are ignored. The value is sealed into a
// SecureBuffer and the working buffer is wiped before returning.
func (p *Prompter) ReadMasked(label string) (*secure.SecureBuffer, error) {
	if _, err := fmt.Fprintf(p.console, "%s (required):", label); err != nil {
		return nil, err
	}

	m := maskedInput{buf: make([]byte, 0, 32)}
	defer m.wipe()

	for {
		key, err := p.console.ReadKey()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}

		done, err := m.handle(key)
		if err != nil {
			_, _ = fmt.Fprintln(p.console)
			return nil, err
		}
		if done {
			break
		}
	}

	// Enter was swallowed, so the cursor is still on the prompt line.
	if _, err := fmt.Fprintln(p.console); err != nil {
		return nil, err
	}
	return secure.NewSecureBuffer(m.buf)
}

// maskedInput is the {Idle, Buffering} state machine behind ReadMasked.
type maskedInput struct {
	state maskState
	buf   []byte
}

// handle applies one key event and reports whether input is complete.
func (m *maskedInput) handle(key Key) (bool, error) {
	switch key.Kind {
	case KeyInterrupt:
		return false, ErrInterrupted
	case KeyEnter:
		return m.state == stateBuffering, nil
	case KeyBackspace:
		if m.state == stateIdle {
			return false, nil
		}
		_, size := utf8.DecodeLastRune(m.buf)
		tail := m.buf[len(m.buf)-size:]
		memguard.WipeBytes(tail)
		m.buf = m.buf[:len(m.buf)-size]
		if len(m.buf) == 0 {
			m.state = stateIdle
		}
	case KeyRune:
		if unicode.IsControl(key.Rune) || !utf8.ValidRune(key.Rune) {
			return false, nil
		}
		m.append(key.Rune)
		m.state = stateBuffering
	}
	return false, nil
}

// append adds r, wiping the old backing array when it has to grow so no
// stale copy of the value is left behind.
func (m *maskedInput) append(r rune) {
	n := utf8.RuneLen(r)
	if len(m.buf)+n > cap(m.buf) {
		grown := make([]byte, len(m.buf), 2*cap(m.buf)+n)
		copy(grown, m.buf)
		memguard.WipeBytes(m.buf[:cap(m.buf)])
		m.buf = grown
	}
	m.buf = utf8.AppendRune(m.buf, r)
}

func (m *maskedInput) wipe() {
	memguard.WipeBytes(m.buf[:cap(m.buf)])
	m.buf = m.buf[:0]
	m.state = stateIdle
}
