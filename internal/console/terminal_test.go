package console

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/templatevault/internal/prompt"
)

// pipeTerminal returns a Terminal whose input is a pipe pre-filled with input.
func pipeTerminal(t *testing.T, input string) (*Terminal, *bytes.Buffer) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	_, err = w.WriteString(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var out bytes.Buffer
	return NewTerminal(r, &out), &out
}

func TestDecodeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   rune
		want prompt.Key
	}{
		{"carriage return", '\r', prompt.Key{Kind: prompt.KeyEnter}},
		{"line feed", '\n', prompt.Key{Kind: prompt.KeyEnter}},
		{"delete", 0x7f, prompt.Key{Kind: prompt.KeyBackspace}},
		{"backspace", 0x08, prompt.Key{Kind: prompt.KeyBackspace}},
		{"ctrl-c", 0x03, prompt.Key{Kind: prompt.KeyInterrupt}},
		{"tab", '\t', prompt.Key{Kind: prompt.KeyOther}},
		{"ctrl-d", 0x04, prompt.Key{Kind: prompt.KeyOther}},
		{"letter", 'a', prompt.Key{Kind: prompt.KeyRune, Rune: 'a'}},
		{"space", ' ', prompt.Key{Kind: prompt.KeyRune, Rune: ' '}},
		{"unicode", 'ß', prompt.Key{Kind: prompt.KeyRune, Rune: 'ß'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DecodeKey(tt.in))
		})
	}
}

func TestTerminal_ReadKey(t *testing.T) {
	t.Parallel()

	term, _ := pipeTerminal(t, "ab\x7f\x1b[Aé\x1bOPc\r")

	want := []prompt.Key{
		{Kind: prompt.KeyRune, Rune: 'a'},
		{Kind: prompt.KeyRune, Rune: 'b'},
		{Kind: prompt.KeyBackspace},
		{Kind: prompt.KeyOther},
		{Kind: prompt.KeyRune, Rune: 'é'},
		{Kind: prompt.KeyOther},
		{Kind: prompt.KeyRune, Rune: 'c'},
		{Kind: prompt.KeyEnter},
	}
	for i, w := range want {
		got, err := term.ReadKey()
		require.NoError(t, err, "key %d", i)
		assert.Equal(t, w, got, "key %d", i)
	}

	_, err := term.ReadKey()
	assert.ErrorIs(t, err, io.EOF)
}

func TestTerminal_ReadLine(t *testing.T) {
	t.Parallel()

	term, _ := pipeTerminal(t, "alice\r\n\nlast")

	line, err := term.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "alice", line)

	line, err = term.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "", line)

	line, err = term.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = term.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestTerminal_WithPrompter(t *testing.T) {
	t.Parallel()

	term, out := pipeTerminal(t, "bob\nse\x7fecret\n")
	assert.False(t, term.IsInteractive())

	p := prompt.New(term)

	user, ok, err := p.ReadPlain("Username", true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob", user)

	buf, err := p.ReadMasked("Password")
	require.NoError(t, err)
	defer buf.Destroy()

	password, err := buf.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "secret", password)

	assert.Equal(t, "Username (required): Password (required):\n", out.String())
	assert.NotContains(t, out.String(), "secret")
}

func TestTerminal_CRLFAfterMaskedInput(t *testing.T) {
	t.Parallel()

	term, _ := pipeTerminal(t, "s3cret\r\nsub-1\r\n")
	p := prompt.New(term)

	buf, err := p.ReadMasked("JWT")
	require.NoError(t, err)
	defer buf.Destroy()

	jwt, err := buf.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", jwt)

	sub, ok, err := p.ReadPlain("Subscription ID", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sub-1", sub, "the line feed of a CRLF is not read as an empty answer")
}
