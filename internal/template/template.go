// Package template finds and replaces {{placeholder}} tokens in
// configuration templates.
//
// The first placeholder of a template is the vault root directive,
// {{VAULTROOT: https://vault.example.com:8200/secret/app/}}, which names
// the base URI every other placeholder is resolved against. The directive
// is never substituted.
package template

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	dserrors "github.com/systmms/templatevault/internal/errors"
)

// RootPrefix marks the vault root directive. It is matched case-insensitively.
const RootPrefix = "VAULTROOT:"

var placeholder = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Extract returns the distinct placeholder tokens in text, in order of
// first appearance. Tokens are the exact text between the delimiters,
// surrounding whitespace included.
func Extract(text string) []string {
	matches := placeholder.FindAllStringSubmatch(text, -1)

	seen := make(map[string]struct{}, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tokens = append(tokens, m[1])
	}
	return tokens
}

// IsRoot reports whether token carries the vault root prefix.
func IsRoot(token string) bool {
	return len(token) >= len(RootPrefix) && strings.EqualFold(token[:len(RootPrefix)], RootPrefix)
}

// RootParseError reports a vault root directive whose URI is unusable.
type RootParseError struct {
	Value string
	Err   error
}

func (e *RootParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse vault root %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("failed to parse vault root %q: not an absolute URI", e.Value)
}

func (e *RootParseError) Unwrap() error {
	return dserrors.ErrMalformedRoot
}

// ParseRoot parses the URI carried by a vault root directive token. It
// returns ErrNoVaultRoot when token is not a directive and a
// *RootParseError when the URI is not absolute.
func ParseRoot(token string) (*url.URL, error) {
	if !IsRoot(token) {
		return nil, dserrors.ErrNoVaultRoot
	}

	raw := strings.TrimSpace(token[len(RootPrefix):])
	root, err := url.Parse(raw)
	if err != nil {
		return nil, &RootParseError{Value: raw, Err: err}
	}
	if !root.IsAbs() || root.Host == "" {
		return nil, &RootParseError{Value: raw}
	}
	return root, nil
}

// SplitRoot separates the root directive from the remaining tokens. The
// directive must be the first token; anything else is ErrNoVaultRoot.
func SplitRoot(tokens []string) (*url.URL, []string, error) {
	if len(tokens) == 0 {
		return nil, nil, dserrors.ErrNoVariables
	}

	root, err := ParseRoot(tokens[0])
	if err != nil {
		return nil, nil, err
	}
	return root, tokens[1:], nil
}

// Substitute replaces every {{token}} whose token has an entry in values.
// Replacement happens in a single pass, so substituted values are never
// rescanned and placeholders without a value (the root) are kept verbatim.
func Substitute(text string, values map[string]string) string {
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		token := match[2 : len(match)-2]
		if v, ok := values[token]; ok {
			return v
		}
		return match
	})
}
