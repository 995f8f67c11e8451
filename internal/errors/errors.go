package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Run failure classes. Every error returned by a render run wraps exactly one
// of these so callers can branch with errors.Is.
var (
	ErrArgument            = errors.New("invalid arguments")
	ErrUnsupportedAuthType = errors.New("unsupported auth type")
	ErrTemplateRead        = errors.New("failed to read template")
	ErrNoVariables         = errors.New("no variables found")
	ErrNoVaultRoot         = errors.New("no vault root found")
	ErrMalformedRoot       = errors.New("malformed vault root")
	ErrSecretNotFound      = errors.New("secret not found")
	ErrRemoteAPI           = errors.New("vault api error")
	ErrOutputWrite         = errors.New("failed to write output")
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// Unwrap lets configuration problems be classified as argument errors.
func (e ConfigError) Unwrap() error {
	return ErrArgument
}

// VaultError wraps a failed Vault call with a suggestion derived from the
// remote message. The result always matches ErrRemoteAPI.
func VaultError(operation, address string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("Vault %s failed", operation),
		Details:    err.Error(),
		Suggestion: vaultSuggestion(address, err),
		Err:        fmt.Errorf("%w: %w", ErrRemoteAPI, err),
	}
}

// vaultSuggestion returns helpful suggestions based on Vault errors
func vaultSuggestion(address string, err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "no such host"):
		return "Check that Vault is running and reachable at " + address
	case strings.Contains(errStr, "permission denied"):
		return "Check that your credentials grant read access to this path"
	case strings.Contains(errStr, "invalid credentials"), strings.Contains(errStr, "invalid username or password"):
		return "Check the credentials you entered and the --auth type"
	case strings.Contains(errStr, "invalid token"), strings.Contains(errStr, "missing client token"):
		return "Your Vault token may be expired or invalid"
	case strings.Contains(errStr, "namespace"):
		return "Check the namespace setting in your config or VAULT_NAMESPACE"
	case strings.Contains(errStr, "certificate"), strings.Contains(errStr, "tls"):
		return "Check tls.ca_cert in your config or VAULT_CACERT"
	case strings.Contains(errStr, "no handler for route"), strings.Contains(errStr, "unsupported path"):
		return "Check the auth mount (--auth-mount) and that the secret mount is a KV v2 engine"
	case strings.Contains(errStr, "timeout"):
		return "The request timed out. Check your network connection and try again"
	default:
		return ""
	}
}

// ExitCode maps a run error to the process exit status. A nil error, which
// includes a declined overwrite, is success.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	var userErr UserError
	if errors.As(err, &userErr) {
		return err
	}
	var cfgErr ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
