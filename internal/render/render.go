// Package render turns a template with {{placeholders}} into a file with
// the placeholders replaced by secrets read from Vault.
//
// A run moves through these states, aborting from any of them:
//
//	Start → ValidatedAuthType → TemplateLoaded → VariablesExtracted →
//	RootParsed → Authenticated → SecretsResolved → Rendered → Written
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	dserrors "github.com/systmms/templatevault/internal/errors"
	"github.com/systmms/templatevault/internal/logging"
	"github.com/systmms/templatevault/internal/metrics"
	"github.com/systmms/templatevault/internal/prompt"
	"github.com/systmms/templatevault/internal/template"
	"github.com/systmms/templatevault/internal/vault/auth"
)

// AuthFactory lists the supported auth types and builds credentials for one.
type AuthFactory interface {
	Supported() []auth.MethodInfo
	Build(name, mountOverride string) (auth.Descriptor, error)
}

// Source looks up placeholder values in an open store session.
type Source interface {
	Lookup(ctx context.Context, token string) (value string, ok bool, err error)
	Close()
}

// SourceOpener opens a Source rooted at root.
type SourceOpener interface {
	Open(desc auth.Descriptor, root *url.URL) (Source, error)
}

// SourceOpenerFunc adapts a function to SourceOpener.
type SourceOpenerFunc func(desc auth.Descriptor, root *url.URL) (Source, error)

func (f SourceOpenerFunc) Open(desc auth.Descriptor, root *url.URL) (Source, error) {
	return f(desc, root)
}

// FileSystem is the file access a run needs.
type FileSystem interface {
	Exists(path string) (bool, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// Options describes one run.
type Options struct {
	TemplatePath string
	// OutputPath defaults to TemplatePath without its .tmpl or .tpl suffix.
	OutputPath string
	// AuthType defaults to auth.DefaultMethod.
	AuthType  string
	AuthMount string
	// Overwrite replaces an existing output file without asking.
	Overwrite bool
}

// Renderer runs the render flow against its collaborators.
type Renderer struct {
	Auth    AuthFactory
	Opener  SourceOpener
	FS      FileSystem
	Console prompt.Console
	Logger  *logging.Logger
	Metrics *metrics.Recorder
}

// Run renders opts.TemplatePath. It returns nil both on success and when the
// user declines to overwrite an existing output file. Nothing is written
// unless every placeholder resolved.
func (r *Renderer) Run(ctx context.Context, opts Options) error {
	start := time.Now()
	outcome, err := r.run(ctx, opts)
	r.Metrics.RecordRun(outcome, time.Since(start))
	return err
}

func (r *Renderer) run(ctx context.Context, opts Options) (string, error) {
	authType := opts.AuthType
	if authType == "" {
		authType = auth.DefaultMethod
	}
	if !r.supports(authType) {
		return metrics.OutcomeFailed, dserrors.UserError{
			Message:    fmt.Sprintf("Unsupported auth type %q", authType),
			Details:    "supported auth types:\n" + FormatMethods(r.Auth.Supported()),
			Suggestion: "Pass one of the listed types with --auth",
			Err:        dserrors.ErrUnsupportedAuthType,
		}
	}

	if opts.TemplatePath == "" {
		return metrics.OutcomeFailed, dserrors.UserError{
			Message: "No template file given",
			Err:     dserrors.ErrArgument,
		}
	}
	outPath := opts.OutputPath
	if outPath == "" {
		var ok bool
		if outPath, ok = DefaultOutputPath(opts.TemplatePath); !ok {
			return metrics.OutcomeFailed, dserrors.UserError{
				Message:    fmt.Sprintf("Cannot derive an output file name from %s", opts.TemplatePath),
				Suggestion: "Name the template *.tmpl or *.tpl, or pass the output file explicitly",
				Err:        dserrors.ErrArgument,
			}
		}
	}

	if !opts.Overwrite {
		proceed, err := r.confirmOverwrite(outPath)
		if err != nil {
			return metrics.OutcomeFailed, err
		}
		if !proceed {
			r.Logger.Info("Left %s unchanged", outPath)
			return metrics.OutcomeDeclined, nil
		}
	}

	data, err := r.FS.ReadFile(opts.TemplatePath)
	if err != nil {
		return metrics.OutcomeFailed, dserrors.UserError{
			Message: fmt.Sprintf("Failed to read template %s", opts.TemplatePath),
			Details: err.Error(),
			Err:     fmt.Errorf("%w: %w", dserrors.ErrTemplateRead, err),
		}
	}
	text := string(data)

	tokens := template.Extract(text)
	root, variables, err := template.SplitRoot(tokens)
	if err != nil {
		return metrics.OutcomeFailed, rootError(opts.TemplatePath, tokens, err)
	}
	r.Logger.Debug("Found %d variables under %s", len(variables), root.Redacted())

	values, err := r.resolve(ctx, authType, opts.AuthMount, root, variables)
	if err != nil {
		return metrics.OutcomeFailed, err
	}
	r.Logger.Info("Resolved %d secrets", len(values))

	rendered := template.Substitute(text, values)
	if err := r.FS.WriteFile(outPath, []byte(rendered)); err != nil {
		return metrics.OutcomeFailed, dserrors.UserError{
			Message: fmt.Sprintf("Failed to write %s", outPath),
			Details: err.Error(),
			Err:     fmt.Errorf("%w: %w", dserrors.ErrOutputWrite, err),
		}
	}
	r.Logger.Info("Wrote %s", outPath)
	return metrics.OutcomeRendered, nil
}

// resolve authenticates and fetches every variable in order, stopping at
// the first failure.
func (r *Renderer) resolve(ctx context.Context, authType, mount string, root *url.URL, variables []string) (map[string]string, error) {
	values := make(map[string]string, len(variables))
	if len(variables) == 0 {
		// Nothing to fetch: this run never authenticates or opens a session.
		return values, nil
	}

	desc, err := r.Auth.Build(authType, mount)
	if err != nil {
		var unknown *auth.UnknownMethodError
		if errors.As(err, &unknown) {
			return nil, err
		}
		return nil, dserrors.UserError{
			Message: "Failed to read credentials",
			Details: err.Error(),
			Err:     fmt.Errorf("%w: %w", dserrors.ErrArgument, err),
		}
	}
	defer desc.Destroy()

	src, err := r.Opener.Open(desc, root)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	for _, token := range variables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value, ok, err := src.Lookup(ctx, token)
		if err != nil {
			r.Metrics.RecordFetch(metrics.ResultError)
			return nil, fmt.Errorf("failed to resolve {{%s}}: %w", token, err)
		}
		if !ok {
			r.Metrics.RecordFetch(metrics.ResultNotFound)
			return nil, dserrors.UserError{
				Message:    fmt.Sprintf("Secret not found for {{%s}}", token),
				Details:    "resolved against " + root.Redacted(),
				Suggestion: "Placeholders must resolve to <mount>/<path>/<key> with the key present in the secret",
				Err:        dserrors.ErrSecretNotFound,
			}
		}
		r.Metrics.RecordFetch(metrics.ResultFound)
		r.Logger.Debug("Resolved {{%s}}", token)
		values[token] = value
	}
	return values, nil
}

func (r *Renderer) supports(name string) bool {
	for _, m := range r.Auth.Supported() {
		if m.Name == name {
			return true
		}
	}
	return false
}

// confirmOverwrite asks before replacing an existing file. Only y or Y
// proceeds; closed input counts as no.
func (r *Renderer) confirmOverwrite(path string) (bool, error) {
	exists, err := r.FS.Exists(path)
	if err != nil {
		return false, dserrors.UserError{
			Message: fmt.Sprintf("Failed to check %s", path),
			Details: err.Error(),
			Err:     fmt.Errorf("%w: %w", dserrors.ErrOutputWrite, err),
		}
	}
	if !exists {
		return true, nil
	}

	if _, err := fmt.Fprintf(r.Console, "%s already exists. Overwrite? [y/N]: ", path); err != nil {
		return false, err
	}
	answer, err := r.Console.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			_, _ = fmt.Fprintln(r.Console)
			return false, nil
		}
		return false, err
	}
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y", nil
}

func rootError(path string, tokens []string, err error) error {
	switch {
	case errors.Is(err, dserrors.ErrNoVariables):
		return dserrors.UserError{
			Message:    fmt.Sprintf("No variables found in %s", path),
			Suggestion: "Start the template with {{VAULTROOT: https://vault.example.com:8200/secret/app/}}",
			Err:        err,
		}
	case errors.Is(err, dserrors.ErrNoVaultRoot):
		return dserrors.UserError{
			Message:    "No vault root found",
			Details:    fmt.Sprintf("the first placeholder is {{%s}}", tokens[0]),
			Suggestion: "Make {{VAULTROOT: <absolute-uri>}} the first placeholder in the template",
			Err:        err,
		}
	default:
		return dserrors.UserError{
			Message:    err.Error(),
			Suggestion: "The vault root must be an absolute URI such as https://vault.example.com:8200/secret/",
			Err:        err,
		}
	}
}

// DefaultOutputPath strips a trailing .tmpl or .tpl from path. ok is false
// when path has neither suffix.
func DefaultOutputPath(path string) (string, bool) {
	lower := strings.ToLower(path)
	for _, suffix := range []string{".tmpl", ".tpl"} {
		if strings.HasSuffix(lower, suffix) && len(path) > len(suffix) {
			return path[:len(path)-len(suffix)], true
		}
	}
	return "", false
}

// FormatMethods renders the auth type listing as aligned columns.
func FormatMethods(methods []auth.MethodInfo) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, m := range methods {
		fmt.Fprintf(w, "  %s\t%s\n", m.Name, m.Description)
	}
	_ = w.Flush()
	return b.String()
}
