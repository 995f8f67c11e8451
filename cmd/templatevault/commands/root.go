package commands

import (
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/systmms/templatevault/internal/config"
	"github.com/systmms/templatevault/internal/console"
	dserrors "github.com/systmms/templatevault/internal/errors"
	"github.com/systmms/templatevault/internal/logging"
	"github.com/systmms/templatevault/internal/metrics"
	"github.com/systmms/templatevault/internal/prompt"
	"github.com/systmms/templatevault/internal/render"
	"github.com/systmms/templatevault/internal/vault"
	"github.com/systmms/templatevault/internal/vault/auth"
)

// Deps are the process-level collaborators of the command.
type Deps struct {
	Console     prompt.Console
	Interactive bool
	FS          render.FileSystem
	// Opener returns the secret source factory for the resolved options.
	Opener func(opts vault.Options) render.SourceOpener
}

// DefaultDeps wires the command to the terminal, the local disk and Vault.
func DefaultDeps() Deps {
	term := console.Stdio()
	return Deps{
		Console:     term,
		Interactive: term.IsInteractive(),
		FS:          render.OSFileSystem{},
		Opener:      VaultOpener,
	}
}

// VaultOpener opens Vault sessions with opts.
func VaultOpener(opts vault.Options) render.SourceOpener {
	return render.SourceOpenerFunc(func(desc auth.Descriptor, root *url.URL) (render.Source, error) {
		s, err := vault.Open(desc, root, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// NewRootCommand builds the templatevault command.
func NewRootCommand(cfg *config.Config, deps Deps, version string) *cobra.Command {
	var (
		configFile  string
		authType    string
		authMount   string
		overwrite   bool
		listAuth    bool
		metricsFile string
		debug       bool
		noColor     bool
	)

	cmd := &cobra.Command{
		Use:   "templatevault <template-file> [output-file]",
		Short: "Render a template with secrets from HashiCorp Vault",
		Long: `templatevault replaces every {{placeholder}} in a template with a value
read from a Vault KV v2 store and writes the result to a file.

The first placeholder must name the store root:

  {{VAULTROOT: https://vault.example.com:8200/secret/myapp/}}

Every other placeholder is resolved against that root like a relative link
and read as <mount>/<path>/<key>. Credentials for the chosen --auth type are
prompted for interactively; secret values are never echoed.

If output-file is omitted it is derived by stripping .tmpl or .tpl.`,
		Example: `  templatevault config.yaml.tmpl
  templatevault --auth approle -m ci/approle app.env.tpl .env
  templatevault --list-auth`,
		Version:       version,
		Args:          cobra.RangeArgs(0, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), debug, noColor)
			cfg.Logger = logger
			cfg.NonInteractive = !deps.Interactive

			if err := loadConfig(cfg, configFile); err != nil {
				return err
			}
			def := cfg.Definition
			timeout, err := def.TimeoutDuration()
			if err != nil {
				return err
			}

			registry := auth.NewRegistry(prompt.New(deps.Console))
			if listAuth {
				return printMethods(cmd.OutOrStdout(), registry.Supported())
			}
			if len(args) == 0 {
				return dserrors.UserError{
					Message:    "No template file given",
					Suggestion: "Run 'templatevault --help' for usage",
					Err:        dserrors.ErrArgument,
				}
			}

			opts := render.Options{
				TemplatePath: args[0],
				AuthType:     def.Auth,
				AuthMount:    def.AuthMount,
				Overwrite:    overwrite,
			}
			if len(args) == 2 {
				opts.OutputPath = args[1]
			}
			if cmd.Flags().Changed("auth") {
				opts.AuthType = authType
			}
			if cmd.Flags().Changed("auth-mount") {
				opts.AuthMount = authMount
			}

			if cfg.NonInteractive {
				logger.Debug("Input is not a terminal, credentials are read from piped input")
			}

			var rec *metrics.Recorder
			if metricsFile != "" {
				rec = metrics.NewRecorder()
			}

			renderer := &render.Renderer{
				Auth: registry,
				Opener: deps.Opener(vault.Options{
					Namespace:  def.Namespace,
					CACert:     def.TLS.CACert,
					SkipVerify: def.TLS.SkipVerify,
					Timeout:    timeout,
					Logger:     logger,
				}),
				FS:      deps.FS,
				Console: deps.Console,
				Logger:  logger,
				Metrics: rec,
			}
			runErr := renderer.Run(cmd.Context(), opts)

			if err := rec.WriteFile(metricsFile); err != nil {
				logger.Warn("Failed to write metrics to %s: %v", metricsFile, err)
			}
			return runErr
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&authType, "auth", "a", auth.DefaultMethod, "Auth type (see --list-auth)")
	flags.StringVarP(&authMount, "auth-mount", "m", "", "Override the auth method mount path")
	flags.BoolVarP(&overwrite, "yes", "y", false, "Overwrite an existing output file without asking")
	flags.BoolVar(&listAuth, "list-auth", false, "List supported auth types and exit")
	flags.StringVar(&configFile, "config", "", "Config file path (default \""+config.DefaultPath+"\" if present)")
	flags.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func loadConfig(cfg *config.Config, path string) error {
	if path != "" {
		cfg.Path = path
		if err := cfg.Load(); err != nil {
			return err
		}
	} else {
		cfg.Path = config.DefaultPath
		if err := cfg.LoadIfExists(); err != nil {
			return err
		}
	}
	return cfg.ApplyEnv()
}

func printMethods(w io.Writer, methods []auth.MethodInfo) error {
	if _, err := fmt.Fprintln(w, "Supported auth types:"); err != nil {
		return err
	}
	_, err := io.WriteString(w, render.FormatMethods(methods))
	return err
}

// Execute runs cmd, prints any failure to its error stream and returns the
// process exit code.
func Execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", dserrors.SimplifyError(err))
	}
	return dserrors.ExitCode(err)
}
