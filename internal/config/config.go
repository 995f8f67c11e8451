package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/templatevault/internal/errors"
	"github.com/systmms/templatevault/internal/logging"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = ".templatevault.yaml"

//go:embed schema.json
var schema []byte

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the .templatevault.yaml structure
type Definition struct {
	Version   int       `yaml:"version"`
	Auth      string    `yaml:"auth,omitempty"`
	AuthMount string    `yaml:"auth_mount,omitempty"`
	Namespace string    `yaml:"namespace,omitempty"`
	Timeout   string    `yaml:"timeout,omitempty"`
	TLS       TLSConfig `yaml:"tls,omitempty"`
}

// TLSConfig configures verification of the Vault server certificate.
type TLSConfig struct {
	CACert     string `yaml:"ca_cert,omitempty"`
	SkipVerify bool   `yaml:"skip_verify,omitempty"`
}

// Load reads, validates and parses the configuration file. A missing file
// is an error.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path or remove the flag to run with defaults",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := parse(data)
	if err != nil {
		return err
	}
	c.Definition = def
	return nil
}

// LoadIfExists behaves like Load but falls back to defaults when the file
// does not exist.
func (c *Config) LoadIfExists() error {
	if _, err := os.Stat(c.Path); os.IsNotExist(err) {
		if c.Logger != nil {
			c.Logger.Debug("No configuration at %s, using defaults", c.Path)
		}
		c.Definition = &Definition{}
		return nil
	}
	return c.Load()
}

func parse(data []byte) (*Definition, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if raw == nil {
		return &Definition{}, nil
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    err.Error(),
			Suggestion: "Compare the file against the documented configuration keys",
		}
	}

	if def.Version != 0 {
		return nil, dserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of the file",
		}
	}
	if _, err := def.TimeoutDuration(); err != nil {
		return nil, err
	}
	return &def, nil
}

// validate checks the decoded document against the embedded JSON schema.
func validate(raw map[string]interface{}) error {
	doc, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return dserrors.ConfigError{
		Field:      result.Errors()[0].Field(),
		Message:    "schema validation failed:\n  - " + strings.Join(msgs, "\n  - "),
		Suggestion: "Allowed keys are version, auth, auth_mount, namespace, timeout and tls",
	}
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (d *Definition) TimeoutDuration() (time.Duration, error) {
	if d.Timeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(d.Timeout)
	if err != nil || timeout < 0 {
		return 0, dserrors.ConfigError{
			Field:      "timeout",
			Value:      d.Timeout,
			Message:    "invalid duration",
			Suggestion: "Use a Go duration such as 30s or 2m",
		}
	}
	return timeout, nil
}

// ApplyEnv overlays the standard Vault environment variables on the loaded
// definition: VAULT_NAMESPACE, VAULT_CACERT and VAULT_SKIP_VERIFY.
func (c *Config) ApplyEnv() error {
	if c.Definition == nil {
		c.Definition = &Definition{}
	}
	def := c.Definition

	if ns := os.Getenv("VAULT_NAMESPACE"); ns != "" {
		def.Namespace = ns
	}
	if ca := os.Getenv("VAULT_CACERT"); ca != "" {
		def.TLS.CACert = ca
	}
	if v := os.Getenv("VAULT_SKIP_VERIFY"); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			return dserrors.ConfigError{
				Field:      "VAULT_SKIP_VERIFY",
				Value:      v,
				Message:    "not a boolean",
				Suggestion: "Set VAULT_SKIP_VERIFY to true or false",
			}
		}
		def.TLS.SkipVerify = skip
	}
	return nil
}
