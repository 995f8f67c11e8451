// Package vault reads template secrets from a HashiCorp Vault KV v2 store.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/vault/api"

	dserrors "github.com/systmms/templatevault/internal/errors"
	"github.com/systmms/templatevault/internal/logging"
	"github.com/systmms/templatevault/internal/vault/auth"
)

// Options tunes the connection to the store.
type Options struct {
	Namespace  string
	CACert     string
	SkipVerify bool
	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration
	Logger  *logging.Logger
}

// Session is an open connection to the store at a template's root. It logs
// in with its descriptor on the first fetch and reuses the token afterwards.
type Session struct {
	client        *api.Client
	desc          auth.Descriptor
	root          *url.URL
	address       string
	logger        *logging.Logger
	authenticated bool
}

// Open creates a session addressed at the scheme and host of root. The
// root's path only matters for resolving references. No request is made
// until the first fetch.
func Open(desc auth.Descriptor, root *url.URL, opts Options) (*Session, error) {
	if desc == nil {
		return nil, errors.New("vault: nil auth descriptor")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(false, false)
	}

	address := (&url.URL{Scheme: root.Scheme, Host: root.Host}).String()

	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("failed to read vault environment: %w", cfg.Error)
	}
	// NewClient prefers VAULT_AGENT_ADDR over Address.
	cfg.Address = address
	cfg.AgentAddress = ""
	cfg.MaxRetries = 0
	cfg.Timeout = opts.Timeout
	cfg.HttpClient.Timeout = opts.Timeout

	if opts.CACert != "" || opts.SkipVerify {
		tlsCfg := &api.TLSConfig{CACert: opts.CACert, Insecure: opts.SkipVerify}
		if err := cfg.ConfigureTLS(tlsCfg); err != nil {
			return nil, dserrors.ConfigError{
				Field:      "tls.ca_cert",
				Value:      opts.CACert,
				Message:    err.Error(),
				Suggestion: "Point tls.ca_cert or VAULT_CACERT at a readable PEM file",
			}
		}
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	// NewClient picks up VAULT_TOKEN; only the chosen auth method may set one.
	client.ClearToken()
	if opts.Namespace != "" {
		client.SetNamespace(opts.Namespace)
	}

	logger.Debug("Vault session for %s using %s auth", address, desc.Method())

	return &Session{
		client:  client,
		desc:    desc,
		root:    root,
		address: address,
		logger:  logger,
	}, nil
}

// Address is the store address the session talks to.
func (s *Session) Address() string {
	return s.address
}

// Lookup resolves token against the session root and fetches its value.
// A token that does not name a mount, path and key is reported as not found.
func (s *Session) Lookup(ctx context.Context, token string) (string, bool, error) {
	ref, ok := ResolveReference(s.root, token)
	if !ok {
		s.logger.Debug("Reference %q has fewer than three path segments", token)
		return "", false, nil
	}
	return s.Fetch(ctx, ref)
}

// Fetch reads the latest version of the secret at ref and returns the value
// stored under ref.Key. ok is false when the secret exists but has no such
// key. Every failed remote call, including a missing secret path, wraps
// ErrRemoteAPI.
func (s *Session) Fetch(ctx context.Context, ref Reference) (value string, ok bool, err error) {
	if err := s.login(ctx); err != nil {
		return "", false, err
	}

	s.logger.Debug("Reading %s", ref)
	secret, err := s.client.KVv2(ref.Mount).Get(ctx, ref.Path)
	if err != nil {
		return "", false, dserrors.VaultError("read of "+ref.Mount+"/"+ref.Path, s.address, err)
	}

	raw, found := secret.Data[ref.Key]
	if !found || raw == nil {
		return "", false, nil
	}

	value, err = stringify(raw)
	if err != nil {
		return "", false, fmt.Errorf("failed to convert %s: %w", ref, err)
	}
	return value, true, nil
}

// Close drops the session token.
func (s *Session) Close() {
	s.client.ClearToken()
	s.authenticated = false
}

func (s *Session) login(ctx context.Context) error {
	if s.authenticated {
		return nil
	}

	var (
		secret *api.Secret
		err    error
	)
	switch d := s.desc.(type) {
	case *auth.Token:
		token, err := d.Token.Reveal()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		s.client.SetToken(token)
		s.authenticated = true
		return nil
	case *auth.Kerberos:
		secret, err = s.kerberosLogin(ctx, d)
	case auth.PathLogin:
		var data map[string]interface{}
		data, err = d.LoginData(ctx)
		if err != nil {
			return fmt.Errorf("failed to read %s credentials: %w", d.Method(), err)
		}
		secret, err = s.client.Logical().WriteWithContext(ctx, d.LoginPath(), data)
	default:
		return fmt.Errorf("vault: no login for %T", d)
	}

	if err != nil {
		return dserrors.VaultError(s.desc.Method()+" login", s.address, err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return dserrors.VaultError(s.desc.Method()+" login", s.address, errors.New("login response carried no client token"))
	}

	s.client.SetToken(secret.Auth.ClientToken)
	s.authenticated = true
	s.logger.Debug("Logged in with %s auth at mount %s", s.desc.Method(), s.desc.MountPath())
	return nil
}

// stringify renders a KV data value the way it is shown by the Vault CLI:
// strings as is, scalars in their plain form and anything nested as JSON.
func stringify(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
