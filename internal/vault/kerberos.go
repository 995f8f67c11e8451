package vault

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/spnego"

	"github.com/systmms/templatevault/internal/vault/auth"
)

const defaultKrb5Config = "/etc/krb5.conf"

// kerberosLogin obtains a service ticket for HTTP/<vault host> from the
// domain's KDC and presents it as a SPNEGO Negotiate header.
func (s *Session) kerberosLogin(ctx context.Context, k *auth.Kerberos) (*api.Secret, error) {
	header, err := s.negotiateHeader(k)
	if err != nil {
		return nil, err
	}

	saved := s.client.Headers()
	headers := saved.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Authorization", header)
	s.client.SetHeaders(headers)
	defer s.client.SetHeaders(saved)

	return s.client.Logical().WriteWithContext(ctx, k.LoginPath(), nil)
}

func (s *Session) negotiateHeader(k *auth.Kerberos) (string, error) {
	path := os.Getenv("KRB5_CONFIG")
	if path == "" {
		path = defaultKrb5Config
	}
	krbCfg, err := config.Load(path)
	if err != nil {
		return "", fmt.Errorf("failed to load kerberos config %s: %w", path, err)
	}

	password, err := k.Password.Reveal()
	if err != nil {
		return "", fmt.Errorf("failed to read kerberos password: %w", err)
	}

	cl := client.NewWithPassword(k.Username, strings.ToUpper(k.Domain), password, krbCfg, client.DisablePAFXFAST(true))
	defer cl.Destroy()

	if err := cl.Login(); err != nil {
		return "", fmt.Errorf("kerberos login for %s@%s failed: %w", k.Username, strings.ToUpper(k.Domain), err)
	}

	req, err := http.NewRequest(http.MethodPost, s.address, nil)
	if err != nil {
		return "", err
	}
	if err := spnego.SetSPNEGOHeader(cl, req, "HTTP/"+s.root.Hostname()); err != nil {
		return "", fmt.Errorf("failed to build negotiate header: %w", err)
	}
	return req.Header.Get("Authorization"), nil
}
