package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/systmms/templatevault/internal/secure"
)

// Descriptor is the credential bundle a login is performed with. It is
// built once by the Registry and never mutated afterwards.
type Descriptor interface {
	// Method is the registry identifier the descriptor was built for.
	Method() string
	// MountPath is the auth engine mount, empty for token auth.
	MountPath() string
	// Destroy releases any sealed credentials.
	Destroy()
}

// PathLogin is implemented by descriptors that authenticate by writing
// their credentials to auth/<mount>/login.
type PathLogin interface {
	Descriptor
	LoginPath() string
	// LoginData builds the login request body. Secrets are revealed only
	// for the duration of the call.
	LoginData(ctx context.Context) (map[string]interface{}, error)
}

// AppRole authenticates with a role ID and secret ID.
type AppRole struct {
	Mount    string
	RoleID   string
	SecretID *secure.SecureBuffer
}

func (a *AppRole) Method() string    { return "approle" }
func (a *AppRole) MountPath() string { return a.Mount }
func (a *AppRole) Destroy()          { a.SecretID.Destroy() }
func (a *AppRole) LoginPath() string { return loginPath(a.Mount) }

func (a *AppRole) LoginData(_ context.Context) (map[string]interface{}, error) {
	secretID, err := a.SecretID.Reveal()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"role_id":   a.RoleID,
		"secret_id": secretID,
	}, nil
}

// Azure authenticates with a managed identity JWT plus optional VM details.
type Azure struct {
	Mount             string
	Role              string
	JWT               *secure.SecureBuffer
	SubscriptionID    string
	ResourceGroupName string
	VMName            string
	VMScaleSetName    string
}

func (a *Azure) Method() string    { return "azure" }
func (a *Azure) MountPath() string { return a.Mount }
func (a *Azure) Destroy()          { a.JWT.Destroy() }
func (a *Azure) LoginPath() string { return loginPath(a.Mount) }

func (a *Azure) LoginData(_ context.Context) (map[string]interface{}, error) {
	jwt, err := a.JWT.Reveal()
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"role": a.Role,
		"jwt":  jwt,
	}
	addNonEmpty(data, map[string]string{
		"subscription_id":     a.SubscriptionID,
		"resource_group_name": a.ResourceGroupName,
		"vm_name":             a.VMName,
		"vmss_name":           a.VMScaleSetName,
	})
	return data, nil
}

// GitHub authenticates with a personal access token.
type GitHub struct {
	Mount string
	Token *secure.SecureBuffer
}

func (g *GitHub) Method() string    { return "github" }
func (g *GitHub) MountPath() string { return g.Mount }
func (g *GitHub) Destroy()          { g.Token.Destroy() }
func (g *GitHub) LoginPath() string { return loginPath(g.Mount) }

func (g *GitHub) LoginData(_ context.Context) (map[string]interface{}, error) {
	token, err := g.Token.Reveal()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"token": token}, nil
}

// RoleJWT covers the engines that take a role and a signed JWT: gcp, jwt
// and kubernetes.
type RoleJWT struct {
	Kind  string
	Mount string
	Role  string
	JWT   *secure.SecureBuffer
}

func (r *RoleJWT) Method() string    { return r.Kind }
func (r *RoleJWT) MountPath() string { return r.Mount }
func (r *RoleJWT) Destroy()          { r.JWT.Destroy() }
func (r *RoleJWT) LoginPath() string { return loginPath(r.Mount) }

func (r *RoleJWT) LoginData(_ context.Context) (map[string]interface{}, error) {
	jwt, err := r.JWT.Reveal()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"role": r.Role,
		"jwt":  jwt,
	}, nil
}

// UsernamePassword covers the engines that log in at
// auth/<mount>/login/<username>: ldap, okta, radius and userpass.
type UsernamePassword struct {
	Kind     string
	Mount    string
	Username string
	Password *secure.SecureBuffer
}

func (u *UsernamePassword) Method() string    { return u.Kind }
func (u *UsernamePassword) MountPath() string { return u.Mount }
func (u *UsernamePassword) Destroy()          { u.Password.Destroy() }

func (u *UsernamePassword) LoginPath() string {
	return loginPath(u.Mount) + "/" + url.PathEscape(u.Username)
}

func (u *UsernamePassword) LoginData(_ context.Context) (map[string]interface{}, error) {
	password, err := u.Password.Reveal()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"password": password}, nil
}

// Kerberos authenticates with a SPNEGO token obtained from the KDC of
// Domain using Username and Password.
type Kerberos struct {
	Mount    string
	Username string
	Domain   string
	Password *secure.SecureBuffer
}

func (k *Kerberos) Method() string    { return "kerbos" }
func (k *Kerberos) MountPath() string { return k.Mount }
func (k *Kerberos) Destroy()          { k.Password.Destroy() }
func (k *Kerberos) LoginPath() string { return loginPath(k.Mount) }

// Token uses an existing Vault token as is.
type Token struct {
	Token *secure.SecureBuffer
}

func (t *Token) Method() string    { return "token" }
func (t *Token) MountPath() string { return "" }
func (t *Token) Destroy()          { t.Token.Destroy() }

// addNonEmpty copies the non-blank optional values into data.
func addNonEmpty(data map[string]interface{}, optional map[string]string) {
	for k, v := range optional {
		if v != "" {
			data[k] = v
		}
	}
}

func loginPath(mount string) string {
	return fmt.Sprintf("auth/%s/login", mount)
}
