package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"google.golang.org/api/iamcredentials/v1"
	"google.golang.org/api/option"
)

// azureManagementScope is the resource Vault's azure engine expects the
// identity token to be issued for.
const azureManagementScope = "https://management.azure.com/.default"

// gcpJWTLifetime bounds the self-issued login JWT. Vault rejects tokens
// valid for more than 15 minutes by default.
const gcpJWTLifetime = 10 * time.Minute

// AzureManagedIdentity logs in to the azure engine with a token issued to
// the machine's managed identity.
type AzureManagedIdentity struct {
	Mount             string
	Role              string
	ClientID          string
	SubscriptionID    string
	ResourceGroupName string
	VMName            string
	VMScaleSetName    string
	// Token returns the identity token. Nil asks the instance metadata
	// service through azidentity.
	Token func(ctx context.Context) (string, error)
}

func (a *AzureManagedIdentity) Method() string    { return "azure-msi" }
func (a *AzureManagedIdentity) MountPath() string { return a.Mount }
func (a *AzureManagedIdentity) Destroy()          {}
func (a *AzureManagedIdentity) LoginPath() string { return loginPath(a.Mount) }

func (a *AzureManagedIdentity) LoginData(ctx context.Context) (map[string]interface{}, error) {
	fetch := a.Token
	if fetch == nil {
		fetch = managedIdentityToken(a.ClientID)
	}
	jwt, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get managed identity token: %w", err)
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

func managedIdentityToken(clientID string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		var opts *azidentity.ManagedIdentityCredentialOptions
		if clientID != "" {
			opts = &azidentity.ManagedIdentityCredentialOptions{ID: azidentity.ClientID(clientID)}
		}
		cred, err := azidentity.NewManagedIdentityCredential(opts)
		if err != nil {
			return "", err
		}
		tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{azureManagementScope}})
		if err != nil {
			return "", err
		}
		return tok.Token, nil
	}
}

// GCPServiceAccount logs in to the gcp engine's iam role type with a JWT
// signed for ServiceAccount by the IAM Credentials API.
type GCPServiceAccount struct {
	Mount          string
	Role           string
	ServiceAccount string
	// Sign signs payload as account. Nil uses SignWithIAM with application
	// default credentials.
	Sign func(ctx context.Context, account string, payload []byte) (string, error)
	// Now defaults to time.Now.
	Now func() time.Time
}

func (g *GCPServiceAccount) Method() string    { return "gcp-iam" }
func (g *GCPServiceAccount) MountPath() string { return g.Mount }
func (g *GCPServiceAccount) Destroy()          {}
func (g *GCPServiceAccount) LoginPath() string { return loginPath(g.Mount) }

func (g *GCPServiceAccount) LoginData(ctx context.Context) (map[string]interface{}, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	payload, err := json.Marshal(map[string]interface{}{
		"sub": g.ServiceAccount,
		"aud": "vault/" + g.Role,
		"exp": now().Add(gcpJWTLifetime).Unix(),
	})
	if err != nil {
		return nil, err
	}

	sign := g.Sign
	if sign == nil {
		sign = SignWithIAM()
	}
	jwt, err := sign(ctx, g.ServiceAccount, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign login JWT for %s: %w", g.ServiceAccount, err)
	}
	return map[string]interface{}{
		"role": g.Role,
		"jwt":  jwt,
	}, nil
}

// SignWithIAM returns a signer backed by the IAM Credentials signJwt call.
func SignWithIAM(opts ...option.ClientOption) func(ctx context.Context, account string, payload []byte) (string, error) {
	return func(ctx context.Context, account string, payload []byte) (string, error) {
		svc, err := iamcredentials.NewService(ctx, opts...)
		if err != nil {
			return "", err
		}
		resp, err := svc.Projects.ServiceAccounts.SignJwt(
			"projects/-/serviceAccounts/"+account,
			&iamcredentials.SignJwtRequest{Payload: string(payload)},
		).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		return resp.SignedJwt, nil
	}
}
