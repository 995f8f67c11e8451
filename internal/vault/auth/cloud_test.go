package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestRegistry_Build_AzureManagedIdentity(t *testing.T) {
	t.Parallel()

	p := newScriptedPrompter("dev-role", "", "sub-1", "rg-1", "", "scale-set")
	desc, err := NewRegistry(p).Build("azure-msi", "")
	require.NoError(t, err)
	defer desc.Destroy()

	for _, c := range p.calls {
		assert.False(t, c.Masked, "%s: no secret is typed for managed identity", c.Label)
	}

	msi, ok := desc.(*AzureManagedIdentity)
	require.True(t, ok)
	assert.Equal(t, "azure", msi.MountPath())
	assert.Equal(t, "auth/azure/login", msi.LoginPath())

	msi.Token = func(context.Context) (string, error) { return "imds-token", nil }
	data, err := msi.LoginData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"role":                "dev-role",
		"jwt":                 "imds-token",
		"subscription_id":     "sub-1",
		"resource_group_name": "rg-1",
		"vmss_name":           "scale-set",
	}, data)
}

func TestAzureManagedIdentity_TokenFailure(t *testing.T) {
	t.Parallel()

	msi := &AzureManagedIdentity{
		Mount: "azure",
		Role:  "r",
		Token: func(context.Context) (string, error) { return "", errors.New("no identity endpoint") },
	}
	_, err := msi.LoginData(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "managed identity")
	assert.Contains(t, err.Error(), "no identity endpoint")
}

func TestRegistry_Build_GCPServiceAccount(t *testing.T) {
	t.Parallel()

	p := newScriptedPrompter("reader", "vault@proj.iam.gserviceaccount.com")
	desc, err := NewRegistry(p).Build("gcp-iam", "gcp-prod")
	require.NoError(t, err)
	defer desc.Destroy()

	assert.Equal(t, []promptCall{
		{Label: "Google RoleId", Required: true},
		{Label: "Google Service Account Email", Required: true},
	}, p.calls)

	sa, ok := desc.(*GCPServiceAccount)
	require.True(t, ok)
	assert.Equal(t, "auth/gcp-prod/login", sa.LoginPath())
}

func TestGCPServiceAccount_LoginData(t *testing.T) {
	t.Parallel()

	var gotAccount string
	var gotPayload map[string]interface{}
	now := time.Unix(1_700_000_000, 0)

	sa := &GCPServiceAccount{
		Mount:          "gcp",
		Role:           "reader",
		ServiceAccount: "vault@proj.iam.gserviceaccount.com",
		Now:            func() time.Time { return now },
		Sign: func(_ context.Context, account string, payload []byte) (string, error) {
			gotAccount = account
			require.NoError(t, json.Unmarshal(payload, &gotPayload))
			return "signed.jwt", nil
		},
	}

	data, err := sa.LoginData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"role": "reader", "jwt": "signed.jwt"}, data)

	assert.Equal(t, "vault@proj.iam.gserviceaccount.com", gotAccount)
	assert.Equal(t, "vault@proj.iam.gserviceaccount.com", gotPayload["sub"])
	assert.Equal(t, "vault/reader", gotPayload["aud"])
	assert.Equal(t, float64(now.Add(gcpJWTLifetime).Unix()), gotPayload["exp"])
}

func TestSignWithIAM(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keyId":"k1","signedJwt":"header.payload.sig"}`))
	}))
	defer srv.Close()

	sign := SignWithIAM(option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	jwt, err := sign(context.Background(), "vault@proj.iam.gserviceaccount.com", []byte(`{"aud":"vault/reader"}`))
	require.NoError(t, err)
	assert.Equal(t, "header.payload.sig", jwt)

	assert.True(t, strings.HasSuffix(gotPath, "/projects/-/serviceAccounts/vault@proj.iam.gserviceaccount.com:signJwt"), gotPath)
	assert.Equal(t, `{"aud":"vault/reader"}`, gotBody["payload"])
}

func TestSignWithIAM_Error(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Permission iam.serviceAccounts.signJwt denied"}}`))
	}))
	defer srv.Close()

	sa := &GCPServiceAccount{
		Mount:          "gcp",
		Role:           "reader",
		ServiceAccount: "vault@proj.iam.gserviceaccount.com",
		Sign:           SignWithIAM(option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication()),
	}
	_, err := sa.LoginData(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signJwt denied")
}
