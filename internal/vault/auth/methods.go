package auth

// DefaultMethod is used when no auth type is requested.
const DefaultMethod = "userpass"

// The first twelve methods take every credential from a prompt. azure-msi
// and gcp-iam obtain their JWT from the cloud identity of the machine.
//
// Unsupported engines: alicloud and aws-iam need signed request headers,
// aws-ec2, cf and cert need key files, oidc needs a browser redirect and
// oci needs a request header map.
func builtinMethods() []Method {
	return []Method{
		{
			Name:         "approle",
			Description:  "AppRole authentication",
			DefaultMount: "approle",
			Fields: []Field{
				{Key: "role_id", Label: "AppRole RoleId", Required: true},
				{Key: "secret_id", Label: "AppRole SecretId", Masked: true},
			},
			Build: func(mount string, in Input) Descriptor {
				return &AppRole{Mount: mount, RoleID: in.Plain("role_id"), SecretID: in.Masked("secret_id")}
			},
		},
		{
			Name:         "azure",
			Description:  "Azure JWT authorization",
			DefaultMount: "azure",
			Fields: []Field{
				{Key: "role", Label: "Azure RoleId", Required: true},
				{Key: "jwt", Label: "Azure JWT", Masked: true},
				{Key: "subscription_id", Label: "Azure SubscriptionId"},
				{Key: "resource_group_name", Label: "Azure Resource Group Name"},
				{Key: "vm_name", Label: "Azure Virtual Machine Name"},
				{Key: "vmss_name", Label: "Azure Virtual Machine Scale Set Name"},
			},
			Build: func(mount string, in Input) Descriptor {
				return &Azure{
					Mount:             mount,
					Role:              in.Plain("role"),
					JWT:               in.Masked("jwt"),
					SubscriptionID:    in.Plain("subscription_id"),
					ResourceGroupName: in.Plain("resource_group_name"),
					VMName:            in.Plain("vm_name"),
					VMScaleSetName:    in.Plain("vmss_name"),
				}
			},
		},
		{
			Name:         "github",
			Description:  "GitHub private token authentication",
			DefaultMount: "github",
			Fields: []Field{
				{Key: "token", Label: "GitHub Personal Token", Masked: true},
			},
			Build: func(mount string, in Input) Descriptor {
				return &GitHub{Mount: mount, Token: in.Masked("token")}
			},
		},
		roleJWTMethod("gcp", "Google Cloud JWT authentication", "Google RoleId", "Google JWT"),
		roleJWTMethod("jwt", "JWT authentication", "JWT Role", "JWT"),
		{
			Name:         "kerbos",
			Description:  "Kerberos username and password authentication",
			DefaultMount: "kerberos",
			Fields: []Field{
				{Key: "username", Label: "Kerberos Username", Required: true},
				{Key: "password", Label: "Kerberos Password", Masked: true},
				{Key: "domain", Label: "Kerberos Domain", Required: true},
			},
			Build: func(mount string, in Input) Descriptor {
				return &Kerberos{
					Mount:    mount,
					Username: in.Plain("username"),
					Domain:   in.Plain("domain"),
					Password: in.Masked("password"),
				}
			},
		},
		roleJWTMethod("kubernetes", "Kubernetes JWT authentication", "Kubernetes Role Id", "Kubernetes JWT"),
		usernamePasswordMethod("ldap", "LDAP username and password authentication", "LDAP"),
		usernamePasswordMethod("okta", "Okta username and password authentication", "Okta"),
		usernamePasswordMethod("radius", "RADIUS username and password authentication", "RADIUS"),
		{
			Name:        "token",
			Description: "Vault token authentication",
			Fields: []Field{
				{Key: "token", Label: "Token", Masked: true},
			},
			Build: func(_ string, in Input) Descriptor {
				return &Token{Token: in.Masked("token")}
			},
		},
		{
			Name:         "userpass",
			Description:  "Vault username and password authentication (default)",
			DefaultMount: "userpass",
			Fields: []Field{
				{Key: "username", Label: "Username", Required: true},
				{Key: "password", Label: "Password", Masked: true},
			},
			Build: func(mount string, in Input) Descriptor {
				return &UsernamePassword{Kind: "userpass", Mount: mount, Username: in.Plain("username"), Password: in.Masked("password")}
			},
		},
		{
			Name:         "azure-msi",
			Description:  "Azure managed identity authentication",
			DefaultMount: "azure",
			Fields: []Field{
				{Key: "role", Label: "Azure RoleId", Required: true},
				{Key: "client_id", Label: "Azure Managed Identity Client Id"},
				{Key: "subscription_id", Label: "Azure SubscriptionId"},
				{Key: "resource_group_name", Label: "Azure Resource Group Name"},
				{Key: "vm_name", Label: "Azure Virtual Machine Name"},
				{Key: "vmss_name", Label: "Azure Virtual Machine Scale Set Name"},
			},
			Build: func(mount string, in Input) Descriptor {
				return &AzureManagedIdentity{
					Mount:             mount,
					Role:              in.Plain("role"),
					ClientID:          in.Plain("client_id"),
					SubscriptionID:    in.Plain("subscription_id"),
					ResourceGroupName: in.Plain("resource_group_name"),
					VMName:            in.Plain("vm_name"),
					VMScaleSetName:    in.Plain("vmss_name"),
				}
			},
		},
		{
			Name:         "gcp-iam",
			Description:  "Google Cloud service account authentication",
			DefaultMount: "gcp",
			Fields: []Field{
				{Key: "role", Label: "Google RoleId", Required: true},
				{Key: "service_account", Label: "Google Service Account Email", Required: true},
			},
			Build: func(mount string, in Input) Descriptor {
				return &GCPServiceAccount{Mount: mount, Role: in.Plain("role"), ServiceAccount: in.Plain("service_account")}
			},
		},
	}
}

func roleJWTMethod(name, description, roleLabel, jwtLabel string) Method {
	return Method{
		Name:         name,
		Description:  description,
		DefaultMount: name,
		Fields: []Field{
			{Key: "role", Label: roleLabel, Required: true},
			{Key: "jwt", Label: jwtLabel, Masked: true},
		},
		Build: func(mount string, in Input) Descriptor {
			return &RoleJWT{Kind: name, Mount: mount, Role: in.Plain("role"), JWT: in.Masked("jwt")}
		},
	}
}

func usernamePasswordMethod(name, description, labelPrefix string) Method {
	return Method{
		Name:         name,
		Description:  description,
		DefaultMount: name,
		Fields: []Field{
			{Key: "username", Label: labelPrefix + " Username", Required: true},
			{Key: "password", Label: labelPrefix + " Password", Masked: true},
		},
		Build: func(mount string, in Input) Descriptor {
			return &UsernamePassword{Kind: name, Mount: mount, Username: in.Plain("username"), Password: in.Masked("password")}
		},
	}
}
