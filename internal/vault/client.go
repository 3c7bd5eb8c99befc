// Package vault resolves database credentials from HashiCorp Vault for
// targets that reference a vault_role instead of static user/password fields.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"

	vault "github.com/hashicorp/vault/api"
)

const (
	approleSecretIDPath = "auth/approle/role/%s/secret-id"
	approleLoginPath    = "auth/approle/login"
)

// ErrClientInit indicates failure to initialize the Vault API client.
var ErrClientInit = errors.New("vault client initialization failed")

type Option func(*clientConfig)

type clientConfig struct {
	address  string
	token    string
	roleID   string
	roleName string
}

// Client wraps the Vault API client.
type Client struct {
	api    *vault.Client
	config *clientConfig
}

// Credentials are the username/password pair read for one role.
type Credentials struct {
	Username string
	Password string
}

func WithAddress(address string) Option {
	return func(c *clientConfig) {
		c.address = address
	}
}

func WithToken(token string) Option {
	return func(c *clientConfig) {
		c.token = token
	}
}

func WithAppRole(roleID, roleName string) Option {
	return func(c *clientConfig) {
		c.roleID = roleID
		c.roleName = roleName
	}
}

// NewClient creates and initializes a Vault client. It performs AppRole login
// when roleID and roleName are both set, otherwise a static token (from env
// or WithToken) is used.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		address: os.Getenv("VAULT_ADDR"),
		token:   os.Getenv("VAULT_TOKEN"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	apiCfg := vault.DefaultConfig()
	if cfg.address != "" {
		apiCfg.Address = cfg.address
	}

	api, err := vault.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientInit, err)
	}

	client := &Client{api: api, config: cfg}
	if cfg.token != "" {
		client.api.SetToken(cfg.token)
	}
	if cfg.roleID != "" && cfg.roleName != "" {
		if err := client.loginAppRole(ctx); err != nil {
			return nil, fmt.Errorf("approle login failed: %w", err)
		}
	}
	return client, nil
}

func (c *Client) loginAppRole(ctx context.Context) error {
	path := fmt.Sprintf(approleSecretIDPath, c.config.roleName)
	resp, err := c.api.Logical().WriteWithContext(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("generate secret_id: %w", err)
	}
	sid, ok := resp.Data["secret_id"].(string)
	if !ok || sid == "" {
		return fmt.Errorf("no secret_id returned from %s", path)
	}

	loginData := map[string]any{
		"role_id":   c.config.roleID,
		"secret_id": sid,
	}
	loginResp, err := c.api.Logical().WriteWithContext(ctx, approleLoginPath, loginData)
	if err != nil {
		return fmt.Errorf("approle login request: %w", err)
	}
	if loginResp.Auth == nil || loginResp.Auth.ClientToken == "" {
		return fmt.Errorf("no token in login response")
	}
	c.api.SetToken(loginResp.Auth.ClientToken)
	return nil
}

// GetCredentials reads the username/password pair at the given role path.
func (c *Client) GetCredentials(ctx context.Context, role string) (Credentials, error) {
	secret, err := c.api.Logical().ReadWithContext(ctx, role)
	if err != nil {
		return Credentials{}, err
	}
	if secret == nil {
		return Credentials{}, fmt.Errorf("no data found at path: %s", role)
	}
	user, userOK := secret.Data["username"].(string)
	pass, passOK := secret.Data["password"].(string)
	if !userOK || !passOK {
		return Credentials{}, fmt.Errorf("invalid data format at path: %s", role)
	}
	return Credentials{Username: user, Password: pass}, nil
}
