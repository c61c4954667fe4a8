// Package graph wraps Microsoft Graph access for the toolkit: credential
// setup, the v1.0 SDK client, pagination helpers and a small REST client for
// beta-only endpoints.
package graph

import (
	"context"
	"crypto"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"entrareport/internal/common/ratelimit"
)

// DefaultScope is the scope used for application-permission tokens.
const DefaultScope = "https://graph.microsoft.com/.default"

// Options carries everything needed to authenticate against a tenant.
// Exactly one of Secret or PfxPath must be set.
type Options struct {
	TenantID string
	ClientID string

	Secret  string // Client secret
	PfxPath string // Path to a .pfx certificate file with private key
	PfxPass string // Password for the .pfx file

	RequestsPerSecond int // Outbound request throttle, 0 = default

	Logger *slog.Logger
}

// Client bundles the v1.0 SDK client with the beta/raw REST client and the
// shared request limiter. All fetching packages take a *Client.
type Client struct {
	SDK     *msgraphsdk.GraphServiceClient
	REST    *RESTClient
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger

	cred azcore.TokenCredential
}

// NewClient creates credentials and initializes both Graph clients.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	cred, err := NewCredential(opts)
	if err != nil {
		return nil, fmt.Errorf("authentication setup failed: %w", err)
	}

	sdk, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{DefaultScope})
	if err != nil {
		return nil, fmt.Errorf("graph client initialization failed: %w", err)
	}

	rest, err := NewRESTClient(cred)
	if err != nil {
		return nil, fmt.Errorf("graph REST client initialization failed: %w", err)
	}

	log.Debug("Graph SDK client initialized", "scope", DefaultScope)

	return &Client{
		SDK:     sdk,
		REST:    rest,
		Limiter: ratelimit.NewLimiter(opts.RequestsPerSecond),
		Logger:  log,
		cred:    cred,
	}, nil
}

// Token returns an access token for the default Graph scope. Used by the CLI
// for verbose token display.
func (c *Client) Token(ctx context.Context) (azcore.AccessToken, error) {
	return c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{DefaultScope}})
}

// NewCredential builds an azidentity credential from the configured
// authentication method: client secret or PFX certificate file.
func NewCredential(opts Options) (azcore.TokenCredential, error) {
	if opts.Secret != "" {
		return azidentity.NewClientSecretCredential(opts.TenantID, opts.ClientID, opts.Secret, nil)
	}

	if opts.PfxPath != "" {
		pfxData, err := os.ReadFile(opts.PfxPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read PFX file: %w", err)
		}
		return newCertCredential(opts.TenantID, opts.ClientID, pfxData, opts.PfxPass)
	}

	return nil, fmt.Errorf("no valid authentication method provided (use -secret or -pfx)")
}

func newCertCredential(tenantID, clientID string, pfxData []byte, password string) (*azidentity.ClientCertificateCredential, error) {
	key, cert, caCerts, err := pkcs12.DecodeChain(pfxData, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PFX: %w", err)
	}

	privKey, ok := key.(crypto.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("decoded key is not a valid crypto.PrivateKey")
	}

	certs := append([]*x509.Certificate{cert}, caCerts...)
	credOpts := &azidentity.ClientCertificateCredentialOptions{
		SendCertificateChain: true,
	}

	return azidentity.NewClientCertificateCredential(tenantID, clientID, certs, privKey, credOpts)
}
