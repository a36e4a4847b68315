package upstream

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"golang.org/x/oauth2"
)

// Discovery lazily fetches and caches the OpenID provider metadata of one
// issuer. A failed discovery is retried on the next call.
type Discovery struct {
	issuer     string
	clientID   string
	audience   string
	httpClient *http.Client

	lock       sync.RWMutex
	provider   *oidc.Provider
	verifier   *oidc.IDTokenVerifier
	idVerifier *oidc.IDTokenVerifier
}

type DiscoveryOption func(*Discovery)

// WithClientID sets the audience id tokens must be issued to. Without it
// VerifyIDToken rejects every token.
func WithClientID(clientID string) DiscoveryOption {
	return func(d *Discovery) {
		d.clientID = clientID
	}
}

// WithAudience makes access tokens carry audience. Without it the audience
// is not checked.
func WithAudience(audience string) DiscoveryOption {
	return func(d *Discovery) {
		d.audience = audience
	}
}

// Discovery returns a discovery cache for issuer using the client's transport
// and timeout.
func (c *Client) Discovery(issuer string, opts ...DiscoveryOption) *Discovery {
	d := &Discovery{
		issuer: issuer,
		httpClient: &http.Client{
			Transport: c.httpClient.Transport,
			Timeout:   c.timeout,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Discovery) Issuer() string {
	return d.issuer
}

// Provider returns the discovered provider. The provider keeps the discovery
// context for later key fetches, so that context is never cancelled.
func (d *Discovery) Provider(ctx context.Context) (*oidc.Provider, error) {
	d.lock.RLock()
	p := d.provider
	d.lock.RUnlock()
	if p != nil {
		return p, nil
	}

	d.lock.Lock()
	defer d.lock.Unlock()
	if d.provider != nil {
		return d.provider, nil
	}

	discoveryCtx := oidc.ClientContext(context.WithoutCancel(ctx), d.httpClient)
	provider, err := oidc.NewProvider(discoveryCtx, d.issuer)
	if err != nil {
		return nil, fmt.Errorf("[Discovery.Provider] failed to create OIDC provider: %w", err)
	}
	d.provider = provider
	// Expiry of access tokens is handled by the token lifecycle. Their
	// audience is the API, not us.
	d.verifier = provider.Verifier(&oidc.Config{
		ClientID:          d.audience,
		SkipClientIDCheck: d.audience == "",
		SkipExpiryCheck:   true,
	})
	if d.clientID != "" {
		// The id token cookie outlives its exp once the access token has
		// been refreshed, so only signature, issuer and audience count.
		d.idVerifier = provider.Verifier(&oidc.Config{
			ClientID:        d.clientID,
			SkipExpiryCheck: true,
		})
	}
	return provider, nil
}

// Verifier returns the access token verifier of the discovered provider.
func (d *Discovery) Verifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	if _, err := d.Provider(ctx); err != nil {
		return nil, err
	}
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.verifier, nil
}

// VerifyAccessToken checks the signature, issuer and, when configured, the
// audience of rawToken. Expiry is left to the caller.
func (d *Discovery) VerifyAccessToken(ctx context.Context, rawToken string) error {
	v, err := d.Verifier(ctx)
	if err != nil {
		return apperrors.FromTransport(err)
	}
	if _, err := v.Verify(ctx, rawToken); err != nil {
		return apperrors.ErrUnauthorized.WithDetail(err.Error())
	}
	return nil
}

// VerifyIDToken checks the signature, issuer and audience of an id token.
func (d *Discovery) VerifyIDToken(ctx context.Context, rawToken string) error {
	if d.clientID == "" {
		return apperrors.Internalf("[Discovery.VerifyIDToken] no client id configured for %s", d.issuer)
	}
	if _, err := d.Provider(ctx); err != nil {
		return apperrors.FromTransport(err)
	}
	d.lock.RLock()
	v := d.idVerifier
	d.lock.RUnlock()

	if _, err := v.Verify(oidc.ClientContext(ctx, d.httpClient), rawToken); err != nil {
		if env := apperrors.FromTransport(err); env.Kind == apperrors.KindUpstreamUnavailable {
			return env
		}
		return apperrors.ErrBadCredentials.WithDetail(err.Error())
	}
	return nil
}

// UserInfo calls the discovered userinfo endpoint with accessToken.
func (d *Discovery) UserInfo(ctx context.Context, accessToken string) (*oidc.UserInfo, error) {
	p, err := d.Provider(ctx)
	if err != nil {
		return nil, err
	}
	ctx = oidc.ClientContext(ctx, d.httpClient)
	return p.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}

// UserInfoError maps a failed userinfo call. go-oidc reports rejected tokens
// as plain errors, so anything that is not a transport failure is treated
// as an unauthorized token.
func UserInfoError(err error) error {
	env := apperrors.FromTransport(err)
	if env.Kind == apperrors.KindInternal {
		return apperrors.ErrUnauthorized.WithDetail(err.Error())
	}
	return env
}
