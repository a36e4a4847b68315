package token

import (
	"context"

	"github.com/jrsteele09/go-auth-bff/upstream"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentialsExchanger obtains management tokens with the
// client_credentials grant.
type ClientCredentialsExchanger struct {
	client *upstream.Client
	cfg    clientcredentials.Config
}

var _ Exchanger = (*ClientCredentialsExchanger)(nil)

// NewClientCredentialsExchanger posts to tokenPath on the client's backend.
// audience is sent as an endpoint parameter when set.
func NewClientCredentialsExchanger(client *upstream.Client, clientID, clientSecret, tokenPath, audience string) *ClientCredentialsExchanger {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     client.URL(tokenPath),
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if audience != "" {
		cfg.EndpointParams = map[string][]string{"audience": {audience}}
	}
	return &ClientCredentialsExchanger{client: client, cfg: cfg}
}

func (e *ClientCredentialsExchanger) Exchange(ctx context.Context) (ManagementToken, error) {
	tok, err := e.client.Token(ctx, "management_token", e.cfg.Token)
	if err != nil {
		return ManagementToken{}, err
	}
	return ManagementToken{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}
