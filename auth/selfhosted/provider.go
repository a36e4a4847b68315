package selfhosted

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-auth-bff/auth"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/upstream"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// Provider is the self-hosted AuthenticationProvider.
type Provider struct {
	cfg        Config
	client     *upstream.Client
	oauth      oauth2.Config
	mfa        *auth.MfaOrchestrator
	dispatcher *auth.Dispatcher
}

var _ auth.AuthenticationProvider = (*Provider)(nil)

func NewProvider(cfg Config, client *upstream.Client, dispatcher *auth.Dispatcher) *Provider {
	p := &Provider{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  client.URL(pathToken),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	p.mfa = auth.NewMfaOrchestrator(mfaBackend{p: p})
	return p
}

func (p *Provider) SignUp(ctx context.Context, req oauthmodel.SignUp) (oauthmodel.AccessTokenBundle, error) {
	unique, err := p.phoneNumberUnique(ctx, req.PhoneNumber)
	if err != nil {
		return oauthmodel.AccessTokenBundle{}, err
	}
	if !unique {
		logger.From(ctx).Warn().Msg("sign up with a phone number already in use")
		return oauthmodel.AccessTokenBundle{}, apperrors.ErrDuplicatePhone
	}

	if _, err := p.client.Do(ctx, "register", upstream.Request{Path: pathRegister, JSON: req}); err != nil {
		return oauthmodel.AccessTokenBundle{}, err
	}
	logger.From(ctx).Info().Msg("user signed up")

	out, err := p.mfa.SignInEnrolling(ctx, req.Credentials(), req.PhoneNumber)
	return out.Bundle, err
}

func (p *Provider) SignIn(ctx context.Context, creds oauthmodel.Credentials) (oauthmodel.AccessTokenBundle, error) {
	out, err := p.mfa.SignIn(ctx, creds)
	return out.Bundle, err
}

func (p *Provider) VerifyMfaChallenge(ctx context.Context, challenge oauthmodel.MfaChallenge) (oauthmodel.AccessTokenBundle, error) {
	out, err := p.mfa.Verify(ctx, challenge)
	return out.Bundle, err
}

func (p *Provider) RefreshAccessToken(ctx context.Context, refreshToken string) (oauthmodel.AccessTokenBundle, error) {
	tok, err := p.client.Token(ctx, "refresh", func(ctx context.Context) (*oauth2.Token, error) {
		return p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	})
	if err != nil {
		return oauthmodel.AccessTokenBundle{}, err
	}
	return oauthmodel.FromOAuth2Token(tok).PreserveRefreshToken(refreshToken), nil
}

func (p *Provider) ResetPassword(ctx context.Context, email string) (string, error) {
	p.dispatcher.Go(ctx, "reset_password", func(ctx context.Context) error {
		_, err := p.client.Do(ctx, "reset_password", upstream.Request{
			Path: pathResetPassword,
			JSON: oauthmodel.ForgotPassword{Email: email},
		})
		return err
	})
	return auth.ResetPasswordConfirmation, nil
}

// SignOut returns the end session URL of the authorization server.
func (p *Provider) SignOut(_ context.Context) (string, error) {
	uri := p.client.URL(pathLogout)
	if p.cfg.LogoutRedirect != "" {
		uri += "?" + url.Values{"post_logout_redirect_uri": {p.cfg.LogoutRedirect}}.Encode()
	}
	return uri, nil
}

// phoneNumberUnique asks the account endpoint whether the phone number is
// taken. Only an explicit {"exists":false} counts as unique; a server without
// the endpoint fails the sign up.
func (p *Provider) phoneNumberUnique(ctx context.Context, phone string) (bool, error) {
	resp, err := p.client.Do(ctx, "phone_lookup", upstream.Request{
		Method: http.MethodGet,
		Path:   pathUserExists,
		Query:  url.Values{"phoneNumber": {phone}},
	})
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return false, apperrors.ErrUpstreamUnavailable.
			WithDetail("phone lookup endpoint " + pathUserExists + " not found").
			WithCause(err)
	}
	if err != nil {
		return false, err
	}
	exists := gjson.GetBytes(resp.Body, "exists")
	if exists.Type != gjson.True && exists.Type != gjson.False {
		return false, apperrors.Internalf("[Provider.phoneNumberUnique] unexpected body: %s", resp.Body)
	}
	return exists.Type == gjson.False, nil
}

type mfaBackend struct {
	p *Provider
}

var _ auth.MfaBackend = mfaBackend{}

func (b mfaBackend) PasswordGrant(ctx context.Context, creds oauthmodel.Credentials) (oauthmodel.AccessTokenBundle, error) {
	resp, err := b.p.client.Do(ctx, "password_grant", upstream.Request{
		Path: pathToken,
		Form: b.tokenForm(oauthmodel.PasswordGrant, url.Values{
			"username": {creds.Email},
			"password": {creds.Password},
		}),
	})
	if apperrors.Is(err, apperrors.ErrMfaRequired) && resp != nil {
		for _, c := range resp.Cookies {
			if c.Name == TwoFactorCookie && c.Value != "" {
				logger.From(ctx).Info().Msg("sign in needs mfa verification")
				return oauthmodel.AccessTokenBundle{MfaToken: c.Name + "=" + c.Value}, nil
			}
		}
		return oauthmodel.AccessTokenBundle{}, apperrors.Internalf("[mfaBackend.PasswordGrant] mfa_required without %s cookie", TwoFactorCookie)
	}
	if err != nil {
		return oauthmodel.AccessTokenBundle{}, err
	}

	var bundle oauthmodel.AccessTokenBundle
	if err := resp.Decode(&bundle); err != nil {
		return oauthmodel.AccessTokenBundle{}, err
	}
	return bundle, nil
}

// InitiateChallenge names the phone channel. The server texts the code itself
// when it answers the password grant with mfa_required, so there is nothing
// to send.
func (b mfaBackend) InitiateChallenge(_ context.Context, _ string) (string, error) {
	return challengeChannel, nil
}

// EnrollChannel is a regular challenge. The phone was registered with the
// account at sign up.
func (b mfaBackend) EnrollChannel(ctx context.Context, mfaToken, _ string) (string, error) {
	return b.InitiateChallenge(ctx, mfaToken)
}

func (b mfaBackend) ExchangeChallenge(ctx context.Context, challenge oauthmodel.MfaChallenge) (oauthmodel.AccessTokenBundle, error) {
	resp, err := b.p.client.Do(ctx, "mfa_verify", upstream.Request{
		Path:   pathToken,
		Form:   b.tokenForm(oauthmodel.MfaVerificationGrant, url.Values{"code": {challenge.Otp}}),
		Header: http.Header{"Cookie": {challenge.MfaToken}},
	})
	if err != nil {
		return oauthmodel.AccessTokenBundle{}, err
	}
	var bundle oauthmodel.AccessTokenBundle
	if err := resp.Decode(&bundle); err != nil {
		return oauthmodel.AccessTokenBundle{}, err
	}
	return bundle, nil
}

func (b mfaBackend) tokenForm(grant oauthmodel.GrantType, extra url.Values) url.Values {
	form := url.Values{
		"grant_type":    {string(grant)},
		"client_id":     {b.p.cfg.ClientID},
		"client_secret": {b.p.cfg.ClientSecret},
		"scope":         {b.p.cfg.Scope},
	}
	for k, v := range extra {
		form[k] = v
	}
	return form
}
