package hosted

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-auth-bff/auth"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/upstream"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// TokenSource hands out management API tokens.
// *token.ManagementTokenCache is the production implementation.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// Provider is the hosted AuthenticationProvider.
type Provider struct {
	cfg        Config
	client     *upstream.Client
	oauth      oauth2.Config
	management TokenSource
	mfa        *auth.MfaOrchestrator
	dispatcher *auth.Dispatcher
}

var _ auth.AuthenticationProvider = (*Provider)(nil)

func NewProvider(cfg Config, client *upstream.Client, management TokenSource, dispatcher *auth.Dispatcher) *Provider {
	p := &Provider{
		cfg:        cfg,
		client:     client,
		management: management,
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

// SignUp rejects a phone number already in use before creating anything,
// then signs the new user in, enrolling the phone when mfa is required.
func (p *Provider) SignUp(ctx context.Context, req oauthmodel.SignUp) (oauthmodel.AccessTokenBundle, error) {
	unique, err := p.phoneNumberUnique(ctx, req.PhoneNumber)
	if err != nil {
		return oauthmodel.AccessTokenBundle{}, err
	}
	if !unique {
		logger.From(ctx).Warn().Msg("sign up with a phone number already in use")
		return oauthmodel.AccessTokenBundle{}, apperrors.ErrDuplicatePhone
	}

	_, err = p.client.Do(ctx, "signup", upstream.Request{
		Path: pathSignup,
		JSON: map[string]any{
			"client_id":  p.cfg.ClientID,
			"connection": p.cfg.Connection,
			"email":      req.Email,
			"password":   req.Password,
			"username":   req.Username,
			"user_metadata": map[string]string{
				"phone_number": req.PhoneNumber,
			},
		},
	})
	if err != nil {
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

// ResetPassword asks the provider to mail a reset link. The call runs in the
// background so the answer does not reveal whether the account exists.
func (p *Provider) ResetPassword(ctx context.Context, email string) (string, error) {
	p.dispatcher.Go(ctx, "reset_password", func(ctx context.Context) error {
		_, err := p.client.Do(ctx, "change_password", upstream.Request{
			Path: pathChangePassword,
			JSON: map[string]string{
				"client_id":  p.cfg.ClientID,
				"email":      email,
				"connection": p.cfg.Connection,
			},
		})
		return err
	})
	return auth.ResetPasswordConfirmation, nil
}

// SignOut returns the provider logout URL the client is redirected to.
func (p *Provider) SignOut(_ context.Context) (string, error) {
	q := url.Values{"client_id": {p.cfg.ClientID}}
	if p.cfg.LogoutReturnTo != "" {
		q.Set("returnTo", p.cfg.LogoutReturnTo)
	}
	return p.client.URL(pathLogout) + "?" + q.Encode(), nil
}

func (p *Provider) phoneNumberUnique(ctx context.Context, phone string) (bool, error) {
	mgmt, err := p.management.GetToken(ctx)
	if err != nil {
		return false, err
	}
	resp, err := p.client.Do(ctx, "phone_lookup", upstream.Request{
		Method: http.MethodGet,
		Path:   pathUsers,
		Query: url.Values{
			"q":             {"user_metadata.phone_number:" + luceneQuote(phone)},
			"search_engine": {"v3"},
			"fields":        {"user_id"},
		},
		Bearer: mgmt,
	})
	if err != nil {
		return false, err
	}
	var users []json.RawMessage
	if err := resp.Decode(&users); err != nil {
		return false, err
	}
	return len(users) == 0, nil
}

var luceneEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// luceneQuote makes s a single quoted term of a user search query.
func luceneQuote(s string) string {
	return `"` + luceneEscaper.Replace(s) + `"`
}

// mfaBackend is the provider's half of the login flow.
type mfaBackend struct {
	p *Provider
}

var _ auth.MfaBackend = mfaBackend{}

func (b mfaBackend) PasswordGrant(ctx context.Context, creds oauthmodel.Credentials) (oauthmodel.AccessTokenBundle, error) {
	resp, err := b.p.client.Do(ctx, "password_grant", upstream.Request{
		Path: pathToken,
		Form: url.Values{
			"grant_type":    {string(oauthmodel.PasswordRealmGrant)},
			"client_id":     {b.p.cfg.ClientID},
			"client_secret": {b.p.cfg.ClientSecret},
			"username":      {creds.Email},
			"password":      {creds.Password},
			"realm":         {b.p.cfg.Connection},
			"audience":      {b.p.cfg.Audience},
			"scope":         {b.p.cfg.Scope},
		},
	})
	if apperrors.Is(err, apperrors.ErrMfaRequired) && resp != nil {
		mfaToken := gjson.GetBytes(resp.Body, "mfa_token").String()
		if mfaToken == "" {
			return oauthmodel.AccessTokenBundle{}, apperrors.Internalf("[mfaBackend.PasswordGrant] mfa_required without mfa_token")
		}
		logger.From(ctx).Info().Msg("sign in needs mfa verification")
		return oauthmodel.AccessTokenBundle{MfaToken: mfaToken}, nil
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

func (b mfaBackend) InitiateChallenge(ctx context.Context, mfaToken string) (string, error) {
	resp, err := b.p.client.Do(ctx, "mfa_challenge", upstream.Request{
		Path: pathMfaChallenge,
		JSON: map[string]string{
			"client_id":      b.p.cfg.ClientID,
			"client_secret":  b.p.cfg.ClientSecret,
			"mfa_token":      mfaToken,
			"challenge_type": "oob",
		},
	})
	if err != nil {
		return "", err
	}
	return oobCode(resp)
}

func (b mfaBackend) EnrollChannel(ctx context.Context, mfaToken, phone string) (string, error) {
	resp, err := b.p.client.Do(ctx, "mfa_associate", upstream.Request{
		Path:   pathMfaAssociate,
		Bearer: mfaToken,
		JSON: map[string]any{
			"client_id":           b.p.cfg.ClientID,
			"client_secret":       b.p.cfg.ClientSecret,
			"authenticator_types": []string{"oob"},
			"oob_channels":        []string{"sms"},
			"phone_number":        phone,
		},
	})
	if err != nil {
		return "", err
	}
	return oobCode(resp)
}

func (b mfaBackend) ExchangeChallenge(ctx context.Context, challenge oauthmodel.MfaChallenge) (oauthmodel.AccessTokenBundle, error) {
	resp, err := b.p.client.Do(ctx, "mfa_verify", upstream.Request{
		Path: pathToken,
		Form: url.Values{
			"grant_type":    {string(oauthmodel.MfaOobGrant)},
			"client_id":     {b.p.cfg.ClientID},
			"client_secret": {b.p.cfg.ClientSecret},
			"mfa_token":     {challenge.MfaToken},
			"oob_code":      {challenge.ChallengeID},
			"binding_code":  {challenge.Otp},
		},
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

func oobCode(resp *upstream.Response) (string, error) {
	code := gjson.GetBytes(resp.Body, "oob_code").String()
	if code == "" {
		return "", apperrors.Internalf("[oobCode] mfa response without oob_code: %s", resp.Body)
	}
	return code, nil
}
