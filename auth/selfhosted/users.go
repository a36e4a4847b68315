package selfhosted

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-auth-bff/auth"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/upstream"
)

// Users serves profiles from the discovered userinfo endpoint and writes
// them through the server's account endpoints.
type Users struct {
	client    *upstream.Client
	discovery *upstream.Discovery
	notifier  *auth.Notifier
}

var _ auth.UserManager = (*Users)(nil)

// NewUsers creates the user service. discovery also verifies the id tokens
// writes are made for. It may be nil, in which case the fixed userinfo path
// is used and no writes are accepted.
func NewUsers(client *upstream.Client, discovery *upstream.Discovery, notifier *auth.Notifier) *Users {
	return &Users{client: client, discovery: discovery, notifier: notifier}
}

func (u *Users) User(ctx context.Context, accessToken string) (oauthmodel.UserInfo, error) {
	if u.discovery != nil {
		_, err := u.discovery.Provider(ctx)
		if err == nil {
			return u.discoveredUser(ctx, accessToken)
		}
		logger.From(ctx).Warn().Err(err).Msg("discovery failed, using the fixed userinfo path")
	}

	resp, err := u.client.Do(ctx, "userinfo", upstream.Request{
		Method: http.MethodGet,
		Path:   pathUserInfo,
		Bearer: accessToken,
	})
	if err != nil {
		return oauthmodel.UserInfo{}, err
	}
	var info oauthmodel.UserInfo
	if err := resp.Decode(&info); err != nil {
		return oauthmodel.UserInfo{}, err
	}
	return info, nil
}

func (u *Users) discoveredUser(ctx context.Context, accessToken string) (oauthmodel.UserInfo, error) {
	ui, err := u.discovery.UserInfo(ctx, accessToken)
	if err != nil {
		return oauthmodel.UserInfo{}, upstream.UserInfoError(err)
	}
	var info oauthmodel.UserInfo
	if err := ui.Claims(&info); err != nil {
		return oauthmodel.UserInfo{}, upstream.UserInfoError(err)
	}
	if info.UserID == "" {
		info.UserID = ui.Subject
	}
	return info, nil
}

// UpdateUser sets the phone number of the user the id token belongs to.
func (u *Users) UpdateUser(ctx context.Context, idToken string, info oauthmodel.UserInfo) (string, error) {
	claims, err := auth.IDTokenClaims(ctx, u.idTokens(), idToken)
	if err != nil {
		return "", err
	}
	_, err = u.client.Do(ctx, "update_user", upstream.Request{
		Path: pathUpdateUser,
		JSON: map[string]string{
			"Id":          claims.Subject,
			"PhoneNumber": info.PhoneNumber,
		},
	})
	if err != nil {
		return "", err
	}
	logger.From(ctx).Info().Msg("user profile updated")
	return auth.UserUpdatedConfirmation, nil
}

func (u *Users) ChangePassword(ctx context.Context, idToken string, req oauthmodel.ChangePassword) (string, error) {
	if _, err := auth.CheckPasswordChange(ctx, u.idTokens(), idToken, req); err != nil {
		return "", err
	}
	if _, err := u.client.Do(ctx, "change_password", upstream.Request{Path: pathChangePassword, JSON: req}); err != nil {
		return "", err
	}
	logger.From(ctx).Info().Msg("user password changed")
	u.notifier.PasswordChanged(ctx, req.Email)
	return auth.PasswordChangedConfirmation, nil
}

func (u *Users) idTokens() auth.IDTokenVerifier {
	if u.discovery == nil {
		return nil
	}
	return u.discovery
}
