package hosted

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-auth-bff/auth"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/upstream"
)

// Users reads profiles from the userinfo endpoint and writes them through
// the management API.
type Users struct {
	cfg        Config
	client     *upstream.Client
	management TokenSource
	idTokens   auth.IDTokenVerifier
	notifier   *auth.Notifier
}

var _ auth.UserManager = (*Users)(nil)

// NewUsers creates the user service. Writes are only made for users whose id
// token idTokens accepts.
func NewUsers(cfg Config, client *upstream.Client, management TokenSource, idTokens auth.IDTokenVerifier, notifier *auth.Notifier) *Users {
	return &Users{cfg: cfg, client: client, management: management, idTokens: idTokens, notifier: notifier}
}

func (u *Users) User(ctx context.Context, accessToken string) (oauthmodel.UserInfo, error) {
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

// UpdateUser sets the nickname of the user the id token belongs to.
func (u *Users) UpdateUser(ctx context.Context, idToken string, info oauthmodel.UserInfo) (string, error) {
	claims, err := auth.IDTokenClaims(ctx, u.idTokens, idToken)
	if err != nil {
		return "", err
	}
	if info.NickName == "" {
		return "", apperrors.Validationf("nickname is required")
	}
	if err := u.patchUser(ctx, "update_user", claims.Subject, map[string]string{"nickname": info.NickName}); err != nil {
		return "", err
	}
	logger.From(ctx).Info().Msg("user profile updated")
	return auth.UserUpdatedConfirmation, nil
}

func (u *Users) ChangePassword(ctx context.Context, idToken string, req oauthmodel.ChangePassword) (string, error) {
	claims, err := auth.CheckPasswordChange(ctx, u.idTokens, idToken, req)
	if err != nil {
		return "", err
	}
	body := map[string]string{
		"password":   req.NewPassword,
		"connection": u.cfg.Connection,
	}
	if err := u.patchUser(ctx, "change_password", claims.Subject, body); err != nil {
		return "", err
	}
	logger.From(ctx).Info().Msg("user password changed")
	u.notifier.PasswordChanged(ctx, req.Email)
	return auth.PasswordChangedConfirmation, nil
}

func (u *Users) patchUser(ctx context.Context, op, userID string, body any) error {
	mgmt, err := u.management.GetToken(ctx)
	if err != nil {
		return err
	}
	_, err = u.client.Do(ctx, op, upstream.Request{
		Method: http.MethodPatch,
		Path:   pathUsers + "/" + url.PathEscape(userID),
		JSON:   body,
		Bearer: mgmt,
	})
	return err
}
