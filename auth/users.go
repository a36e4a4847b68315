package auth

import (
	"context"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/notify"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/token/jwt"
)

// IDTokenVerifier checks the signature, issuer and audience of an id token.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, rawToken string) error
}

// CheckPasswordChange validates req and that it targets the account the id
// token was issued to. It returns the id token claims.
func CheckPasswordChange(ctx context.Context, verifier IDTokenVerifier, idToken string, req oauthmodel.ChangePassword) (*jwt.Claims, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	claims, err := IDTokenClaims(ctx, verifier, idToken)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(claims.DisplayName(), req.Email) && !strings.EqualFold(claims.Email, req.Email) {
		return nil, apperrors.ErrEmailMismatch
	}
	return claims, nil
}

// IDTokenClaims verifies the signed in user's id token cookie and reads its
// claims. No verifier means no token is accepted.
func IDTokenClaims(ctx context.Context, verifier IDTokenVerifier, idToken string) (*jwt.Claims, error) {
	if verifier == nil {
		return nil, apperrors.Internalf("[IDTokenClaims] no id token verifier configured")
	}
	if idToken == "" {
		return nil, apperrors.ErrUnauthorized.WithDetail("no id token")
	}
	if err := verifier.VerifyIDToken(ctx, idToken); err != nil {
		return nil, err
	}
	claims, err := jwt.Parse(idToken)
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithDetail(err.Error())
	}
	if claims.Subject == "" {
		return nil, apperrors.ErrUnauthorized.WithDetail("id token has no subject")
	}
	return claims, nil
}

// Notifier sends security notices in the background.
type Notifier struct {
	sender     notify.Sender
	dispatcher *Dispatcher
	appName    string
}

func NewNotifier(sender notify.Sender, dispatcher *Dispatcher, appName string) *Notifier {
	if sender == nil {
		sender = notify.NoopSender{}
	}
	return &Notifier{sender: sender, dispatcher: dispatcher, appName: appName}
}

// PasswordChanged queues the password change notice for to.
func (n *Notifier) PasswordChanged(ctx context.Context, to string) {
	if n == nil || to == "" {
		return
	}
	msg := notify.PasswordChanged(to, n.appName)
	n.dispatcher.Go(ctx, "password_changed_notice", func(ctx context.Context) error {
		return n.sender.Send(ctx, msg)
	})
}
