// Package auth holds the backend independent orchestration of sign-up,
// sign-in, multi-factor challenges and token lifecycle. Backend adapters
// live in the hosted and selfhosted sub-packages.
package auth

import (
	"context"

	"github.com/jrsteele09/go-auth-bff/oauthmodel"
)

// ResetPasswordConfirmation is returned for every reset request, whether or
// not the email belongs to an account.
const ResetPasswordConfirmation = "Password reset mail sent"

// AuthenticationProvider is the contract every identity backend adapter
// fulfils. Sign-in and sign-up report a required second factor as a bundle
// with NeedsMFA set, never as an error. Errors are *apperrors.Envelope.
type AuthenticationProvider interface {
	SignUp(ctx context.Context, req oauthmodel.SignUp) (oauthmodel.AccessTokenBundle, error)
	SignIn(ctx context.Context, creds oauthmodel.Credentials) (oauthmodel.AccessTokenBundle, error)
	VerifyMfaChallenge(ctx context.Context, challenge oauthmodel.MfaChallenge) (oauthmodel.AccessTokenBundle, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (oauthmodel.AccessTokenBundle, error)
	ResetPassword(ctx context.Context, email string) (string, error)
	SignOut(ctx context.Context) (string, error)
}

// UserManager reads and updates the signed in user's profile.
type UserManager interface {
	User(ctx context.Context, accessToken string) (oauthmodel.UserInfo, error)
	UpdateUser(ctx context.Context, idToken string, info oauthmodel.UserInfo) (string, error)
	ChangePassword(ctx context.Context, idToken string, req oauthmodel.ChangePassword) (string, error)
}

// RoleManager grants and removes roles.
type RoleManager interface {
	AddRole(ctx context.Context, req oauthmodel.UserRole) (string, error)
	RemoveRole(ctx context.Context, req oauthmodel.UserRole) (string, error)
}

// Backend bundles the three services an adapter provides.
type Backend struct {
	Provider AuthenticationProvider
	Users    UserManager
	Roles    RoleManager
}

const (
	UserUpdatedConfirmation     = "User updated"
	PasswordChangedConfirmation = "Password changed"
	RoleAddedConfirmation       = "Role Added!"
	RoleRemovedConfirmation     = "Role Removed!"
)
