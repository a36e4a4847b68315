package oauthmodel

// GrantType represents the OAuth 2.0 grant type sent to a backend token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// PasswordGrant is the resource owner password credentials grant.
	// Used in: sign-in against the self-hosted server
	// Token request includes: username, password, scope, client_id, client_secret
	PasswordGrant GrantType = "password"

	// PasswordRealmGrant is the hosted provider's password grant scoped to a
	// database connection (realm).
	// Token request includes: username, password, realm, audience, scope
	// Returns: tokens, or an mfa_required error carrying an mfa_token
	PasswordRealmGrant GrantType = "http://auth0.com/oauth/grant-type/password-realm"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token, client_id, client_secret
	// Returns: new access_token, id_token, and possibly a rotated refresh_token
	RefreshTokenGrant GrantType = "refresh_token"

	// ClientCredentialsGrant obtains the privileged management token.
	// Token request includes: client_id, client_secret, audience
	// Returns: access_token (no refresh_token or id_token)
	ClientCredentialsGrant GrantType = "client_credentials"

	// MfaOobGrant completes a hosted provider out-of-band (sms) challenge.
	// Token request includes: mfa_token, oob_code, binding_code (the otp)
	MfaOobGrant GrantType = "http://auth0.com/oauth/grant-type/mfa-oob"

	// MfaVerificationGrant is the self-hosted server's extension grant for the
	// second factor. The mfa token travels as a Cookie header.
	// Token request includes: code (the otp), scope
	MfaVerificationGrant GrantType = "MfaVerification"
)
