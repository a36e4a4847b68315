package auth_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-auth-bff/auth"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "john.doe@example.com"
	testPassword = "password123"
	testPhone    = "+15550000001"
	testMfaToken = "mfa-token-1"
	testOtp      = "123456"
)

// fakeMfaBackend answers like an identity backend with per-user behaviour.
type fakeMfaBackend struct {
	requireMfa     bool
	grantErr       error
	exchangeErr    error
	initiateCalls  int
	enrollCalls    int
	enrolledPhone  string
	exchangeCalls  int
	lastChallenge  oauthmodel.MfaChallenge
	validOtp       string
	challengeIDOut string
}

func (f *fakeMfaBackend) PasswordGrant(_ context.Context, creds oauthmodel.Credentials) (oauthmodel.AccessTokenBundle, error) {
	if f.grantErr != nil {
		return oauthmodel.AccessTokenBundle{}, f.grantErr
	}
	if f.requireMfa {
		return oauthmodel.AccessTokenBundle{MfaToken: testMfaToken}, nil
	}
	return oauthmodel.AccessTokenBundle{AccessToken: "at", IDToken: "id", RefreshToken: "rt"}, nil
}

func (f *fakeMfaBackend) InitiateChallenge(_ context.Context, mfaToken string) (string, error) {
	f.initiateCalls++
	return f.challengeIDOut, nil
}

func (f *fakeMfaBackend) EnrollChannel(_ context.Context, mfaToken, phone string) (string, error) {
	f.enrollCalls++
	f.enrolledPhone = phone
	return f.challengeIDOut, nil
}

func (f *fakeMfaBackend) ExchangeChallenge(_ context.Context, ch oauthmodel.MfaChallenge) (oauthmodel.AccessTokenBundle, error) {
	f.exchangeCalls++
	f.lastChallenge = ch
	if f.exchangeErr != nil {
		return oauthmodel.AccessTokenBundle{}, f.exchangeErr
	}
	if ch.Otp != f.validOtp {
		return oauthmodel.AccessTokenBundle{}, apperrors.ErrInvalidGrant.WithMessage("Invalid binding_code")
	}
	return oauthmodel.AccessTokenBundle{AccessToken: "at-mfa", IDToken: "id", RefreshToken: "rt"}, nil
}

func setupTestFixture(t *testing.T) (*fakeMfaBackend, *auth.MfaOrchestrator) {
	t.Helper()
	backend := &fakeMfaBackend{validOtp: testOtp, challengeIDOut: "oob-1"}
	return backend, auth.NewMfaOrchestrator(backend)
}

func TestMfaOrchestrator_SignIn(t *testing.T) {
	creds := oauthmodel.Credentials{Email: testEmail, Password: testPassword}

	t.Run("no mfa", func(t *testing.T) {
		_, o := setupTestFixture(t)
		out, err := o.SignIn(context.Background(), creds)
		require.NoError(t, err)
		require.Equal(t, auth.StateAuthenticated, out.State)
		require.Equal(t, "at", out.Bundle.AccessToken)
		require.False(t, out.Bundle.NeedsMFA)
	})

	t.Run("mfa required issues a challenge", func(t *testing.T) {
		backend, o := setupTestFixture(t)
		backend.requireMfa = true

		out, err := o.SignIn(context.Background(), creds)
		require.NoError(t, err)
		require.Equal(t, auth.StateMfaPending, out.State)
		require.True(t, out.Bundle.NeedsMFA)
		require.Empty(t, out.Bundle.AccessToken)
		require.Equal(t, testMfaToken, out.Bundle.MfaToken)
		require.NotEmpty(t, out.Bundle.ChallengeID)
		require.Equal(t, 1, backend.initiateCalls)
		require.Equal(t, 0, backend.enrollCalls)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		backend, o := setupTestFixture(t)
		backend.grantErr = apperrors.ErrInvalidGrant.WithMessage("Wrong email or password.")

		out, err := o.SignIn(context.Background(), creds)
		require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
		require.Equal(t, auth.StateFailed, out.State)
	})
}

func TestMfaOrchestrator_SignInEnrolling(t *testing.T) {
	backend, o := setupTestFixture(t)
	backend.requireMfa = true

	out, err := o.SignInEnrolling(context.Background(), oauthmodel.Credentials{Email: testEmail, Password: testPassword}, testPhone)
	require.NoError(t, err)
	require.Equal(t, auth.StateMfaPending, out.State)
	require.Equal(t, "oob-1", out.Bundle.ChallengeID)
	require.Equal(t, 1, backend.enrollCalls)
	require.Equal(t, testPhone, backend.enrolledPhone)
}

func TestMfaOrchestrator_Verify(t *testing.T) {
	t.Run("good code", func(t *testing.T) {
		backend, o := setupTestFixture(t)
		out, err := o.Verify(context.Background(), oauthmodel.MfaChallenge{MfaToken: testMfaToken, ChallengeID: "oob-1", Otp: testOtp})
		require.NoError(t, err)
		require.Equal(t, auth.StateAuthenticated, out.State)
		require.Equal(t, "at-mfa", out.Bundle.AccessToken)
		require.Empty(t, out.Bundle.MfaToken)
		require.Equal(t, testMfaToken, backend.lastChallenge.MfaToken)
	})

	t.Run("bad code then retry", func(t *testing.T) {
		backend, o := setupTestFixture(t)
		ch := oauthmodel.MfaChallenge{MfaToken: testMfaToken, ChallengeID: "oob-1", Otp: "000000"}

		out, err := o.Verify(context.Background(), ch)
		require.ErrorIs(t, err, apperrors.ErrInvalidMfaCode)
		require.NotErrorIs(t, err, apperrors.ErrInvalidGrant)
		require.Equal(t, apperrors.CodeInvalidMfaCode, apperrors.From(err).Code)
		require.Equal(t, auth.StateFailed, out.State)

		ch.Otp = testOtp
		out, err = o.Verify(context.Background(), ch)
		require.NoError(t, err)
		require.Equal(t, auth.StateAuthenticated, out.State)
		require.Equal(t, 2, backend.exchangeCalls)
	})

	t.Run("mfa token rejected by backend", func(t *testing.T) {
		backend, o := setupTestFixture(t)
		backend.exchangeErr = apperrors.ErrBadCredentials.WithDetail("MFA token mismatch")
		_, err := o.Verify(context.Background(), oauthmodel.MfaChallenge{MfaToken: testMfaToken, ChallengeID: "Phone", Otp: testOtp})
		require.ErrorIs(t, err, apperrors.ErrInvalidMfaCode)
	})

	t.Run("backend unavailable keeps kind", func(t *testing.T) {
		backend, o := setupTestFixture(t)
		backend.exchangeErr = apperrors.ErrUpstreamUnavailable
		_, err := o.Verify(context.Background(), oauthmodel.MfaChallenge{MfaToken: testMfaToken, ChallengeID: "oob-1", Otp: testOtp})
		require.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	})

	t.Run("missing challenge cookies", func(t *testing.T) {
		backend, o := setupTestFixture(t)
		_, err := o.Verify(context.Background(), oauthmodel.MfaChallenge{Otp: testOtp})
		require.ErrorIs(t, err, apperrors.ErrValidation)
		require.Equal(t, 0, backend.exchangeCalls)
	})
}

func TestCanTransition(t *testing.T) {
	require.True(t, auth.CanTransition(auth.StateUnauthenticated, auth.StateCredentialsSubmitted))
	require.True(t, auth.CanTransition(auth.StateCredentialsSubmitted, auth.StateMfaPending))
	require.True(t, auth.CanTransition(auth.StateMfaPending, auth.StateAuthenticated))
	require.False(t, auth.CanTransition(auth.StateUnauthenticated, auth.StateAuthenticated))
	require.False(t, auth.CanTransition(auth.StateAuthenticated, auth.StateMfaPending))
	require.False(t, auth.CanTransition(auth.StateFailed, auth.StateAuthenticated))
}
