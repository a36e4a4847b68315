package errors_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestFromHosted(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    apperrors.Kind
		code    int
		message string
	}{
		{"wrong password", 403, `{"error":"invalid_grant","error_description":"Wrong email or password."}`, apperrors.KindInvalidGrant, -1, "Wrong email or password."},
		{"invalid scope", 403, `{"error":"invalid_scope","error_description":"nope"}`, apperrors.KindInvalidScope, -2, apperrors.MsgInvalidScope},
		{"invalid client", 401, `{"error":"invalid_client","error_description":"bad secret"}`, apperrors.KindInternal, -3, apperrors.MsgInternal},
		{"access denied", 403, `{"error":"access_denied","error_description":"Blocked by rule"}`, apperrors.KindUnauthorized, -97, "Blocked by rule"},
		{"rate limited", 429, `{"error":"too_many_requests","error_description":"slow down"}`, apperrors.KindRateLimited, -98, apperrors.MsgRateLimited},
		{"unavailable", 503, `{"error":"temporarily_unavailable"}`, apperrors.KindUpstreamUnavailable, -99, apperrors.MsgUpstreamUnavailable},
		{"signup user exists", 400, `{"name":"BadRequestError","code":"user_exists","description":"The user already exists.","statusCode":400}`, apperrors.KindConflict, -6, apperrors.MsgDuplicateEmail},
		{"weak password", 400, `{"name":"PasswordStrengthError","message":"Password is too weak","code":"invalid_password","description":{"rules":[]}}`, apperrors.KindValidation, 400, "Password is too weak"},
		{"management not found", 404, `{"statusCode":404,"error":"Not Found","message":"The user does not exist.","errorCode":"inexistent_user"}`, apperrors.KindNotFound, 404, "The user does not exist."},
		{"mfa required", 403, `{"error":"mfa_required","error_description":"Multifactor authentication required","mfa_token":"abc"}`, apperrors.KindMfaRequired, -10, apperrors.MsgMfaRequired},
		{"bare 429", 429, `Too Many Requests`, apperrors.KindRateLimited, -98, apperrors.MsgRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := apperrors.FromHosted(apperrors.Failure{Status: tt.status, Body: []byte(tt.body)})
			require.Equal(t, tt.kind, env.Kind)
			require.Equal(t, tt.code, env.Code)
			require.Equal(t, tt.message, env.Message)
		})
	}
}

func TestFromHosted_UnknownKeepsRawMessage(t *testing.T) {
	body := `{"error":"something_new","error_description":"secret internals"}`
	env := apperrors.FromHosted(apperrors.Failure{Status: 400, Body: []byte(body)})

	require.Equal(t, apperrors.KindInternal, env.Kind)
	require.Equal(t, body, env.Detail)
	require.Equal(t, apperrors.MsgInternal, env.ClientMessage())
	require.NotContains(t, env.ClientMessage(), "secret")
}

func TestFromSelfHosted(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apperrors.Kind
		reason string
	}{
		{"mfa required", 400, `{"error":"invalid_grant","error_description":"mfa_required"}`, apperrors.KindMfaRequired, ""},
		{"bad refresh token", 400, `{"error":"invalid_grant"}`, apperrors.KindInvalidGrant, ""},
		{"scope", 400, `{"error":"invalid_scope"}`, apperrors.KindInvalidScope, ""},
		{"wrong password", 400, `{"error":"unauthorized_client","error_description":"Invalid Credentials"}`, apperrors.KindUnauthorized, "bad-credentials"},
		{"mfa mismatch", 400, `{"error":"unauthorized_client","error_description":"MFA token mismatch"}`, apperrors.KindUnauthorized, "bad-credentials"},
		{"grant locked out", 400, `{"error":"unauthorized_client","error_description":"User account locked out"}`, apperrors.KindUnauthorized, "locked-out"},
		{"client secret", 400, `{"error":"invalid_client"}`, apperrors.KindInternal, "invalid-client"},
		{"user exists", 400, `{"status":"Error","message":"Cannot create user, already Exist"}`, apperrors.KindConflict, apperrors.ReasonDuplicateEmail},
		{"phone exists", 400, `{"status":"Error","message":"Phone number already exists"}`, apperrors.KindConflict, apperrors.ReasonDuplicatePhone},
		{"creation failed", 409, `{"status":"Error","message":"Failed to Create User"}`, apperrors.KindValidation, ""},
		{"locked out", 403, `{"status":"Error","message":"User Locked out! Failed"}`, apperrors.KindUnauthorized, "locked-out"},
		{"forbidden", 403, `{"status":"Error","message":"Invalid Scope Issue"}`, apperrors.KindInvalidScope, ""},
		{"missing user", 404, `{"status":"Error","message":"User does not exists"}`, apperrors.KindNotFound, ""},
		{"gateway", 502, ``, apperrors.KindUpstreamUnavailable, ""},
		{"server error", 500, `{"status":"Error","message":"Generic Exception boom"}`, apperrors.KindInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := apperrors.FromSelfHosted(apperrors.Failure{Status: tt.status, Body: []byte(tt.body)})
			require.Equal(t, tt.kind, env.Kind)
			require.Equal(t, tt.reason, env.Reason)
		})
	}
}

func TestFromSelfHosted_InvalidCredentials(t *testing.T) {
	body := `{"error":"unauthorized_client","error_description":"Invalid Credentials"}`
	env := apperrors.FromSelfHosted(apperrors.Failure{Status: http.StatusBadRequest, Body: []byte(body)})

	require.True(t, apperrors.Is(env, apperrors.ErrBadCredentials))
	require.False(t, apperrors.Is(env, apperrors.ErrInvalidClient))
	require.Equal(t, http.StatusUnauthorized, env.Status)
	require.Equal(t, apperrors.MsgBadCredentials, env.ClientMessage())
}

func TestFromTransport(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		env := apperrors.FromTransport(fmt.Errorf("call: %w", context.DeadlineExceeded))
		require.Equal(t, apperrors.KindUpstreamUnavailable, env.Kind)
		require.True(t, env.Retryable())
	})

	t.Run("connection refused", func(t *testing.T) {
		err := &url.Error{Op: "Post", URL: "http://127.0.0.1:1", Err: fmt.Errorf("connection refused")}
		env := apperrors.FromTransport(err)
		require.Equal(t, apperrors.KindUpstreamUnavailable, env.Kind)
	})

	t.Run("envelope passes through", func(t *testing.T) {
		env := apperrors.FromTransport(apperrors.ErrDuplicatePhone)
		require.Same(t, apperrors.ErrDuplicatePhone, env)
	})

	t.Run("nil", func(t *testing.T) {
		require.Nil(t, apperrors.FromTransport(nil))
	})
}

func TestEnvelopeIs(t *testing.T) {
	env := apperrors.FromHosted(apperrors.Failure{Status: http.StatusBadRequest, Body: []byte(`{"code":"user_exists"}`)})
	wrapped := apperrors.Wrapf(env, "[SignUp] create")

	require.True(t, apperrors.Is(wrapped, apperrors.ErrDuplicateEmail))
	require.False(t, apperrors.Is(wrapped, apperrors.ErrDuplicatePhone))
	require.Equal(t, apperrors.KindConflict, apperrors.KindOf(wrapped))
	require.Equal(t, apperrors.KindInternal, apperrors.KindOf(fmt.Errorf("plain")))
}
