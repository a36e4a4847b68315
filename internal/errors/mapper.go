package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Failure is a non successful upstream response.
type Failure struct {
	Status int
	Body   []byte
}

// hostedCodes maps the hosted provider's error code strings. The same table
// covers token endpoint errors ("error"), database connection errors ("code")
// and management API errors ("errorCode").
var hostedCodes = map[string]*Envelope{
	"invalid_grant":           ErrInvalidGrant,
	"expired_token":           ErrInvalidGrant,
	"invalid_scope":           ErrInvalidScope,
	"insufficient_scope":      ErrInvalidScope,
	"invalid_client":          ErrInvalidClient,
	"unauthorized_client":     ErrInvalidClient,
	"access_denied":           ErrAccessDenied,
	"unauthorized":            ErrUnauthorized,
	"invalid_token":           ErrUnauthorized,
	"mfa_required":            ErrMfaRequired,
	"invalid_otp":             ErrInvalidMfaCode,
	"invalid_binding_code":    ErrInvalidMfaCode,
	"too_many_requests":       ErrRateLimited,
	"too_many_attempts":       ErrRateLimited,
	"temporarily_unavailable": ErrUpstreamUnavailable,
	"user_exists":             ErrDuplicateEmail,
	"username_exists":         ErrDuplicateEmail,
	"invalid_password":        ErrValidation,
	"password_leaked":         ErrValidation,
	"invalid_signup":          ErrValidation,
	"invalid_request":         ErrValidation,
	"invalid_body":            ErrValidation,
	"invalid_query_string":    ErrValidation,
	"unsupported_grant_type":  ErrValidation,
	"inexistent_user":         ErrNotFound,
	"inexistent_role":         ErrNotFound,
}

// FromHosted maps a hosted provider error response. The discriminant is the
// error code string; unknown codes become Internal with the raw body kept.
func FromHosted(f Failure) *Envelope {
	code, desc := hostedDiscriminant(f.Body)
	if env, ok := hostedCodes[code]; ok {
		return withUpstreamMessage(env, desc).WithDetail(string(f.Body))
	}
	if env := fromTransportStatus(f.Status); env != nil {
		return env.WithDetail(string(f.Body))
	}
	return ErrInternal.WithDetail(upstreamDetail(f))
}

func hostedDiscriminant(body []byte) (code, desc string) {
	if !gjson.ValidBytes(body) {
		return "", ""
	}
	r := gjson.ParseBytes(body)
	for _, path := range []string{"errorCode", "code", "error"} {
		if v := r.Get(path); v.Type == gjson.String && v.Str != "" {
			code = v.Str
			break
		}
	}
	for _, path := range []string{"error_description", "description", "message"} {
		if v := r.Get(path); v.Type == gjson.String && v.Str != "" {
			desc = v.Str
			break
		}
	}
	return code, desc
}

// FromSelfHosted maps a self-hosted authorization server error response.
// Token endpoint failures carry an OAuth error body; account endpoints answer
// {"status":"Error","message":...} and are discriminated by HTTP status.
func FromSelfHosted(f Failure) *Envelope {
	var r gjson.Result
	if gjson.ValidBytes(f.Body) {
		r = gjson.ParseBytes(f.Body)
	}
	oauthErr := r.Get("error").String()
	desc := r.Get("error_description").String()

	if desc == "mfa_required" {
		return ErrMfaRequired.WithDetail(string(f.Body))
	}
	switch oauthErr {
	case "invalid_grant":
		return withUpstreamMessage(ErrInvalidGrant, desc).WithDetail(string(f.Body))
	case "invalid_scope":
		return ErrInvalidScope.WithDetail(string(f.Body))
	case "invalid_client":
		return ErrInvalidClient.WithDetail(string(f.Body))
	case "unauthorized_client":
		// The password and MFA grant validators answer every rejected
		// credential this way, lock-outs included.
		if strings.Contains(strings.ToLower(desc), "locked") {
			return ErrLockedOut.WithDetail(string(f.Body))
		}
		return ErrBadCredentials.WithDetail(string(f.Body))
	case "invalid_request", "unsupported_grant_type":
		return withUpstreamMessage(ErrValidation, desc).WithDetail(string(f.Body))
	}

	msg := r.Get("message").String()
	if msg == "" {
		msg = r.Get("title").String()
	}
	lower := strings.ToLower(msg)

	if env := fromTransportStatus(f.Status); env != nil {
		return env.WithDetail(string(f.Body))
	}
	switch f.Status {
	case http.StatusBadRequest:
		switch {
		case strings.Contains(lower, "phone") && strings.Contains(lower, "exist"):
			return ErrDuplicatePhone.WithDetail(msg)
		case strings.Contains(lower, "already exist"):
			return ErrDuplicateEmail.WithDetail(msg)
		}
		return withUpstreamMessage(ErrValidation, msg).WithDetail(string(f.Body))
	case http.StatusConflict:
		return withUpstreamMessage(ErrValidation, msg).WithDetail(string(f.Body))
	case http.StatusUnauthorized:
		return ErrUnauthorized.WithDetail(string(f.Body))
	case http.StatusForbidden:
		if strings.Contains(lower, "locked out") {
			return ErrLockedOut.WithDetail(msg)
		}
		return ErrInvalidScope.WithDetail(string(f.Body))
	case http.StatusNotFound:
		return withUpstreamMessage(ErrNotFound, msg).WithDetail(string(f.Body))
	}
	return ErrInternal.WithDetail(upstreamDetail(f))
}

// FromTransport maps a failure to reach the upstream. Envelopes pass through.
func FromTransport(err error) *Envelope {
	if err == nil {
		return nil
	}
	var env *Envelope
	if errors.As(err, &env) {
		return env
	}
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &urlErr),
		errors.As(err, &netErr):
		return ErrUpstreamUnavailable.WithCause(err)
	}
	return ErrInternal.WithCause(err)
}

func fromTransportStatus(status int) *Envelope {
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUpstreamUnavailable
	}
	return nil
}

// withUpstreamMessage uses the upstream text for kinds whose text is safe and
// useful to the client. Other kinds keep their canonical message.
func withUpstreamMessage(env *Envelope, msg string) *Envelope {
	switch env.Kind {
	case KindValidation, KindInvalidGrant, KindNotFound:
		return env.WithMessage(msg)
	case KindUnauthorized:
		if env.Reason != "" {
			return env.WithMessage(msg)
		}
	}
	return env
}

func upstreamDetail(f Failure) string {
	body := strings.TrimSpace(string(f.Body))
	if body == "" {
		return http.StatusText(f.Status)
	}
	return body
}
