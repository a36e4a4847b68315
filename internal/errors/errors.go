package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the backend independent classification of a failure.
type Kind string

const (
	KindValidation          Kind = "ValidationError"
	KindConflict            Kind = "Conflict"
	KindUnauthorized        Kind = "Unauthorized"
	KindMfaRequired         Kind = "MfaRequired"
	KindInvalidMfaCode      Kind = "InvalidMfaCode"
	KindInvalidGrant        Kind = "InvalidGrant"
	KindInvalidScope        Kind = "InvalidScope"
	KindRateLimited         Kind = "RateLimited"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindNotFound            Kind = "NotFound"
	KindInternal            Kind = "Internal"
)

// Conflict reasons
const (
	ReasonDuplicatePhone = "duplicate-phone"
	ReasonDuplicateEmail = "duplicate-email"
)

// Stable client facing codes. Kinds without a finer code use their HTTP status.
const (
	CodeInvalidGrant        = -1
	CodeInvalidScope        = -2
	CodeInvalidClient       = -3
	CodeDuplicatePhone      = -4
	CodeEmailMismatch       = -5
	CodeDuplicateEmail      = -6
	CodeSamePassword        = -8
	CodeInvalidMfaCode      = -9
	CodeMfaRequired         = -10
	CodeAccessDenied        = -97
	CodeRateLimited         = -98
	CodeUpstreamUnavailable = -99
)

const (
	MsgInternal            = "Internal Server Error."
	MsgNotFound            = "Not Found"
	MsgRequiresAuth        = "Requires authentication"
	MsgBadCredentials      = "Bad credentials"
	MsgLockedOut           = "User locked out"
	MsgInvalidScope        = "Invalid Scope Issue"
	MsgDuplicatePhone      = "Phone number already mapped to some other user"
	MsgDuplicateEmail      = "User already exists"
	MsgEmailMismatch       = "The Email provided and user Mail do not match"
	MsgSamePassword        = "Same password entered as new password"
	MsgInvalidMfaCode      = "Invalid otp given"
	MsgMfaRequired         = "Multi-factor authentication required"
	MsgRateLimited         = "Too many requests"
	MsgUpstreamUnavailable = "Identity backend unavailable"
	MsgInvalidGrant        = "Invalid grant"
)

// Envelope is the canonical error crossing the orchestration boundary.
// Detail holds the raw upstream diagnostic and is never written to clients.
type Envelope struct {
	Kind    Kind
	Reason  string
	Code    int
	Status  int
	Message string
	Detail  string
	Err     error
}

func (e *Envelope) Error() string {
	msg := fmt.Sprintf("%s(%d): %s", e.Kind, e.Code, e.Message)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s(%s,%d): %s", e.Kind, e.Reason, e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += " [" + e.Detail + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Envelope) Unwrap() error {
	return e.Err
}

// Is matches envelopes of the same kind (and reason, when the target has one)
// so sentinels below work with errors.Is.
func (e *Envelope) Is(target error) bool {
	t, ok := target.(*Envelope)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Retryable reports whether the caller may try again: later for rate limits
// and outages, or with another code on the same mfa challenge.
func (e *Envelope) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindUpstreamUnavailable, KindInvalidMfaCode:
		return true
	}
	return false
}

// ClientMessage is the message safe to show to the client.
func (e *Envelope) ClientMessage() string {
	if e.Kind == KindInternal {
		return MsgInternal
	}
	return e.Message
}

// WithDetail returns a copy carrying the raw diagnostic.
func (e *Envelope) WithDetail(detail string) *Envelope {
	c := *e
	c.Detail = detail
	return &c
}

// WithCause returns a copy wrapping err.
func (e *Envelope) WithCause(err error) *Envelope {
	c := *e
	c.Err = err
	return &c
}

// WithMessage returns a copy with a different client message.
func (e *Envelope) WithMessage(msg string) *Envelope {
	c := *e
	if msg != "" {
		c.Message = msg
	}
	return &c
}

// Sentinels, usable with errors.Is.
var (
	ErrValidation          = New(KindValidation, "Bad request")
	ErrDuplicatePhone      = NewConflict(ReasonDuplicatePhone)
	ErrDuplicateEmail      = NewConflict(ReasonDuplicateEmail)
	ErrEmailMismatch       = &Envelope{Kind: KindValidation, Reason: "email-mismatch", Code: CodeEmailMismatch, Status: http.StatusBadRequest, Message: MsgEmailMismatch}
	ErrSamePassword        = &Envelope{Kind: KindValidation, Reason: "same-password", Code: CodeSamePassword, Status: http.StatusBadRequest, Message: MsgSamePassword}
	ErrUnauthorized        = New(KindUnauthorized, MsgRequiresAuth)
	ErrBadCredentials      = &Envelope{Kind: KindUnauthorized, Reason: "bad-credentials", Code: http.StatusUnauthorized, Status: http.StatusUnauthorized, Message: MsgBadCredentials}
	ErrLockedOut           = &Envelope{Kind: KindUnauthorized, Reason: "locked-out", Code: http.StatusUnauthorized, Status: http.StatusUnauthorized, Message: MsgLockedOut}
	ErrAccessDenied        = &Envelope{Kind: KindUnauthorized, Reason: "access-denied", Code: CodeAccessDenied, Status: http.StatusUnauthorized, Message: "Access denied"}
	ErrMfaRequired         = New(KindMfaRequired, MsgMfaRequired)
	ErrInvalidMfaCode      = New(KindInvalidMfaCode, MsgInvalidMfaCode)
	ErrInvalidGrant        = New(KindInvalidGrant, MsgInvalidGrant)
	ErrInvalidScope        = New(KindInvalidScope, MsgInvalidScope)
	ErrRateLimited         = New(KindRateLimited, MsgRateLimited)
	ErrUpstreamUnavailable = New(KindUpstreamUnavailable, MsgUpstreamUnavailable)
	ErrNotFound            = New(KindNotFound, MsgNotFound)
	ErrInternal            = New(KindInternal, MsgInternal)
	ErrInvalidClient       = &Envelope{Kind: KindInternal, Reason: "invalid-client", Code: CodeInvalidClient, Status: http.StatusInternalServerError, Message: MsgInternal}
)

// New builds an envelope with the default code and status of kind.
func New(kind Kind, message string) *Envelope {
	code, status := defaults(kind)
	return &Envelope{Kind: kind, Code: code, Status: status, Message: message}
}

// NewConflict builds a Conflict envelope for one of the conflict reasons.
func NewConflict(reason string) *Envelope {
	e := &Envelope{Kind: KindConflict, Reason: reason, Status: http.StatusBadRequest}
	switch reason {
	case ReasonDuplicatePhone:
		e.Code, e.Message = CodeDuplicatePhone, MsgDuplicatePhone
	default:
		e.Code, e.Message = CodeDuplicateEmail, MsgDuplicateEmail
	}
	return e
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *Envelope {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// Internalf builds an Internal envelope. The formatted text is kept as Detail.
func Internalf(format string, args ...any) *Envelope {
	return New(KindInternal, MsgInternal).WithDetail(fmt.Sprintf(format, args...))
}

func defaults(kind Kind) (code, status int) {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest, http.StatusBadRequest
	case KindConflict:
		return CodeDuplicateEmail, http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized, http.StatusUnauthorized
	case KindMfaRequired:
		return CodeMfaRequired, http.StatusUnauthorized
	case KindInvalidMfaCode:
		return CodeInvalidMfaCode, http.StatusBadRequest
	case KindInvalidGrant:
		return CodeInvalidGrant, http.StatusUnauthorized
	case KindInvalidScope:
		return CodeInvalidScope, http.StatusForbidden
	case KindRateLimited:
		return CodeRateLimited, http.StatusTooManyRequests
	case KindUpstreamUnavailable:
		return CodeUpstreamUnavailable, http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound, http.StatusNotFound
	default:
		return http.StatusInternalServerError, http.StatusInternalServerError
	}
}

// From returns the envelope in err's chain, or wraps err as Internal.
func From(err error) *Envelope {
	if err == nil {
		return nil
	}
	var env *Envelope
	if errors.As(err, &env) {
		return env
	}
	return ErrInternal.WithCause(err)
}

// KindOf returns the kind of err, Internal for foreign errors.
func KindOf(err error) Kind {
	if env := From(err); env != nil {
		return env.Kind
	}
	return ""
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
