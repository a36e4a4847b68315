package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
)

const maxRequestBodySize = 64 << 10

// Success messages
const (
	msgSignedUp       = "User signup Successful"
	msgSignedIn       = "User signin Successful"
	msgSignedOut      = "User Logged out"
	msgTokenValidated = "Token Validated"
	msgUserRead       = "Get User Successful"
)

type validator interface {
	Validate() error
}

// decodeBody reads a JSON request body into v and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, v validator) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validationf("request body is required")
		}
		return apperrors.Validationf("invalid request body")
	}
	return v.Validate()
}

type signInResult struct {
	NeedsMFA bool `json:"needsMFA"`
}

// SignUpHandler creates the account and starts its first sign-in.
func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauthmodel.SignUp
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		bundle, err := s.backend.Provider.SignUp(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.session.BindCookies(w, bundle)
		writeResult(w, msgSignedUp, signInResult{NeedsMFA: bundle.NeedsMFA})
	}
}

func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauthmodel.Credentials
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		bundle, err := s.backend.Provider.SignIn(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.session.BindCookies(w, bundle)
		writeResult(w, msgSignedIn, signInResult{NeedsMFA: bundle.NeedsMFA})
	}
}

// VerifyMfaHandler completes a pending sign-in with the one time code. The
// pending challenge comes from the cookies sign-in set.
func (s *Server) VerifyMfaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauthmodel.VerifyChallenge
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		bundle, err := s.backend.Provider.VerifyMfaChallenge(r.Context(), s.session.PendingChallenge(r, req.Otp))
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.session.BindCookies(w, bundle)
		writeResult(w, msgSignedIn, signInResult{NeedsMFA: false})
	}
}

func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauthmodel.ForgotPassword
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		msg, err := s.backend.Provider.ResetPassword(r.Context(), req.Email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, msg)
	}
}

func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uri, err := s.backend.Provider.SignOut(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.session.UnbindCookies(w)
		writeResult(w, msgSignedOut, map[string]string{"redirectUri": uri})
	}
}

type validateTokenResult struct {
	Valid     bool `json:"valid"`
	Refreshed bool `json:"refreshed"`
}

// ValidateTokenHandler answers once RequireAuth accepted (and possibly
// refreshed) the session.
func (s *Server) ValidateTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFrom(r.Context())
		if !ok {
			writeError(w, r, apperrors.ErrUnauthorized)
			return
		}
		writeResult(w, msgTokenValidated, validateTokenResult{Valid: true, Refreshed: sess.Refreshed})
	}
}
