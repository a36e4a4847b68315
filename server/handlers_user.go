package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/token/jwt"
)

type userUpdate struct {
	oauthmodel.UserInfo
}

func (userUpdate) Validate() error { return nil }

func (s *Server) UserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFrom(r.Context())
		if !ok {
			writeError(w, r, apperrors.ErrUnauthorized)
			return
		}
		info, err := s.backend.Users.User(r.Context(), sess.AccessToken)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeResult(w, msgUserRead, info)
	}
}

func (s *Server) UpdateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFrom(r.Context())
		if !ok {
			writeError(w, r, apperrors.ErrUnauthorized)
			return
		}
		var req userUpdate
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		idToken, err := sessionIDToken(sess)
		if err != nil {
			writeError(w, r, err)
			return
		}
		msg, err := s.backend.Users.UpdateUser(r.Context(), idToken, req.UserInfo)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, msg)
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFrom(r.Context())
		if !ok {
			writeError(w, r, apperrors.ErrUnauthorized)
			return
		}
		var req oauthmodel.ChangePassword
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		idToken, err := sessionIDToken(sess)
		if err != nil {
			writeError(w, r, err)
			return
		}
		msg, err := s.backend.Users.ChangePassword(r.Context(), idToken, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, msg)
	}
}

// sessionIDToken returns the id token cookie when it names the subject of the
// verified access token. The backend verifies its signature.
func sessionIDToken(sess *Session) (string, error) {
	if sess.IDToken == "" {
		return "", apperrors.ErrUnauthorized.WithDetail("no id token cookie")
	}
	claims, err := jwt.Parse(sess.IDToken)
	if err != nil {
		return "", apperrors.ErrBadCredentials.WithCause(err)
	}
	if sess.Claims == nil || claims.Subject == "" || claims.Subject != sess.Claims.Subject {
		return "", apperrors.ErrBadCredentials.WithDetail("id token subject does not match the access token")
	}
	return sess.IDToken, nil
}
