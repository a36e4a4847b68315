package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
)

func writeJSON(w http.ResponseWriter, status int, body oauthmodel.APIResponse) {
	if ew, ok := w.(interface{ markEnvelope() }); ok {
		ew.markEnvelope()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, oauthmodel.APIResponse{Status: http.StatusOK, Data: data})
}

func writeResult(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, http.StatusOK, oauthmodel.APIResponse{Status: http.StatusOK, Message: msg, Data: data})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, oauthmodel.APIResponse{Status: http.StatusOK, Message: msg})
}

// writeError answers with the envelope of err. Internal failures are logged
// with their detail and answered with the generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	env := apperrors.From(err)
	ev := logger.From(r.Context()).Warn()
	if env.Kind == apperrors.KindInternal {
		ev = logger.From(r.Context()).Error()
	}
	ev.Str("kind", string(env.Kind)).
		Str("reason", env.Reason).
		Int("code", env.Code).
		Str("detail", env.Detail).
		Err(env.Err).
		Msg("request failed")

	writeJSON(w, env.Status, oauthmodel.APIResponse{
		Status: env.Code,
		Error:  env.ClientMessage(),
	})
}

// NormalizeErrorsMiddleware turns bare 401, 403 and 404 responses, such as
// the mux's own not found page, into envelopes.
func (s *Server) NormalizeErrorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(&envelopeWriter{ResponseWriter: w, r: r}, r)
	}
}

type envelopeWriter struct {
	http.ResponseWriter
	r         *http.Request
	enveloped bool
	swallow   bool
	written   bool
}

func (ew *envelopeWriter) markEnvelope() {
	ew.enveloped = true
}

func (ew *envelopeWriter) WriteHeader(code int) {
	if ew.written {
		return
	}
	ew.written = true
	if ew.enveloped {
		ew.ResponseWriter.WriteHeader(code)
		return
	}

	var body oauthmodel.APIResponse
	switch code {
	case http.StatusNotFound:
		body = oauthmodel.APIResponse{Status: http.StatusNotFound, Error: apperrors.MsgNotFound}
	case http.StatusUnauthorized:
		msg := apperrors.MsgRequiresAuth
		if presentedCredentials(ew.r) {
			msg = apperrors.MsgBadCredentials
		}
		body = oauthmodel.APIResponse{Status: http.StatusUnauthorized, Error: msg}
	case http.StatusForbidden:
		body = oauthmodel.APIResponse{Status: http.StatusForbidden, Error: apperrors.MsgInvalidScope}
	default:
		ew.ResponseWriter.WriteHeader(code)
		return
	}

	ew.swallow = true
	h := ew.ResponseWriter.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json; charset=utf-8")
	ew.ResponseWriter.WriteHeader(code)
	_ = json.NewEncoder(ew.ResponseWriter).Encode(body)
}

func (ew *envelopeWriter) Write(b []byte) (int, error) {
	if !ew.written {
		ew.WriteHeader(http.StatusOK)
	}
	if ew.swallow {
		return len(b), nil
	}
	return ew.ResponseWriter.Write(b)
}

func (ew *envelopeWriter) Unwrap() http.ResponseWriter {
	return ew.ResponseWriter
}

func presentedCredentials(r *http.Request) bool {
	if r.Header.Get("Authorization") != "" {
		return true
	}
	c, err := r.Cookie(CookieToken)
	return err == nil && c.Value != ""
}
