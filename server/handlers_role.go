package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-auth-bff/oauthmodel"
)

func (s *Server) AddRoleHandler() http.HandlerFunc {
	return s.roleHandler(s.backend.Roles.AddRole)
}

func (s *Server) RemoveRoleHandler() http.HandlerFunc {
	return s.roleHandler(s.backend.Roles.RemoveRole)
}

func (s *Server) roleHandler(change func(context.Context, oauthmodel.UserRole) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauthmodel.UserRole
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		msg, err := change(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, msg)
	}
}
