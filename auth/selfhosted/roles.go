package selfhosted

import (
	"context"

	"github.com/jrsteele09/go-auth-bff/auth"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/upstream"
)

type Roles struct {
	client *upstream.Client
}

var _ auth.RoleManager = (*Roles)(nil)

func NewRoles(client *upstream.Client) *Roles {
	return &Roles{client: client}
}

func (r *Roles) AddRole(ctx context.Context, req oauthmodel.UserRole) (string, error) {
	if err := r.post(ctx, "add_role", pathAddRole, req); err != nil {
		return "", err
	}
	return auth.RoleAddedConfirmation, nil
}

func (r *Roles) RemoveRole(ctx context.Context, req oauthmodel.UserRole) (string, error) {
	if err := r.post(ctx, "remove_role", pathRemoveRole, req); err != nil {
		return "", err
	}
	return auth.RoleRemovedConfirmation, nil
}

func (r *Roles) post(ctx context.Context, op, path string, req oauthmodel.UserRole) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if _, err := r.client.Do(ctx, op, upstream.Request{Path: path, JSON: req}); err != nil {
		return err
	}
	logger.From(ctx).Info().Str("role", req.Role).Str("operation", op).Msg("user role changed")
	return nil
}
