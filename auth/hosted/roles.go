package hosted

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-auth-bff/auth"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/upstream"
)

// Roles assigns management API roles by user email and role name.
type Roles struct {
	client     *upstream.Client
	management TokenSource
}

var _ auth.RoleManager = (*Roles)(nil)

func NewRoles(client *upstream.Client, management TokenSource) *Roles {
	return &Roles{client: client, management: management}
}

func (r *Roles) AddRole(ctx context.Context, req oauthmodel.UserRole) (string, error) {
	if err := r.assign(ctx, http.MethodPost, req); err != nil {
		return "", err
	}
	return auth.RoleAddedConfirmation, nil
}

func (r *Roles) RemoveRole(ctx context.Context, req oauthmodel.UserRole) (string, error) {
	if err := r.assign(ctx, http.MethodDelete, req); err != nil {
		return "", err
	}
	return auth.RoleRemovedConfirmation, nil
}

func (r *Roles) assign(ctx context.Context, method string, req oauthmodel.UserRole) error {
	if err := req.Validate(); err != nil {
		return err
	}
	mgmt, err := r.management.GetToken(ctx)
	if err != nil {
		return err
	}

	userID, err := r.lookupID(ctx, mgmt, "user_by_email", pathUsersByEmail, url.Values{"email": {req.Email}}, "user_id", "")
	if err != nil {
		return err
	}
	roleID, err := r.lookupID(ctx, mgmt, "role_by_name", pathRoles, url.Values{"name_filter": {req.Role}}, "id", req.Role)
	if err != nil {
		return err
	}

	_, err = r.client.Do(ctx, "assign_role", upstream.Request{
		Method: method,
		Path:   pathUsers + "/" + url.PathEscape(userID) + "/roles",
		JSON:   map[string][]string{"roles": {roleID}},
		Bearer: mgmt,
	})
	if err != nil {
		return err
	}
	logger.From(ctx).Info().Str("role", req.Role).Str("method", method).Msg("user role changed")
	return nil
}

// lookupID returns idField of the first listed item. name_filter matches
// substrings, so a non empty name must match the item's name exactly.
func (r *Roles) lookupID(ctx context.Context, mgmt, op, path string, query url.Values, idField, name string) (string, error) {
	resp, err := r.client.Do(ctx, op, upstream.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
		Bearer: mgmt,
	})
	if err != nil {
		return "", err
	}
	var items []map[string]any
	if err := resp.Decode(&items); err != nil {
		return "", err
	}
	for _, item := range items {
		if name != "" && item["name"] != name {
			continue
		}
		if id, ok := item[idField].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", apperrors.ErrNotFound.WithDetail(op + ": no match")
}
