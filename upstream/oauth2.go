package upstream

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"golang.org/x/oauth2"
)

// Token runs a golang.org/x/oauth2 token request through the client's HTTP
// client and timeout. Failures are mapped like any other response; the
// *oauth2.RetrieveError stays reachable through errors.As.
func (c *Client) Token(ctx context.Context, operation string, fetch func(ctx context.Context) (*oauth2.Token, error)) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	tok, err := fetch(ctx)
	if err == nil {
		c.observe(ctx, operation, start, "ok")
		return tok, nil
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		c.observe(ctx, operation, start, "error")
		return nil, c.mapError(apperrors.Failure{Status: re.Response.StatusCode, Body: re.Body}).WithCause(re)
	}
	c.observe(ctx, operation, start, "transport_error")
	return nil, apperrors.FromTransport(err)
}
