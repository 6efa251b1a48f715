package api

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/bookdrive/internal/client/models"
)

// SignUp registers a new account and keeps the returned token.
func (c *Client) SignUp(ctx context.Context, name, email, password string) (*models.Session, error) {
	var s models.Session
	in := map[string]string{"name": name, "email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signup", in, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

// SignIn authenticates and keeps the returned token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var s models.Session
	in := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signin", in, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

// SignOut revokes the current session. The local token is dropped even if
// the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	defer c.SetToken("")
	return c.doJSON(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
