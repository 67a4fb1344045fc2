package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/model"
)

// AuthAPI implements auth.Authenticator against the gateway.
type AuthAPI struct{ c *Client }

var _ auth.Authenticator = (*AuthAPI)(nil)

func (a *AuthAPI) Login(ctx context.Context, email, password string) (string, auth.User, error) {
	var resp model.LoginResponse
	err := a.c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/api/v1/auth/login",
		body:   model.LoginRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return "", auth.User{}, err
	}
	return resp.AccessToken, resp.User, nil
}

func (a *AuthAPI) VerifyToken(ctx context.Context, token string) (bool, error) {
	var resp model.VerifyResponse
	err := a.c.do(ctx, request{
		op:     "verify token",
		method: http.MethodGet,
		path:   "/api/v1/auth/verify-token",
		query:  url.Values{"token": {token}},
	}, &resp)
	if IsStatus(err, http.StatusUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.Valid, nil
}

func (a *AuthAPI) Logout(ctx context.Context, token string) error {
	return a.c.do(ctx, request{
		op:     "logout",
		method: http.MethodPost,
		path:   "/api/v1/auth/logout",
		token:  token,
	}, nil)
}

func (a *AuthAPI) Register(ctx context.Context, req model.RegisterRequest) (*auth.User, error) {
	var user auth.User
	err := a.c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/api/v1/users/register",
		body:   req,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
