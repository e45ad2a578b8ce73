package api

import (
	"context"
	"net/http"

	"foodbridge/internal/donation"
)

// Credentials is the login/register result: the authenticated identity and
// its bearer token.
type Credentials struct {
	User  donation.User
	Token string
}

// authResponse tolerates the service's drifting auth payload: the identity
// arrives under "user" or "userResponse", the token under "token" or
// "accessToken".
type authResponse struct {
	Token        string   `json:"token"`
	AccessToken  string   `json:"accessToken"`
	User         *userDTO `json:"user"`
	UserResponse *userDTO `json:"userResponse"`
}

func (r authResponse) toCredentials() Credentials {
	creds := Credentials{Token: r.Token}
	if creds.Token == "" {
		creds.Token = r.AccessToken
	}
	u := r.User
	if u == nil {
		u = r.UserResponse
	}
	if u != nil {
		creds.User = u.toDomain()
	}
	return creds
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &resp); err != nil {
		return Credentials{}, err
	}
	return resp.toCredentials(), nil
}

// Register creates a new account with a fixed role.
func (c *Client) Register(ctx context.Context, name, email, password string, role donation.Role) (Credentials, error) {
	body := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
		"role":     string(role),
	}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, body, &resp); err != nil {
		return Credentials{}, err
	}
	return resp.toCredentials(), nil
}
