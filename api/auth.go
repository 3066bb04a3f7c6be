package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/goGate/session"
)

const (
	pathLogin       = "login"
	pathLogout      = "logout"
	pathVerifyToken = "verify_token"
)

// AuthResponse is the body returned by /login and /verify_token.
//
// The API answers either {"user": {...}, "api_token": "..."} or a bare user record that
// carries its own api_token; both decode into the same value.
type AuthResponse struct {
	User  *session.User
	Token string
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *AuthResponse) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		User  json.RawMessage `json:"user"`
		Token string          `json:"api_token"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}

	user := &session.User{}
	body := data
	if len(bytes.TrimSpace(wrapped.User)) > 0 && !bytes.Equal(bytes.TrimSpace(wrapped.User), []byte("null")) {
		body = wrapped.User
	}
	if err := json.Unmarshal(body, user); err != nil {
		return err
	}

	token := wrapped.Token
	if token == "" {
		token = user.APIToken
	}
	user.APIToken = token

	r.User = user
	r.Token = token
	return nil
}

type tokenBody struct {
	APIToken string `json:"api_token"`
}

// Login exchanges credentials for a user record and api token.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, pathLogin, nil, creds, "", &out); err != nil {
		return nil, err
	}
	if err := out.validate(pathLogin); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, tokenBody{APIToken: token}, token, nil)
}

// VerifyToken re-validates token and returns the current user record, so server-side
// capability changes reach the client without a new login.
func (c *Client) VerifyToken(ctx context.Context, token string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, pathVerifyToken, nil, tokenBody{APIToken: token}, token, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		// some deployments only echo the user; the presented token stays valid
		out.Token = token
		if out.User != nil {
			out.User.APIToken = token
		}
	}
	if err := out.validate(pathVerifyToken); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *AuthResponse) validate(op string) error {
	if r.User == nil {
		return errors.Join(ErrInvalidResponse, errors.New(op+": missing user"))
	}
	if r.Token == "" {
		return errors.Join(ErrInvalidResponse, errors.New(op+": missing api_token"))
	}
	return nil
}
