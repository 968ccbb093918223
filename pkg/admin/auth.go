package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/admin-api-client/pkg/session"
)

const loginPath = "/auth/login"

// ErrNoToken is returned when a login response carries no token.
var ErrNoToken = errors.New("admin: login response without access token")

// LoginRequest holds admin credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the data of a successful login.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type,omitempty"`
	User        json.RawMessage `json:"user,omitempty"`
}

// Auth logs the session in and out.
type Auth struct {
	api     Caller
	session *session.Context
}

// NewAuth creates the auth endpoints; successful logins are stored in sess.
func NewAuth(api Caller, sess *session.Context) *Auth {
	return &Auth{api: api, session: sess}
}

// Login authenticates and stores the token and user in the session.
func (a *Auth) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := a.api.Post(ctx, loginPath, LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if out.AccessToken == "" {
		return nil, ErrNoToken
	}
	if err := a.session.Login(ctx, out.AccessToken, out.User); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &out, nil
}

// Logout clears the session. The server keeps no session state.
func (a *Auth) Logout(ctx context.Context) error {
	return a.session.Logout(ctx)
}
