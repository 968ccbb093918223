// Package admin wraps the admin API endpoints used by the client: promo
// codes, system settings and authentication.
package admin

import (
	"context"
	"net/url"

	"github.com/Sternrassler/admin-api-client/pkg/client"
)

// Caller issues decoded admin API calls. *client.Client implements it.
type Caller interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// MessageResponse is returned by endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

// Service groups the endpoint wrappers around one client.
type Service struct {
	Promo    *Promo
	Settings *Settings
	Auth     *Auth
}

// New creates the endpoint wrappers for c.
func New(c *client.Client) *Service {
	return &Service{
		Promo:    NewPromo(c),
		Settings: NewSettings(c),
		Auth:     NewAuth(c, c.Session()),
	}
}
