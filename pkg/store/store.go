// Package store persists the small set of process-wide client values
// (session token, cached user, locale, feature flag caches) in a key/value
// backend. Values are plain strings; booleans are stored as "true"/"false".
package store

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested key is not present.
var ErrNotFound = errors.New("store: key not found")

// Persisted keys.
const (
	KeyAuthToken   = "auth_token"
	KeyAuthUser    = "auth_user"
	KeyAuthExpired = "auth_expired"
	KeyLocale      = "sub2api_locale"

	KeyOpsMonitoringEnabled         = "ops_monitoring_enabled_cached"
	KeyOpsRealtimeMonitoringEnabled = "ops_realtime_monitoring_enabled_cached"
	KeyOpsQueryModeDefault          = "ops_query_mode_default_cached"
)

// Store is a string key/value store.
type Store interface {
	// Get returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// GetBool reads a cached boolean. Anything other than "true" or "false",
// including read failures, yields def.
func GetBool(ctx context.Context, s Store, key string, def bool) bool {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	default:
		return def
	}
}

// SetBool writes a boolean as "true" or "false".
func SetBool(ctx context.Context, s Store, key string, value bool) error {
	if value {
		return s.Set(ctx, key, "true")
	}
	return s.Set(ctx, key, "false")
}

// GetString reads a non-empty string or returns def.
func GetString(ctx context.Context, s Store, key, def string) string {
	raw, err := s.Get(ctx, key)
	if err != nil || raw == "" {
		return def
	}
	return raw
}
