// Package session holds the authenticated session and the locale/timezone
// preferences that every outgoing request carries.
//
// The session is shared by all in-flight requests. Readers take one
// immutable Snapshot per request, so a request never observes a token from
// one session combined with a locale from another, even while a 401 handler
// is clearing the session concurrently. Mutations happen only through
// Login, Logout, Expire and the preference setters.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/admin-api-client/pkg/logging"
	"github.com/Sternrassler/admin-api-client/pkg/store"
	"github.com/rs/zerolog"
)

// DefaultLocale is used when no valid locale preference is stored.
const DefaultLocale = "en"

// ValidLocales lists the locales the backend translates into.
var ValidLocales = []string{"en", "zh-Hans", "zh-Hant"}

// ErrInvalidLocale is returned by SetLocale for unsupported locales.
var ErrInvalidLocale = errors.New("session: unsupported locale")

// expiredMarker is the value of the one-shot "session expired" flag.
const expiredMarker = "1"

// Snapshot is an immutable view of the session at one point in time.
type Snapshot struct {
	Token    string
	User     json.RawMessage
	Locale   string
	Timezone string
}

// Authenticated reports whether the snapshot carries a token.
func (s Snapshot) Authenticated() bool {
	return s.Token != ""
}

// Config holds session preferences that do not come from the store.
type Config struct {
	// Timezone is an IANA zone name. Empty means the process timezone.
	Timezone string
}

// Context is the process-wide session.
type Context struct {
	store  store.Store
	mu     sync.Mutex // serializes writers; readers never lock
	state  atomic.Pointer[Snapshot]
	logger zerolog.Logger
}

// New loads the persisted session from st.
func New(ctx context.Context, st store.Store, cfg Config) *Context {
	c := &Context{
		store:  st,
		logger: logging.NewLogger("session"),
	}

	snap := &Snapshot{
		Token:    store.GetString(ctx, st, store.KeyAuthToken, ""),
		Locale:   c.loadLocale(ctx),
		Timezone: ResolveTimezone(cfg.Timezone),
	}
	if user := store.GetString(ctx, st, store.KeyAuthUser, ""); user != "" && json.Valid([]byte(user)) {
		snap.User = json.RawMessage(user)
	}
	c.state.Store(snap)

	c.logger.Debug().
		Bool("authenticated", snap.Authenticated()).
		Str("locale", snap.Locale).
		Str("timezone", snap.Timezone).
		Msg("Session loaded")

	return c
}

func (c *Context) loadLocale(ctx context.Context) string {
	saved := store.GetString(ctx, c.store, store.KeyLocale, "")
	locale, ok := NormalizeLocale(saved)
	if !ok {
		return DefaultLocale
	}
	if locale != saved {
		// Legacy value: rewrite it so the migration runs once.
		if err := c.store.Set(ctx, store.KeyLocale, locale); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to migrate stored locale")
		}
	}
	return locale
}

// Snapshot returns the current session state. It is safe to call from any
// goroutine and never blocks.
func (c *Context) Snapshot() Snapshot {
	return *c.state.Load()
}

// Token returns the current bearer token ("" when logged out).
func (c *Context) Token() string {
	return c.state.Load().Token
}

// Locale returns the current locale.
func (c *Context) Locale() string {
	return c.state.Load().Locale
}

// Timezone returns the current IANA timezone name.
func (c *Context) Timezone() string {
	return c.state.Load().Timezone
}

// update applies fn to a copy of the current state and publishes it.
// Callers must hold c.mu.
func (c *Context) update(fn func(*Snapshot)) {
	next := *c.state.Load()
	fn(&next)
	c.state.Store(&next)
}

// Login stores a token and the user profile returned by the login endpoint.
// The session is persisted first; if that fails the in-memory session is
// left unchanged.
func (c *Context) Login(ctx context.Context, token string, user json.RawMessage) error {
	if token == "" {
		return fmt.Errorf("session: token is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(ctx, store.KeyAuthToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if len(user) > 0 {
		if err := c.store.Set(ctx, store.KeyAuthUser, string(user)); err != nil {
			return fmt.Errorf("persist user: %w", err)
		}
	} else if err := c.store.Delete(ctx, store.KeyAuthUser); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}

	c.update(func(s *Snapshot) {
		s.Token = token
		s.User = user
	})

	c.logger.Info().Msg("Session started")
	return nil
}

// Logout clears the token and cached user.
func (c *Context) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.clear(ctx); err != nil {
		return err
	}

	c.logger.Info().Msg("Session ended")
	return nil
}

// Expire records that the session was rejected by the server, so the next
// screen can tell the user, and then clears the session. Storage failures
// are logged; the in-memory session is cleared regardless.
func (c *Context) Expire(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if err := c.store.Set(ctx, store.KeyAuthExpired, expiredMarker); err != nil {
		errs = append(errs, fmt.Errorf("persist expired flag: %w", err))
	}
	if err := c.clear(ctx); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Session expiry not fully persisted")
	} else {
		c.logger.Warn().Msg("Session expired")
	}
	return err
}

// clear drops token and user. Callers must hold c.mu.
func (c *Context) clear(ctx context.Context) error {
	c.update(func(s *Snapshot) {
		s.Token = ""
		s.User = nil
	})

	if err := c.store.Delete(ctx, store.KeyAuthToken); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	if err := c.store.Delete(ctx, store.KeyAuthUser); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	return nil
}

// ConsumeExpired reports whether the session expired since the last call,
// and resets the flag.
func (c *Context) ConsumeExpired(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.store.Get(ctx, store.KeyAuthExpired)
	if err != nil {
		return false
	}
	if err := c.store.Delete(ctx, store.KeyAuthExpired); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to reset expired flag")
	}
	return raw == expiredMarker
}

// SetLocale changes the locale preference and persists it.
func (c *Context) SetLocale(ctx context.Context, locale string) error {
	normalized, ok := NormalizeLocale(locale)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.update(func(s *Snapshot) { s.Locale = normalized })

	if err := c.store.Set(ctx, store.KeyLocale, normalized); err != nil {
		return fmt.Errorf("persist locale: %w", err)
	}
	return nil
}

// SetTimezone changes the timezone. Unknown zones resolve to UTC.
func (c *Context) SetTimezone(name string) string {
	resolved := ResolveTimezone(name)

	c.mu.Lock()
	c.update(func(s *Snapshot) { s.Timezone = resolved })
	c.mu.Unlock()

	return resolved
}

// NormalizeLocale validates locale, mapping the legacy "zh" to "zh-Hans".
func NormalizeLocale(locale string) (string, bool) {
	if locale == "zh" {
		return "zh-Hans", true
	}
	if slices.Contains(ValidLocales, locale) {
		return locale, true
	}
	return "", false
}

// localtimePath is the host zone link; the zone name is the part of its
// target after "zoneinfo/".
var localtimePath = "/etc/localtime"

// ResolveTimezone returns name if it is a loadable IANA zone. An empty name
// means the process timezone (TZ, then the host zone). Anything that cannot
// be resolved yields "UTC".
func ResolveTimezone(name string) string {
	if name == "" {
		name = strings.TrimPrefix(os.Getenv("TZ"), ":")
	}
	if name == "" {
		name = hostZone()
	}
	if name == "" || name == "Local" {
		return "UTC"
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "UTC"
	}
	return name
}

// hostZone names the zone /etc/localtime links to. time.Local always
// reports "Local", so the name has to come from the link target.
func hostZone() string {
	target, err := os.Readlink(localtimePath)
	if err != nil {
		return ""
	}
	_, zone, ok := strings.Cut(filepath.ToSlash(target), "zoneinfo/")
	if !ok {
		return ""
	}
	return zone
}
