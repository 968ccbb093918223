// Package navigation abstracts the UI location the HTTP pipeline inspects
// and redirects when the session expires or a feature is switched off.
package navigation

import (
	"strings"
	"sync"
)

// Well-known locations.
const (
	LoginPath       = "/login"
	OpsSectionPath  = "/admin/ops"
	OpsFallbackPath = "/admin/settings"
)

// Navigator exposes the current location and performs redirects.
type Navigator interface {
	Location() string
	Redirect(path string)
}

// OnLogin reports whether location is the login screen.
func OnLogin(location string) bool {
	return strings.Contains(location, LoginPath)
}

// InSection reports whether location lies under section.
func InSection(location, section string) bool {
	return strings.HasPrefix(location, section)
}

// Router is an in-memory Navigator. It records every redirect and can
// notify a hook, which lets headless front-ends (CLI, tests) react.
type Router struct {
	mu        sync.Mutex
	location  string
	redirects []string
	onChange  func(from, to string)
}

// NewRouter creates a router positioned at start.
func NewRouter(start string) *Router {
	return &Router{location: start}
}

// OnRedirect installs a hook called after every Redirect.
func (r *Router) OnRedirect(fn func(from, to string)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Location returns the current location.
func (r *Router) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

// Navigate moves to path without counting as a redirect (user navigation).
func (r *Router) Navigate(path string) {
	r.mu.Lock()
	r.location = path
	r.mu.Unlock()
}

// Redirect moves to path and records it.
func (r *Router) Redirect(path string) {
	r.mu.Lock()
	from := r.location
	r.location = path
	r.redirects = append(r.redirects, path)
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook(from, path)
	}
}

// Redirects returns the redirect history, oldest first.
func (r *Router) Redirects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.redirects))
	copy(out, r.redirects)
	return out
}
