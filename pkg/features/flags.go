// Package features keeps the client-side view of server feature toggles.
//
// Values are cached in the store so a fresh process starts with the last
// known state instead of flickering to defaults. The HTTP pipeline flips
// ops monitoring off when the server answers with the feature-disabled
// sentinel; interested subsystems learn about it through Subscribe.
package features

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/admin-api-client/pkg/logging"
	"github.com/Sternrassler/admin-api-client/pkg/store"
	"github.com/rs/zerolog"
)

// EventOpsMonitoringDisabled is published when the server reports ops
// monitoring as disabled.
const EventOpsMonitoringDisabled = "ops-monitoring-disabled"

// DefaultQueryMode is the ops query mode used until the server says otherwise.
const DefaultQueryMode = "auto"

// Event is delivered to subscribers.
type Event struct {
	Name string
}

// Settings is the feature-relevant subset of the server settings. Nil
// booleans mean "not reported" and default to enabled.
type Settings struct {
	OpsMonitoringEnabled         *bool
	OpsRealtimeMonitoringEnabled *bool
	OpsQueryModeDefault          string
}

// SettingsSource fetches Settings from the server.
type SettingsSource interface {
	FeatureSettings(ctx context.Context) (*Settings, error)
}

// Flags is the process-wide feature flag cache.
type Flags struct {
	store  store.Store
	logger zerolog.Logger

	mu          sync.RWMutex
	opsEnabled  bool
	opsRealtime bool
	queryMode   string
	loaded      bool
	loading     bool

	subsMu sync.Mutex
	subs   map[uint64]func(Event)
	nextID uint64
}

// New creates Flags seeded from the values cached in st.
func New(ctx context.Context, st store.Store) *Flags {
	return &Flags{
		store:       st,
		logger:      logging.NewLogger("features"),
		opsEnabled:  store.GetBool(ctx, st, store.KeyOpsMonitoringEnabled, true),
		opsRealtime: store.GetBool(ctx, st, store.KeyOpsRealtimeMonitoringEnabled, true),
		queryMode:   store.GetString(ctx, st, store.KeyOpsQueryModeDefault, DefaultQueryMode),
		subs:        make(map[uint64]func(Event)),
	}
}

func (f *Flags) OpsMonitoringEnabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.opsEnabled
}

func (f *Flags) OpsRealtimeMonitoringEnabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.opsRealtime
}

func (f *Flags) OpsQueryModeDefault() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.queryMode
}

// Loaded reports whether the flags were refreshed or set in this process.
func (f *Flags) Loaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loaded
}

// SetOpsMonitoringEnabled updates the flag locally and caches it.
func (f *Flags) SetOpsMonitoringEnabled(ctx context.Context, enabled bool) {
	f.mu.Lock()
	f.opsEnabled = enabled
	f.loaded = true
	f.mu.Unlock()

	f.persistBool(ctx, store.KeyOpsMonitoringEnabled, enabled)
}

// SetOpsRealtimeMonitoringEnabled updates the flag locally and caches it.
func (f *Flags) SetOpsRealtimeMonitoringEnabled(ctx context.Context, enabled bool) {
	f.mu.Lock()
	f.opsRealtime = enabled
	f.loaded = true
	f.mu.Unlock()

	f.persistBool(ctx, store.KeyOpsRealtimeMonitoringEnabled, enabled)
}

// SetOpsQueryModeDefault updates the default query mode ("" means auto).
func (f *Flags) SetOpsQueryModeDefault(ctx context.Context, mode string) {
	if mode == "" {
		mode = DefaultQueryMode
	}

	f.mu.Lock()
	f.queryMode = mode
	f.loaded = true
	f.mu.Unlock()

	if err := f.store.Set(ctx, store.KeyOpsQueryModeDefault, mode); err != nil {
		f.logger.Warn().Err(err).Str("key", store.KeyOpsQueryModeDefault).Msg("Failed to cache feature setting")
	}
}

// DisableOpsMonitoring turns ops monitoring off, caches "false" and
// notifies subscribers once.
func (f *Flags) DisableOpsMonitoring(ctx context.Context) {
	f.SetOpsMonitoringEnabled(ctx, false)

	f.logger.Warn().Msg("Ops monitoring disabled by server")
	f.publish(Event{Name: EventOpsMonitoringDisabled})
}

func (f *Flags) persistBool(ctx context.Context, key string, value bool) {
	if err := store.SetBool(ctx, f.store, key, value); err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache feature flag")
	}
}

// Subscribe registers fn for flag events. The returned function removes it.
// fn runs on the goroutine that triggered the event and must not block.
func (f *Flags) Subscribe(fn func(Event)) (unsubscribe func()) {
	f.subsMu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.subsMu.Lock()
			delete(f.subs, id)
			f.subsMu.Unlock()
		})
	}
}

func (f *Flags) publish(ev Event) {
	f.subsMu.Lock()
	handlers := make([]func(Event), 0, len(f.subs))
	for _, fn := range f.subs {
		handlers = append(handlers, fn)
	}
	f.subsMu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Refresh loads the flags from src. Without force it is a no-op once the
// flags are loaded, and concurrent refreshes collapse into the running one.
// On failure the cached values are kept and the flags count as loaded, so
// a transient error does not flip the UI.
func (f *Flags) Refresh(ctx context.Context, src SettingsSource, force bool) error {
	f.mu.Lock()
	if (f.loaded && !force) || f.loading {
		f.mu.Unlock()
		return nil
	}
	f.loading = true
	f.mu.Unlock()

	settings, err := src.FeatureSettings(ctx)

	if err != nil {
		f.mu.Lock()
		f.loading = false
		f.loaded = true
		f.mu.Unlock()
		f.logger.Error().Err(err).Msg("Failed to fetch settings, keeping cached flags")
		return fmt.Errorf("refresh feature flags: %w", err)
	}
	if settings == nil {
		settings = &Settings{}
	}

	f.SetOpsMonitoringEnabled(ctx, boolOr(settings.OpsMonitoringEnabled, true))
	f.SetOpsRealtimeMonitoringEnabled(ctx, boolOr(settings.OpsRealtimeMonitoringEnabled, true))
	f.SetOpsQueryModeDefault(ctx, settings.OpsQueryModeDefault)

	f.mu.Lock()
	f.loading = false
	f.mu.Unlock()

	f.logger.Info().
		Bool("ops_monitoring_enabled", f.OpsMonitoringEnabled()).
		Bool("ops_realtime_monitoring_enabled", f.OpsRealtimeMonitoringEnabled()).
		Str("ops_query_mode_default", f.OpsQueryModeDefault()).
		Msg("Feature flags refreshed")
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
