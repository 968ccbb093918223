package admin

import (
	"context"
	"fmt"

	"github.com/Sternrassler/admin-api-client/pkg/features"
)

const settingsPath = "/admin/settings"

// SystemSettings is the subset of the server settings this client reads.
type SystemSettings struct {
	SiteName                     string `json:"site_name,omitempty"`
	OpsMonitoringEnabled         *bool  `json:"ops_monitoring_enabled,omitempty"`
	OpsRealtimeMonitoringEnabled *bool  `json:"ops_realtime_monitoring_enabled,omitempty"`
	OpsQueryModeDefault          string `json:"ops_query_mode_default,omitempty"`
}

// Settings wraps the system settings endpoint.
type Settings struct {
	api Caller
}

// NewSettings creates the settings endpoint on api.
func NewSettings(api Caller) *Settings {
	return &Settings{api: api}
}

// Get returns the system settings.
func (s *Settings) Get(ctx context.Context) (*SystemSettings, error) {
	var out SystemSettings
	if err := s.api.Get(ctx, settingsPath, nil, &out); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &out, nil
}

// FeatureSettings implements features.SettingsSource.
func (s *Settings) FeatureSettings(ctx context.Context) (*features.Settings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &features.Settings{
		OpsMonitoringEnabled:         settings.OpsMonitoringEnabled,
		OpsRealtimeMonitoringEnabled: settings.OpsRealtimeMonitoringEnabled,
		OpsQueryModeDefault:          settings.OpsQueryModeDefault,
	}, nil
}
