package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = a.v.GetString("auth.password")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or ADMIN_AUTH_PASSWORD) are required")
			}

			resp, err := a.api.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.logger.Info().Str("email", email).Msg("Logged in")

			if a.jsonOutput() {
				return a.printJSON(resp)
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

type statusView struct {
	Authenticated       bool   `json:"authenticated"`
	SessionExpired      bool   `json:"session_expired"`
	Locale              string `json:"locale"`
	Timezone            string `json:"timezone"`
	OpsMonitoring       bool   `json:"ops_monitoring_enabled"`
	OpsRealtime         bool   `json:"ops_realtime_monitoring_enabled"`
	OpsQueryModeDefault string `json:"ops_query_mode_default"`
}

func (a *app) status(expired bool) statusView {
	snap := a.session.Snapshot()
	return statusView{
		Authenticated:       snap.Authenticated(),
		SessionExpired:      expired,
		Locale:              snap.Locale,
		Timezone:            snap.Timezone,
		OpsMonitoring:       a.flags.OpsMonitoringEnabled(),
		OpsRealtime:         a.flags.OpsRealtimeMonitoringEnabled(),
		OpsQueryModeDefault: a.flags.OpsQueryModeDefault(),
	}
}

func (a *app) printStatus(s statusView) error {
	if a.jsonOutput() {
		return a.printJSON(s)
	}
	return a.printTable([]string{"KEY", "VALUE"}, [][]string{
		{"authenticated", fmt.Sprint(s.Authenticated)},
		{"session_expired", fmt.Sprint(s.SessionExpired)},
		{"locale", s.Locale},
		{"timezone", s.Timezone},
		{"ops_monitoring_enabled", fmt.Sprint(s.OpsMonitoring)},
		{"ops_realtime_monitoring_enabled", fmt.Sprint(s.OpsRealtime)},
		{"ops_query_mode_default", s.OpsQueryModeDefault},
	})
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session and cached feature flags",
		Long: `Show the session and cached feature flags.

The "session expired" notice left by a rejected request is shown once
and then cleared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printStatus(a.status(a.session.ConsumeExpired(cmd.Context())))
		},
	}
}

func newLocaleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locale <code>",
		Short: "Set the preferred response language (en, zh-Hans, zh-Hant)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.SetLocale(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Locale set to %s\n", a.session.Locale())
			return nil
		},
	}
}

func newSettingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Refresh feature flags from the server settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.flags.Refresh(cmd.Context(), a.api.Settings, true); err != nil {
				return err
			}
			return a.printStatus(a.status(false))
		},
	}
}
