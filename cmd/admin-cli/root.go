package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Sternrassler/admin-api-client/internal/config"
	"github.com/Sternrassler/admin-api-client/pkg/admin"
	"github.com/Sternrassler/admin-api-client/pkg/client"
	"github.com/Sternrassler/admin-api-client/pkg/features"
	"github.com/Sternrassler/admin-api-client/pkg/logging"
	"github.com/Sternrassler/admin-api-client/pkg/navigation"
	"github.com/Sternrassler/admin-api-client/pkg/session"
	"github.com/Sternrassler/admin-api-client/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by all commands of one invocation.
type app struct {
	cfgFile string
	output  string

	out    io.Writer
	errOut io.Writer

	v       *viper.Viper
	cfg     *config.Config
	logger  zerolog.Logger
	redis   *redis.Client
	store   store.Store
	session *session.Context
	flags   *features.Flags
	router  *navigation.Router
	client  *client.Client
	api     *admin.Service
}

// flagBindings maps persistent flags onto config keys.
var flagBindings = map[string]string{
	"base-url":   "api.base_url",
	"profile":    "session.profile",
	"token":      "session.token",
	"redis-addr": "redis.addr",
	"log-level":  "log.level",
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "admin-cli",
		Short:         "Command-line client for the admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./admin.yaml)")
	pf.StringVarP(&a.output, "output", "o", "table", "output format: table or json")
	pf.String("base-url", "", "admin API base URL")
	pf.String("profile", "", "session profile")
	pf.String("token", "", "access token to use when no session is stored")
	pf.String("redis-addr", "", "Redis address for the shared session store")
	pf.String("log-level", "", "log level (debug, info, warn, error, disabled)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newLocaleCmd(a),
		newSettingsCmd(a),
		newPromoCmd(a),
	)

	return root
}

// setup loads the configuration and wires the client stack.
func (a *app) setup(cmd *cobra.Command) error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	for name, key := range flagBindings {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.v, a.cfg = v, cfg

	a.logger = logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: a.errOut,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := a.openStore(ctx); err != nil {
		return err
	}

	a.session = session.New(ctx, a.store, session.Config{Timezone: cfg.Session.Timezone})
	if cfg.Session.Locale != "" {
		if err := a.session.SetLocale(ctx, cfg.Session.Locale); err != nil {
			return fmt.Errorf("session.locale %q: %w", cfg.Session.Locale, err)
		}
	}
	if cfg.Session.Token != "" && a.session.Token() == "" {
		if err := a.session.Login(ctx, cfg.Session.Token, nil); err != nil {
			return err
		}
	}

	a.flags = features.New(ctx, a.store)
	a.router = navigation.NewRouter("/admin")
	a.router.OnRedirect(a.onRedirect)

	a.client, err = client.New(client.Config{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		Tracing:   cfg.Tracing.Enabled,
	}, a.session, a.flags, a.router)
	if err != nil {
		return err
	}
	a.api = admin.New(a.client)

	return nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.cfg.Redis.Addr == "" {
		a.logger.Debug().Msg("No Redis configured - session kept in memory")
		a.store = store.NewMemory()
		return nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", a.cfg.Redis.Addr, err)
	}
	a.store = store.NewRedis(a.redis, a.cfg.Redis.Namespace, map[string]string{"profile": a.cfg.Session.Profile})
	return nil
}

func (a *app) close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// onRedirect turns navigation requests from the client into hints.
func (a *app) onRedirect(from, to string) {
	switch to {
	case navigation.LoginPath:
		fmt.Fprintln(a.errOut, "Not logged in or session expired. Run `admin-cli login`.")
	case navigation.OpsFallbackPath:
		fmt.Fprintln(a.errOut, "Ops monitoring is disabled on this server.")
	}
}

func (a *app) jsonOutput() bool {
	return a.output == "json"
}
