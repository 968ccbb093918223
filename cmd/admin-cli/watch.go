package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/admin-api-client/pkg/admin"
	"github.com/Sternrassler/admin-api-client/pkg/client"
	"github.com/Sternrassler/admin-api-client/pkg/features"
	"github.com/Sternrassler/admin-api-client/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports ready while the session store is reachable. A nil
// client means an in-memory store, which is always ready.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "Redis not available", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func (a *app) metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(a.redis))
	return mux
}

// serveMetrics runs the metrics server until ctx is done.
func (a *app) serveMetrics(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error().Err(err).Msg("Metrics server failed")
	}
}

func newPromoWatchCmd(a *app) *cobra.Command {
	var (
		filters  admin.PromoFilters
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the promo code list and print it on every refresh",
		Long: `Poll the promo code list and print it on every refresh.

When metrics.addr is set, /metrics, /health and /ready are served on it
for as long as the watch runs. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return errors.New("--interval must be > 0")
			}
			ctx := cmd.Context()

			if addr := a.cfg.Metrics.Addr; addr != "" {
				go a.serveMetrics(ctx, addr)
			}

			unsubscribe := a.flags.Subscribe(func(ev features.Event) {
				if ev.Name == features.EventOpsMonitoringDisabled {
					a.logger.Warn().Msg("Server reported ops monitoring as disabled")
				}
			})
			defer unsubscribe()

			loader := a.newPromoLoader(filters)
			defer loader.Close()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				if err := a.watchOnce(ctx, loader.Reload, func() error {
					state := loader.Pagination()
					return a.printPromoCodes(loader.Items(), &state)
				}); err != nil {
					return err
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	addFilterFlags(cmd, &filters)
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "refresh interval")
	return cmd
}

func isUnauthorized(err error) bool {
	apiErr, ok := client.AsAPIError(err)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// watchOnce runs one refresh. Failures other than a 401 are logged and the
// watch continues.
func (a *app) watchOnce(ctx context.Context, reload func(context.Context) error, show func() error) error {
	err := reload(ctx)
	switch {
	case err == nil:
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(a.out, "--- %s\n", time.Now().Format(time.RFC3339))
		return show()
	case isUnauthorized(err):
		return err
	default:
		a.logger.Error().Err(err).Msg("Refresh failed")
		return nil
	}
}
