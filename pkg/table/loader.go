// Package table drives paginated, filterable list views: it owns the page
// position and filter params of one view, debounces filter edits, and
// applies only the result of the most recently issued load.
package table

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/admin-api-client/pkg/cancel"
	"github.com/Sternrassler/admin-api-client/pkg/logging"
	"github.com/Sternrassler/admin-api-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for table loads.
var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_table_loads_total",
		Help: "Total table loads by loader and outcome (committed, superseded, canceled, failed)",
	}, []string{"loader", "outcome"})

	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "admin_table_load_duration_seconds",
		Help:    "Duration of committed table loads in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"loader"})
)

// DefaultDebounce is the quiet period of DebouncedReload.
const DefaultDebounce = 300 * time.Millisecond

// ErrClosed is returned by loads issued after Close.
var ErrClosed = errors.New("table: loader closed")

// FetchFunc loads one page. ctx is cancelled as soon as a newer load is
// issued; a result returned anyway is discarded.
type FetchFunc[T, P any] func(ctx context.Context, params P, page, pageSize int) (*pagination.Page[T], error)

// Options configures a Loader.
type Options[P any] struct {
	// InitialParams is the starting filter set.
	InitialParams P
	// PageSize defaults to pagination.DefaultPageSize.
	PageSize int
	// Debounce is the DebouncedReload quiet period; defaults to DefaultDebounce.
	Debounce time.Duration
	// Name labels logs and metrics.
	Name string
	// OnError receives failures of debounced reloads, which have no caller.
	OnError func(error)
}

// Loader is the state machine behind one list view.
type Loader[T, P any] struct {
	fetch    FetchFunc[T, P]
	coord    cancel.Coordinator
	debounce *debouncer
	name     string
	onError  func(error)
	logger   zerolog.Logger

	mu      sync.Mutex
	items   []T
	loading bool
	state   pagination.State
	params  P
	closed  bool
}

// New creates an idle loader. Nothing is fetched until Load.
func New[T, P any](fetch FetchFunc[T, P], opts Options[P]) *Loader[T, P] {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Name == "" {
		opts.Name = "table"
	}

	return &Loader[T, P]{
		fetch:    fetch,
		debounce: newDebouncer(opts.Debounce),
		name:     opts.Name,
		onError:  opts.OnError,
		logger:   logging.NewLogger("table").With().Str("loader", opts.Name).Logger(),
		items:    []T{},
		state:    pagination.NewState(opts.PageSize),
		params:   opts.InitialParams,
	}
}

// Items returns a copy of the committed items.
func (l *Loader[T, P]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Loading reports whether the latest load is still in flight.
func (l *Loader[T, P]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Pagination returns the current page position and the committed totals.
func (l *Loader[T, P]) Pagination() pagination.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Params returns the current filter params.
func (l *Loader[T, P]) Params() P {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

// SetParams replaces the filter params. It does not load.
func (l *Loader[T, P]) SetParams(params P) {
	l.mu.Lock()
	l.params = params
	l.mu.Unlock()
}

// UpdateParams edits the filter params in place. It does not load.
func (l *Loader[T, P]) UpdateParams(fn func(*P)) {
	l.mu.Lock()
	fn(&l.params)
	l.mu.Unlock()
}

// Load fetches the current page, superseding any load still in flight.
// Only the latest load commits; superseded and cancelled loads return nil
// without touching state. Other failures reset the loading flag and are
// returned.
func (l *Loader[T, P]) Load(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	token := l.coord.Next(ctx)
	l.loading = true
	params, page, pageSize := l.params, l.state.Page, l.state.PageSize
	l.mu.Unlock()

	start := time.Now()
	result, err := l.fetch(token.Context(), params, page, pageSize)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || token.IsSuperseded() {
		loadsTotal.WithLabelValues(l.name, "superseded").Inc()
		l.logger.Debug().Int("page", page).Msg("Discarding superseded load")
		return nil
	}
	l.coord.Release(token)
	l.loading = false

	if err != nil {
		if errors.Is(err, context.Canceled) {
			loadsTotal.WithLabelValues(l.name, "canceled").Inc()
			l.logger.Debug().Int("page", page).Msg("Load canceled")
			return nil
		}
		loadsTotal.WithLabelValues(l.name, "failed").Inc()
		return err
	}

	l.commit(result)
	loadsTotal.WithLabelValues(l.name, "committed").Inc()
	loadDuration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
	return nil
}

// commit applies a page. Callers must hold l.mu.
func (l *Loader[T, P]) commit(result *pagination.Page[T]) {
	if result == nil {
		result = &pagination.Page[T]{}
	}
	items := result.Items
	if items == nil {
		items = []T{}
	}
	l.items = items
	l.state.Total = result.Total
	l.state.Pages = result.Pages
}

// Reload goes back to page 1 and loads. Use it whenever the filters change.
func (l *Loader[T, P]) Reload(ctx context.Context) error {
	l.mu.Lock()
	l.state.Page = 1
	l.mu.Unlock()
	return l.Load(ctx)
}

// DebouncedReload schedules a Reload after the quiet period. Calls within
// the period replace each other; only the last fires, using the params
// current at that moment. Failures go to Options.OnError.
func (l *Loader[T, P]) DebouncedReload() {
	l.debounce.Trigger(func() {
		err := l.Reload(context.Background())
		if err == nil || errors.Is(err, ErrClosed) {
			return
		}
		l.logger.Warn().Err(err).Msg("Debounced reload failed")
		if l.onError != nil {
			l.onError(err)
		}
	})
}

// HandlePageChange moves to page p, clamped into [1, max(pages, 1)], and
// loads.
func (l *Loader[T, P]) HandlePageChange(ctx context.Context, p int) error {
	l.mu.Lock()
	l.state.Page = pagination.ClampPage(p, l.state.Pages)
	l.mu.Unlock()
	return l.Load(ctx)
}

// HandlePageSizeChange sets the page size, goes back to page 1 and loads.
func (l *Loader[T, P]) HandlePageSizeChange(ctx context.Context, size int) error {
	if size < 1 {
		size = pagination.DefaultPageSize
	}
	l.mu.Lock()
	l.state.PageSize = size
	l.state.Page = 1
	l.mu.Unlock()
	return l.Load(ctx)
}

// Close cancels the in-flight load and any pending debounced reload. No
// state changes after Close returns.
func (l *Loader[T, P]) Close() {
	l.debounce.Stop()

	l.mu.Lock()
	l.closed = true
	l.loading = false
	l.mu.Unlock()

	l.coord.Stop()
}
