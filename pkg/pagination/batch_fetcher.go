package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	// Admin endpoints are served by a single backend, keep this small.
	MaxConcurrency int
	// PageSize requested per page
	PageSize int
	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns safe default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		PageSize:       100,
		Timeout:        30 * time.Second,
	}
}

// PageFetcher fetches a single page of a list
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, page, pageSize int) (*Page[T], error)
}

// PageFetcherFunc adapts a function to PageFetcher
type PageFetcherFunc[T any] func(ctx context.Context, page, pageSize int) (*Page[T], error)

// FetchPage calls f.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, page, pageSize int) (*Page[T], error) {
	return f(ctx, page, pageSize)
}

// PageResult represents the result of fetching a single page
type PageResult[T any] struct {
	PageNumber int
	Items      []T
	Error      error
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher[T any] struct {
	fetcher PageFetcher[T]
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetcher PageFetcher[T], config Config) *BatchFetcher[T] {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page in parallel using a worker pool and returns
// the items in page order. On a page failure it returns the items of the
// pages fetched so far (still in page order) together with the error.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context) ([]T, error) {
	start := time.Now()

	first, err := bf.fetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	totalPages := first.Pages
	log.Info().
		Int("total_pages", totalPages).
		Int("total_items", first.Total).
		Msg("Starting parallel page fetch")

	// Single page optimization
	if totalPages <= 1 {
		log.Info().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Items, nil
	}

	results := map[int][]T{1: first.Items}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pageQueue := make(chan int, totalPages-1)
	pageResults := make(chan PageResult[T], totalPages-1)

	for page := 2; page <= totalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	workers := bf.config.MaxConcurrency
	if workers > totalPages-1 {
		workers = totalPages - 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(workCtx, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", result.PageNumber, result.Error)
				cancel() // stop handing out further pages
			}
			continue
		}
		results[result.PageNumber] = result.Items
	}

	items := collect(results)

	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("total_pages", totalPages).
			Msg("Page fetch failed - returning partial results")
		return items, fmt.Errorf("partial data (%d/%d pages): %w", len(results), totalPages, firstErr)
	}

	log.Info().
		Int("pages", len(results)).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

func (bf *BatchFetcher[T]) fetchPage(ctx context.Context, page int) (*Page[T], error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	result, err := bf.fetcher.FetchPage(pageCtx, page, bf.config.PageSize)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &Page[T]{}, nil
	}
	return result, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher[T]) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		if ctx.Err() != nil {
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		page, err := bf.fetchPage(ctx, pageNum)
		if err != nil {
			results <- PageResult[T]{PageNumber: pageNum, Error: err}
			return
		}

		results <- PageResult[T]{PageNumber: pageNum, Items: page.Items}
		pagesProcessed++
	}

	log.Debug().
		Int("worker_id", workerID).
		Int("pages_processed", pagesProcessed).
		Msg("Worker completed")
}

func collect[T any](results map[int][]T) []T {
	pages := make([]int, 0, len(results))
	n := 0
	for page, items := range results {
		pages = append(pages, page)
		n += len(items)
	}
	sort.Ints(pages)

	items := make([]T, 0, n)
	for _, page := range pages {
		items = append(items, results[page]...)
	}
	return items
}
