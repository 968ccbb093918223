// Package pagination holds the list paging model shared by the admin
// endpoints and the table loader, and a parallel fetcher that walks every
// page of a list.
//
// List endpoints take page and page_size query parameters (plus arbitrary
// filter keys) and answer with {items, total, pages}. Missing fields decode
// to their zero values.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher[admin.PromoCode](promoPages, pagination.DefaultConfig())
//	codes, err := fetcher.FetchAll(ctx)
//
// The batch fetcher:
//   - Fetches the first page to learn the page count
//   - Spawns a worker pool (default 4 workers)
//   - Distributes the remaining pages across workers
//   - Returns items in page order, or the first error with the pages it got
package pagination
