package interfaces

import (
	"time"

	"pe-tracker/src/models"
)

// -----------------------------------------------------------------------------
// IStockStore defines the contract for storage operations.
//
// Two persisted views share the ticker key but have independent lifecycles:
// the latest-snapshot cache (one mutable row per ticker, upsert semantics)
// and the historical series (append-only, never mutated).
// -----------------------------------------------------------------------------

type IStockStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------
	// Latest-snapshot cache (stock_cache)
	// -----------------------------------------------------------------------------

	// GetCacheEntry returns the cached row for a ticker, or nil when absent.
	GetCacheEntry(ticker string) (*models.MStockCacheEntry, error)

	// -----------------------------------------------------------------------------

	// UpsertCacheEntry inserts or updates the row for snap.Ticker and advances
	// last_updated to now. Fields the snapshot leaves nil keep their previous
	// value; a partial provider response never erases known data.
	UpsertCacheEntry(snap models.MStockSnapshot, now time.Time) (*models.MStockCacheEntry, error)

	// -----------------------------------------------------------------------------

	// RegisterCacheEntry inserts a metric-less row with the given last_updated
	// iff no row exists for the ticker. Returns true when a row was created.
	RegisterCacheEntry(ticker string, companyName *string, lastUpdated time.Time) (bool, error)

	// -----------------------------------------------------------------------------

	// ToggleFavorite flips the favorite flag and returns the new value.
	// Returns a NotFoundError when the ticker has no cache row; no row is
	// created as a side effect.
	ToggleFavorite(ticker string) (bool, error)

	// -----------------------------------------------------------------------------

	// ListCachePage returns one ticker-ascending page of the cache. A non-empty
	// filter matches a case-insensitive substring of ticker or company name.
	ListCachePage(filter string, page, perPage int) (*models.MPageResult, error)

	// -----------------------------------------------------------------------------

	// ListFavorites returns all favorite rows, ticker ascending.
	ListFavorites() ([]models.MStockCacheEntry, error)

	// -----------------------------------------------------------------------------
	// Historical series (stock_history)
	// -----------------------------------------------------------------------------

	// AppendHistory always inserts a new row; existing rows are never touched.
	AppendHistory(snap models.MStockSnapshot, timestamp time.Time) (*models.MHistoricalRecord, error)

	// -----------------------------------------------------------------------------

	// QueryHistory returns the `limit` most recent records for a ticker in
	// ascending timestamp order.
	QueryHistory(ticker string, limit int) ([]models.MHistoricalRecord, error)

	// -----------------------------------------------------------------------------

	// LatestHistory returns the most recent historical record per requested
	// ticker; tickers with no history are omitted.
	LatestHistory(tickers []string) (map[string]models.MHistoricalRecord, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
