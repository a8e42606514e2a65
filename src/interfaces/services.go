package interfaces

import "pe-tracker/src/models"

// -----------------------------------------------------------------------------
// IStockTracker is the boundary the route layer calls into. These are the
// only operations the server may use; ticker and pagination validation
// happens on the caller's side of this line.
// -----------------------------------------------------------------------------

type IStockTracker interface {

	// RefreshIfStale returns the cached entry when fresh, otherwise refetches.
	// A failed fetch falls back to the stale entry when one exists; a ticker
	// that was never fetched surfaces helpers.ErrNotAvailable.
	RefreshIfStale(ticker string) (*models.MStockCacheEntry, error)

	// -----------------------------------------------------------------------------

	// UpdateTracked fetches every ticker in order, appending to the historical
	// series on success. One ticker's failure never aborts the batch.
	UpdateTracked(tickers []string, threshold float64) []models.MHistoricalRecord

	// -----------------------------------------------------------------------------

	// Browse returns one page of the cache listing, optionally filtered and
	// optionally refreshed entry-by-entry for the returned page only.
	Browse(filter string, page, perPage int, fetchFresh bool) (*models.MPageResult, error)

	// -----------------------------------------------------------------------------

	// History returns the most recent `limit` records, oldest first.
	History(ticker string, limit int) ([]models.MHistoricalRecord, error)

	// -----------------------------------------------------------------------------

	// ToggleFavorite flips the favorite flag for a cached ticker.
	ToggleFavorite(ticker string) (bool, error)

	// -----------------------------------------------------------------------------

	// LatestTracked returns the newest historical record per tracked ticker.
	LatestTracked() (map[string]models.MHistoricalRecord, error)

	// -----------------------------------------------------------------------------

	// Favorites returns all favorite cache rows.
	Favorites() ([]models.MStockCacheEntry, error)
}

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing data with external
// systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// Broadcast pushes a tracker update to connected listeners.
	Broadcast(update *models.MTrackerUpdate)

	// -----------------------------------------------------------------------------

	// Start the server
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully
	Stop() error
}
