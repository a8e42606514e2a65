package service

import (
	"strings"
	"time"

	"pe-tracker/src/helpers"
	"pe-tracker/src/interfaces"
	"pe-tracker/src/logger"
	"pe-tracker/src/models"
)

// -----------------------------------------------------------------------------
// StockService
// -----------------------------------------------------------------------------

// StockService owns the cache/refresh policy: it decides per ticker whether
// cached data is fresh enough to serve, throttles provider calls through the
// shared rate limiter, and writes through to the two persisted views. The
// latest cache and the historical series have deliberately separate write
// paths: RefreshIfStale only upserts the cache, UpdateTracked only appends
// history.
type StockService struct {
	Config   *models.MConfig
	Store    interfaces.IStockStore
	Provider interfaces.IQuoteProvider
	Limiter  *helpers.RateLimiter
	Logger   *logger.Logger

	// now is swappable for tests
	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewStockService(cfg *models.MConfig, store interfaces.IStockStore, provider interfaces.IQuoteProvider, limiter *helpers.RateLimiter) *StockService {
	return &StockService{
		Config:   cfg,
		Store:    store,
		Provider: provider,
		Limiter:  limiter,
		Logger:   logger.NewLogger(cfg.LogLevel, "StockService"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// -----------------------------------------------------------------------------

func (s *StockService) stalenessWindow() time.Duration {
	return time.Duration(s.Config.Tracker.StalenessMinutes) * time.Minute
}

// -----------------------------------------------------------------------------

// IsStale reports whether an entry is older than the staleness window.
// An entry exactly one window old is still fresh.
func (s *StockService) IsStale(entry *models.MStockCacheEntry, now time.Time) bool {
	return now.Sub(entry.LastUpdated) > s.stalenessWindow()
}

// -----------------------------------------------------------------------------
// Refresh Orchestration
// -----------------------------------------------------------------------------

// RefreshIfStale serves the cached entry when fresh, otherwise refetches
// through the rate limiter. A failed fetch falls back to the existing stale
// entry when one exists; stale data always beats no data. A ticker with no
// entry and a failed fetch yields helpers.ErrNotAvailable.
func (s *StockService) RefreshIfStale(ticker string) (*models.MStockCacheEntry, error) {
	now := s.now()

	entry, err := s.Store.GetCacheEntry(ticker)
	if err != nil {
		return nil, err
	}

	if entry != nil && !s.IsStale(entry, now) {
		return entry, nil
	}

	s.Limiter.Acquire()
	snap, err := s.Provider.FetchSnapshot(ticker)
	if err != nil {
		if entry != nil {
			s.Logger.Warning("Fetch failed for %s, serving stale cache (age %v): %v",
				ticker, now.Sub(entry.LastUpdated).Round(time.Second), err)
			return entry, nil
		}
		s.Logger.Warning("Fetch failed for %s with no cached fallback: %v", ticker, err)
		return nil, helpers.ErrNotAvailable
	}

	return s.Store.UpsertCacheEntry(*snap, s.now())
}

// -----------------------------------------------------------------------------

// UpdateTracked fetches every ticker in the order supplied, bypassing the
// staleness check (this path runs on a schedule regardless of freshness).
// Successful fetches are appended to the historical series and evaluated
// against the threshold; failures are skipped without aborting the batch.
// Unlike the per-request path this never touches the latest cache.
func (s *StockService) UpdateTracked(tickers []string, threshold float64) []models.MHistoricalRecord {
	var saved []models.MHistoricalRecord

	for _, ticker := range tickers {
		s.Logger.Info("Fetching data for %s...", ticker)

		s.Limiter.Acquire()
		snap, err := s.Provider.FetchSnapshot(ticker)
		if err != nil {
			s.Logger.Warning("Skipping %s: %v", ticker, err)
			continue
		}

		record, err := s.Store.AppendHistory(*snap, s.now())
		if err != nil {
			s.Logger.Error("Failed to save %s: %v", ticker, err)
			continue
		}

		if IsBelowThreshold(snap.PERatio, threshold) {
			s.Logger.Info("ALERT: %s has a P/E ratio of %.2f, below the threshold of %v",
				ticker, *snap.PERatio, threshold)
		}

		saved = append(saved, *record)
	}

	return saved
}

// -----------------------------------------------------------------------------
// Listing / Search
// -----------------------------------------------------------------------------

// Browse returns one page of the cache listing. With fetchFresh, stale
// entries on the returned page (and only that page) are refreshed through
// the orchestrator. A non-empty filter with zero cached matches that looks
// like a ticker triggers a one-off provider lookup, so searching for an
// unseeded symbol still works.
func (s *StockService) Browse(filter string, page, perPage int, fetchFresh bool) (*models.MPageResult, error) {
	result, err := s.Store.ListCachePage(filter, page, perPage)
	if err != nil {
		return nil, err
	}

	if filter != "" && result.Total == 0 {
		if found, miss := s.lookupSearchMiss(filter, perPage); miss == nil && found != nil {
			return found, nil
		}
		return result, nil
	}

	if fetchFresh {
		now := s.now()
		for i := range result.Stocks {
			if !s.IsStale(&result.Stocks[i], now) {
				continue
			}
			refreshed, err := s.RefreshIfStale(result.Stocks[i].Ticker)
			if err != nil {
				continue
			}
			result.Stocks[i] = *refreshed
		}
	}

	return result, nil
}

// -----------------------------------------------------------------------------

// lookupSearchMiss attempts a single provider fetch for a filter that could
// plausibly be a ticker. Only a snapshot carrying a company name is worth
// caching; anything else leaves the empty result standing.
func (s *StockService) lookupSearchMiss(filter string, perPage int) (*models.MPageResult, error) {
	if !isTickerCandidate(filter) {
		return nil, nil
	}

	ticker := strings.ToUpper(filter)

	s.Limiter.Acquire()
	snap, err := s.Provider.FetchSnapshot(ticker)
	if err != nil || snap.CompanyName == nil {
		return nil, nil
	}

	entry, err := s.Store.UpsertCacheEntry(*snap, s.now())
	if err != nil {
		return nil, err
	}

	return &models.MPageResult{
		Stocks:  []models.MStockCacheEntry{*entry},
		Total:   1,
		Page:    1,
		PerPage: perPage,
		Pages:   1,
		Query:   filter,
	}, nil
}

// -----------------------------------------------------------------------------

// EnsureRegistered marks a ticker as known-but-unfetched: the row is created
// with empty metrics and a last_updated one window past stale, so the first
// real view triggers an actual fetch. Existing rows are left untouched.
func (s *StockService) EnsureRegistered(ticker string, companyName *string) (bool, error) {
	backdated := s.now().Add(-(s.stalenessWindow() + s.stalenessWindow()))
	return s.Store.RegisterCacheEntry(ticker, companyName, backdated)
}

// -----------------------------------------------------------------------------

func (s *StockService) ToggleFavorite(ticker string) (bool, error) {
	return s.Store.ToggleFavorite(ticker)
}

// -----------------------------------------------------------------------------

func (s *StockService) Favorites() ([]models.MStockCacheEntry, error) {
	return s.Store.ListFavorites()
}

// -----------------------------------------------------------------------------

// History returns the `limit` most recent records, oldest first. Reads
// bypass the orchestrator; history queries never trigger fetches.
func (s *StockService) History(ticker string, limit int) ([]models.MHistoricalRecord, error) {
	return s.Store.QueryHistory(ticker, limit)
}

// -----------------------------------------------------------------------------

func (s *StockService) LatestTracked() (map[string]models.MHistoricalRecord, error) {
	return s.Store.LatestHistory(s.Config.Tracker.Tickers)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func isTickerCandidate(q string) bool {
	if len(q) == 0 || len(q) > 10 {
		return false
	}
	for _, r := range q {
		isDigit := r >= '0' && r <= '9'
		isUpper := r >= 'A' && r <= 'Z'
		isLower := r >= 'a' && r <= 'z'
		if !isDigit && !isUpper && !isLower {
			return false
		}
	}
	return true
}
