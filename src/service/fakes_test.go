package service

import (
	"sort"
	"strings"
	"time"

	"pe-tracker/src/helpers"
	"pe-tracker/src/models"
)

// -----------------------------------------------------------------------------
// In-memory store fake
// -----------------------------------------------------------------------------

type fakeStore struct {
	entries map[string]*models.MStockCacheEntry
	history []models.MHistoricalRecord
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*models.MStockCacheEntry)}
}

func (f *fakeStore) Initialize() error { return nil }
func (f *fakeStore) Close() error      { return nil }

func (f *fakeStore) GetCacheEntry(ticker string) (*models.MStockCacheEntry, error) {
	e, ok := f.entries[ticker]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

func (f *fakeStore) UpsertCacheEntry(snap models.MStockSnapshot, now time.Time) (*models.MStockCacheEntry, error) {
	e, ok := f.entries[snap.Ticker]
	if !ok {
		f.nextID++
		e = &models.MStockCacheEntry{ID: f.nextID, Ticker: snap.Ticker}
		f.entries[snap.Ticker] = e
	}
	if snap.CompanyName != nil {
		e.CompanyName = snap.CompanyName
	}
	if snap.PERatio != nil {
		e.PERatio = snap.PERatio
	}
	if snap.Price != nil {
		e.Price = snap.Price
	}
	if snap.MarketCap != nil {
		e.MarketCap = snap.MarketCap
	}
	e.LastUpdated = now.UTC()
	clone := *e
	return &clone, nil
}

func (f *fakeStore) RegisterCacheEntry(ticker string, companyName *string, lastUpdated time.Time) (bool, error) {
	if _, ok := f.entries[ticker]; ok {
		return false, nil
	}
	f.nextID++
	f.entries[ticker] = &models.MStockCacheEntry{
		ID:          f.nextID,
		Ticker:      ticker,
		CompanyName: companyName,
		LastUpdated: lastUpdated.UTC(),
	}
	return true, nil
}

func (f *fakeStore) ToggleFavorite(ticker string) (bool, error) {
	e, ok := f.entries[ticker]
	if !ok {
		return false, helpers.NewNotFoundError("stock not found: " + ticker)
	}
	e.IsFavorite = !e.IsFavorite
	return e.IsFavorite, nil
}

func (f *fakeStore) ListCachePage(filter string, page, perPage int) (*models.MPageResult, error) {
	var matched []models.MStockCacheEntry
	needle := strings.ToLower(filter)
	for _, e := range f.entries {
		if filter != "" {
			name := ""
			if e.CompanyName != nil {
				name = *e.CompanyName
			}
			if !strings.Contains(strings.ToLower(e.Ticker), needle) &&
				!strings.Contains(strings.ToLower(name), needle) {
				continue
			}
		}
		matched = append(matched, *e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Ticker < matched[j].Ticker })

	total := len(matched)
	pages := (total + perPage - 1) / perPage
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return &models.MPageResult{
		Stocks:  matched[start:end],
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
		Query:   filter,
	}, nil
}

func (f *fakeStore) ListFavorites() ([]models.MStockCacheEntry, error) {
	var favorites []models.MStockCacheEntry
	for _, e := range f.entries {
		if e.IsFavorite {
			favorites = append(favorites, *e)
		}
	}
	sort.Slice(favorites, func(i, j int) bool { return favorites[i].Ticker < favorites[j].Ticker })
	return favorites, nil
}

func (f *fakeStore) AppendHistory(snap models.MStockSnapshot, timestamp time.Time) (*models.MHistoricalRecord, error) {
	f.nextID++
	record := models.MHistoricalRecord{
		ID:        f.nextID,
		Ticker:    snap.Ticker,
		PERatio:   snap.PERatio,
		Price:     snap.Price,
		MarketCap: snap.MarketCap,
		Timestamp: timestamp.UTC(),
	}
	f.history = append(f.history, record)
	return &record, nil
}

func (f *fakeStore) QueryHistory(ticker string, limit int) ([]models.MHistoricalRecord, error) {
	var matched []models.MHistoricalRecord
	for _, r := range f.history {
		if r.Ticker == ticker {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (f *fakeStore) LatestHistory(tickers []string) (map[string]models.MHistoricalRecord, error) {
	latest := make(map[string]models.MHistoricalRecord)
	for _, ticker := range tickers {
		records, _ := f.QueryHistory(ticker, len(f.history)+1)
		if len(records) > 0 {
			latest[ticker] = records[len(records)-1]
		}
	}
	return latest, nil
}

func (f *fakeStore) historyCount(ticker string) int {
	n := 0
	for _, r := range f.history {
		if r.Ticker == ticker {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------
// Scripted provider fake
// -----------------------------------------------------------------------------

type fakeProvider struct {
	snapshots map[string]*models.MStockSnapshot
	failing   map[string]bool
	calls     []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		snapshots: make(map[string]*models.MStockSnapshot),
		failing:   make(map[string]bool),
	}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchSnapshot(ticker string) (*models.MStockSnapshot, error) {
	f.calls = append(f.calls, ticker)
	if f.failing[ticker] {
		return nil, helpers.NewDataSourceError("fetch failed for "+ticker, nil)
	}
	snap, ok := f.snapshots[ticker]
	if !ok {
		return nil, helpers.NewDataSourceError("no result in response for "+ticker, nil)
	}
	clone := *snap
	return &clone, nil
}

func (f *fakeProvider) callCount(ticker string) int {
	n := 0
	for _, c := range f.calls {
		if c == ticker {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------
// Builders
// -----------------------------------------------------------------------------

func strp(s string) *string { return &s }
func fp(v float64) *float64 { return &v }

func testConfig() *models.MConfig {
	return &models.MConfig{
		Name:     "pe-tracker-test",
		LogLevel: "ERROR",
		Tracker: models.MTrackerConfig{
			Tickers:             []string{"AAPL", "MSFT"},
			PEThreshold:         20,
			StalenessMinutes:    60,
			RateLimitIntervalMs: 1,
		},
	}
}

func newTestService(store *fakeStore, provider *fakeProvider, now time.Time) *StockService {
	svc := NewStockService(testConfig(), store, provider, helpers.NewRateLimiter(time.Millisecond))
	svc.now = func() time.Time { return now }
	return svc
}
