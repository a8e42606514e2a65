package service

import (
	"errors"
	"testing"
	"time"

	"pe-tracker/src/helpers"
	"pe-tracker/src/models"
)

var baseTime = time.Date(2026, 8, 21, 15, 0, 0, 0, time.UTC)

// -----------------------------------------------------------------------------
// Staleness
// -----------------------------------------------------------------------------

func TestIsStaleBoundary(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeProvider(), baseTime)

	cases := []struct {
		name  string
		age   time.Duration
		stale bool
	}{
		{"just written", 0, false},
		{"half a window", 30 * time.Minute, false},
		{"exactly one window", 60 * time.Minute, false},
		{"one second past", 60*time.Minute + time.Second, true},
		{"very old", 48 * time.Hour, true},
	}

	for _, c := range cases {
		entry := &models.MStockCacheEntry{Ticker: "AAPL", LastUpdated: baseTime.Add(-c.age)}
		if got := svc.IsStale(entry, baseTime); got != c.stale {
			t.Errorf("%s: IsStale = %v, want %v", c.name, got, c.stale)
		}
	}
}

// -----------------------------------------------------------------------------
// RefreshIfStale
// -----------------------------------------------------------------------------

func TestRefreshIfStaleFreshSkipsProvider(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	svc := newTestService(store, provider, baseTime)

	store.UpsertCacheEntry(models.MStockSnapshot{
		Ticker: "AAPL", CompanyName: strp("Apple Inc."), PERatio: fp(28.5),
	}, baseTime.Add(-10*time.Minute))

	entry, err := svc.RefreshIfStale("AAPL")
	if err != nil {
		t.Fatalf("RefreshIfStale failed: %v", err)
	}
	if entry.PERatio == nil || *entry.PERatio != 28.5 {
		t.Errorf("expected cached PE 28.5, got %v", entry.PERatio)
	}
	if provider.callCount("AAPL") != 0 {
		t.Errorf("provider was called %d times for a fresh entry", provider.callCount("AAPL"))
	}
}

func TestRefreshIfStaleRefetchesAndUpserts(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.snapshots["AAPL"] = &models.MStockSnapshot{
		Ticker: "AAPL", CompanyName: strp("Apple Inc."), PERatio: fp(30.1), Price: fp(231.5),
	}
	svc := newTestService(store, provider, baseTime)

	store.UpsertCacheEntry(models.MStockSnapshot{
		Ticker: "AAPL", CompanyName: strp("Apple Inc."), PERatio: fp(28.5),
	}, baseTime.Add(-2*time.Hour))

	entry, err := svc.RefreshIfStale("AAPL")
	if err != nil {
		t.Fatalf("RefreshIfStale failed: %v", err)
	}
	if provider.callCount("AAPL") != 1 {
		t.Fatalf("expected exactly 1 provider call, got %d", provider.callCount("AAPL"))
	}
	if entry.PERatio == nil || *entry.PERatio != 30.1 {
		t.Errorf("expected refreshed PE 30.1, got %v", entry.PERatio)
	}
	if !entry.LastUpdated.Equal(baseTime) {
		t.Errorf("expected LastUpdated %v, got %v", baseTime, entry.LastUpdated)
	}
}

func TestRefreshIfStaleServesStaleOnFetchFailure(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.failing["AAPL"] = true
	svc := newTestService(store, provider, baseTime)

	staleTime := baseTime.Add(-3 * time.Hour)
	store.UpsertCacheEntry(models.MStockSnapshot{
		Ticker: "AAPL", CompanyName: strp("Apple Inc."), PERatio: fp(28.5),
	}, staleTime)

	entry, err := svc.RefreshIfStale("AAPL")
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if entry.PERatio == nil || *entry.PERatio != 28.5 {
		t.Errorf("expected stale PE 28.5, got %v", entry.PERatio)
	}
	if !entry.LastUpdated.Equal(staleTime) {
		t.Errorf("stale entry timestamp changed: got %v, want %v", entry.LastUpdated, staleTime)
	}
}

func TestRefreshIfStaleUnknownTickerFetchFailure(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.failing["NOPE"] = true
	svc := newTestService(store, provider, baseTime)

	_, err := svc.RefreshIfStale("NOPE")
	if !errors.Is(err, helpers.ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable, got %v", err)
	}
}

func TestRefreshIfStaleUpsertPreservesMissingFields(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	// Second fetch carries a price but no P/E (common for unprofitable quarters).
	provider.snapshots["AAPL"] = &models.MStockSnapshot{
		Ticker: "AAPL", CompanyName: strp("Apple Inc."), Price: fp(231.5),
	}
	svc := newTestService(store, provider, baseTime)

	store.UpsertCacheEntry(models.MStockSnapshot{
		Ticker: "AAPL", CompanyName: strp("Apple Inc."), PERatio: fp(28.5), Price: fp(220.0),
	}, baseTime.Add(-2*time.Hour))

	entry, err := svc.RefreshIfStale("AAPL")
	if err != nil {
		t.Fatalf("RefreshIfStale failed: %v", err)
	}
	if entry.PERatio == nil || *entry.PERatio != 28.5 {
		t.Errorf("previous PE should survive a fetch without one, got %v", entry.PERatio)
	}
	if entry.Price == nil || *entry.Price != 231.5 {
		t.Errorf("price should take the fresh value, got %v", entry.Price)
	}
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

func TestEnsureRegisteredBackdatesForImmediateRefresh(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.snapshots["KO"] = &models.MStockSnapshot{
		Ticker: "KO", CompanyName: strp("Coca-Cola Company"), PERatio: fp(24.2),
	}
	svc := newTestService(store, provider, baseTime)

	created, err := svc.EnsureRegistered("KO", strp("Coca-Cola Company"))
	if err != nil || !created {
		t.Fatalf("EnsureRegistered = (%v, %v), want (true, nil)", created, err)
	}

	entry, _ := store.GetCacheEntry("KO")
	if !svc.IsStale(entry, baseTime) {
		t.Fatal("a freshly registered entry must already be stale")
	}

	// First view must fetch, not serve the empty placeholder.
	refreshed, err := svc.RefreshIfStale("KO")
	if err != nil {
		t.Fatalf("RefreshIfStale failed: %v", err)
	}
	if provider.callCount("KO") != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount("KO"))
	}
	if refreshed.PERatio == nil || *refreshed.PERatio != 24.2 {
		t.Errorf("expected fetched PE 24.2, got %v", refreshed.PERatio)
	}
}

func TestEnsureRegisteredLeavesExistingRowsAlone(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeProvider(), baseTime)

	store.UpsertCacheEntry(models.MStockSnapshot{
		Ticker: "AAPL", CompanyName: strp("Apple Inc."), PERatio: fp(28.5),
	}, baseTime.Add(-5*time.Minute))

	created, err := svc.EnsureRegistered("AAPL", strp("Apple Inc."))
	if err != nil {
		t.Fatalf("EnsureRegistered failed: %v", err)
	}
	if created {
		t.Error("EnsureRegistered reported creation for an existing ticker")
	}

	entry, _ := store.GetCacheEntry("AAPL")
	if entry.PERatio == nil || *entry.PERatio != 28.5 {
		t.Errorf("existing entry was modified: %+v", entry)
	}
}

func TestSeedUniverseRegistersWithoutFetching(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	svc := newTestService(store, provider, baseTime)

	count, err := svc.SeedUniverse()
	if err != nil {
		t.Fatalf("SeedUniverse failed: %v", err)
	}
	if count == 0 {
		t.Fatal("expected at least one seeded entry")
	}
	if len(provider.calls) != 0 {
		t.Errorf("seeding must not fetch, provider called %d times", len(provider.calls))
	}

	// Tracked tickers from config are part of the universe.
	entry, _ := store.GetCacheEntry("AAPL")
	if entry == nil {
		t.Fatal("tracked ticker AAPL missing after seeding")
	}

	// Second run is a no-op.
	again, err := svc.SeedUniverse()
	if err != nil {
		t.Fatalf("second SeedUniverse failed: %v", err)
	}
	if again != 0 {
		t.Errorf("second seed registered %d entries, want 0", again)
	}
}

// -----------------------------------------------------------------------------
// Batch updates
// -----------------------------------------------------------------------------

func TestUpdateTrackedSkipsFailures(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.snapshots["AAPL"] = &models.MStockSnapshot{Ticker: "AAPL", PERatio: fp(28.5)}
	provider.failing["BAD"] = true
	provider.snapshots["MSFT"] = &models.MStockSnapshot{Ticker: "MSFT", PERatio: fp(35.0)}
	svc := newTestService(store, provider, baseTime)

	saved := svc.UpdateTracked([]string{"AAPL", "BAD", "MSFT"}, 20)

	if len(saved) != 2 {
		t.Fatalf("expected 2 saved records, got %d", len(saved))
	}
	if saved[0].Ticker != "AAPL" || saved[1].Ticker != "MSFT" {
		t.Errorf("saved order wrong: %s, %s", saved[0].Ticker, saved[1].Ticker)
	}
	if store.historyCount("BAD") != 0 {
		t.Error("failed ticker must not leave a history row")
	}
}

func TestUpdateTrackedAppendsOnly(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.snapshots["AAPL"] = &models.MStockSnapshot{Ticker: "AAPL", PERatio: fp(28.5)}
	svc := newTestService(store, provider, baseTime)

	svc.UpdateTracked([]string{"AAPL"}, 20)
	svc.UpdateTracked([]string{"AAPL"}, 20)

	if n := store.historyCount("AAPL"); n != 2 {
		t.Errorf("expected 2 history rows after 2 runs, got %d", n)
	}
	// The batch path never writes the latest cache.
	entry, _ := store.GetCacheEntry("AAPL")
	if entry != nil {
		t.Error("batch update must not create cache entries")
	}
}

// -----------------------------------------------------------------------------
// Browse
// -----------------------------------------------------------------------------

func TestBrowseRefreshesOnlyReturnedPage(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	staleTime := baseTime.Add(-2 * time.Hour)
	for _, tk := range []string{"AAPL", "GOOGL", "MSFT", "TSLA"} {
		provider.snapshots[tk] = &models.MStockSnapshot{Ticker: tk, CompanyName: strp(tk + " Inc."), PERatio: fp(10)}
		store.UpsertCacheEntry(models.MStockSnapshot{Ticker: tk, CompanyName: strp(tk + " Inc.")}, staleTime)
	}
	svc := newTestService(store, provider, baseTime)

	result, err := svc.Browse("", 1, 2, true)
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if result.Total != 4 || result.Pages != 2 || len(result.Stocks) != 2 {
		t.Fatalf("unexpected page shape: total=%d pages=%d rows=%d", result.Total, result.Pages, len(result.Stocks))
	}

	// Page 1 is AAPL, GOOGL: those two and only those two got refreshed.
	for _, tk := range []string{"AAPL", "GOOGL"} {
		if provider.callCount(tk) != 1 {
			t.Errorf("%s: expected 1 fetch, got %d", tk, provider.callCount(tk))
		}
	}
	for _, tk := range []string{"MSFT", "TSLA"} {
		if provider.callCount(tk) != 0 {
			t.Errorf("%s is off-page but was fetched %d times", tk, provider.callCount(tk))
		}
	}
	for i := range result.Stocks {
		if !result.Stocks[i].LastUpdated.Equal(baseTime) {
			t.Errorf("%s: returned row not refreshed in place", result.Stocks[i].Ticker)
		}
	}
}

func TestBrowseWithoutFetchFreshServesStaleRows(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	store.UpsertCacheEntry(models.MStockSnapshot{Ticker: "AAPL", CompanyName: strp("Apple Inc.")}, baseTime.Add(-2*time.Hour))
	svc := newTestService(store, provider, baseTime)

	result, err := svc.Browse("", 1, 10, false)
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if len(result.Stocks) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Stocks))
	}
	if len(provider.calls) != 0 {
		t.Errorf("fetch_fresh=false must not fetch, got %d calls", len(provider.calls))
	}
}

func TestBrowseSearchMissFetchesTickerCandidate(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.snapshots["IBM"] = &models.MStockSnapshot{
		Ticker: "IBM", CompanyName: strp("International Business Machines"), PERatio: fp(22.0),
	}
	svc := newTestService(store, provider, baseTime)

	result, err := svc.Browse("ibm", 1, 20, false)
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if result.Total != 1 || len(result.Stocks) != 1 {
		t.Fatalf("expected single-row result, got total=%d rows=%d", result.Total, len(result.Stocks))
	}
	if result.Stocks[0].Ticker != "IBM" {
		t.Errorf("expected uppercased ticker IBM, got %s", result.Stocks[0].Ticker)
	}

	// The one-off lookup is cached for next time.
	entry, _ := store.GetCacheEntry("IBM")
	if entry == nil {
		t.Fatal("search-miss result was not cached")
	}

	if _, err := svc.Browse("ibm", 1, 20, false); err != nil {
		t.Fatalf("second Browse failed: %v", err)
	}
	if provider.callCount("IBM") != 1 {
		t.Errorf("cached search hit refetched: %d calls", provider.callCount("IBM"))
	}
}

func TestBrowseSearchMissRequiresCompanyName(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	// Provider answers, but without a company name the result is junk.
	provider.snapshots["ZZZZ"] = &models.MStockSnapshot{Ticker: "ZZZZ", Price: fp(0.01)}
	svc := newTestService(store, provider, baseTime)

	result, err := svc.Browse("zzzz", 1, 20, false)
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("nameless snapshot must not produce a result, got total=%d", result.Total)
	}
	if entry, _ := store.GetCacheEntry("ZZZZ"); entry != nil {
		t.Error("nameless snapshot must not be cached")
	}
}

func TestBrowseSearchMissSkipsNonTickerQueries(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	svc := newTestService(store, provider, baseTime)

	for _, q := range []string{"apple computers inc", "A+B", "TOOLONGQUERYX"} {
		result, err := svc.Browse(q, 1, 20, false)
		if err != nil {
			t.Fatalf("Browse(%q) failed: %v", q, err)
		}
		if result.Total != 0 {
			t.Errorf("Browse(%q): expected empty result", q)
		}
	}
	if len(provider.calls) != 0 {
		t.Errorf("non-ticker queries must not fetch, got %v", provider.calls)
	}
}

// -----------------------------------------------------------------------------
// Favorites / History
// -----------------------------------------------------------------------------

func TestToggleFavoriteUnknownTicker(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeProvider(), baseTime)

	_, err := svc.ToggleFavorite("GHOST")
	if !helpers.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if entry, _ := store.GetCacheEntry("GHOST"); entry != nil {
		t.Error("failed toggle must not create a row")
	}
}

func TestToggleFavoriteRoundTrip(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeProvider(), baseTime)
	store.UpsertCacheEntry(models.MStockSnapshot{Ticker: "AAPL", CompanyName: strp("Apple Inc.")}, baseTime)

	on, err := svc.ToggleFavorite("AAPL")
	if err != nil || !on {
		t.Fatalf("first toggle = (%v, %v), want (true, nil)", on, err)
	}

	favorites, err := svc.Favorites()
	if err != nil || len(favorites) != 1 || favorites[0].Ticker != "AAPL" {
		t.Fatalf("Favorites = (%v, %v), want [AAPL]", favorites, err)
	}

	off, err := svc.ToggleFavorite("AAPL")
	if err != nil || off {
		t.Fatalf("second toggle = (%v, %v), want (false, nil)", off, err)
	}
	favorites, _ = svc.Favorites()
	if len(favorites) != 0 {
		t.Errorf("expected no favorites after untoggle, got %d", len(favorites))
	}
}

func TestHistoryNeverFetches(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	svc := newTestService(store, provider, baseTime)

	for i := 0; i < 5; i++ {
		store.AppendHistory(models.MStockSnapshot{Ticker: "AAPL", PERatio: fp(float64(20 + i))},
			baseTime.Add(time.Duration(i)*time.Minute))
	}

	records, err := svc.History("AAPL", 3)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Most recent 3, oldest first.
	for i, want := range []float64{22, 23, 24} {
		if records[i].PERatio == nil || *records[i].PERatio != want {
			t.Errorf("record %d: PE = %v, want %v", i, records[i].PERatio, want)
		}
	}
	if len(provider.calls) != 0 {
		t.Errorf("history reads must not fetch, got %d calls", len(provider.calls))
	}
}

// -----------------------------------------------------------------------------
// Threshold
// -----------------------------------------------------------------------------

func TestIsBelowThreshold(t *testing.T) {
	cases := []struct {
		name      string
		pe        *float64
		threshold float64
		want      bool
	}{
		{"below", fp(15), 20, true},
		{"above", fp(25), 20, false},
		{"equal is not below", fp(20), 20, false},
		{"missing ratio", nil, 20, false},
		{"negative ratio", fp(-3.2), 20, true},
	}
	for _, c := range cases {
		if got := IsBelowThreshold(c.pe, c.threshold); got != c.want {
			t.Errorf("%s: IsBelowThreshold = %v, want %v", c.name, got, c.want)
		}
	}
}
