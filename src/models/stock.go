package models

import "time"

// -----------------------------------------------------------------------------
// Stock Data Structures
// -----------------------------------------------------------------------------

// MStockSnapshot is one fetched reading of a ticker's metrics.
// Pointer fields may be nil when the provider lacks the value.
type MStockSnapshot struct {
	Ticker      string   `json:"ticker"`
	CompanyName *string  `json:"company_name,omitempty"`
	PERatio     *float64 `json:"pe_ratio,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	MarketCap   *float64 `json:"market_cap,omitempty"`
}

// -----------------------------------------------------------------------------

// MStockCacheEntry is the single "latest known" row per ticker (stock_cache).
type MStockCacheEntry struct {
	ID          int64     `json:"id"`
	Ticker      string    `json:"ticker"`
	CompanyName *string   `json:"company_name"`
	PERatio     *float64  `json:"pe_ratio"`
	Price       *float64  `json:"price"`
	MarketCap   *float64  `json:"market_cap"`
	LastUpdated time.Time `json:"last_updated"`
	IsFavorite  bool      `json:"is_favorite"`
}

// -----------------------------------------------------------------------------

// MHistoricalRecord is one append-only row in the time series (stock_history).
type MHistoricalRecord struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker"`
	PERatio   *float64  `json:"pe_ratio"`
	Price     *float64  `json:"price"`
	MarketCap *float64  `json:"market_cap"`
	Timestamp time.Time `json:"timestamp"`
}
