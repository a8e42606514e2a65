package utils

import (
	"sync"
	"time"

	"pe-tracker/src/logger"
)

// MarketScheduler decides whether a scheduled batch run is worth making:
// when every tracked ticker's market is closed, the run is skipped.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(tickers []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	ms.MapTickersToCalendars(tickers)
	return ms
}

// -----------------------------------------------------------------------------

// MapTickersToCalendars rebuilds the ticker-to-calendar map.
func (ms *MarketScheduler) MapTickersToCalendars(tickers []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.Calendars = make(map[string]*TradingCalendar)

	for _, ticker := range tickers {
		cal := GetCalendar(ticker)
		if cal != nil {
			ms.Calendars[ticker] = cal
		}
	}

	// Count unique calendars
	uniqueCals := make(map[*TradingCalendar]bool)
	for _, cal := range ms.Calendars {
		uniqueCals[cal] = true
	}

	ms.Logger.Info("MarketScheduler: Mapped %d tickers to %d unique calendars.",
		len(tickers), len(uniqueCals))
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked markets are currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := time.Now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	uniqueCals := make(map[*TradingCalendar]bool)
	for _, cal := range ms.Calendars {
		uniqueCals[cal] = true
	}

	if len(uniqueCals) == 0 {
		return false
	}

	for cal := range uniqueCals {
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}

	return false
}
