package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers "is this market open right now" for a ticker's
// exchange, using scmhub/calendar.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar maps a ticker suffix to a MIC code (ISO 10383) and loads the
// matching calendar. Bare tickers default to NYSE.
func GetCalendar(ticker string) *TradingCalendar {
	mic := "xnys" // Default US NYSE
	if strings.HasSuffix(ticker, ".L") {
		mic = "xlon"
	} else if strings.HasSuffix(ticker, ".PA") {
		mic = "xpar"
	} else if strings.HasSuffix(ticker, ".DE") {
		mic = "xfra"
	} else if strings.HasSuffix(ticker, ".T") {
		mic = "xtks"
	} else if strings.HasSuffix(ticker, ".HK") {
		mic = "xhkg"
	} else if strings.HasSuffix(ticker, ".AX") {
		mic = "xasx"
	} else if strings.HasSuffix(ticker, ".TO") {
		mic = "xtse"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		// Fallback to xnys if not found
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using simple fallback (Mon-Fri 09:30-16:00 NY).", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC // Worst case
		}
		return &TradingCalendar{Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		// Simple fallback: Mon-Fri
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		hour := t.Hour()
		minute := t.Minute()

		// 9:30 - 16:00 NY Time
		if (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16 {
			return true
		}
		return false
	}

	return tc.Calendar.IsOpen(t)
}
