package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

// MTrackerUpdate is the payload pushed to WebSocket clients after a batch
// run of the tracked tickers. Type is "INITIAL" on connect, "UPDATE" after.
type MTrackerUpdate struct {
	Type      string                       `json:"type"`
	Stocks    map[string]MHistoricalRecord `json:"stocks"`
	Threshold float64                      `json:"threshold"`
	Updated   int                          `json:"updated"`
	Timestamp int64                        `json:"timestamp"`
}
