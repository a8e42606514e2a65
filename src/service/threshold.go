package service

// -----------------------------------------------------------------------------

// IsBelowThreshold reports whether a P/E ratio is present and below the
// alert threshold. Pure; callers decide what to do with a true result.
func IsBelowThreshold(peRatio *float64, threshold float64) bool {
	return peRatio != nil && *peRatio < threshold
}
