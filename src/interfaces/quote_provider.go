package interfaces

import "pe-tracker/src/models"

// -----------------------------------------------------------------------------
// IQuoteProvider is the only component permitted to call the upstream
// market-data source.
// -----------------------------------------------------------------------------

type IQuoteProvider interface {

	// Name returns the unique identifier of the provider
	Name() string

	// -----------------------------------------------------------------------------

	// FetchSnapshot performs one outbound call for a single ticker. The ticker
	// is trusted to be alphanumeric and at most 10 characters; callers validate
	// before crossing this boundary. Any transport, parse or upstream error is
	// returned as a typed error, never a panic. No retry policy lives here.
	FetchSnapshot(ticker string) (*models.MStockSnapshot, error)
}
