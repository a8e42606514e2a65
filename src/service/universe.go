package service

// -----------------------------------------------------------------------------
// Seed Universe
// -----------------------------------------------------------------------------

// MSeedStock pairs a ticker with its company name for pre-registration.
type MSeedStock struct {
	Ticker string
	Name   string
}

// PopularNYSEStocks is the starter universe for the browse page. Rows are
// registered without fetching; metrics arrive lazily on first view.
var PopularNYSEStocks = []MSeedStock{
	{"AAPL", "Apple Inc."},
	{"MSFT", "Microsoft Corporation"},
	{"GOOGL", "Alphabet Inc."},
	{"AMZN", "Amazon.com Inc."},
	{"META", "Meta Platforms Inc."},
	{"TSLA", "Tesla Inc."},
	{"NVDA", "NVIDIA Corporation"},
	{"JPM", "JPMorgan Chase & Co."},
	{"V", "Visa Inc."},
	{"WMT", "Walmart Inc."},
	{"UNH", "UnitedHealth Group Inc."},
	{"JNJ", "Johnson & Johnson"},
	{"XOM", "Exxon Mobil Corporation"},
	{"PG", "Procter & Gamble Co."},
	{"MA", "Mastercard Inc."},
	{"HD", "Home Depot Inc."},
	{"CVX", "Chevron Corporation"},
	{"BAC", "Bank of America Corp."},
	{"ABBV", "AbbVie Inc."},
	{"KO", "Coca-Cola Co."},
	{"PEP", "PepsiCo Inc."},
	{"COST", "Costco Wholesale Corp."},
	{"MRK", "Merck & Co. Inc."},
	{"TMO", "Thermo Fisher Scientific"},
	{"AVGO", "Broadcom Inc."},
	{"LLY", "Eli Lilly and Co."},
	{"ORCL", "Oracle Corporation"},
	{"NKE", "Nike Inc."},
	{"DIS", "Walt Disney Co."},
	{"ACN", "Accenture plc"},
	{"CSCO", "Cisco Systems Inc."},
	{"ADBE", "Adobe Inc."},
	{"WFC", "Wells Fargo & Co."},
	{"VZ", "Verizon Communications"},
	{"CRM", "Salesforce Inc."},
	{"NFLX", "Netflix Inc."},
	{"INTC", "Intel Corporation"},
	{"ABT", "Abbott Laboratories"},
	{"AMD", "Advanced Micro Devices"},
	{"PFE", "Pfizer Inc."},
	{"TXN", "Texas Instruments Inc."},
	{"DHR", "Danaher Corporation"},
	{"CMCSA", "Comcast Corporation"},
	{"UNP", "Union Pacific Corp."},
	{"NEE", "NextEra Energy Inc."},
	{"PM", "Philip Morris International"},
	{"RTX", "RTX Corporation"},
	{"BMY", "Bristol-Myers Squibb"},
	{"UPS", "United Parcel Service"},
	{"MS", "Morgan Stanley"},
}

// -----------------------------------------------------------------------------

// SeedUniverse registers the popular-stock list plus the tracked tickers.
// Already-registered tickers are skipped; nothing is fetched here.
func (s *StockService) SeedUniverse() (int, error) {
	added := 0

	for _, seed := range PopularNYSEStocks {
		name := seed.Name
		created, err := s.EnsureRegistered(seed.Ticker, &name)
		if err != nil {
			return added, err
		}
		if created {
			added++
		}
	}

	for _, ticker := range s.Config.Tracker.Tickers {
		created, err := s.EnsureRegistered(ticker, nil)
		if err != nil {
			return added, err
		}
		if created {
			added++
		}
	}

	s.Logger.Info("Seeded universe: %d new tickers registered", added)
	return added, nil
}
