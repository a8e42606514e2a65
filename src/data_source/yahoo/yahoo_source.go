package yahoo

import (
	"encoding/json"
	"fmt"

	"pe-tracker/src/helpers"
	"pe-tracker/src/interfaces"
	"pe-tracker/src/logger"
	"pe-tracker/src/models"
)

// -----------------------------------------------------------------------------

const quoteEndpoint = "https://query1.finance.yahoo.com/v7/finance/quote"

// -----------------------------------------------------------------------------

// YahooQuoteSource fetches per-ticker valuation snapshots from the Yahoo
// Finance quote endpoint. It performs exactly one outbound call per
// FetchSnapshot; retry policy belongs to the caller, throttling to the
// shared rate limiter.
type YahooQuoteSource struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewYahooQuoteSource(cfg *models.MConfig, netMgr interfaces.INetworkManager) *YahooQuoteSource {
	return &YahooQuoteSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(cfg.LogLevel, "YahooQuoteSource"),
	}
}

// -----------------------------------------------------------------------------

func (s *YahooQuoteSource) Name() string {
	return "yahoo"
}

// -----------------------------------------------------------------------------

// YahooQuoteResponse mirrors the quote endpoint payload. Pointer fields
// handle values Yahoo omits for some instruments (ETFs carry no P/E, some
// listings no long name).
type YahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			LongName           *string  `json:"longName"`
			ShortName          *string  `json:"shortName"`
			TrailingPE         *float64 `json:"trailingPE"`
			ForwardPE          *float64 `json:"forwardPE"`
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
			PostMarketPrice    *float64 `json:"postMarketPrice"`
			MarketCap          *float64 `json:"marketCap"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// -----------------------------------------------------------------------------

// FetchSnapshot performs one quote request and maps the response to a
// snapshot. Company name prefers longName over shortName; the P/E ratio
// prefers the trailing figure, falling back to forward.
func (s *YahooQuoteSource) FetchSnapshot(ticker string) (*models.MStockSnapshot, error) {
	params := map[string]string{
		"symbols": ticker,
		"fields":  "longName,shortName,trailingPE,forwardPE,regularMarketPrice,marketCap",
	}

	respBytes, err := s.Network.Get(quoteEndpoint, params)
	if err != nil {
		s.Logger.Error("Error fetching data for %s: %v", ticker, err)
		return nil, helpers.NewDataSourceError(fmt.Sprintf("network error for %s", ticker), err)
	}

	snap, err := s.parseQuoteResponse(ticker, respBytes)
	if err != nil {
		s.Logger.Error("Error fetching data for %s: %v", ticker, err)
		return nil, err
	}

	return snap, nil
}

// -----------------------------------------------------------------------------

func (s *YahooQuoteSource) parseQuoteResponse(ticker string, data []byte) (*models.MStockSnapshot, error) {
	var resp YahooQuoteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, helpers.NewDataSourceError("json unmarshal failed", err)
	}

	if resp.QuoteResponse.Error != nil {
		return nil, helpers.NewDataSourceError(
			fmt.Sprintf("yahoo api error: %s - %s", resp.QuoteResponse.Error.Code, resp.QuoteResponse.Error.Description), nil)
	}

	if len(resp.QuoteResponse.Result) == 0 {
		return nil, helpers.NewDataSourceError(fmt.Sprintf("no result in response for %s", ticker), nil)
	}

	result := resp.QuoteResponse.Result[0]

	snap := &models.MStockSnapshot{Ticker: ticker}

	if result.LongName != nil && *result.LongName != "" {
		snap.CompanyName = result.LongName
	} else if result.ShortName != nil && *result.ShortName != "" {
		snap.CompanyName = result.ShortName
	}

	if result.TrailingPE != nil {
		snap.PERatio = result.TrailingPE
	} else if result.ForwardPE != nil {
		snap.PERatio = result.ForwardPE
	}

	snap.Price = result.RegularMarketPrice
	snap.MarketCap = result.MarketCap

	s.Logger.Debug("Fetched %s: pe=%v price=%v", ticker, floatOrDash(snap.PERatio), floatOrDash(snap.Price))

	return snap, nil
}

// -----------------------------------------------------------------------------

func floatOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
