package yahoo

import (
	"errors"
	"testing"

	"pe-tracker/src/helpers"
	"pe-tracker/src/models"
)

// -----------------------------------------------------------------------------

type fakeNetwork struct {
	payload []byte
	err     error
	lastURL string
	params  map[string]string
}

func (f *fakeNetwork) Get(url string, params map[string]string) ([]byte, error) {
	f.lastURL = url
	f.params = params
	return f.payload, f.err
}

func newTestSource(net *fakeNetwork) *YahooQuoteSource {
	cfg := &models.MConfig{LogLevel: "ERROR"}
	return NewYahooQuoteSource(cfg, net)
}

// -----------------------------------------------------------------------------

func TestFetchSnapshotFullQuote(t *testing.T) {
	net := &fakeNetwork{payload: []byte(`{
		"quoteResponse": {
			"result": [{
				"symbol": "AAPL",
				"longName": "Apple Inc.",
				"shortName": "Apple",
				"trailingPE": 28.5,
				"forwardPE": 26.1,
				"regularMarketPrice": 231.5,
				"marketCap": 3400000000000
			}],
			"error": null
		}
	}`)}

	snap, err := newTestSource(net).FetchSnapshot("AAPL")
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	if snap.Ticker != "AAPL" {
		t.Errorf("ticker = %s", snap.Ticker)
	}
	if snap.CompanyName == nil || *snap.CompanyName != "Apple Inc." {
		t.Errorf("longName should win: %v", snap.CompanyName)
	}
	if snap.PERatio == nil || *snap.PERatio != 28.5 {
		t.Errorf("trailingPE should win: %v", snap.PERatio)
	}
	if snap.Price == nil || *snap.Price != 231.5 {
		t.Errorf("price = %v", snap.Price)
	}
	if net.params["symbols"] != "AAPL" {
		t.Errorf("request symbols = %q", net.params["symbols"])
	}
}

func TestFetchSnapshotFallbacks(t *testing.T) {
	// No longName, no trailingPE: shortName and forwardPE step in.
	net := &fakeNetwork{payload: []byte(`{
		"quoteResponse": {
			"result": [{
				"symbol": "RIVN",
				"shortName": "Rivian Automotive",
				"forwardPE": 45.2,
				"regularMarketPrice": 12.3
			}],
			"error": null
		}
	}`)}

	snap, err := newTestSource(net).FetchSnapshot("RIVN")
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}
	if snap.CompanyName == nil || *snap.CompanyName != "Rivian Automotive" {
		t.Errorf("shortName fallback failed: %v", snap.CompanyName)
	}
	if snap.PERatio == nil || *snap.PERatio != 45.2 {
		t.Errorf("forwardPE fallback failed: %v", snap.PERatio)
	}
}

func TestFetchSnapshotMissingFieldsStayNil(t *testing.T) {
	// ETF-style payload: no P/E at all, empty longName.
	net := &fakeNetwork{payload: []byte(`{
		"quoteResponse": {
			"result": [{
				"symbol": "SPY",
				"longName": "",
				"regularMarketPrice": 560.0
			}],
			"error": null
		}
	}`)}

	snap, err := newTestSource(net).FetchSnapshot("SPY")
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}
	if snap.CompanyName != nil {
		t.Errorf("empty longName must map to nil, got %v", *snap.CompanyName)
	}
	if snap.PERatio != nil {
		t.Errorf("missing PE must stay nil, got %v", *snap.PERatio)
	}
	if snap.MarketCap != nil {
		t.Errorf("missing market cap must stay nil, got %v", *snap.MarketCap)
	}
}

func TestFetchSnapshotEmptyResult(t *testing.T) {
	net := &fakeNetwork{payload: []byte(`{"quoteResponse": {"result": [], "error": null}}`)}

	_, err := newTestSource(net).FetchSnapshot("NOPE")
	if err == nil {
		t.Fatal("expected error for empty result set")
	}
	var dsErr *helpers.DataSourceError
	if !errors.As(err, &dsErr) {
		t.Fatalf("expected DataSourceError, got %T", err)
	}
}

func TestFetchSnapshotAPIError(t *testing.T) {
	net := &fakeNetwork{payload: []byte(`{
		"quoteResponse": {
			"result": [],
			"error": {"code": "Bad Request", "description": "Invalid symbol"}
		}
	}`)}

	_, err := newTestSource(net).FetchSnapshot("???")
	if err == nil {
		t.Fatal("expected error for api error payload")
	}
}

func TestFetchSnapshotMalformedJSON(t *testing.T) {
	net := &fakeNetwork{payload: []byte(`<html>rate limited</html>`)}

	_, err := newTestSource(net).FetchSnapshot("AAPL")
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestFetchSnapshotNetworkError(t *testing.T) {
	net := &fakeNetwork{err: helpers.NewDataSourceError("connection refused", nil)}

	_, err := newTestSource(net).FetchSnapshot("AAPL")
	if err == nil {
		t.Fatal("expected error when the network layer fails")
	}
}
