package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// rewriteTransport points every request at the test server regardless of the
// host baked into the request URL.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

const summaryFixture = `{
  "quoteSummary": {
    "result": [{
      "assetProfile": {
        "sector": "Technology",
        "industry": "Consumer Electronics",
        "longBusinessSummary": "Apple designs and sells consumer electronics."
      },
      "price": {
        "longName": "Apple Inc.",
        "currency": "USD",
        "exchangeName": "NasdaqGS",
        "marketCap": {"raw": 2500000000000, "fmt": "2.5T"},
        "regularMarketPrice": {"raw": 150.25, "fmt": "150.25"}
      },
      "summaryDetail": {
        "trailingPE": {"raw": 28.4},
        "forwardPE": {"raw": 25.1},
        "beta": {"raw": 1.2}
      },
      "financialData": {
        "profitMargins": {"raw": 0.25},
        "returnOnEquity": {"raw": 1.45},
        "debtToEquity": {"raw": 170.5},
        "recommendationKey": "buy",
        "targetMeanPrice": {"raw": 180.0},
        "numberOfAnalystOpinions": {"raw": 38}
      },
      "defaultKeyStatistics": {
        "pegRatio": {"raw": 2.1},
        "priceToBook": {"raw": 45.0}
      }
    }],
    "error": null
  }
}`

const chartFixture = `{
  "chart": {
    "result": [{
      "timestamp": [1700000000, 1700086400, 1700172800, 1700259200],
      "indicators": {
        "quote": [{
          "high": [102, 104, null, 108],
          "low": [98, 100, null, 103],
          "close": [100, 103, null, 106],
          "volume": [1000000, 1200000, null, 900000]
        }]
      }
    }],
    "error": null
  }
}`

func newYahooTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	client := NewClient(WithHTTPClient(&http.Client{Transport: rewriteTransport{target: target}}))
	return client, &hits
}

func yahooHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/"):
			w.Write([]byte(summaryFixture)) //nolint:errcheck
		case strings.HasPrefix(r.URL.Path, "/v8/finance/chart/"):
			w.Write([]byte(chartFixture)) //nolint:errcheck
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}
}

func TestFetchAll(t *testing.T) {
	client, _ := newYahooTestClient(t, yahooHandler(t))

	bundle, err := client.Fetch(context.Background(), "aapl", KindAll, "1y")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if bundle.Ticker != "AAPL" || bundle.Source != "yfinance" {
		t.Errorf("bundle identity: %s/%s", bundle.Ticker, bundle.Source)
	}

	info := bundle.Info
	if info == nil {
		t.Fatal("info missing")
	}
	if info.CompanyName != "Apple Inc." || info.Sector != "Technology" {
		t.Errorf("info: %+v", info)
	}
	if info.CurrentPrice != 150.25 || info.MarketCap != 2.5e12 {
		t.Errorf("price/cap: %f / %f", info.CurrentPrice, info.MarketCap)
	}

	fund := bundle.Fundamentals
	if fund == nil {
		t.Fatal("fundamentals missing")
	}
	if fund.PERatio == nil || *fund.PERatio != 28.4 {
		t.Errorf("pe: %v", fund.PERatio)
	}
	if fund.ROE == nil || *fund.ROE != 1.45 {
		t.Errorf("roe: %v", fund.ROE)
	}
	if fund.AnalystRecommendation != "buy" {
		t.Errorf("recommendation: %q", fund.AnalystRecommendation)
	}
	if fund.NumberOfAnalystOpinions == nil || *fund.NumberOfAnalystOpinions != 38 {
		t.Errorf("analyst opinions: %v", fund.NumberOfAnalystOpinions)
	}
	// Absent Yahoo fields stay nil rather than becoming zero.
	if fund.DividendYield != nil {
		t.Error("absent dividend yield should be nil")
	}

	hist := bundle.History
	if hist == nil {
		t.Fatal("history missing")
	}
	if hist.CurrentPrice != 106 {
		t.Errorf("current price: %f", hist.CurrentPrice)
	}
	if hist.WeekHigh52 != 108 || hist.WeekLow52 != 98 {
		t.Errorf("52-week range: %f..%f", hist.WeekLow52, hist.WeekHigh52)
	}
	// 4-bar series is far too short for the moving averages.
	if hist.MA50 != nil || hist.MA200 != nil || hist.RSI != nil {
		t.Error("short series should leave long indicators nil")
	}
}

func TestFetchKindSelection(t *testing.T) {
	client, _ := newYahooTestClient(t, yahooHandler(t))

	info, err := client.Fetch(context.Background(), "AAPL", KindInfo, "")
	if err != nil {
		t.Fatalf("KindInfo: %v", err)
	}
	if info.Info == nil || info.Fundamentals != nil || info.History != nil {
		t.Error("KindInfo should populate info only")
	}

	fund, err := client.Fetch(context.Background(), "AAPL", KindFundamentals, "")
	if err != nil {
		t.Fatalf("KindFundamentals: %v", err)
	}
	if fund.Fundamentals == nil || fund.Info != nil || fund.History != nil {
		t.Error("KindFundamentals should populate fundamentals only")
	}

	hist, err := client.Fetch(context.Background(), "AAPL", KindHistory, "6mo")
	if err != nil {
		t.Fatalf("KindHistory: %v", err)
	}
	if hist.History == nil || hist.Info != nil || hist.Fundamentals != nil {
		t.Error("KindHistory should populate history only")
	}
}

func TestFetchUsesCache(t *testing.T) {
	client, hits := newYahooTestClient(t, yahooHandler(t))

	if _, err := client.Fetch(context.Background(), "AAPL", KindInfo, ""); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	first := *hits
	if _, err := client.Fetch(context.Background(), "AAPL", KindInfo, ""); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if *hits != first {
		t.Errorf("second fetch hit the network: %d -> %d requests", first, *hits)
	}
}

func TestFetchCacheExpires(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		yahooHandler(t)(w, r)
	}))
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)

	client := NewClient(
		WithHTTPClient(&http.Client{Transport: rewriteTransport{target: target}}),
		WithCacheTTL(10*time.Millisecond),
	)

	if _, err := client.Fetch(context.Background(), "AAPL", KindInfo, ""); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := client.Fetch(context.Background(), "AAPL", KindInfo, ""); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if hits != 2 {
		t.Errorf("expired entry should refetch, got %d requests", hits)
	}
}

func TestFetchEmptyTicker(t *testing.T) {
	client, _ := newYahooTestClient(t, yahooHandler(t))
	if _, err := client.Fetch(context.Background(), "  ", KindAll, ""); err == nil {
		t.Fatal("expected an error for an empty ticker")
	}
}

func TestFetchYahooError(t *testing.T) {
	client, _ := newYahooTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)) //nolint:errcheck
	})

	_, err := client.Fetch(context.Background(), "NOPE", KindInfo, "")
	if err == nil || !strings.Contains(err.Error(), "delisted") {
		t.Errorf("got %v, want the Yahoo error description", err)
	}
}

func TestFetchHTTPError(t *testing.T) {
	client, _ := newYahooTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	_, err := client.Fetch(context.Background(), "AAPL", KindInfo, "")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("got %v, want an HTTP 429 error", err)
	}
}

func TestFetchEmptyHistory(t *testing.T) {
	client, _ := newYahooTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{"close":[]}]}}],"error":null}}`)) //nolint:errcheck
	})

	_, err := client.Fetch(context.Background(), "AAPL", KindHistory, "")
	if err == nil || !strings.Contains(err.Error(), "no data available") {
		t.Errorf("got %v, want ErrNoData", err)
	}
}
