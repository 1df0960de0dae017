package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raghavkal/equitypilot/pkg/models"
)

const (
	chartURL   = "https://query1.finance.yahoo.com/v8/finance/chart/%s?range=%s&interval=1d"
	summaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary/%s?modules=%s"

	summaryModules = "assetProfile,price,summaryDetail,financialData,defaultKeyStatistics"
)

// Client is the Yahoo Finance market-data collaborator.
type Client struct {
	http    *http.Client
	cache   *cache
	limiter *rateLimiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCacheTTL overrides the default 5-minute cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = newCache(ttl) }
}

// NewClient creates a Yahoo Finance client with caching and rate limiting.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   newCache(5 * time.Minute),
		limiter: newRateLimiter(5, time.Second), // 5 req/s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collaborator name.
func (c *Client) Name() string { return "yfinance" }

// Fetch assembles a market-data bundle for the ticker. kind selects which
// sections are populated; period applies to the history section only.
func (c *Client) Fetch(ctx context.Context, ticker string, kind Kind, period string) (*models.MarketBundle, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("marketdata: empty ticker")
	}
	if period == "" {
		period = "1y"
	}

	cacheKey := fmt.Sprintf("bundle:%s:%s:%s", ticker, kind, period)
	if cached, ok := c.cache.get(cacheKey); ok {
		return cached.(*models.MarketBundle), nil
	}

	bundle := &models.MarketBundle{
		Ticker: ticker,
		Source: c.Name(),
	}

	if kind == KindInfo || kind == KindFundamentals || kind == KindAll {
		summary, err := c.fetchSummary(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("marketdata %s: %w", ticker, err)
		}
		if kind != KindFundamentals {
			bundle.Info = summary.companyInfo()
		}
		if kind != KindInfo {
			bundle.Fundamentals = summary.fundamentals()
		}
	}

	if kind == KindHistory || kind == KindAll {
		history, err := c.fetchHistory(ctx, ticker, period)
		if err != nil {
			return nil, fmt.Errorf("marketdata %s: %w", ticker, err)
		}
		bundle.History = history
	}

	c.cache.set(cacheKey, bundle)
	return bundle, nil
}

// --- quoteSummary ---

func (c *Client) fetchSummary(ctx context.Context, ticker string) (*yfSummaryResult, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf(summaryURL, url.PathEscape(ticker), summaryModules)
	body, err := doGet(ctx, c.http, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp yfSummaryResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo: %s", resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, ErrNoData
	}
	return &resp.QuoteSummary.Result[0], nil
}

// --- chart / history ---

func (c *Client) fetchHistory(ctx context.Context, ticker, period string) (*models.TechnicalSnapshot, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf(chartURL, url.PathEscape(ticker), url.QueryEscape(period))
	body, err := doGet(ctx, c.http, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp yfChartResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	bars := extractBars(result)
	if len(bars.closes) == 0 {
		return nil, ErrNoData
	}

	return computeSnapshot(bars), nil
}

func decodeJSON(body io.Reader, dest any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}

// --- Yahoo wire types ---

// yfVal is Yahoo's {"raw": 1.23, "fmt": "1.23"} numeric wrapper. Absent or
// empty objects decode with a nil Raw.
type yfVal struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

func (v *yfVal) ptr() *float64 {
	if v == nil {
		return nil
	}
	return v.Raw
}

func (v *yfVal) or(def float64) float64 {
	if v == nil || v.Raw == nil {
		return def
	}
	return *v.Raw
}

type yfIntVal struct {
	Raw *int `json:"raw"`
}

func (v *yfIntVal) ptr() *int {
	if v == nil {
		return nil
	}
	return v.Raw
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []yfSummaryResult `json:"result"`
		Error  *yfError          `json:"error"`
	} `json:"quoteSummary"`
}

type yfSummaryResult struct {
	AssetProfile *struct {
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
		LongBusinessSummary string `json:"longBusinessSummary"`
	} `json:"assetProfile"`

	Price *struct {
		LongName           string `json:"longName"`
		ShortName          string `json:"shortName"`
		Currency           string `json:"currency"`
		ExchangeName       string `json:"exchangeName"`
		MarketCap          *yfVal `json:"marketCap"`
		RegularMarketPrice *yfVal `json:"regularMarketPrice"`
	} `json:"price"`

	SummaryDetail *struct {
		TrailingPE    *yfVal `json:"trailingPE"`
		ForwardPE     *yfVal `json:"forwardPE"`
		PriceToSales  *yfVal `json:"priceToSalesTrailing12Months"`
		Beta          *yfVal `json:"beta"`
		DividendYield *yfVal `json:"dividendYield"`
		PayoutRatio   *yfVal `json:"payoutRatio"`
	} `json:"summaryDetail"`

	FinancialData *struct {
		ProfitMargins           *yfVal    `json:"profitMargins"`
		OperatingMargins        *yfVal    `json:"operatingMargins"`
		GrossMargins            *yfVal    `json:"grossMargins"`
		ReturnOnEquity          *yfVal    `json:"returnOnEquity"`
		ReturnOnAssets          *yfVal    `json:"returnOnAssets"`
		RevenueGrowth           *yfVal    `json:"revenueGrowth"`
		EarningsGrowth          *yfVal    `json:"earningsGrowth"`
		DebtToEquity            *yfVal    `json:"debtToEquity"`
		CurrentRatio            *yfVal    `json:"currentRatio"`
		QuickRatio              *yfVal    `json:"quickRatio"`
		RecommendationKey       string    `json:"recommendationKey"`
		TargetMeanPrice         *yfVal    `json:"targetMeanPrice"`
		NumberOfAnalystOpinions *yfIntVal `json:"numberOfAnalystOpinions"`
	} `json:"financialData"`

	DefaultKeyStatistics *struct {
		PEGRatio                *yfVal `json:"pegRatio"`
		PriceToBook             *yfVal `json:"priceToBook"`
		EarningsQuarterlyGrowth *yfVal `json:"earningsQuarterlyGrowth"`
	} `json:"defaultKeyStatistics"`
}

func (r *yfSummaryResult) companyInfo() *models.CompanyInfo {
	info := &models.CompanyInfo{CompanyName: "Unknown"}
	if r.Price != nil {
		name := r.Price.LongName
		if name == "" {
			name = r.Price.ShortName
		}
		if name != "" {
			info.CompanyName = name
		}
		info.Currency = r.Price.Currency
		info.Exchange = r.Price.ExchangeName
		info.MarketCap = r.Price.MarketCap.or(0)
		info.CurrentPrice = r.Price.RegularMarketPrice.or(0)
	}
	if info.Currency == "" {
		info.Currency = "USD"
	}
	if r.AssetProfile != nil {
		info.Sector = r.AssetProfile.Sector
		info.Industry = r.AssetProfile.Industry
		info.Description = truncate(r.AssetProfile.LongBusinessSummary, 500)
	}
	return info
}

func (r *yfSummaryResult) fundamentals() *models.FundamentalMetrics {
	m := &models.FundamentalMetrics{}
	if sd := r.SummaryDetail; sd != nil {
		m.PERatio = sd.TrailingPE.ptr()
		m.ForwardPE = sd.ForwardPE.ptr()
		m.PriceToSales = sd.PriceToSales.ptr()
		m.Beta = sd.Beta.ptr()
		m.DividendYield = sd.DividendYield.ptr()
		m.PayoutRatio = sd.PayoutRatio.ptr()
	}
	if ks := r.DefaultKeyStatistics; ks != nil {
		m.PEGRatio = ks.PEGRatio.ptr()
		m.PriceToBook = ks.PriceToBook.ptr()
		m.EarningsQuarterlyGrowth = ks.EarningsQuarterlyGrowth.ptr()
	}
	if fd := r.FinancialData; fd != nil {
		m.ProfitMargin = fd.ProfitMargins.ptr()
		m.OperatingMargin = fd.OperatingMargins.ptr()
		m.GrossMargin = fd.GrossMargins.ptr()
		m.ROE = fd.ReturnOnEquity.ptr()
		m.ROA = fd.ReturnOnAssets.ptr()
		m.RevenueGrowth = fd.RevenueGrowth.ptr()
		m.EarningsGrowth = fd.EarningsGrowth.ptr()
		m.DebtToEquity = fd.DebtToEquity.ptr()
		m.CurrentRatio = fd.CurrentRatio.ptr()
		m.QuickRatio = fd.QuickRatio.ptr()
		m.AnalystRecommendation = fd.RecommendationKey
		m.TargetMeanPrice = fd.TargetMeanPrice.ptr()
		m.NumberOfAnalystOpinions = fd.NumberOfAnalystOpinions.ptr()
	}
	return m
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
