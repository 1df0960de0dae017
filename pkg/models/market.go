package models

// CompanyInfo is the basic identity block of a market-data bundle.
type CompanyInfo struct {
	CompanyName  string  `json:"company_name"`
	Sector       string  `json:"sector,omitempty"`
	Industry     string  `json:"industry,omitempty"`
	MarketCap    float64 `json:"market_cap,omitempty"`
	CurrentPrice float64 `json:"current_price,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	Exchange     string  `json:"exchange,omitempty"`
	Description  string  `json:"description,omitempty"`
}

// TechnicalSnapshot summarizes price history into the indicators the
// financial stage feeds to the model. Nil pointers mean the indicator could
// not be computed (e.g. too little history for a 200-day average).
type TechnicalSnapshot struct {
	CurrentPrice  float64  `json:"current_price"`
	MA50          *float64 `json:"ma_50"`
	MA200         *float64 `json:"ma_200"`
	RSI           *float64 `json:"rsi"`
	WeekHigh52    float64  `json:"52_week_high"`
	WeekLow52     float64  `json:"52_week_low"`
	PriceChange1M float64  `json:"price_change_1m"` // percent
	PriceChange3M float64  `json:"price_change_3m"` // percent
	Volatility    float64  `json:"volatility"`      // annualized, percent
	VolumeAvg     float64  `json:"volume_avg"`
}

// FundamentalMetrics holds the valuation, profitability, growth, health,
// risk, dividend and analyst figures for a ticker. Nil means the source did
// not report the figure.
type FundamentalMetrics struct {
	PERatio      *float64 `json:"pe_ratio"`
	ForwardPE    *float64 `json:"forward_pe"`
	PEGRatio     *float64 `json:"peg_ratio"`
	PriceToBook  *float64 `json:"price_to_book"`
	PriceToSales *float64 `json:"price_to_sales"`

	ProfitMargin    *float64 `json:"profit_margin"`
	OperatingMargin *float64 `json:"operating_margin"`
	GrossMargin     *float64 `json:"gross_margin"`
	ROE             *float64 `json:"roe"`
	ROA             *float64 `json:"roa"`

	RevenueGrowth           *float64 `json:"revenue_growth"`
	EarningsGrowth          *float64 `json:"earnings_growth"`
	EarningsQuarterlyGrowth *float64 `json:"earnings_quarterly_growth"`

	DebtToEquity *float64 `json:"debt_to_equity"`
	CurrentRatio *float64 `json:"current_ratio"`
	QuickRatio   *float64 `json:"quick_ratio"`

	Beta *float64 `json:"beta"`

	DividendYield *float64 `json:"dividend_yield"`
	PayoutRatio   *float64 `json:"payout_ratio"`

	AnalystRecommendation    string   `json:"analyst_recommendation,omitempty"`
	TargetMeanPrice          *float64 `json:"target_mean_price"`
	NumberOfAnalystOpinions  *int     `json:"number_of_analyst_opinions"`
}

// MarketBundle is the full market-data collaborator response for a ticker.
// Which sections are populated depends on the requested fetch kind.
type MarketBundle struct {
	Ticker       string              `json:"ticker"`
	Source       string              `json:"source"`
	Info         *CompanyInfo        `json:"company_info,omitempty"`
	Fundamentals *FundamentalMetrics `json:"fundamentals,omitempty"`
	History      *TechnicalSnapshot  `json:"technical,omitempty"`
}

// CompanyName returns the bundle's company name, or "" when unknown.
func (b *MarketBundle) CompanyName() string {
	if b == nil || b.Info == nil {
		return ""
	}
	return b.Info.CompanyName
}
