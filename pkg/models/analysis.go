// Package models defines the core data structures shared across EquityPilot:
// the analysis state that flows through the pipeline, the per-stage output
// records, and the collaborator schemas for market data and news.
package models

// UserIntent classifies what the user is trying to decide.
type UserIntent string

const (
	IntentBuy      UserIntent = "buy_decision"
	IntentSell     UserIntent = "sell_decision"
	IntentHold     UserIntent = "hold_decision"
	IntentResearch UserIntent = "research"
)

// TimeSensitivity indicates how urgently the user needs an answer.
type TimeSensitivity string

const (
	SensitivityUrgent TimeSensitivity = "urgent"
	SensitivityNormal TimeSensitivity = "normal"
)

// FocusArea steers prompt emphasis for downstream stages. It never gates
// which stages run.
type FocusArea string

const (
	FocusRisk          FocusArea = "risk_assessment"
	FocusFundamentals  FocusArea = "fundamentals"
	FocusTechnical     FocusArea = "technical"
	FocusNewsSentiment FocusArea = "news_sentiment"
	FocusComprehensive FocusArea = "comprehensive"
)

// Action is the final verdict of the synthesis stage.
type Action string

const (
	ActionBuy     Action = "BUY"
	ActionHold    Action = "HOLD"
	ActionSell    Action = "SELL"
	ActionUnknown Action = "UNKNOWN"
)

// PlanContext carries the planner's query classification.
type PlanContext struct {
	UserIntent      UserIntent      `json:"user_intent"`
	TimeSensitivity TimeSensitivity `json:"time_sensitivity"`
}

// AnalysisPlan is produced once by the planner stage and read by every
// downstream stage.
type AnalysisPlan struct {
	Ticker                   string      `json:"ticker"`
	PerformFinancialAnalysis bool        `json:"perform_financial_analysis"`
	PerformSentimentAnalysis bool        `json:"perform_sentiment_analysis"`
	FocusAreas               []FocusArea `json:"focus_areas"`
	Context                  PlanContext `json:"context"`
}

// FinancialAnalysis is the normalized judgment of the fundamentals/technicals
// stage. RawData always carries the verbatim fetched bundle so the numeric
// inputs survive for citation and debugging.
type FinancialAnalysis struct {
	FundamentalsSummary string        `json:"fundamentals_summary"`
	TechnicalSummary    string        `json:"technical_summary"`
	Assessment          string        `json:"assessment"`
	Strengths           []string      `json:"strengths"`
	Concerns            []string      `json:"concerns"`
	Valuation           string        `json:"valuation"` // Overvalued / Fairly Valued / Undervalued / Unknown
	Trend               string        `json:"trend"`     // Upward / Downward / Sideways / Unknown
	RawData             *MarketBundle `json:"raw_data,omitempty"`
}

// SentimentAnalysis is the normalized judgment of the news/sentiment stage.
// ArticleCount always reflects the true fetched count, never the model's claim.
type SentimentAnalysis struct {
	SentimentScore float64       `json:"sentiment_score"` // 0.0 (very negative) to 1.0 (very positive)
	ArticleCount   int           `json:"article_count"`
	KeyThemes      []string      `json:"key_themes"`
	OverallMood    string        `json:"overall_mood"` // Bullish / Bearish / Neutral
	Catalysts      []string      `json:"catalysts"`
	Concerns       []string      `json:"concerns"`
	Summary        string        `json:"summary"`
	SampleArticles []NewsArticle `json:"sample_articles,omitempty"`
}

// Recommendation is the synthesis stage's final output.
type Recommendation struct {
	Action        Action   `json:"action"`
	Confidence    float64  `json:"confidence"` // 0.0 to 1.0
	Reasoning     string   `json:"reasoning"`
	RiskLevel     string   `json:"risk_level"` // Low / Medium / High
	TimeHorizon   string   `json:"time_horizon"`
	KeyFactors    []string `json:"key_factors"`
	EntryStrategy string   `json:"entry_strategy"`
	WatchFor      []string `json:"watch_for"`
}

// Message is one entry in the pipeline's append-only execution log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnalysisState is the shared state threaded through all pipeline stages.
// Each optional record is written by exactly one stage and never overwritten;
// Messages and Errors only grow.
type AnalysisState struct {
	Ticker    string `json:"ticker"`
	UserQuery string `json:"user_query"`

	AnalysisPlan      *AnalysisPlan      `json:"analysis_plan,omitempty"`
	FinancialAnalysis *FinancialAnalysis `json:"financial_analysis,omitempty"`
	SentimentAnalysis *SentimentAnalysis `json:"sentiment_analysis,omitempty"`
	Recommendation    *Recommendation    `json:"recommendation,omitempty"`

	// Denormalized copies of the recommendation's headline fields, kept for
	// convenient external consumption.
	Confidence *float64 `json:"confidence,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`

	Messages []Message `json:"messages"`
	Errors   []string  `json:"errors"`
}

// NewAnalysisState creates the initial state for one analysis request.
func NewAnalysisState(ticker, userQuery string) *AnalysisState {
	return &AnalysisState{
		Ticker:    ticker,
		UserQuery: userQuery,
		Messages:  []Message{},
		Errors:    []string{},
	}
}
