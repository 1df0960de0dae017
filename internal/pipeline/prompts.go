package pipeline

import (
	"fmt"
	"strings"

	"github.com/raghavkal/equitypilot/pkg/models"
)

// Prompt builders for the three LLM-backed stages. Missing numeric values
// render as "N/A" so the model is never shown a fabricated zero.

func buildFinancialPrompt(ticker string, bundle *models.MarketBundle, plan *models.AnalysisPlan) string {
	info := bundle.Info
	fund := bundle.Fundamentals
	tech := bundle.History

	companyName := "Unknown"
	sector := "Unknown"
	industry := "Unknown"
	var marketCap string
	if info != nil {
		if info.CompanyName != "" {
			companyName = info.CompanyName
		}
		if info.Sector != "" {
			sector = info.Sector
		}
		if info.Industry != "" {
			industry = info.Industry
		}
	}
	if info != nil && info.MarketCap > 0 {
		marketCap = fmt.Sprintf("$%.0f", info.MarketCap)
	} else {
		marketCap = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a financial analyst. Analyze the following data for %s (%s).\n\n", ticker, companyName)

	fmt.Fprintf(&b, "COMPANY INFO:\n")
	fmt.Fprintf(&b, "- Sector: %s\n", sector)
	fmt.Fprintf(&b, "- Industry: %s\n", industry)
	fmt.Fprintf(&b, "- Market Cap: %s\n\n", marketCap)

	fmt.Fprintf(&b, "FUNDAMENTAL METRICS:\n")
	if fund != nil {
		fmt.Fprintf(&b, "- P/E Ratio: %s\n", fmtNum(fund.PERatio))
		fmt.Fprintf(&b, "- Forward P/E: %s\n", fmtNum(fund.ForwardPE))
		fmt.Fprintf(&b, "- Profit Margin: %s\n", fmtNum(fund.ProfitMargin))
		fmt.Fprintf(&b, "- Revenue Growth: %s\n", fmtNum(fund.RevenueGrowth))
		fmt.Fprintf(&b, "- Earnings Growth: %s\n", fmtNum(fund.EarningsGrowth))
		fmt.Fprintf(&b, "- Debt-to-Equity: %s\n", fmtNum(fund.DebtToEquity))
		fmt.Fprintf(&b, "- ROE: %s\n", fmtNum(fund.ROE))
		fmt.Fprintf(&b, "- Beta: %s\n", fmtNum(fund.Beta))
	} else {
		fmt.Fprintf(&b, "- Not available\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "TECHNICAL INDICATORS:\n")
	if tech != nil {
		fmt.Fprintf(&b, "- Current Price: $%s\n", fmtFixed(tech.CurrentPrice))
		fmt.Fprintf(&b, "- 50-day MA: $%s\n", fmtNum(tech.MA50))
		fmt.Fprintf(&b, "- 200-day MA: $%s\n", fmtNum(tech.MA200))
		fmt.Fprintf(&b, "- RSI: %s\n", fmtNum(tech.RSI))
		fmt.Fprintf(&b, "- 52-week High: $%s\n", fmtFixed(tech.WeekHigh52))
		fmt.Fprintf(&b, "- 52-week Low: $%s\n", fmtFixed(tech.WeekLow52))
		fmt.Fprintf(&b, "- 1-month change: %.2f%%\n", tech.PriceChange1M)
		fmt.Fprintf(&b, "- 3-month change: %.2f%%\n", tech.PriceChange3M)
		fmt.Fprintf(&b, "- Volatility (annualized): %.2f%%\n", tech.Volatility)
	} else {
		fmt.Fprintf(&b, "- Not available\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "FOCUS AREAS: %s\n\n", joinFocusAreas(plan.FocusAreas))

	b.WriteString(`Provide your analysis ONLY as a JSON object (no markdown, no code blocks):
{
    "fundamentals_summary": "Brief summary of fundamental strength/weakness",
    "technical_summary": "Brief summary of technical indicators and price action",
    "assessment": "Overall financial assessment (2-3 sentences)",
    "strengths": ["strength 1", "strength 2", "strength 3"],
    "concerns": ["concern 1", "concern 2", "concern 3"],
    "valuation": "Overvalued/Fairly Valued/Undervalued",
    "trend": "Upward/Downward/Sideways"
}

IMPORTANT: Return ONLY the JSON object. No explanations, no markdown code blocks, just the raw JSON.

Be concise, factual, and balanced. Consider both bull and bear cases.
`)
	return b.String()
}

const maxPromptArticles = 20

func buildSentimentPrompt(ticker string, articles []models.NewsArticle, plan *models.AnalysisPlan) string {
	top := articles
	if len(top) > maxPromptArticles {
		top = top[:maxPromptArticles]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a market sentiment analyst. Analyze the following news articles about %s.\n\n", ticker)
	fmt.Fprintf(&b, "ARTICLES TO ANALYZE (%d most recent):\n\n", len(top))

	for i, a := range top {
		title := a.Title
		if title == "" {
			title = "No title"
		}
		source := a.Source
		if source == "" {
			source = "Unknown"
		}
		desc := a.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&b, "Article %d:\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", title)
		fmt.Fprintf(&b, "Source: %s\n", source)
		fmt.Fprintf(&b, "Date: %s\n", a.PublishedAt.Format("2006-01-02"))
		fmt.Fprintf(&b, "Description: %s\n\n", desc)
	}

	fmt.Fprintf(&b, "FOCUS AREAS: %s\n\n", joinFocusAreas(plan.FocusAreas))

	b.WriteString(`Based on these articles, provide sentiment analysis ONLY as a JSON object (no markdown, no code blocks):
{
    "sentiment_score": 0.5,
    "overall_mood": "Bullish",
    "key_themes": ["theme 1", "theme 2", "theme 3"],
    "catalysts": ["positive factor 1", "positive factor 2"],
    "concerns": ["negative factor 1", "negative factor 2"],
    "summary": "2-3 sentence summary of overall sentiment and why"
}

IMPORTANT: Return ONLY the JSON object. No explanations, no markdown code blocks, just the raw JSON.

Consider:
- Tone of headlines and content (positive vs negative)
- Recurring themes across articles
- Recent events or announcements
- Market reactions mentioned
- Analyst opinions cited

Be balanced and factual. Distinguish between hype and substance.
`)
	return b.String()
}

func buildSynthesisPrompt(ticker, userQuery string, fin *models.FinancialAnalysis, sent *models.SentimentAnalysis, plan *models.AnalysisPlan) string {
	assessment := fin.Assessment
	if assessment == "" {
		assessment = "No assessment"
	}
	valuation := orDefault(fin.Valuation, "Unknown")
	trend := orDefault(fin.Trend, "Unknown")
	mood := orDefault(sent.OverallMood, "Neutral")

	intent := models.IntentResearch
	if plan != nil {
		intent = plan.Context.UserIntent
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an investment advisor synthesizing analysis for %s.\n\n", ticker)
	fmt.Fprintf(&b, "USER QUESTION: %q\n", userQuery)
	fmt.Fprintf(&b, "USER INTENT: %s\n\n", intent)

	fmt.Fprintf(&b, "FINANCIAL ANALYSIS:\n")
	fmt.Fprintf(&b, "Assessment: %s\n", assessment)
	fmt.Fprintf(&b, "Valuation: %s\n", valuation)
	fmt.Fprintf(&b, "Price Trend: %s\n\n", trend)

	fmt.Fprintf(&b, "Strengths:\n%s\n", bulletList(fin.Strengths, 5))
	fmt.Fprintf(&b, "Concerns:\n%s\n", bulletList(fin.Concerns, 5))

	fmt.Fprintf(&b, "SENTIMENT ANALYSIS:\n")
	fmt.Fprintf(&b, "Overall Mood: %s\n", mood)
	fmt.Fprintf(&b, "Sentiment Score: %.2f (0=very negative, 1=very positive)\n\n", sent.SentimentScore)

	fmt.Fprintf(&b, "Key Themes:\n%s\n", bulletList(sent.KeyThemes, 5))
	fmt.Fprintf(&b, "Positive Catalysts:\n%s\n", bulletList(sent.Catalysts, 3))
	fmt.Fprintf(&b, "Concerns from News:\n%s\n", bulletList(sent.Concerns, 3))

	b.WriteString(`Provide your final investment recommendation ONLY as a JSON object (no markdown, no code blocks):
{
    "action": "BUY",
    "confidence": 0.75,
    "reasoning": "3-4 sentence explanation addressing both bull and bear cases",
    "risk_level": "Medium",
    "time_horizon": "Long-term (1+ years)",
    "key_factors": ["factor 1", "factor 2", "factor 3"],
    "entry_strategy": "Dollar-cost average over 3 months",
    "watch_for": ["risk 1 to monitor", "risk 2 to monitor"]
}

IMPORTANT: Return ONLY the JSON object. No explanations, no markdown code blocks, just the raw JSON.

DECISION GUIDELINES:
- BUY: Strong fundamentals + positive sentiment, or significantly undervalued
- HOLD: Mixed signals, fairly valued, or insufficient conviction either way
- SELL: Weak fundamentals + negative sentiment, or significantly overvalued

- Confidence >0.7: Strong conviction with aligned signals
- Confidence 0.5-0.7: Moderate conviction, some conflicting signals
- Confidence <0.5: Low conviction, highly conflicting signals

Be honest about uncertainty. If financial and sentiment signals conflict, explain the tradeoff clearly.
`)
	return b.String()
}

func fmtNum(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func fmtFixed(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func bulletList(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	if len(items) == 0 {
		return "- None noted\n"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return b.String()
}
