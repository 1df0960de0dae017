package pipeline

import (
	"fmt"
	"strings"

	"github.com/raghavkal/equitypilot/pkg/models"
)

// Keyword sets for query classification. Focus sets are evaluated in a fixed
// order (risk, fundamentals, technical, news) and every match is kept; intent
// is first-match-wins in the order buy, sell, hold.
var (
	riskKeywords        = []string{"risk", "risky", "safe", "volatile", "volatility"}
	fundamentalKeywords = []string{"value", "fundamental", "earnings", "revenue", "profit"}
	technicalKeywords   = []string{"price", "trend", "momentum", "technical", "chart"}
	newsKeywords        = []string{"news", "sentiment", "recent", "latest", "happening"}

	buyKeywords  = []string{"buy", "invest", "purchase", "should i get"}
	sellKeywords = []string{"sell", "exit", "dump", "get out"}
	holdKeywords = []string{"hold", "keep", "maintain", "stay in"}

	urgentKeywords = []string{"today", "now", "urgent", "immediate", "asap", "quick", "right now"}
)

// Planner is the coordinator stage. It validates the ticker, classifies the
// user's query, and produces the analysis plan every later stage reads.
type Planner struct{}

// NewPlanner creates the coordinator stage.
func NewPlanner() *Planner { return &Planner{} }

// Run validates the input and emits the plan delta. An empty ticker yields a
// delta carrying only an error entry: downstream stages observe the missing
// plan and no-op.
func (p *Planner) Run(ticker, userQuery string) Delta {
	var d Delta

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		d.fail("coordinator: no ticker provided")
		return d
	}

	plan := &models.AnalysisPlan{
		Ticker: ticker,
		// Both stages always run; focus areas only steer prompt wording.
		PerformFinancialAnalysis: true,
		PerformSentimentAnalysis: true,
		FocusAreas:               determineFocusAreas(userQuery),
		Context: models.PlanContext{
			UserIntent:      classifyIntent(userQuery),
			TimeSensitivity: assessTimeSensitivity(userQuery),
		},
	}

	d.Plan = plan
	d.message(RoleCoordinator, fmt.Sprintf("Planning analysis for %s. Focus: %s",
		ticker, joinFocusAreas(plan.FocusAreas)))
	return d
}

// determineFocusAreas derives focus tags from the query via keyword matching.
// Multiple sets may match; with no match the single "comprehensive" tag is
// used.
func determineFocusAreas(userQuery string) []models.FocusArea {
	query := strings.ToLower(userQuery)

	var areas []models.FocusArea
	if containsAny(query, riskKeywords) {
		areas = append(areas, models.FocusRisk)
	}
	if containsAny(query, fundamentalKeywords) {
		areas = append(areas, models.FocusFundamentals)
	}
	if containsAny(query, technicalKeywords) {
		areas = append(areas, models.FocusTechnical)
	}
	if containsAny(query, newsKeywords) {
		areas = append(areas, models.FocusNewsSentiment)
	}

	if len(areas) == 0 {
		areas = []models.FocusArea{models.FocusComprehensive}
	}
	return areas
}

// classifyIntent scans for decision keywords, first match wins.
func classifyIntent(userQuery string) models.UserIntent {
	query := strings.ToLower(userQuery)
	switch {
	case containsAny(query, buyKeywords):
		return models.IntentBuy
	case containsAny(query, sellKeywords):
		return models.IntentSell
	case containsAny(query, holdKeywords):
		return models.IntentHold
	default:
		return models.IntentResearch
	}
}

// assessTimeSensitivity flags queries that need an immediate answer.
func assessTimeSensitivity(userQuery string) models.TimeSensitivity {
	if containsAny(strings.ToLower(userQuery), urgentKeywords) {
		return models.SensitivityUrgent
	}
	return models.SensitivityNormal
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func joinFocusAreas(areas []models.FocusArea) string {
	parts := make([]string, len(areas))
	for i, a := range areas {
		parts[i] = string(a)
	}
	return strings.Join(parts, ", ")
}
