package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raghavkal/equitypilot/internal/llm"
	"github.com/raghavkal/equitypilot/internal/marketdata"
	"github.com/raghavkal/equitypilot/pkg/models"
)

// ── Test doubles ──

const (
	finJSON = `{
  "fundamentals_summary": "Healthy margins and growth.",
  "technical_summary": "Price above both moving averages.",
  "assessment": "Financially strong.",
  "strengths": ["Margins", "Growth"],
  "concerns": ["Valuation"],
  "valuation": "Fairly Valued",
  "trend": "Upward"
}`
	sentJSON = `{
  "sentiment_score": 0.7,
  "overall_mood": "Bullish",
  "key_themes": ["Product launch"],
  "catalysts": ["New market"],
  "concerns": ["Competition"],
  "summary": "Coverage is positive."
}`
	recJSON = `{
  "action": "BUY",
  "confidence": 0.75,
  "reasoning": "Fundamentals and sentiment align.",
  "risk_level": "Medium",
  "time_horizon": "Long-term (1+ years)",
  "key_factors": ["Valuation", "Momentum"],
  "entry_strategy": "Dollar-cost average",
  "watch_for": ["Competition"]
}`
)

// mockCompleter routes a canned response by recognizing which stage's prompt
// it received. The call counter is atomic because parallel runs complete from
// two goroutines.
type mockCompleter struct {
	financialReply string
	sentimentReply string
	synthesisReply string
	err            error
	calls          atomic.Int32
}

func newMockCompleter() *mockCompleter {
	return &mockCompleter{
		financialReply: finJSON,
		sentimentReply: sentJSON,
		synthesisReply: recJSON,
	}
}

func (m *mockCompleter) Complete(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	prompt := messages[len(messages)-1].Content
	var content string
	switch {
	case strings.Contains(prompt, "financial analyst"):
		content = m.financialReply
	case strings.Contains(prompt, "sentiment analyst"):
		content = m.sentimentReply
	case strings.Contains(prompt, "investment advisor"):
		content = m.synthesisReply
	default:
		content = "{}"
	}
	return &llm.Response{Content: content, Model: "mock"}, nil
}

type mockMarket struct {
	bundle *models.MarketBundle
	err    error
}

func (m *mockMarket) Fetch(ctx context.Context, ticker string, kind marketdata.Kind, period string) (*models.MarketBundle, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.bundle != nil {
		return m.bundle, nil
	}
	price := 150.0
	cap := 2.5e12
	pe := 28.0
	return &models.MarketBundle{
		Ticker: ticker,
		Source: "yfinance",
		Info: &models.CompanyInfo{
			CompanyName:  "Apple Inc.",
			Sector:       "Technology",
			MarketCap:    cap,
			CurrentPrice: price,
		},
		Fundamentals: &models.FundamentalMetrics{PERatio: &pe},
		History:      &models.TechnicalSnapshot{CurrentPrice: price},
	}, nil
}

type mockNews struct {
	articles   []models.NewsArticle
	err        error
	gotCompany string
}

func (m *mockNews) Fetch(ctx context.Context, ticker, companyName string, days int) (*models.NewsResult, error) {
	m.gotCompany = companyName
	if m.err != nil {
		return nil, m.err
	}
	return &models.NewsResult{
		Ticker:       ticker,
		Source:       "mock",
		Articles:     m.articles,
		TotalResults: len(m.articles),
	}, nil
}

func someArticles(n int) []models.NewsArticle {
	arts := make([]models.NewsArticle, n)
	for i := range arts {
		arts[i] = models.NewsArticle{
			Title:       "Headline",
			Source:      "Wire",
			PublishedAt: time.Now().AddDate(0, 0, -i),
		}
	}
	return arts
}

func testPlan(ticker string) *models.AnalysisPlan {
	return &models.AnalysisPlan{
		Ticker:                   ticker,
		PerformFinancialAnalysis: true,
		PerformSentimentAnalysis: true,
		FocusAreas:               []models.FocusArea{models.FocusComprehensive},
		Context:                  models.PlanContext{UserIntent: models.IntentBuy, TimeSensitivity: models.SensitivityNormal},
	}
}

func newTestPipeline(market *mockMarket, news *mockNews, completer *mockCompleter, parallel bool) *Pipeline {
	return New(market, news, completer, Config{Parallel: parallel}, nil)
}

// ── Financial stage ──

func TestFinancialStageHappyPath(t *testing.T) {
	stage := NewFinancialStage(&mockMarket{}, newMockCompleter(), nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"))
	if len(d.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", d.Errors)
	}
	fin := d.Financial
	if fin == nil {
		t.Fatal("financial record should be set")
	}
	if fin.Valuation != "Fairly Valued" || fin.Trend != "Upward" {
		t.Errorf("parsed record wrong: %+v", fin)
	}
	if fin.RawData == nil || fin.RawData.CompanyName() != "Apple Inc." {
		t.Error("raw market bundle should always be attached")
	}
	if len(d.Messages) != 1 || d.Messages[0].Content != "Completed financial analysis for AAPL" {
		t.Errorf("messages: %+v", d.Messages)
	}
}

func TestFinancialStageFallbackOnProse(t *testing.T) {
	mc := newMockCompleter()
	mc.financialReply = "The company looks strong overall, I would lean positive."
	stage := NewFinancialStage(&mockMarket{}, mc, nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"))
	if len(d.Errors) != 0 {
		t.Fatalf("fallback must not produce errors: %v", d.Errors)
	}
	fin := d.Financial
	if fin == nil {
		t.Fatal("fallback record should be set")
	}
	if fin.Valuation != "Unknown" || fin.Trend != "Unknown" {
		t.Errorf("fallback markers missing: %+v", fin)
	}
	if fin.TechnicalSummary != "See fundamentals summary" {
		t.Errorf("technical summary: got %q", fin.TechnicalSummary)
	}
	if !strings.Contains(fin.FundamentalsSummary, "lean positive") {
		t.Error("fallback should preserve the raw text")
	}
	if fin.RawData == nil {
		t.Error("raw data attached even on fallback")
	}
}

func TestFinancialStageFetchError(t *testing.T) {
	stage := NewFinancialStage(&mockMarket{err: errors.New("socket closed")}, newMockCompleter(), nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"))
	if d.Financial != nil {
		t.Error("no record expected on fetch failure")
	}
	if len(d.Errors) != 1 || !strings.Contains(d.Errors[0], "failed to fetch market data") {
		t.Errorf("errors: %v", d.Errors)
	}
}

func TestFinancialStageLLMError(t *testing.T) {
	mc := newMockCompleter()
	mc.err = llm.ErrProviderDown
	stage := NewFinancialStage(&mockMarket{}, mc, nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"))
	if d.Financial != nil {
		t.Error("no record expected on completion failure")
	}
	if len(d.Errors) != 1 || !strings.Contains(d.Errors[0], "financial agent error") {
		t.Errorf("errors: %v", d.Errors)
	}
}

func TestFinancialStageNilPlan(t *testing.T) {
	stage := NewFinancialStage(&mockMarket{}, newMockCompleter(), nil, nil)
	d := stage.Run(context.Background(), nil)
	if d.Financial != nil || len(d.Errors) != 0 || len(d.Messages) != 0 {
		t.Errorf("nil plan should no-op, got %+v", d)
	}
}

// ── Sentiment stage ──

func TestSentimentStageHappyPath(t *testing.T) {
	stage := NewSentimentStage(&mockNews{articles: someArticles(8)}, newMockCompleter(), nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"), "Apple Inc.")
	if len(d.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", d.Errors)
	}
	sent := d.Sentiment
	if sent == nil {
		t.Fatal("sentiment record should be set")
	}
	if sent.OverallMood != "Bullish" || sent.SentimentScore != 0.7 {
		t.Errorf("parsed record wrong: %+v", sent)
	}
	if sent.ArticleCount != 8 {
		t.Errorf("article count must reflect the true fetch: got %d", sent.ArticleCount)
	}
	if len(sent.SampleArticles) != 5 {
		t.Errorf("sample articles: got %d, want 5", len(sent.SampleArticles))
	}
	if len(d.Messages) != 1 || !strings.Contains(d.Messages[0].Content, "Analyzed 8 articles for AAPL. Mood: Bullish") {
		t.Errorf("messages: %+v", d.Messages)
	}
}

func TestSentimentStageArticleCountOverridesModel(t *testing.T) {
	mc := newMockCompleter()
	// Model lies about the count; the stage must keep the true one.
	mc.sentimentReply = `{"sentiment_score": 0.6, "overall_mood": "Neutral", "article_count": 999, "key_themes": [], "catalysts": [], "concerns": [], "summary": "ok"}`
	stage := NewSentimentStage(&mockNews{articles: someArticles(3)}, mc, nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"), "")
	if d.Sentiment.ArticleCount != 3 {
		t.Errorf("article count: got %d, want 3", d.Sentiment.ArticleCount)
	}
}

func TestSentimentStageClampsScore(t *testing.T) {
	mc := newMockCompleter()
	mc.sentimentReply = `{"sentiment_score": 1.8, "overall_mood": "Bullish", "key_themes": [], "catalysts": [], "concerns": [], "summary": "ok"}`
	stage := NewSentimentStage(&mockNews{articles: someArticles(2)}, mc, nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"), "")
	if d.Sentiment.SentimentScore != 1.0 {
		t.Errorf("score: got %f, want clamped 1.0", d.Sentiment.SentimentScore)
	}
}

func TestSentimentStageNoArticles(t *testing.T) {
	mc := newMockCompleter()
	stage := NewSentimentStage(&mockNews{}, mc, nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"), "")
	if mc.calls.Load() != 0 {
		t.Error("no completion call expected with zero articles")
	}
	sent := d.Sentiment
	if sent == nil {
		t.Fatal("neutral record should be set")
	}
	if sent.SentimentScore != 0.5 || sent.OverallMood != "Neutral" || sent.ArticleCount != 0 {
		t.Errorf("neutral record wrong: %+v", sent)
	}
	if len(sent.Concerns) != 1 || sent.Concerns[0] != "No recent news coverage found" {
		t.Errorf("concerns: %v", sent.Concerns)
	}
	if len(d.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(d.Messages))
	}
	if !strings.Contains(d.Messages[0].Content, "No news articles found for AAPL") {
		t.Errorf("first message: %q", d.Messages[0].Content)
	}
}

func TestSentimentStageFallbackOnProse(t *testing.T) {
	mc := newMockCompleter()
	mc.sentimentReply = "Sentiment seems mixed lately."
	stage := NewSentimentStage(&mockNews{articles: someArticles(4)}, mc, nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"), "")
	sent := d.Sentiment
	if sent == nil {
		t.Fatal("fallback record should be set")
	}
	if sent.SentimentScore != 0.5 || sent.OverallMood != "Neutral" {
		t.Errorf("fallback record wrong: %+v", sent)
	}
	if sent.ArticleCount != 4 {
		t.Errorf("article count preserved on fallback: got %d", sent.ArticleCount)
	}
	if !strings.Contains(sent.Summary, "mixed") {
		t.Error("fallback should preserve the raw text")
	}
}

func TestSentimentStageFetchError(t *testing.T) {
	stage := NewSentimentStage(&mockNews{err: errors.New("api down")}, newMockCompleter(), nil, nil)

	d := stage.Run(context.Background(), testPlan("AAPL"), "")
	if d.Sentiment != nil {
		t.Error("no record expected on fetch failure")
	}
	if len(d.Errors) != 1 || !strings.Contains(d.Errors[0], "failed to fetch news") {
		t.Errorf("errors: %v", d.Errors)
	}
}

// ── Synthesis stage ──

func TestSynthesisStageHappyPath(t *testing.T) {
	stage := NewSynthesisStage(newMockCompleter(), nil, nil)

	fin := &models.FinancialAnalysis{Assessment: "Strong", Valuation: "Fairly Valued", Trend: "Upward"}
	sent := &models.SentimentAnalysis{SentimentScore: 0.7, OverallMood: "Bullish"}

	d := stage.Run(context.Background(), "AAPL", "should I buy?", fin, sent, testPlan("AAPL"))
	if len(d.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", d.Errors)
	}
	rec := d.Recommendation
	if rec == nil {
		t.Fatal("recommendation should be set")
	}
	if rec.Action != models.ActionBuy || rec.Confidence != 0.75 {
		t.Errorf("recommendation wrong: %+v", rec)
	}
	if d.Confidence == nil || *d.Confidence != 0.75 {
		t.Error("denormalized confidence should be set")
	}
	if d.Reasoning != rec.Reasoning {
		t.Error("denormalized reasoning should match the record")
	}
	if len(d.Messages) != 1 ||
		d.Messages[0].Content != "Final recommendation for AAPL: BUY (confidence: 0.75)" {
		t.Errorf("messages: %+v", d.Messages)
	}
}

func TestSynthesisStageMissingInputs(t *testing.T) {
	stage := NewSynthesisStage(newMockCompleter(), nil, nil)
	fin := &models.FinancialAnalysis{}
	sent := &models.SentimentAnalysis{}

	cases := []struct {
		fin  *models.FinancialAnalysis
		sent *models.SentimentAnalysis
	}{
		{nil, sent}, {fin, nil}, {nil, nil},
	}
	for _, tc := range cases {
		d := stage.Run(context.Background(), "AAPL", "", tc.fin, tc.sent, nil)
		if d.Recommendation != nil {
			t.Error("no recommendation expected with missing inputs")
		}
		if len(d.Errors) != 1 || d.Errors[0] != "synthesizer: missing required analysis data" {
			t.Errorf("errors: %v", d.Errors)
		}
	}
}

func TestSynthesisStageFallbackOnProse(t *testing.T) {
	mc := newMockCompleter()
	mc.synthesisReply = "Honestly it could go either way."
	stage := NewSynthesisStage(mc, nil, nil)

	d := stage.Run(context.Background(), "AAPL", "",
		&models.FinancialAnalysis{}, &models.SentimentAnalysis{}, nil)
	rec := d.Recommendation
	if rec == nil {
		t.Fatal("fallback recommendation should be set")
	}
	if rec.Action != models.ActionHold || rec.Confidence != 0.5 {
		t.Errorf("fallback should be a conservative HOLD: %+v", rec)
	}
	if rec.EntryStrategy != "Consult with a financial advisor" {
		t.Errorf("entry strategy: got %q", rec.EntryStrategy)
	}
	if !strings.Contains(rec.Reasoning, "either way") {
		t.Error("fallback should preserve the raw text")
	}
}

func TestSynthesisStageActionUnknown(t *testing.T) {
	mc := newMockCompleter()
	// Valid JSON, but the action field is absent.
	mc.synthesisReply = `{"confidence": 0.4, "reasoning": "unclear"}`
	stage := NewSynthesisStage(mc, nil, nil)

	d := stage.Run(context.Background(), "AAPL", "",
		&models.FinancialAnalysis{}, &models.SentimentAnalysis{}, nil)
	if d.Recommendation.Action != models.ActionUnknown {
		t.Errorf("action: got %q, want UNKNOWN", d.Recommendation.Action)
	}
}

// ── Orchestrator ──

func TestPipelineFullRun(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		market := &mockMarket{}
		newsSrc := &mockNews{articles: someArticles(6)}
		pipe := newTestPipeline(market, newsSrc, newMockCompleter(), parallel)

		state := pipe.Run(context.Background(), "aapl", "should I buy?")

		if state.Ticker != "AAPL" {
			t.Errorf("parallel=%t: ticker %q", parallel, state.Ticker)
		}
		if len(state.Errors) != 0 {
			t.Fatalf("parallel=%t: unexpected errors: %v", parallel, state.Errors)
		}
		if state.AnalysisPlan == nil || state.FinancialAnalysis == nil ||
			state.SentimentAnalysis == nil || state.Recommendation == nil {
			t.Fatalf("parallel=%t: all four records should be set", parallel)
		}
		if state.Recommendation.Action != models.ActionBuy {
			t.Errorf("parallel=%t: action %q", parallel, state.Recommendation.Action)
		}
		if state.Confidence == nil || *state.Confidence != 0.75 {
			t.Errorf("parallel=%t: confidence not denormalized", parallel)
		}
		if len(state.Messages) != 4 {
			t.Errorf("parallel=%t: got %d messages, want 4", parallel, len(state.Messages))
		}
		// Merge order is fixed: coordinator, financial, sentiment, synthesizer.
		wantRoles := []string{RoleCoordinator, RoleFinancial, RoleSentiment, RoleSynthesizer}
		for i, want := range wantRoles {
			if state.Messages[i].Role != want {
				t.Errorf("parallel=%t: message %d role %q, want %q", parallel, i, state.Messages[i].Role, want)
			}
		}
	}
}

func TestPipelineEmptyTicker(t *testing.T) {
	pipe := newTestPipeline(&mockMarket{}, &mockNews{}, newMockCompleter(), true)

	state := pipe.Run(context.Background(), "   ", "whatever")

	if state.AnalysisPlan != nil || state.FinancialAnalysis != nil ||
		state.SentimentAnalysis != nil || state.Recommendation != nil {
		t.Error("no records expected for an empty ticker")
	}
	// The planner rejects the request, then synthesis records its missing
	// inputs.
	if len(state.Errors) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(state.Errors), state.Errors)
	}
	if !strings.Contains(state.Errors[0], "no ticker provided") {
		t.Errorf("first error: %q", state.Errors[0])
	}
	if !strings.Contains(state.Errors[1], "missing required analysis data") {
		t.Errorf("second error: %q", state.Errors[1])
	}
}

func TestPipelineSequentialPassesCompanyName(t *testing.T) {
	newsSrc := &mockNews{articles: someArticles(2)}
	pipe := newTestPipeline(&mockMarket{}, newsSrc, newMockCompleter(), false)

	pipe.Run(context.Background(), "AAPL", "")
	if newsSrc.gotCompany != "Apple Inc." {
		t.Errorf("company name: got %q, want the name resolved by the financial stage", newsSrc.gotCompany)
	}
}

func TestPipelineParallelOmitsCompanyName(t *testing.T) {
	newsSrc := &mockNews{articles: someArticles(2)}
	pipe := newTestPipeline(&mockMarket{}, newsSrc, newMockCompleter(), true)

	pipe.Run(context.Background(), "AAPL", "")
	if newsSrc.gotCompany != "" {
		t.Errorf("company name: got %q, want empty in parallel mode", newsSrc.gotCompany)
	}
}

func TestPipelinePartialResults(t *testing.T) {
	// Market data fails; sentiment succeeds; synthesis then reports missing
	// inputs. The run still returns a usable state.
	pipe := newTestPipeline(&mockMarket{err: errors.New("unreachable")},
		&mockNews{articles: someArticles(3)}, newMockCompleter(), false)

	state := pipe.Run(context.Background(), "AAPL", "")

	if state.FinancialAnalysis != nil {
		t.Error("financial record should be absent")
	}
	if state.SentimentAnalysis == nil {
		t.Error("sentiment record should still be produced")
	}
	if state.Recommendation != nil {
		t.Error("no recommendation without both analyses")
	}
	if len(state.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(state.Errors), state.Errors)
	}
}

type panickyMarket struct{}

func (panickyMarket) Fetch(ctx context.Context, ticker string, kind marketdata.Kind, period string) (*models.MarketBundle, error) {
	panic("boom")
}

func TestPipelineRecoversStagePanic(t *testing.T) {
	pipe := newTestPipeline(nil, &mockNews{articles: someArticles(2)}, newMockCompleter(), false)
	pipe.financial = NewFinancialStage(panickyMarket{}, newMockCompleter(), nil, nil)

	state := pipe.Run(context.Background(), "AAPL", "")

	found := false
	for _, e := range state.Errors {
		if strings.Contains(e, "financial agent error") && strings.Contains(e, "boom") {
			found = true
		}
	}
	if !found {
		t.Errorf("panic should surface as a stage error, got %v", state.Errors)
	}
	// The rest of the pipeline still ran.
	if state.SentimentAnalysis == nil {
		t.Error("sentiment stage should still run after a financial panic")
	}
}

func TestMergeIsWriteOnce(t *testing.T) {
	state := models.NewAnalysisState("AAPL", "")

	first := &models.Recommendation{Action: models.ActionBuy}
	second := &models.Recommendation{Action: models.ActionSell}

	merge(state, Delta{Recommendation: first})
	merge(state, Delta{Recommendation: second})

	if state.Recommendation != first {
		t.Error("populated record slots must never be overwritten")
	}
}

func TestMergeAppendsLists(t *testing.T) {
	state := models.NewAnalysisState("AAPL", "")

	var d1, d2 Delta
	d1.message("a", "one")
	d1.fail("e1")
	d2.message("b", "two")
	d2.fail("e2")

	merge(state, d1)
	merge(state, d2)

	if len(state.Messages) != 2 || state.Messages[0].Content != "one" || state.Messages[1].Content != "two" {
		t.Errorf("messages: %+v", state.Messages)
	}
	if len(state.Errors) != 2 || state.Errors[0] != "e1" || state.Errors[1] != "e2" {
		t.Errorf("errors: %v", state.Errors)
	}
}
