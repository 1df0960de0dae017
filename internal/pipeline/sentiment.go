package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/raghavkal/equitypilot/internal/llm"
	"github.com/raghavkal/equitypilot/internal/news"
	"github.com/raghavkal/equitypilot/pkg/models"
)

// maxSampleArticles is how many fetched articles are kept on the analysis
// record for reference.
const maxSampleArticles = 5

// SentimentStage fetches recent news for the ticker and asks the model for a
// sentiment judgment.
type SentimentStage struct {
	news NewsFetcher
	llm  Completer
	opts *llm.ChatOptions
	log  *zap.Logger
}

// NewSentimentStage wires the sentiment analysis stage.
func NewSentimentStage(fetcher NewsFetcher, completer Completer, opts *llm.ChatOptions, log *zap.Logger) *SentimentStage {
	if log == nil {
		log = zap.NewNop()
	}
	return &SentimentStage{news: fetcher, llm: completer, opts: opts, log: log}
}

// Run performs sentiment analysis for the planned ticker. companyName widens
// the news query when known and may be empty; a nil plan makes the stage a
// no-op.
func (s *SentimentStage) Run(ctx context.Context, plan *models.AnalysisPlan, companyName string) Delta {
	var d Delta
	if plan == nil {
		return d
	}
	ticker := plan.Ticker

	result, err := s.news.Fetch(ctx, ticker, companyName, news.DefaultLookbackDays)
	if err != nil {
		s.log.Warn("news fetch failed", zap.String("ticker", ticker), zap.Error(err))
		d.fail(fmt.Sprintf("sentiment agent: failed to fetch news: %v", err))
		return d
	}

	articles := result.Articles
	if len(articles) == 0 {
		d.Sentiment = neutralSentiment()
		d.message(RoleSentiment, fmt.Sprintf("No news articles found for %s", ticker))
		d.message(RoleSentiment, fmt.Sprintf("Defaulting to neutral sentiment for %s", ticker))
		return d
	}

	prompt := buildSentimentPrompt(ticker, articles, plan)
	resp, err := s.llm.Complete(ctx, []llm.Message{llm.UserMessage(prompt)}, s.opts)
	if err != nil {
		s.log.Warn("sentiment completion failed", zap.String("ticker", ticker), zap.Error(err))
		d.fail(fmt.Sprintf("sentiment agent error: %v", err))
		return d
	}

	var analysis models.SentimentAnalysis
	if err := Normalize(resp.Content, &analysis); err != nil {
		s.log.Warn("sentiment response not parseable, using fallback",
			zap.String("ticker", ticker), zap.Error(err))
		analysis = fallbackSentiment(resp.Content)
	}

	// The fetched count is authoritative; the model's claim is ignored.
	analysis.ArticleCount = len(articles)
	analysis.SentimentScore = clamp01(analysis.SentimentScore)
	if len(articles) > maxSampleArticles {
		analysis.SampleArticles = articles[:maxSampleArticles]
	} else {
		analysis.SampleArticles = articles
	}

	mood := analysis.OverallMood
	if mood == "" {
		mood = "Unknown"
	}
	d.Sentiment = &analysis
	d.message(RoleSentiment, fmt.Sprintf("Analyzed %d articles for %s. Mood: %s",
		len(articles), ticker, mood))
	return d
}

// neutralSentiment is the record produced when no articles exist in the
// lookback window. Absence of coverage is itself a finding.
func neutralSentiment() *models.SentimentAnalysis {
	return &models.SentimentAnalysis{
		SentimentScore: 0.5,
		ArticleCount:   0,
		KeyThemes:      []string{},
		OverallMood:    "Neutral",
		Catalysts:      []string{},
		Concerns:       []string{"No recent news coverage found"},
		Summary:        "Insufficient news data to determine sentiment",
	}
}

func fallbackSentiment(raw string) models.SentimentAnalysis {
	return models.SentimentAnalysis{
		SentimentScore: 0.5,
		KeyThemes:      []string{},
		OverallMood:    "Neutral",
		Catalysts:      []string{},
		Concerns:       []string{},
		Summary:        truncate(raw, 500),
	}
}
