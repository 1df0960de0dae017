package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/raghavkal/equitypilot/internal/llm"
	"github.com/raghavkal/equitypilot/pkg/models"
)

// SynthesisStage combines the financial and sentiment records into the final
// recommendation. It runs last and requires both upstream records.
type SynthesisStage struct {
	llm  Completer
	opts *llm.ChatOptions
	log  *zap.Logger
}

// NewSynthesisStage wires the synthesis stage.
func NewSynthesisStage(completer Completer, opts *llm.ChatOptions, log *zap.Logger) *SynthesisStage {
	if log == nil {
		log = zap.NewNop()
	}
	return &SynthesisStage{llm: completer, opts: opts, log: log}
}

// Run synthesizes the final recommendation. If either upstream record is
// missing the stage records the precondition failure and produces nothing.
func (s *SynthesisStage) Run(ctx context.Context, ticker, userQuery string, fin *models.FinancialAnalysis, sent *models.SentimentAnalysis, plan *models.AnalysisPlan) Delta {
	var d Delta
	if fin == nil || sent == nil {
		d.fail("synthesizer: missing required analysis data")
		return d
	}

	prompt := buildSynthesisPrompt(ticker, userQuery, fin, sent, plan)
	resp, err := s.llm.Complete(ctx, []llm.Message{llm.UserMessage(prompt)}, s.opts)
	if err != nil {
		s.log.Warn("synthesis completion failed", zap.String("ticker", ticker), zap.Error(err))
		d.fail(fmt.Sprintf("synthesizer error: %v", err))
		return d
	}

	var rec models.Recommendation
	if err := Normalize(resp.Content, &rec); err != nil {
		s.log.Warn("recommendation not parseable, using fallback",
			zap.String("ticker", ticker), zap.Error(err))
		rec = fallbackRecommendation(resp.Content)
	}
	if rec.Action == "" {
		// Parsed JSON that never named an action is surfaced as-is rather
		// than silently promoted to a verdict.
		rec.Action = models.ActionUnknown
	}
	rec.Confidence = clamp01(rec.Confidence)

	confidence := rec.Confidence
	d.Recommendation = &rec
	d.Confidence = &confidence
	d.Reasoning = rec.Reasoning
	d.message(RoleSynthesizer, fmt.Sprintf("Final recommendation for %s: %s (confidence: %.2f)",
		ticker, rec.Action, rec.Confidence))
	return d
}

// fallbackRecommendation is the conservative record used when the model's
// output is not valid JSON: never a trade signal, always HOLD.
func fallbackRecommendation(raw string) models.Recommendation {
	return models.Recommendation{
		Action:        models.ActionHold,
		Confidence:    0.5,
		Reasoning:     truncate(raw, 1000),
		RiskLevel:     "Medium",
		TimeHorizon:   "Medium-term (3-12 months)",
		KeyFactors:    []string{},
		EntryStrategy: "Consult with a financial advisor",
		WatchFor:      []string{},
	}
}
