package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/raghavkal/equitypilot/internal/llm"
	"github.com/raghavkal/equitypilot/internal/marketdata"
	"github.com/raghavkal/equitypilot/pkg/models"
)

// historyPeriod is the price-history window fetched for technical indicators.
const historyPeriod = "1y"

// FinancialStage fetches market data for the ticker and asks the model for a
// fundamentals and technicals judgment.
type FinancialStage struct {
	market MarketData
	llm    Completer
	opts   *llm.ChatOptions
	log    *zap.Logger
}

// NewFinancialStage wires the financial analysis stage.
func NewFinancialStage(market MarketData, completer Completer, opts *llm.ChatOptions, log *zap.Logger) *FinancialStage {
	if log == nil {
		log = zap.NewNop()
	}
	return &FinancialStage{market: market, llm: completer, opts: opts, log: log}
}

// Run performs the financial analysis for the planned ticker. A nil plan
// means the coordinator rejected the request; the stage does nothing.
//
// The returned delta always carries the fetched bundle inside the analysis
// record, even when the model's output could not be parsed.
func (s *FinancialStage) Run(ctx context.Context, plan *models.AnalysisPlan) Delta {
	var d Delta
	if plan == nil {
		return d
	}
	ticker := plan.Ticker

	bundle, err := s.market.Fetch(ctx, ticker, marketdata.KindAll, historyPeriod)
	if err != nil {
		s.log.Warn("market data fetch failed", zap.String("ticker", ticker), zap.Error(err))
		d.fail(fmt.Sprintf("financial agent: failed to fetch market data: %v", err))
		return d
	}

	prompt := buildFinancialPrompt(ticker, bundle, plan)
	resp, err := s.llm.Complete(ctx, []llm.Message{llm.UserMessage(prompt)}, s.opts)
	if err != nil {
		s.log.Warn("financial completion failed", zap.String("ticker", ticker), zap.Error(err))
		d.fail(fmt.Sprintf("financial agent error: %v", err))
		return d
	}

	var analysis models.FinancialAnalysis
	if err := Normalize(resp.Content, &analysis); err != nil {
		s.log.Warn("financial response not parseable, using fallback",
			zap.String("ticker", ticker), zap.Error(err))
		analysis = fallbackFinancial(resp.Content)
	}
	analysis.RawData = bundle

	d.Financial = &analysis
	d.message(RoleFinancial, fmt.Sprintf("Completed financial analysis for %s", ticker))
	return d
}

// fallbackFinancial builds the deterministic record used when the model
// returns prose instead of JSON. The raw text is preserved, truncated, so the
// run still yields something reviewable.
func fallbackFinancial(raw string) models.FinancialAnalysis {
	return models.FinancialAnalysis{
		FundamentalsSummary: truncate(raw, 500),
		TechnicalSummary:    "See fundamentals summary",
		Assessment:          truncate(raw, 500),
		Strengths:           []string{},
		Concerns:            []string{},
		Valuation:           "Unknown",
		Trend:               "Unknown",
	}
}
