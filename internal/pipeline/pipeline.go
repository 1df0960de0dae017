package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raghavkal/equitypilot/internal/llm"
	"github.com/raghavkal/equitypilot/internal/marketdata"
	"github.com/raghavkal/equitypilot/pkg/models"
)

// MarketData is the market-data collaborator the financial stage depends on.
type MarketData interface {
	Fetch(ctx context.Context, ticker string, kind marketdata.Kind, period string) (*models.MarketBundle, error)
}

// NewsFetcher is the news collaborator the sentiment stage depends on.
type NewsFetcher interface {
	Fetch(ctx context.Context, ticker, companyName string, days int) (*models.NewsResult, error)
}

// Completer is the language-model collaborator shared by all LLM-backed
// stages. *llm.Completer satisfies it.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error)
}

// Config tunes pipeline execution.
type Config struct {
	// Parallel runs the financial and sentiment stages concurrently. When
	// false they run in order, which lets the sentiment stage reuse the
	// company name resolved by the financial stage for a wider news query.
	Parallel bool

	// ChatOptions is applied to every model call. Nil uses provider defaults.
	ChatOptions *llm.ChatOptions
}

// Pipeline runs the four analysis stages over one shared state. Stages never
// mutate the state directly; each returns a delta and the pipeline merges
// them, so a misbehaving stage cannot clobber another stage's output.
type Pipeline struct {
	planner   *Planner
	financial *FinancialStage
	sentiment *SentimentStage
	synthesis *SynthesisStage
	parallel  bool
	log       *zap.Logger
}

// New assembles a pipeline from its collaborators.
func New(market MarketData, newsFetcher NewsFetcher, completer Completer, cfg Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		planner:   NewPlanner(),
		financial: NewFinancialStage(market, completer, cfg.ChatOptions, log),
		sentiment: NewSentimentStage(newsFetcher, completer, cfg.ChatOptions, log),
		synthesis: NewSynthesisStage(completer, cfg.ChatOptions, log),
		parallel:  cfg.Parallel,
		log:       log,
	}
}

// Run executes a full analysis and always returns a usable state: any stage
// failure lands in state.Errors, never as a returned error or panic.
func (p *Pipeline) Run(ctx context.Context, ticker, userQuery string) *models.AnalysisState {
	state := models.NewAnalysisState(ticker, userQuery)

	merge(state, runStage("coordinator", func() Delta {
		return p.planner.Run(ticker, userQuery)
	}))

	plan := state.AnalysisPlan
	if plan != nil {
		// Keep the state's ticker in its canonical uppercase form.
		state.Ticker = plan.Ticker

		if p.parallel {
			p.runParallel(ctx, state, plan)
		} else {
			p.runSequential(ctx, state, plan)
		}
	}

	merge(state, runStage("synthesizer", func() Delta {
		return p.synthesis.Run(ctx, state.Ticker, userQuery,
			state.FinancialAnalysis, state.SentimentAnalysis, plan)
	}))

	p.log.Info("analysis complete",
		zap.String("ticker", state.Ticker),
		zap.Int("messages", len(state.Messages)),
		zap.Int("errors", len(state.Errors)))
	return state
}

// runParallel fans the middle stages out. Deltas are merged after both finish,
// in a fixed order, so results are deterministic regardless of which stage
// returns first. The sentiment stage queries by ticker alone here; the
// company name is only available once the financial stage has finished.
func (p *Pipeline) runParallel(ctx context.Context, state *models.AnalysisState, plan *models.AnalysisPlan) {
	var finDelta, sentDelta Delta

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		finDelta = runStage("financial agent", func() Delta {
			return p.financial.Run(gctx, plan)
		})
		return nil
	})
	g.Go(func() error {
		sentDelta = runStage("sentiment agent", func() Delta {
			return p.sentiment.Run(gctx, plan, "")
		})
		return nil
	})
	g.Wait() //nolint:errcheck // stages report failure through deltas

	merge(state, finDelta)
	merge(state, sentDelta)
}

func (p *Pipeline) runSequential(ctx context.Context, state *models.AnalysisState, plan *models.AnalysisPlan) {
	merge(state, runStage("financial agent", func() Delta {
		return p.financial.Run(ctx, plan)
	}))

	var companyName string
	if state.FinancialAnalysis != nil {
		companyName = state.FinancialAnalysis.RawData.CompanyName()
	}

	merge(state, runStage("sentiment agent", func() Delta {
		return p.sentiment.Run(ctx, plan, companyName)
	}))
}

// runStage converts a stage panic into an error entry so no single stage can
// take down the run.
func runStage(name string, fn func() Delta) (d Delta) {
	defer func() {
		if r := recover(); r != nil {
			d = Delta{Errors: []string{fmt.Sprintf("%s error: %v", name, r)}}
		}
	}()
	return fn()
}
