// Package pipeline implements the four-stage analysis engine: a coordinator
// that plans the run, fundamentals and sentiment stages that each combine a
// data collaborator with a text-completion call, and a synthesis stage that
// folds both analyses into a BUY/HOLD/SELL recommendation.
//
// Every stage returns an explicit Delta over the shared state; the
// orchestrator performs the merge uniformly (write-once records, concatenated
// message/error lists). No error ever crosses a stage boundary.
package pipeline

import "github.com/raghavkal/equitypilot/pkg/models"

// Stage role names, used as message roles and error prefixes.
const (
	RoleCoordinator = "coordinator"
	RoleFinancial   = "financial_agent"
	RoleSentiment   = "sentiment_agent"
	RoleSynthesizer = "synthesizer"
)

// Delta is a stage's contribution to the shared state. Record pointers are
// nil when the stage produced nothing for that slot; Messages and Errors are
// always concatenated onto the state in merge order.
type Delta struct {
	Plan           *models.AnalysisPlan
	Financial      *models.FinancialAnalysis
	Sentiment      *models.SentimentAnalysis
	Recommendation *models.Recommendation

	Confidence *float64
	Reasoning  string

	Messages []models.Message
	Errors   []string
}

// message appends a log entry to the delta.
func (d *Delta) message(role, content string) {
	d.Messages = append(d.Messages, models.Message{Role: role, Content: content})
}

// fail appends an error entry to the delta.
func (d *Delta) fail(err string) {
	d.Errors = append(d.Errors, err)
}

// merge applies a delta to the state. Record fields are write-once: a slot
// already populated is never overwritten, matching the one-writer-per-field
// invariant.
func merge(state *models.AnalysisState, d Delta) {
	if state.AnalysisPlan == nil {
		state.AnalysisPlan = d.Plan
	}
	if state.FinancialAnalysis == nil {
		state.FinancialAnalysis = d.Financial
	}
	if state.SentimentAnalysis == nil {
		state.SentimentAnalysis = d.Sentiment
	}
	if state.Recommendation == nil {
		state.Recommendation = d.Recommendation
	}
	if state.Confidence == nil {
		state.Confidence = d.Confidence
	}
	if state.Reasoning == "" {
		state.Reasoning = d.Reasoning
	}
	state.Messages = append(state.Messages, d.Messages...)
	state.Errors = append(state.Errors, d.Errors...)
}
