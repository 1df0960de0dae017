// Package report renders a finished analysis for the terminal and persists
// JSON snapshots of it.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/raghavkal/equitypilot/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Text Report — CLI-friendly rendering of one analysis run
// ════════════════════════════════════════════════════════════════════

// GenerateText renders the analysis state as a plain-text report.
func GenerateText(state *models.AnalysisState) (string, error) {
	if state == nil {
		return "", fmt.Errorf("state is nil")
	}

	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s — Investment Analysis\n", state.Ticker))
	sb.WriteString(fmt.Sprintf("  Generated: %s\n", time.Now().Format("02 Jan 2006, 15:04 MST")))
	if state.UserQuery != "" {
		sb.WriteString(fmt.Sprintf("  Query: %s\n", state.UserQuery))
	}
	sb.WriteString(line + "\n")

	if rec := state.Recommendation; rec != nil {
		sb.WriteString("\n  ★ RECOMMENDATION\n")
		sb.WriteString(fmt.Sprintf("  %s (Confidence: %.0f%%)\n", rec.Action, rec.Confidence*100))
		if rec.RiskLevel != "" {
			sb.WriteString(fmt.Sprintf("  Risk: %s | Horizon: %s\n", rec.RiskLevel, rec.TimeHorizon))
		}
		if rec.Reasoning != "" {
			sb.WriteString(fmt.Sprintf("\n  %s\n", rec.Reasoning))
		}
		if len(rec.KeyFactors) > 0 {
			sb.WriteString("\n  Key factors:\n")
			writeBullets(&sb, rec.KeyFactors)
		}
		if rec.EntryStrategy != "" {
			sb.WriteString(fmt.Sprintf("\n  Entry strategy: %s\n", rec.EntryStrategy))
		}
		if len(rec.WatchFor) > 0 {
			sb.WriteString("\n  Watch for:\n")
			writeBullets(&sb, rec.WatchFor)
		}
		sb.WriteString(thinLine + "\n")
	}

	if fin := state.FinancialAnalysis; fin != nil {
		sb.WriteString("\n  ■ FINANCIAL ANALYSIS\n")
		if name := fin.RawData.CompanyName(); name != "" {
			sb.WriteString(fmt.Sprintf("  Company: %s\n", name))
		}
		sb.WriteString(fmt.Sprintf("  Valuation: %s | Trend: %s\n", fin.Valuation, fin.Trend))
		if fin.Assessment != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", fin.Assessment))
		}
		if len(fin.Strengths) > 0 {
			sb.WriteString("\n  Strengths:\n")
			writeBullets(&sb, fin.Strengths)
		}
		if len(fin.Concerns) > 0 {
			sb.WriteString("\n  Concerns:\n")
			writeBullets(&sb, fin.Concerns)
		}
		sb.WriteString(thinLine + "\n")
	}

	if sent := state.SentimentAnalysis; sent != nil {
		sb.WriteString("\n  ■ SENTIMENT ANALYSIS\n")
		sb.WriteString(fmt.Sprintf("  Mood: %s | Score: %.2f | Articles: %d\n",
			sent.OverallMood, sent.SentimentScore, sent.ArticleCount))
		if sent.Summary != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", sent.Summary))
		}
		if len(sent.KeyThemes) > 0 {
			sb.WriteString("\n  Key themes:\n")
			writeBullets(&sb, sent.KeyThemes)
		}
		sb.WriteString(thinLine + "\n")
	}

	if len(state.Messages) > 0 {
		sb.WriteString("\n  ■ PIPELINE LOG\n")
		for _, m := range state.Messages {
			sb.WriteString(fmt.Sprintf("    [%s] %s\n", m.Role, m.Content))
		}
		sb.WriteString(thinLine + "\n")
	}

	if len(state.Errors) > 0 {
		sb.WriteString("\n  ⚠ ERRORS\n")
		for _, e := range state.Errors {
			sb.WriteString(fmt.Sprintf("    - %s\n", e))
		}
		sb.WriteString(thinLine + "\n")
	}

	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  Disclaimer: This analysis is AI-generated for educational purposes.\n")
	sb.WriteString("  Not financial advice. Always consult a registered advisor.\n")
	sb.WriteString(line + "\n")

	return sb.String(), nil
}

func writeBullets(sb *strings.Builder, items []string) {
	for _, it := range items {
		sb.WriteString(fmt.Sprintf("    - %s\n", it))
	}
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
