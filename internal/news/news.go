// Package news implements the news collaborator. Two backends are provided:
// a NewsAPI.org client (the default, needs an API key) and a keyless RSS
// backend fed by Yahoo Finance's per-ticker headline feeds. Both normalize
// their results into the same article schema: entries without a title or
// publish date (or flagged removed upstream) are dropped, and articles are
// sorted by publish date, newest first.
package news

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/raghavkal/equitypilot/pkg/models"
)

// DefaultLookbackDays is the news window used when the caller passes days <= 0.
const DefaultLookbackDays = 30

// removedTitle is NewsAPI's placeholder for deleted articles.
const removedTitle = "[Removed]"

// Fetcher is the interface both news backends implement. companyName may be
// empty; when present it widens the search query.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, ticker, companyName string, days int) (*models.NewsResult, error)
}

// buildQuery combines ticker and company name for better recall.
func buildQuery(ticker, companyName string) string {
	if companyName != "" {
		return fmt.Sprintf("%q OR %q", ticker, companyName)
	}
	return fmt.Sprintf("%q", ticker)
}

// cleanArticles drops unusable entries and sorts the rest newest-first.
func cleanArticles(articles []models.NewsArticle) []models.NewsArticle {
	kept := make([]models.NewsArticle, 0, len(articles))
	for _, a := range articles {
		if strings.TrimSpace(a.Title) == "" || a.Title == removedTitle {
			continue
		}
		if a.PublishedAt.IsZero() {
			continue
		}
		kept = append(kept, a)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].PublishedAt.After(kept[j].PublishedAt)
	})
	return kept
}

// newResult assembles a NewsResult for the given window.
func newResult(ticker, source string, articles []models.NewsArticle, from, to time.Time, days int) *models.NewsResult {
	return &models.NewsResult{
		Ticker:       ticker,
		Source:       source,
		Articles:     articles,
		TotalResults: len(articles),
		DateRange: models.NewsDateRange{
			From: from,
			To:   to,
			Days: days,
		},
	}
}
