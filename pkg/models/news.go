package models

import "time"

// NewsArticle is one processed article from the news collaborator. Articles
// missing a title or publish date, or flagged as removed upstream, are never
// surfaced in this form.
type NewsArticle struct {
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Source         string    `json:"source"`
	Author         string    `json:"author,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
	URL            string    `json:"url,omitempty"`
	ContentSnippet string    `json:"content_snippet,omitempty"`
}

// NewsDateRange records the window a news query covered.
type NewsDateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Days int       `json:"days"`
}

// NewsResult is the news collaborator's response: articles sorted by publish
// date, newest first.
type NewsResult struct {
	Ticker       string        `json:"ticker"`
	Source       string        `json:"source"`
	Articles     []NewsArticle `json:"articles"`
	TotalResults int           `json:"total_results"`
	DateRange    NewsDateRange `json:"date_range"`
}
