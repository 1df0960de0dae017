package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/raghavkal/equitypilot/pkg/models"
)

const newsAPIBaseURL = "https://newsapi.org/v2"

// maxPageSize is NewsAPI's hard cap per request.
const maxPageSize = 100

// NewsAPIClient fetches articles from NewsAPI.org's /everything endpoint.
type NewsAPIClient struct {
	client     *resty.Client
	apiKey     string
	maxResults int
	now        func() time.Time
}

// NewsAPIOption configures the client.
type NewsAPIOption func(*NewsAPIClient)

// WithMaxResults caps how many articles a fetch returns (default 100).
func WithMaxResults(n int) NewsAPIOption {
	return func(c *NewsAPIClient) { c.maxResults = n }
}

// WithBaseURL points the client at a different endpoint (used in tests).
func WithBaseURL(url string) NewsAPIOption {
	return func(c *NewsAPIClient) { c.client.SetBaseURL(strings.TrimRight(url, "/")) }
}

// withClock overrides the time source (used in tests).
func withClock(now func() time.Time) NewsAPIOption {
	return func(c *NewsAPIClient) { c.now = now }
}

// NewNewsAPIClient creates a NewsAPI client.
func NewNewsAPIClient(apiKey string, opts ...NewsAPIOption) (*NewsAPIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("news: NewsAPI key not configured")
	}

	client := resty.New().
		SetBaseURL(newsAPIBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("X-Api-Key", apiKey)

	c := &NewsAPIClient{
		client:     client,
		apiKey:     apiKey,
		maxResults: maxPageSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the backend name.
func (c *NewsAPIClient) Name() string { return "NewsAPI" }

// Fetch returns recent articles mentioning the ticker (and company name when
// given) within the lookback window.
func (c *NewsAPIClient) Fetch(ctx context.Context, ticker, companyName string, days int) (*models.NewsResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("news: empty ticker")
	}
	if days <= 0 {
		days = DefaultLookbackDays
	}

	to := c.now()
	from := to.AddDate(0, 0, -days)

	pageSize := c.maxResults
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var payload everythingResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        buildQuery(ticker, companyName),
			"from":     from.Format("2006-01-02"),
			"to":       to.Format("2006-01-02"),
			"language": "en",
			"sortBy":   "relevancy",
			"pageSize": fmt.Sprintf("%d", pageSize),
		}).
		SetResult(&payload).
		ForceContentType("application/json").
		Get("/everything")
	if err != nil {
		return nil, fmt.Errorf("news: fetch %s: %w", ticker, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("news: NewsAPI HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("news: NewsAPI error %s: %s", payload.Code, payload.Message)
	}

	articles := cleanArticles(convertArticles(payload.Articles))
	return newResult(ticker, c.Name(), articles, from, to, days), nil
}

// --- NewsAPI wire types ---

type everythingResponse struct {
	Status       string       `json:"status"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	TotalResults int          `json:"totalResults"`
	Articles     []rawArticle `json:"articles"`
}

type rawArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

func convertArticles(raw []rawArticle) []models.NewsArticle {
	out := make([]models.NewsArticle, 0, len(raw))
	for _, r := range raw {
		a := models.NewsArticle{
			Title:          r.Title,
			Description:    r.Description,
			Author:         r.Author,
			URL:            r.URL,
			ContentSnippet: snippet(r.Content, 300),
		}
		a.Source = r.Source.Name
		if a.Source == "" {
			a.Source = "Unknown"
		}
		if ts, err := time.Parse(time.RFC3339, r.PublishedAt); err == nil {
			a.PublishedAt = ts
		}
		out = append(out, a)
	}
	return out
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
