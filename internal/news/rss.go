package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/raghavkal/equitypilot/pkg/models"
)

// yahooHeadlineFeed is a per-ticker RSS feed that needs no API key.
const yahooHeadlineFeed = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// RSSClient is a keyless news backend built on per-ticker RSS feeds. It is
// selected with `news.provider: rss` when no NewsAPI key is available.
type RSSClient struct {
	parser  *gofeed.Parser
	feedURL string // format string taking the ticker
	now     func() time.Time
}

// NewRSSClient creates the RSS backend with the default Yahoo Finance feed.
func NewRSSClient() *RSSClient {
	return &RSSClient{
		parser:  gofeed.NewParser(),
		feedURL: yahooHeadlineFeed,
		now:     time.Now,
	}
}

// Name returns the backend name.
func (c *RSSClient) Name() string { return "Yahoo Finance RSS" }

// Fetch parses the ticker's headline feed and keeps items inside the window.
func (c *RSSClient) Fetch(ctx context.Context, ticker, companyName string, days int) (*models.NewsResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("news: empty ticker")
	}
	if days <= 0 {
		days = DefaultLookbackDays
	}

	to := c.now()
	from := to.AddDate(0, 0, -days)

	feed, err := c.parser.ParseURLWithContext(fmt.Sprintf(c.feedURL, ticker), ctx)
	if err != nil {
		return nil, fmt.Errorf("news: parse RSS for %s: %w", ticker, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Title:       item.Title,
			Description: cleanHTML(item.Description),
			Source:      feedSource(feed, item),
			URL:         item.Link,
		}
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			a.Author = item.Authors[0].Name
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		if !a.PublishedAt.IsZero() && a.PublishedAt.Before(from) {
			continue
		}
		articles = append(articles, a)
	}

	return newResult(ticker, c.Name(), cleanArticles(articles), from, to, days), nil
}

func feedSource(feed *gofeed.Feed, item *gofeed.Item) string {
	if item.Custom != nil {
		if src, ok := item.Custom["source"]; ok && src != "" {
			return src
		}
	}
	if feed.Title != "" {
		return feed.Title
	}
	return "RSS"
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
