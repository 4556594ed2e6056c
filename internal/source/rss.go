package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/tenscan/internal/model"
)

// RSSParser discovers articles from an RSS/Atom feed
type RSSParser struct {
	cfg     model.SourceConfig
	fetcher Fetcher
	fp      *gofeed.Parser
	now     func() time.Time
}

// NewRSSParser creates a feed parser for cfg
func NewRSSParser(cfg model.SourceConfig, fetcher Fetcher) *RSSParser {
	return &RSSParser{
		cfg:     cfg,
		fetcher: fetcher,
		fp:      gofeed.NewParser(),
		now:     time.Now,
	}
}

// Name returns the source name
func (p *RSSParser) Name() string { return p.cfg.Name }

// Source returns the source config
func (p *RSSParser) Source() model.SourceConfig { return p.cfg }

// Discover fetches the feed and returns its items in feed order
func (p *RSSParser) Discover(ctx context.Context) ([]Candidate, error) {
	res, err := p.fetcher.Fetch(ctx, p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	// gofeed does its own charset detection from the XML prolog
	feed, err := p.fp.Parse(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	base, err := url.Parse(res.FinalURL)
	if err != nil || base.Host == "" {
		base, _ = url.Parse(p.cfg.URL)
	}

	seen := make(map[string]bool)
	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if p.cfg.MaxArticles > 0 && len(candidates) >= p.cfg.MaxArticles {
			break
		}

		link := resolveURL(base, item.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true

		c := Candidate{
			Title:   strings.TrimSpace(item.Title),
			Link:    link,
			Summary: item.Content,
		}
		if strings.TrimSpace(c.Summary) == "" {
			c.Summary = item.Description
		}
		if len(item.Categories) > 0 {
			c.Rubric = strings.TrimSpace(item.Categories[0])
		}
		if item.PublishedParsed != nil {
			c.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			c.PublishedAt = *item.UpdatedParsed
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// FetchArticle returns the feed summary, or the linked page's text in full-text mode
func (p *RSSParser) FetchArticle(ctx context.Context, c Candidate) (model.RawArticle, error) {
	article := model.RawArticle{
		Title:        c.Title,
		Link:         c.Link,
		Content:      c.Summary,
		Rubric:       c.Rubric,
		Source:       p.cfg.Name,
		DiscoveredAt: p.now(),
		PublishedAt:  c.PublishedAt,
	}

	if p.cfg.FullText {
		res, err := p.fetcher.Fetch(ctx, c.Link)
		if err != nil {
			return model.RawArticle{}, fmt.Errorf("fetch article: %w", err)
		}
		doc, err := goquery.NewDocumentFromReader(res.Reader())
		if err != nil {
			return model.RawArticle{}, fmt.Errorf("parse article: %w", err)
		}
		title, content, rubric := extractArticle(doc, p.cfg)
		if content != "" {
			article.Content = content
		}
		if article.Title == "" {
			article.Title = title
		}
		if article.Rubric == "" {
			article.Rubric = rubric
		}
	}

	if strings.TrimSpace(article.Content) == "" {
		return model.RawArticle{}, fmt.Errorf("%s: %w", c.Link, ErrEmptyArticle)
	}
	return article, nil
}
