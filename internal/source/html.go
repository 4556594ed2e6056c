package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/tenscan/internal/model"
)

const (
	defaultLinkSelector    = "a"
	defaultTitleSelector   = "h1"
	defaultContentSelector = "article p"
)

// HTMLParser discovers articles by scraping a listing page with CSS selectors
type HTMLParser struct {
	cfg         model.SourceConfig
	fetcher     Fetcher
	linkPattern *regexp.Regexp
	now         func() time.Time
}

// NewHTMLParser creates a listing-page parser; LinkPattern must compile
func NewHTMLParser(cfg model.SourceConfig, fetcher Fetcher) (*HTMLParser, error) {
	p := &HTMLParser{cfg: cfg, fetcher: fetcher, now: time.Now}
	if cfg.LinkPattern != "" {
		re, err := regexp.Compile(cfg.LinkPattern)
		if err != nil {
			return nil, fmt.Errorf("source %s: link_pattern: %w", cfg.Name, err)
		}
		p.linkPattern = re
	}
	return p, nil
}

// Name returns the source name
func (p *HTMLParser) Name() string { return p.cfg.Name }

// Source returns the source config
func (p *HTMLParser) Source() model.SourceConfig { return p.cfg }

// Discover scrapes article links from the listing page in document order
func (p *HTMLParser) Discover(ctx context.Context) ([]Candidate, error) {
	res, err := p.fetcher.Fetch(ctx, p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(res.Reader())
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	base, err := url.Parse(res.FinalURL)
	if err != nil || base.Host == "" {
		base, _ = url.Parse(p.cfg.URL)
	}

	selector := p.cfg.LinkSelector
	if selector == "" {
		selector = defaultLinkSelector
	}

	seen := map[string]bool{base.String(): true}
	var candidates []Candidate
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if p.cfg.MaxArticles > 0 && len(candidates) >= p.cfg.MaxArticles {
			return false
		}

		a := s
		if goquery.NodeName(s) != "a" {
			a = s.Find("a[href]").First()
		}
		href, ok := a.Attr("href")
		if !ok {
			return true
		}

		link := resolveURL(base, href)
		if link == "" || seen[link] || !p.accept(base, link) {
			return true
		}
		seen[link] = true

		candidates = append(candidates, Candidate{
			Title: collapse(s.Text()),
			Link:  link,
		})
		return true
	})

	return candidates, nil
}

// accept keeps same-site links that match the configured pattern
func (p *HTMLParser) accept(base *url.URL, link string) bool {
	if p.linkPattern != nil {
		return p.linkPattern.MatchString(link)
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	baseHost := strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.")
	if host != baseHost && !strings.HasSuffix(host, "."+baseHost) {
		return false
	}
	// listing pages also link to the root and to section indexes
	return strings.Count(strings.Trim(u.Path, "/"), "/") >= 1
}

// FetchArticle fetches a candidate's page and extracts title, text and rubric
func (p *HTMLParser) FetchArticle(ctx context.Context, c Candidate) (model.RawArticle, error) {
	res, err := p.fetcher.Fetch(ctx, c.Link)
	if err != nil {
		return model.RawArticle{}, fmt.Errorf("fetch article: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(res.Reader())
	if err != nil {
		return model.RawArticle{}, fmt.Errorf("parse article: %w", err)
	}

	title, content, rubric := extractArticle(doc, p.cfg)
	if title == "" {
		title = c.Title
	}
	if content == "" {
		return model.RawArticle{}, fmt.Errorf("%s: %w", c.Link, ErrEmptyArticle)
	}

	return model.RawArticle{
		Title:        title,
		Link:         c.Link,
		Content:      content,
		Rubric:       rubric,
		Source:       p.cfg.Name,
		DiscoveredAt: p.now(),
		PublishedAt:  publishedAt(doc),
	}, nil
}

// extractArticle applies the configured selectors with generic fallbacks
func extractArticle(doc *goquery.Document, cfg model.SourceConfig) (title, content, rubric string) {
	titleSel := cfg.TitleSelector
	if titleSel == "" {
		titleSel = defaultTitleSelector
	}
	title = collapse(doc.Find(titleSel).First().Text())
	if title == "" {
		title = metaContent(doc, "og:title")
	}
	if title == "" {
		title = collapse(doc.Find("title").First().Text())
	}

	contentSel := cfg.ContentSelector
	if contentSel == "" {
		contentSel = defaultContentSelector
	}
	var paras []string
	doc.Find(contentSel).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			paras = append(paras, t)
		}
	})
	content = strings.Join(paras, "\n")
	if content == "" && len(doc.Nodes) > 0 {
		content = paragraphText(doc.Nodes[0])
	}

	if cfg.RubricSelector != "" {
		rubric = collapse(doc.Find(cfg.RubricSelector).First().Text())
	}
	if rubric == "" {
		rubric = metaContent(doc, "article:section")
	}

	return title, content, rubric
}

func metaContent(doc *goquery.Document, property string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, property, property)).First()
	v, _ := sel.Attr("content")
	return collapse(v)
}

func publishedAt(doc *goquery.Document) time.Time {
	raw := metaContent(doc, "article:published_time")
	if raw == "" {
		raw, _ = doc.Find("time[datetime]").First().Attr("datetime")
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
		return t
	}
	return time.Time{}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
