package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/tenscan/internal/fetch"
	"github.com/ppiankov/tenscan/internal/model"
)

// Candidate is an article reference found during discovery
type Candidate struct {
	Title       string
	Link        string
	Summary     string
	Rubric      string
	PublishedAt time.Time
}

// Parser discovers candidate articles on one source and fetches their text
type Parser interface {
	// Name returns the source name, also used as the storage namespace
	Name() string

	// Source returns the configuration the parser was built from
	Source() model.SourceConfig

	// Discover lists candidate articles in source order
	Discover(ctx context.Context) ([]Candidate, error)

	// FetchArticle retrieves the article behind a candidate
	FetchArticle(ctx context.Context, c Candidate) (model.RawArticle, error)
}

// Fetcher is the HTTP dependency of parsers
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// ErrEmptyArticle is returned when no article text could be extracted
var ErrEmptyArticle = errors.New("no article text found")

// New creates the parser matching cfg.Type
func New(cfg model.SourceConfig, fetcher Fetcher) (Parser, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("source without name")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("source %s: invalid url: %w", cfg.Name, err)
	}

	switch cfg.Type {
	case model.SourceRSS, "":
		return NewRSSParser(cfg, fetcher), nil
	case model.SourceHTML:
		return NewHTMLParser(cfg, fetcher)
	default:
		return nil, fmt.Errorf("source %s: unsupported type: %s", cfg.Name, cfg.Type)
	}
}

// resolveURL resolves href against base and drops the fragment
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

// skipTags never contain article text
var skipTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Nav: true, atom.Header: true, atom.Footer: true, atom.Aside: true, atom.Form: true,
}

// paragraphText collects the text of every <p> outside navigation and scripts
func paragraphText(n *html.Node) string {
	var paras []string

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			if skipTags[node.DataAtom] {
				return
			}
			if node.DataAtom == atom.P {
				if t := strings.TrimSpace(nodeText(node)); t != "" {
					paras = append(paras, t)
				}
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.Join(paras, "\n")
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skipTags[c.DataAtom] {
			continue
		}
		buf.WriteString(nodeText(c))
	}
	return buf.String()
}
