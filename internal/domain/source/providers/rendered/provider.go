package rendered

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
	"github.com/honeycarbs/job-discovery/internal/fetch"
)

// Renderer returns the DOM of a page after its scripts ran
type Renderer interface {
	Render(ctx context.Context, url, waitSelector string) (string, error)
}

// Platform holds the defaults of one script-rendered career platform
type Platform struct {
	Name         string
	SearchPath   string
	QueryParam   string
	LinkContains string
	WaitSelector string
}

var (
	// Phenom People career sites (e.g. careers.gene.com)
	Phenom = Platform{
		Name:         "phenom",
		SearchPath:   "/us/en/search-results",
		QueryParam:   "keywords",
		LinkContains: "/job/",
		WaitSelector: "a[href*='/job/']",
	}

	// SAP SuccessFactors external career sites
	SuccessFactors = Platform{
		Name:         "successfactors",
		SearchPath:   "/search/",
		QueryParam:   "q",
		LinkContains: "/job/",
		WaitSelector: "a[href*='/job/']",
	}
)

// Provider renders a search page through the browser and reads job links
type Provider struct {
	platform Platform
	renderer Renderer
	now      func() time.Time
}

// NewProvider builds a provider for one platform
func NewProvider(platform Platform, renderer Renderer) (*Provider, error) {
	if renderer == nil {
		return nil, fmt.Errorf("%s provider: renderer is required", platform.Name)
	}
	return &Provider{platform: platform, renderer: renderer, now: time.Now}, nil
}

func (p *Provider) Name() string {
	return p.platform.Name
}

// Fetch renders one search page. Params search_path, query_param,
// link_contains and wait_selector override the platform defaults.
func (p *Provider) Fetch(ctx context.Context, src config.Source) ([]domain.RawPosting, error) {
	base := strings.TrimSuffix(src.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("%w: %s: url is required", domain.ErrSourceUnavailable, src.Name)
	}

	target := p.searchURL(base, src)
	wait := src.Param("wait_selector", p.platform.WaitSelector)

	var content string
	err := fetch.Do(ctx, func(ctx context.Context) error {
		var err error
		content, err = p.renderer.Render(ctx, target, wait)
		if err != nil && ctx.Err() == nil {
			return &domain.FetchError{Source: src.Name, Err: err}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, &domain.ParseError{Source: src.Name, Detail: "rendered page", Err: err}
	}

	return p.extract(doc, base, src), nil
}

func (p *Provider) searchURL(base string, src config.Source) string {
	target := base + src.Param("search_path", p.platform.SearchPath)
	if q := strings.Join(src.Keywords, " "); q != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + url.QueryEscape(src.Param("query_param", p.platform.QueryParam)) + "=" + url.QueryEscape(q)
	}
	return target
}

func (p *Provider) extract(doc *html.Node, base string, src config.Source) []domain.RawPosting {
	pattern := src.Param("link_contains", p.platform.LinkContains)
	label := p.platform.Name + ":" + source.Slug(src.Company)
	scraped := p.now().UTC()
	seen := make(map[string]struct{})

	var out []domain.RawPosting
	for _, a := range source.FindAll(doc, source.IsElement(atom.A)) {
		href := source.Attr(a, "href")
		if !strings.Contains(href, pattern) {
			continue
		}
		abs := source.Resolve(base, href)
		if _, dup := seen[abs]; dup {
			continue
		}
		title := source.Text(a)
		if utf8.RuneCountInString(title) < 3 {
			continue
		}
		seen[abs] = struct{}{}

		posting := domain.RawPosting{
			Title:     title,
			Company:   src.Company,
			URL:       abs,
			Source:    label,
			ScrapedAt: scraped,
		}
		if card := source.Ancestor(a, atom.Li, atom.Article, atom.Tr); card != nil {
			for _, line := range source.Lines(card) {
				if line == title {
					continue
				}
				if posting.Location == "" && source.LooksLikeLocation(line) {
					posting.Location = line
				} else if posting.DatePosted == "" && source.LooksLikeDate(line) {
					posting.DatePosted = line
				}
			}
		}
		out = append(out, posting)
	}
	return out
}

var _ source.Adapter = (*Provider)(nil)
