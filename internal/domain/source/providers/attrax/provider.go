package attrax

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
)

const (
	defaultMaxPages    = 20
	defaultLinkPattern = "/en/job/"
	maxBlockText       = 5000
)

var (
	labels = map[string]struct{}{
		"salary": {}, "location": {}, "function": {}, "description": {},
		"job id": {}, "job type": {}, "experience level": {}, "brands": {},
		"travel": {}, "therapy area": {}, "expiry date": {}, "learn more": {},
	}
	cityState = regexp.MustCompile(`^[A-Z][a-z]+.*,\s*[A-Z]{2}`)
)

// Provider scrapes Attrax career sites, whose listing blocks carry
// labeled fields ("Location", "Function", ...)
type Provider struct {
	client source.Doer
	now    func() time.Time
}

// NewProvider builds an Attrax provider
func NewProvider(client source.Doer) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("attrax provider: client is required")
	}
	return &Provider{client: client, now: time.Now}, nil
}

func (p *Provider) Name() string {
	return "attrax"
}

func (p *Provider) Fetch(ctx context.Context, src config.Source) ([]domain.RawPosting, error) {
	base := strings.TrimSuffix(src.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("%w: %s: url is required", domain.ErrSourceUnavailable, src.Name)
	}
	maxPages := src.IntParam("max_pages", defaultMaxPages)
	pattern := src.Param("link_contains", defaultLinkPattern)
	label := "attrax:" + source.Slug(src.Company)

	var out []domain.RawPosting
	for page := 1; page <= maxPages; page++ {
		doc, err := source.GetHTML(ctx, p.client, src.Name, searchURL(base, src.Keywords, page))
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}

		found := p.parsePage(ctx, doc, base, pattern)
		if len(found) == 0 {
			break
		}
		for i := range found {
			found[i].Company = src.Company
			found[i].Source = label
		}
		out = append(out, found...)
	}
	return out, nil
}

func searchURL(base string, keywords []string, page int) string {
	v := url.Values{}
	if len(keywords) > 0 {
		v.Set("q", strings.Join(keywords, " "))
	}
	if page > 1 {
		v.Set("page", fmt.Sprint(page))
	}
	if len(v) == 0 {
		return base + "/en/jobs"
	}
	return base + "/en/jobs?" + v.Encode()
}

func (p *Provider) parsePage(ctx context.Context, doc *html.Node, base, pattern string) []domain.RawPosting {
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
		if strings.EqualFold(title, "learn more") {
			continue
		}
		if utf8.RuneCountInString(title) < 3 {
			source.Skip(ctx, "short title")
			continue
		}
		seen[abs] = struct{}{}

		posting := domain.RawPosting{Title: title, URL: abs, ScrapedAt: scraped}
		if block := jobBlock(a); block != nil {
			lines := source.Lines(block)
			posting.Location = field(lines, "Location")
			posting.Department = field(lines, "Function")
			posting.Description = field(lines, "Description")
			if posting.Location == "" {
				for _, l := range lines {
					if cityState.MatchString(l) {
						posting.Location = l
						break
					}
				}
			}
		}
		out = append(out, posting)
	}
	return out
}

// jobBlock walks up to the first container holding the labeled fields
func jobBlock(a *html.Node) *html.Node {
	for n := a.Parent; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		text := source.Text(n)
		if len(text) > maxBlockText {
			return nil
		}
		if strings.Contains(text, "Location") && (strings.Contains(text, "Salary") || strings.Contains(text, "Job ID")) {
			return n
		}
	}
	return nil
}

// field returns the value following a label line
func field(lines []string, name string) string {
	for i, l := range lines {
		if !strings.EqualFold(l, name) {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+2; j++ {
			if _, isLabel := labels[strings.ToLower(lines[j])]; !isLabel {
				return lines[j]
			}
		}
	}
	return ""
}

var _ source.Adapter = (*Provider)(nil)
