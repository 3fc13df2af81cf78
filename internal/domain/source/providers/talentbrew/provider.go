package talentbrew

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

const defaultLinkPattern = "/job/"

var countryPrefix = regexp.MustCompile(`^(US|United States|Canada|Mexico|India|China|Japan|Germany|Ireland)\b`)

// Provider reads the first server-rendered search page of a TalentBrew
// (Radancy) career site. Later pages are loaded over XHR and are not reachable
// without a browser.
type Provider struct {
	client source.Doer
	now    func() time.Time
}

// NewProvider builds a TalentBrew provider
func NewProvider(client source.Doer) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("talentbrew provider: client is required")
	}
	return &Provider{client: client, now: time.Now}, nil
}

func (p *Provider) Name() string {
	return "talentbrew"
}

func (p *Provider) Fetch(ctx context.Context, src config.Source) ([]domain.RawPosting, error) {
	base := strings.TrimSuffix(src.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("%w: %s: url is required", domain.ErrSourceUnavailable, src.Name)
	}

	target := base + "/search-jobs"
	if q := strings.Join(src.Keywords, " "); q != "" {
		target += "/" + url.PathEscape(q)
	}

	doc, err := source.GetHTML(ctx, p.client, src.Name, target)
	if err != nil {
		return nil, err
	}

	pattern := src.Param("link_contains", defaultLinkPattern)
	label := "talentbrew:" + source.Slug(src.Company)
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
		if utf8.RuneCountInString(title) < 5 || title == "Save Job Button" {
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
		if row := rowOf(a); row != nil {
			fillFromRow(&posting, row)
		}
		out = append(out, posting)
	}

	return out, nil
}

func rowOf(a *html.Node) *html.Node {
	if li := source.Ancestor(a, atom.Li); li != nil {
		return li
	}
	return source.Ancestor(a, atom.Div, atom.Tr)
}

func fillFromRow(p *domain.RawPosting, row *html.Node) {
	for _, line := range source.Lines(row) {
		if line == p.Title || line == "Save Job Button" {
			continue
		}
		if p.DatePosted == "" && source.LooksLikeDate(line) {
			p.DatePosted = line
			continue
		}
		if p.Location == "" && (countryPrefix.MatchString(line) || strings.Contains(line, " - ")) {
			p.Location = line
		}
	}
}

var _ source.Adapter = (*Provider)(nil)
