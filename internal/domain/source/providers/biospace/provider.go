package biospace

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
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

const (
	defaultBaseURL  = "https://www.biospace.com"
	defaultMaxPages = 20
)

// Provider scrapes the server-rendered BioSpace listing pages
type Provider struct {
	client source.Doer
	logger *logging.Logger
	now    func() time.Time
}

// NewProvider builds a BioSpace provider
func NewProvider(client source.Doer, logger *logging.Logger) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("biospace provider: client is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Provider{client: client, logger: logger, now: time.Now}, nil
}

func (p *Provider) Name() string {
	return "biospace"
}

// Fetch walks result pages until one comes back empty. Keywords switch to
// the /searchjobs/ endpoint, the only one that filters server side.
func (p *Provider) Fetch(ctx context.Context, src config.Source) ([]domain.RawPosting, error) {
	base := strings.TrimSuffix(src.URL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	maxPages := src.IntParam("max_pages", defaultMaxPages)
	query := strings.Join(src.Keywords, " ")

	var out []domain.RawPosting
	for page := 1; page <= maxPages; page++ {
		pageURL := pageURL(base, query, page)

		doc, err := source.GetHTML(ctx, p.client, src.Name, pageURL)
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}

		found := parsePage(ctx, doc, base, p.now().UTC())
		if len(found) == 0 {
			break
		}
		p.logger.Debug("biospace page parsed", "source", src.Name, "page", page, "jobs", len(found))
		out = append(out, found...)
	}

	return out, nil
}

func pageURL(base, query string, page int) string {
	if query != "" {
		v := url.Values{}
		v.Set("Keywords", query)
		if page > 1 {
			v.Set("page", fmt.Sprint(page))
		}
		return base + "/searchjobs/?" + v.Encode()
	}
	if page > 1 {
		return fmt.Sprintf("%s/jobs/%d/", base, page)
	}
	return base + "/jobs/"
}

func parsePage(ctx context.Context, doc *html.Node, base string, scraped time.Time) []domain.RawPosting {
	var out []domain.RawPosting

	for _, h3 := range source.FindAll(doc, source.IsElement(atom.H3)) {
		link := source.First(h3, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.DataAtom == atom.A && source.Attr(n, "href") != ""
		})
		if link == nil {
			continue
		}
		href := source.Attr(link, "href")
		if !strings.Contains(href, "/job/") {
			continue
		}
		title := source.Text(link)
		if utf8.RuneCountInString(title) < 3 {
			source.Skip(ctx, "short title")
			continue
		}

		posting := domain.RawPosting{
			Title:     title,
			URL:       source.Resolve(base, href),
			Source:    "biospace",
			ScrapedAt: scraped,
		}

		card := source.Ancestor(h3, atom.Li)
		if card == nil {
			card = source.Ancestor(h3, atom.Div, atom.Article, atom.Section)
		}
		if card != nil {
			fillFromCard(&posting, card)
		}

		out = append(out, posting)
	}

	return out
}

// fillFromCard reads company, location and a description from the card
// text. The company only appears as the logo alt text ("Amgen logo").
func fillFromCard(p *domain.RawPosting, card *html.Node) {
	if img := source.First(card, source.IsElement(atom.Img)); img != nil {
		if alt := source.Attr(img, "alt"); strings.HasSuffix(alt, " logo") {
			p.Company = strings.TrimSpace(strings.TrimSuffix(alt, " logo"))
		}
	}

	var rest []string
	for _, line := range source.Lines(card) {
		switch {
		case line == p.Title, line == p.Company,
			strings.Contains(line, "View details"),
			strings.Contains(line, "Save"),
			strings.HasPrefix(line, "$"):
			continue
		}
		if p.Location == "" && source.LooksLikeLocation(line) {
			p.Location = line
			continue
		}
		rest = append(rest, line)
	}

	for _, line := range rest {
		if utf8.RuneCountInString(line) > 20 && len(line) > len(p.Description) {
			p.Description = line
		}
	}
}

var _ source.Adapter = (*Provider)(nil)
