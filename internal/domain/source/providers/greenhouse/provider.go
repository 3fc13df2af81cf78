package greenhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
)

const defaultAPIBase = "https://boards-api.greenhouse.io/v1/boards"

type boardResponse struct {
	Jobs []json.RawMessage `json:"jobs"`
}

type job struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	UpdatedAt   string `json:"updated_at"`
	Content     string `json:"content"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
}

// Provider reads the public Greenhouse job board API
type Provider struct {
	client  source.Doer
	apiBase string
	now     func() time.Time
}

// Option configures Provider
type Option func(*Provider)

// WithAPIBase points the provider at another API root
func WithAPIBase(base string) Option {
	return func(p *Provider) {
		p.apiBase = strings.TrimSuffix(base, "/")
	}
}

// WithClock sets a custom clock
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// NewProvider builds a Greenhouse provider
func NewProvider(client source.Doer, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("greenhouse provider: client is required")
	}
	p := &Provider{client: client, apiBase: defaultAPIBase, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns provider identifier
func (p *Provider) Name() string {
	return "greenhouse"
}

// Fetch lists every open job on the board named by params.board_token
func (p *Provider) Fetch(ctx context.Context, src config.Source) ([]domain.RawPosting, error) {
	token := src.Param("board_token", "")
	if token == "" {
		return nil, fmt.Errorf("%w: %s: params.board_token is required", domain.ErrSourceUnavailable, src.Name)
	}

	endpoint := fmt.Sprintf("%s/%s/jobs?content=true", p.apiBase, url.PathEscape(token))

	var payload boardResponse
	if err := source.GetJSON(ctx, p.client, src.Name, endpoint, &payload); err != nil {
		return nil, err
	}

	company := src.Company
	if company == "" {
		company = token
	}
	scraped := p.now().UTC()
	label := "greenhouse:" + token

	jobs := source.DecodeRecords[job](ctx, payload.Jobs)
	out := make([]domain.RawPosting, 0, len(jobs))
	for _, j := range jobs {
		title := strings.TrimSpace(j.Title)
		if title == "" {
			source.Skip(ctx, "missing title")
			continue
		}
		if j.AbsoluteURL == "" {
			source.Skip(ctx, "missing url")
			continue
		}

		var department string
		if len(j.Departments) > 0 {
			department = j.Departments[0].Name
		}

		out = append(out, domain.RawPosting{
			Title:       title,
			Company:     company,
			URL:         j.AbsoluteURL,
			Location:    j.Location.Name,
			Department:  department,
			DatePosted:  j.UpdatedAt,
			Source:      label,
			Description: source.HTMLToText(html.UnescapeString(j.Content)),
			ScrapedAt:   scraped,
		})
	}

	return out, nil
}

var _ source.Adapter = (*Provider)(nil)
