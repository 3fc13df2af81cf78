package workday

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

const (
	defaultPageSize = 20
	defaultMaxPages = 50
)

type searchRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

type searchResponse struct {
	Total       int               `json:"total"`
	JobPostings []json.RawMessage `json:"jobPostings"`
}

type jobPosting struct {
	Title         string   `json:"title"`
	ExternalPath  string   `json:"externalPath"`
	LocationsText string   `json:"locationsText"`
	PostedOn      string   `json:"postedOn"`
	BulletFields  []string `json:"bulletFields"`
}

// Provider pages through the Workday career site search API
type Provider struct {
	client source.Doer
	logger *logging.Logger
	now    func() time.Time
}

// NewProvider builds a Workday provider
func NewProvider(client source.Doer, logger *logging.Logger) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("workday provider: client is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Provider{client: client, logger: logger, now: time.Now}, nil
}

func (p *Provider) Name() string {
	return "workday"
}

// Fetch pages through {url}/wday/cxs/{tenant}/{site}/jobs. Workday only
// reports the real total on the first page, so it is captured once.
func (p *Provider) Fetch(ctx context.Context, src config.Source) ([]domain.RawPosting, error) {
	base := strings.TrimSuffix(src.URL, "/")
	tenant := src.Param("tenant", "")
	site := src.Param("site", "")
	if base == "" || tenant == "" || site == "" {
		return nil, fmt.Errorf("%w: %s: url, params.tenant and params.site are required", domain.ErrSourceUnavailable, src.Name)
	}

	pageSize := src.IntParam("page_size", defaultPageSize)
	maxPages := src.IntParam("max_pages", defaultMaxPages)
	endpoint := fmt.Sprintf("%s/wday/cxs/%s/%s/jobs", base, tenant, site)
	label := "workday:" + tenant
	searchText := strings.Join(src.Keywords, " ")

	var (
		out    []domain.RawPosting
		total  = -1
		offset = 0
	)

	for page := 1; page <= maxPages; page++ {
		var resp searchResponse
		req := searchRequest{
			AppliedFacets: map[string]any{},
			Limit:         pageSize,
			Offset:        offset,
			SearchText:    searchText,
		}
		if err := source.PostJSON(ctx, p.client, src.Name, endpoint, req, &resp); err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}

		if total < 0 {
			total = resp.Total
			p.logger.Debug("workday reported total", "source", src.Name, "total", total)
		}
		if len(resp.JobPostings) == 0 {
			break
		}

		scraped := p.now().UTC()
		for _, raw := range source.DecodeRecords[jobPosting](ctx, resp.JobPostings) {
			title := strings.TrimSpace(raw.Title)
			if title == "" || raw.ExternalPath == "" {
				source.Skip(ctx, "missing title or path")
				continue
			}
			out = append(out, domain.RawPosting{
				Title:       title,
				Company:     src.Company,
				URL:         base + raw.ExternalPath,
				Location:    raw.LocationsText,
				DatePosted:  raw.PostedOn,
				Source:      label,
				Description: strings.Join(raw.BulletFields, " | "),
				ScrapedAt:   scraped,
			})
		}

		offset += pageSize
		if offset >= total {
			break
		}
	}

	return out, nil
}

var _ source.Adapter = (*Provider)(nil)
