package adzuna

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
	"github.com/honeycarbs/job-discovery/pkg/adzuna"
)

const defaultMaxPages = 3

// searchClient describes the subset of the Adzuna client used by the provider.
type searchClient interface {
	SearchJobs(ctx context.Context, query string, params adzuna.SearchParams) (adzuna.Page, error)
	PageSize() int
}

// Provider implements source.Adapter using the Adzuna API
type Provider struct {
	client searchClient
	now    func() time.Time
}

// NewProvider builds an Adzuna provider
func NewProvider(client searchClient) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("adzuna provider: client is required")
	}
	return &Provider{client: client, now: time.Now}, nil
}

// Name returns provider identifier
func (p *Provider) Name() string {
	return "adzuna"
}

// Fetch runs the configured keyword query newest first, page by page
func (p *Provider) Fetch(ctx context.Context, src config.Source) ([]domain.RawPosting, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("adzuna provider: client is nil")
	}

	query := strings.Join(src.Keywords, " ")
	if query == "" {
		return nil, fmt.Errorf("%w: %s: keywords are required", domain.ErrSourceUnavailable, src.Name)
	}

	maxPages := src.IntParam("max_pages", defaultMaxPages)
	params := adzuna.SearchParams{
		Where:      src.Param("where", ""),
		MaxDaysOld: src.IntParam("max_days_old", 0),
		SortBy:     "date",
	}

	var out []domain.RawPosting
	for page := 1; page <= maxPages; page++ {
		params.Page = page
		res, err := p.client.SearchJobs(ctx, query, params)
		if err != nil {
			return out, classify(src.Name, err)
		}

		for range res.Malformed {
			source.Skip(ctx, "malformed record")
		}

		scraped := p.now().UTC()
		for _, j := range res.Jobs {
			if j.Title == "" || j.URL == "" {
				source.Skip(ctx, "missing title or url")
				continue
			}
			out = append(out, domain.RawPosting{
				Title:       j.Title,
				Company:     j.CompanyName,
				URL:         j.URL,
				Location:    j.Location,
				Department:  j.Category,
				DatePosted:  j.Created,
				Source:      "adzuna",
				Description: j.Description,
				ScrapedAt:   scraped,
			})
		}

		if len(res.Jobs)+res.Malformed < p.client.PageSize() {
			break
		}
	}

	return out, nil
}

func classify(name string, err error) error {
	var se *adzuna.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= http.StatusInternalServerError {
			return &domain.FetchError{Source: name, StatusCode: se.StatusCode, Err: err}
		}
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	if strings.Contains(err.Error(), "decode response") {
		return &domain.ParseError{Source: name, Detail: "adzuna response", Err: err}
	}
	return err
}

var _ source.Adapter = (*Provider)(nil)
