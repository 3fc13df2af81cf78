package tools

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/pipeline"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// AcceptedPosting is one positive decision. Only the url is required when
// the posting is in the current candidates list.
type AcceptedPosting struct {
	URL        string `json:"url" jsonschema:"Posting url as listed by get_candidates"`
	IsBayArea  bool   `json:"is_bay_area,omitempty" jsonschema:"Whether the role is located in the Bay Area"`
	Title      string `json:"title,omitempty" jsonschema:"Title, required for postings outside the candidates list"`
	Company    string `json:"company,omitempty"`
	Location   string `json:"location,omitempty"`
	Department string `json:"department,omitempty"`
	DatePosted string `json:"date_posted,omitempty"`
	Source     string `json:"source,omitempty"`
}

// SubmitDecisionsParams defines the arguments for the submit_decisions tool
type SubmitDecisionsParams struct {
	Accepted      []AcceptedPosting `json:"accepted,omitempty" jsonschema:"Postings judged relevant"`
	ProcessedURLs []string          `json:"processed_urls,omitempty" jsonschema:"Every url that was looked at, accepted or not"`
}

// SubmitDecisionsResult summarises what the store did with the batch
type SubmitDecisionsResult struct {
	Saved       []domain.MatchedJob `json:"saved"`
	NewlySeen   int                 `json:"newly_seen"`
	Ignored     int                 `json:"ignored"`
	UnknownURLs []string            `json:"unknown_urls,omitempty"`
}

type submitDecisionsTool struct {
	pipeline Pipeline
	logger   *logging.Logger
}

// WithSubmitDecisions registers the submit_decisions tool
func WithSubmitDecisions(p Pipeline) Option {
	return func(reg *registry) {
		handler := submitDecisionsTool{pipeline: p, logger: reg.logger}
		sdkmcp.AddTool(reg.server, &sdkmcp.Tool{
			Name:        "submit_decisions",
			Description: "Save accepted postings as matches and mark every processed url as seen",
		}, handler.handle)
	}
}

func (t submitDecisionsTool) handle(ctx context.Context, _ *sdkmcp.CallToolRequest, params *SubmitDecisionsParams) (*sdkmcp.CallToolResult, any, error) {
	if params == nil || (len(params.Accepted) == 0 && len(params.ProcessedURLs) == 0) {
		return textResult("no decisions provided"), SubmitDecisionsResult{}, nil
	}

	candidates, err := t.pipeline.Candidates()
	if err != nil {
		return nil, nil, fmt.Errorf("load candidates: %w", err)
	}
	byURL := make(map[string]domain.Candidate, len(candidates))
	for _, c := range candidates {
		byURL[domain.NormalizeURL(c.URL)] = c
	}

	batch := pipeline.DecisionBatch{ProcessedURLs: params.ProcessedURLs}
	var unknown []string
	for _, a := range params.Accepted {
		posting, ok := resolve(a, byURL)
		if !ok {
			unknown = append(unknown, a.URL)
			continue
		}
		batch.Accepted = append(batch.Accepted, domain.Accepted{Posting: posting, IsBayArea: a.IsBayArea})
	}

	res, err := t.pipeline.ApplyDecisions(ctx, batch)
	if err != nil {
		t.logger.Error("submit_decisions failed", "err", err)
		return nil, nil, fmt.Errorf("apply decisions: %w", err)
	}

	result := SubmitDecisionsResult{
		Saved:       res.Saved,
		NewlySeen:   res.NewlySeen,
		Ignored:     res.Ignored,
		UnknownURLs: unknown,
	}
	if len(unknown) > 0 {
		t.logger.Warn("submit_decisions: accepted urls without posting data", "count", len(unknown))
	}
	msg := fmt.Sprintf("[submit_decisions] saved %d match(es), %d url(s) newly seen", len(result.Saved), result.NewlySeen)
	if len(unknown) > 0 {
		msg += fmt.Sprintf(", %d unknown url(s): %s", len(unknown), strings.Join(unknown, ", "))
	}
	return textResult(msg), result, nil
}

// resolve fills an accepted posting from the candidates list, or from the
// fields the agent sent when the url is not a current candidate.
func resolve(a AcceptedPosting, candidates map[string]domain.Candidate) (domain.RawPosting, bool) {
	if strings.TrimSpace(a.URL) == "" {
		return domain.RawPosting{}, false
	}
	if c, ok := candidates[domain.NormalizeURL(a.URL)]; ok {
		return c.Posting(), true
	}
	if strings.TrimSpace(a.Title) == "" {
		return domain.RawPosting{}, false
	}
	return domain.RawPosting{
		Title:      a.Title,
		Company:    a.Company,
		URL:        a.URL,
		Location:   a.Location,
		Department: a.Department,
		DatePosted: a.DatePosted,
		Source:     a.Source,
	}, true
}
