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

// Pipeline is the part of the discovery runner exposed to the agent
type Pipeline interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (pipeline.Summary, error)
	Candidates() ([]domain.Candidate, error)
	ApplyDecisions(ctx context.Context, batch pipeline.DecisionBatch) (pipeline.DecisionResult, error)
}

// RunDiscoveryParams defines the arguments for the run_discovery tool
type RunDiscoveryParams struct {
	Source string `json:"source,omitempty" jsonschema:"Restrict the run to one configured source name"`
}

type runDiscoveryTool struct {
	pipeline Pipeline
	logger   *logging.Logger
}

// WithRunDiscovery registers the run_discovery tool
func WithRunDiscovery(p Pipeline) Option {
	return func(reg *registry) {
		handler := runDiscoveryTool{pipeline: p, logger: reg.logger}
		sdkmcp.AddTool(reg.server, &sdkmcp.Tool{
			Name:        "run_discovery",
			Description: "Fetch every enabled source, filter cheaply and write a fresh candidates list",
		}, handler.handle)
	}
}

func (t runDiscoveryTool) handle(ctx context.Context, _ *sdkmcp.CallToolRequest, params *RunDiscoveryParams) (*sdkmcp.CallToolResult, any, error) {
	var opts pipeline.RunOptions
	if params != nil {
		opts.Source = strings.TrimSpace(params.Source)
	}
	t.logger.Info("run_discovery called", "source", opts.Source)

	sum, err := t.pipeline.Run(ctx, opts)
	if err != nil {
		t.logger.Error("run_discovery failed", "err", err)
		return nil, nil, fmt.Errorf("run discovery: %w", err)
	}

	var b strings.Builder
	if err := sum.WriteText(&b); err != nil {
		return jsonResult(sum, "run finished"), sum, nil
	}
	return textResult(b.String()), sum, nil
}

// GetCandidatesParams pages through the current candidates list
type GetCandidatesParams struct {
	Offset int `json:"offset,omitempty" jsonschema:"Index of the first candidate to return"`
	Limit  int `json:"limit,omitempty" jsonschema:"Maximum number of candidates, 0 returns all"`
}

// GetCandidatesResult is one page of candidates
type GetCandidatesResult struct {
	Total      int                `json:"total"`
	Offset     int                `json:"offset"`
	Candidates []domain.Candidate `json:"candidates"`
}

type getCandidatesTool struct {
	pipeline Pipeline
	logger   *logging.Logger
}

// WithGetCandidates registers the get_candidates tool
func WithGetCandidates(p Pipeline) Option {
	return func(reg *registry) {
		handler := getCandidatesTool{pipeline: p, logger: reg.logger}
		sdkmcp.AddTool(reg.server, &sdkmcp.Tool{
			Name:        "get_candidates",
			Description: "Read the postings that passed the last run's filter and await a decision",
		}, handler.handle)
	}
}

func (t getCandidatesTool) handle(_ context.Context, _ *sdkmcp.CallToolRequest, params *GetCandidatesParams) (*sdkmcp.CallToolResult, any, error) {
	all, err := t.pipeline.Candidates()
	if err != nil {
		t.logger.Error("get_candidates failed", "err", err)
		return nil, nil, fmt.Errorf("load candidates: %w", err)
	}

	var p GetCandidatesParams
	if params != nil {
		p = *params
	}
	if p.Offset < 0 || p.Limit < 0 {
		return nil, nil, fmt.Errorf("offset and limit must not be negative")
	}

	result := GetCandidatesResult{Total: len(all), Offset: p.Offset, Candidates: page(all, p.Offset, p.Limit)}
	t.logger.Debug("get_candidates served", "total", result.Total, "returned", len(result.Candidates))
	return jsonResult(result, fmt.Sprintf("%d candidate(s)", result.Total)), result, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
