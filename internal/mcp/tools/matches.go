package tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/storage/filestore"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// MatchStore reads and updates saved matches
type MatchStore interface {
	Matches() ([]domain.MatchedJob, error)
	Unnotified() ([]domain.MatchedJob, error)
	MarkNotified(ids []domain.JobID) (filestore.NotifyResult, error)
}

// ListMatchesParams defines the arguments for the list_matches tool
type ListMatchesParams struct {
	UnnotifiedOnly bool `json:"unnotified_only,omitempty" jsonschema:"Only return matches nobody was told about yet"`
	Limit          int  `json:"limit,omitempty" jsonschema:"Maximum number of matches, 0 returns all"`
}

// ListMatchesResult holds the matches in save order
type ListMatchesResult struct {
	Total   int                 `json:"total"`
	Matches []domain.MatchedJob `json:"matches"`
}

type listMatchesTool struct {
	store  MatchStore
	logger *logging.Logger
}

// WithListMatches registers the list_matches tool
func WithListMatches(store MatchStore) Option {
	return func(reg *registry) {
		handler := listMatchesTool{store: store, logger: reg.logger}
		sdkmcp.AddTool(reg.server, &sdkmcp.Tool{
			Name:        "list_matches",
			Description: "List saved matches, optionally only the ones not yet notified",
		}, handler.handle)
	}
}

func (t listMatchesTool) handle(_ context.Context, _ *sdkmcp.CallToolRequest, params *ListMatchesParams) (*sdkmcp.CallToolResult, any, error) {
	var p ListMatchesParams
	if params != nil {
		p = *params
	}
	if p.Limit < 0 {
		return nil, nil, fmt.Errorf("limit must not be negative")
	}

	list := t.store.Matches
	if p.UnnotifiedOnly {
		list = t.store.Unnotified
	}
	matches, err := list()
	if err != nil {
		t.logger.Error("list_matches failed", "err", err)
		return nil, nil, fmt.Errorf("load matches: %w", err)
	}

	result := ListMatchesResult{Total: len(matches), Matches: page(matches, 0, p.Limit)}
	return jsonResult(result, fmt.Sprintf("%d match(es)", result.Total)), result, nil
}

// MarkNotifiedParams defines the arguments for the mark_notified tool
type MarkNotifiedParams struct {
	IDs []string `json:"ids" jsonschema:"Match ids whose notification was delivered"`
}

// MarkNotifiedResult reports which ids were updated
type MarkNotifiedResult struct {
	Updated []string `json:"updated"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

type markNotifiedTool struct {
	store  MatchStore
	logger *logging.Logger
}

// WithMarkNotified registers the mark_notified tool
func WithMarkNotified(store MatchStore) Option {
	return func(reg *registry) {
		handler := markNotifiedTool{store: store, logger: reg.logger}
		sdkmcp.AddTool(reg.server, &sdkmcp.Tool{
			Name:        "mark_notified",
			Description: "Record that notifications for the given match ids were delivered",
		}, handler.handle)
	}
}

func (t markNotifiedTool) handle(_ context.Context, _ *sdkmcp.CallToolRequest, params *MarkNotifiedParams) (*sdkmcp.CallToolResult, any, error) {
	if params == nil || len(params.IDs) == 0 {
		return textResult("no ids provided"), MarkNotifiedResult{}, nil
	}

	var result MarkNotifiedResult
	ids := make([]domain.JobID, 0, len(params.IDs))
	for _, raw := range params.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			result.Invalid = append(result.Invalid, raw)
			continue
		}
		ids = append(ids, id)
	}

	res, err := t.store.MarkNotified(ids)
	if err != nil {
		t.logger.Error("mark_notified failed", "err", err)
		return nil, nil, fmt.Errorf("mark notified: %w", err)
	}
	result.Updated = idStrings(res.Updated)
	result.Missing = idStrings(res.Missing)

	t.logger.Info("mark_notified completed",
		"updated", len(result.Updated),
		"missing", len(result.Missing),
		"invalid", len(result.Invalid),
	)
	return jsonResult(result, fmt.Sprintf("%d match(es) marked notified", len(result.Updated))), result, nil
}

func idStrings(ids []domain.JobID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
