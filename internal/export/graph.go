package export

import (
	"context"

	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/repository"
)

// Graph mirrors matches into a MatchRepository such as Neo4j
type Graph struct {
	repo repository.MatchRepository
}

func NewGraph(repo repository.MatchRepository) *Graph {
	return &Graph{repo: repo}
}

func (g *Graph) Name() string {
	return "neo4j"
}

func (g *Graph) Publish(ctx context.Context, saved []domain.MatchedJob) error {
	return g.repo.UpsertMatches(ctx, saved)
}
