package neo4j

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/repository"

	pkgneo4j "github.com/honeycarbs/job-discovery/pkg/neo4j"
)

// Ensure MatchRepository implements repository.MatchRepository
var _ repository.MatchRepository = (*MatchRepository)(nil)

const upsertMatchesQuery = `
	UNWIND $jobs AS job
	MERGE (j:Job {url: job.url})
	ON CREATE SET j.id = job.id,
	              j.dateFound = datetime({epochMillis: job.dateFound})
	SET j.title = job.title,
	    j.location = job.location,
	    j.isBayArea = job.isBayArea,
	    j.department = job.department,
	    j.datePosted = job.datePosted,
	    j.source = job.source,
	    j.notified = job.notified
	WITH j, job
	MERGE (c:Company {name: job.company})
	MERGE (j)-[:POSTED_BY]->(c)
`

const markNotifiedQuery = `
	MATCH (j:Job)
	WHERE j.id IN $ids
	SET j.notified = true,
	    j.notifiedAt = datetime({epochMillis: $at})
`

// MatchRepository keeps a Job/Company graph of matched jobs in Neo4j
type MatchRepository struct {
	client *pkgneo4j.Client
}

// NewMatchRepository creates a MatchRepository with a Neo4j client
func NewMatchRepository(client *pkgneo4j.Client) *MatchRepository {
	return &MatchRepository{
		client: client,
	}
}

// UpsertMatches merges jobs by URL and links them to their company
func (r *MatchRepository) UpsertMatches(ctx context.Context, jobs []domain.MatchedJob) error {
	if len(jobs) == 0 {
		return nil
	}

	session := r.client.WriteSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, upsertMatchesQuery, map[string]any{"jobs": matchParams(jobs)})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

// MarkNotified flags the given jobs as delivered
func (r *MatchRepository) MarkNotified(ctx context.Context, ids []domain.JobID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	session := r.client.WriteSession(ctx)
	defer session.Close(ctx)

	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrings = append(idStrings, id.String())
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, markNotifiedQuery, map[string]any{
			"ids": idStrings,
			"at":  at.UnixMilli(),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

func matchParams(jobs []domain.MatchedJob) []map[string]any {
	out := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		company := j.Company
		if company == "" {
			company = "unknown"
		}
		out = append(out, map[string]any{
			"id":         j.ID.String(),
			"url":        domain.NormalizeURL(j.URL),
			"title":      j.Title,
			"company":    company,
			"location":   j.Location,
			"isBayArea":  j.IsBayArea,
			"department": j.Department,
			"datePosted": j.DatePosted,
			"source":     j.Source,
			"notified":   j.Notified,
			"dateFound":  j.DateFound.UnixMilli(),
		})
	}
	return out
}
