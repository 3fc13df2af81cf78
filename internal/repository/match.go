package repository

import (
	"context"
	"time"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

// MatchRepository mirrors matched jobs into an external store. The file
// store stays authoritative; mirrors may lag or miss writes.
type MatchRepository interface {
	UpsertMatches(ctx context.Context, jobs []domain.MatchedJob) error
	MarkNotified(ctx context.Context, ids []domain.JobID, at time.Time) error
}
