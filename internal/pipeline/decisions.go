package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

// DecisionBatch is what the decision step hands back: the postings it
// accepted and every URL it looked at, accepted or not.
type DecisionBatch struct {
	Accepted      []domain.Accepted `json:"accepted"`
	ProcessedURLs []string          `json:"processed_urls"`
}

// DecisionResult reports the effect of one batch
type DecisionResult struct {
	Saved     []domain.MatchedJob `json:"saved"`
	NewlySeen int                 `json:"newly_seen"`
	Ignored   int                 `json:"ignored"`
}

// ApplyDecisions saves accepted postings and marks every processed URL as
// seen. Accepted URLs are marked seen even when missing from ProcessedURLs.
func (r *Runner) ApplyDecisions(ctx context.Context, batch DecisionBatch) (DecisionResult, error) {
	unlock, err := r.locker.Lock(ctx)
	if err != nil {
		return DecisionResult{}, err
	}
	defer r.release(unlock)

	var res DecisionResult
	accepted := make([]domain.Accepted, 0, len(batch.Accepted))
	processed := make([]string, 0, len(batch.ProcessedURLs)+len(batch.Accepted))
	for _, a := range batch.Accepted {
		if strings.TrimSpace(a.Posting.URL) == "" {
			res.Ignored++
			continue
		}
		accepted = append(accepted, a)
		processed = append(processed, a.Posting.URL)
	}
	for _, u := range batch.ProcessedURLs {
		if strings.TrimSpace(u) == "" {
			res.Ignored++
			continue
		}
		processed = append(processed, u)
	}

	res.Saved, err = r.store.SaveMatches(accepted)
	if err != nil {
		return DecisionResult{}, fmt.Errorf("save matches: %w", err)
	}
	res.NewlySeen, err = r.store.MarkSeen(processed)
	if err != nil {
		return res, fmt.Errorf("mark seen: %w", err)
	}

	r.publish(ctx, res.Saved)
	r.logger.Info("decisions applied",
		"accepted", len(accepted),
		"saved", len(res.Saved),
		"newly_seen", res.NewlySeen,
		"ignored", res.Ignored,
	)
	return res, nil
}

func (r *Runner) publish(ctx context.Context, saved []domain.MatchedJob) {
	if len(saved) == 0 {
		return
	}
	for _, m := range r.mirrors {
		if err := m.Publish(ctx, saved); err != nil {
			r.logger.Warn("mirror failed", "mirror", m.Name(), "err", err)
		}
	}
}
