package neo4j

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

func TestMatchParams(t *testing.T) {
	found := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	params := matchParams([]domain.MatchedJob{{
		ID:        id,
		Title:     "Scientist",
		URL:       "https://Acme.com/jobs/1/?utm_source=x",
		IsBayArea: true,
		DateFound: found,
	}})

	require.Len(t, params, 1)
	assert.Equal(t, id.String(), params[0]["id"])
	assert.Equal(t, "https://acme.com/jobs/1", params[0]["url"])
	assert.Equal(t, "unknown", params[0]["company"])
	assert.Equal(t, true, params[0]["isBayArea"])
	assert.Equal(t, found.UnixMilli(), params[0]["dateFound"])
}
