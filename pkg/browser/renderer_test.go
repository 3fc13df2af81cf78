package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutBoundedByContext(t *testing.T) {
	r := NewRenderer(Config{Timeout: time.Minute}, nil)

	assert.Equal(t, float64(60000), r.timeout(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.LessOrEqual(t, r.timeout(ctx), float64(5000))
	assert.GreaterOrEqual(t, r.timeout(ctx), float64(1000))
}

func TestShutdownBeforeStartIsNoop(t *testing.T) {
	r := NewRenderer(Config{}, nil)
	assert.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, 30*time.Second, r.cfg.Timeout)
}
