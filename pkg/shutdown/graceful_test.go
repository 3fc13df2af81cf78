package shutdown

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/honeycarbs/job-discovery/pkg/logging"
)

func TestStopRunsInReverseOrderAndJoinsErrors(t *testing.T) {
	var order []string
	boom := errors.New("boom")

	err := Stop(time.Second, logging.Nop(),
		Func(func(context.Context) error { order = append(order, "server"); return nil }),
		nil,
		Func(func(context.Context) error { order = append(order, "scheduler"); return boom }),
	)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"scheduler", "server"}, order)
}

func TestGracefulReturnsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stopped := false
	err := Graceful(ctx, []os.Signal{syscall.SIGUSR1}, time.Second, logging.Nop(),
		Func(func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			stopped = hasDeadline
			return nil
		}),
	)

	assert.NoError(t, err)
	assert.True(t, stopped)
}
