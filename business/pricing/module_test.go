package pricing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/dexter/internal/logger"
)

type flakyConnector struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyConnector) Connect(context.Context) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("dial refused")
	}
	return nil
}

func TestConnectWithBackoff_RetriesUntilConnected(t *testing.T) {
	c := &flakyConnector{failures: 3}

	connectWithBackoff(context.Background(), c, logger.NewNop(), backoff.NewConstantBackOff(time.Millisecond))

	assert.Equal(t, int32(4), c.calls.Load())
}

func TestConnectWithBackoff_StopsOnCancel(t *testing.T) {
	c := &flakyConnector{failures: 1 << 30}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		connectWithBackoff(ctx, c, logger.NewNop(), backoff.NewConstantBackOff(time.Millisecond))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry loop ignored cancellation")
	}
	assert.Greater(t, c.calls.Load(), int32(1))
}
