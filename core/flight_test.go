package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/singleflight"
)

func TestSharedSurvivesCancelledStarter(t *testing.T) {
	var g singleflight.Group
	var calls atomic.Int32
	release := make(chan struct{})
	seen := make(chan error, 2)

	fn := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		seen <- ctx.Err()
		return 42, ctx.Err()
	}

	starterCtx, cancel := context.WithCancel(context.Background())
	starterErr := make(chan error, 1)
	go func() {
		_, err := shared(starterCtx, &g, "AAPL", fn)
		starterErr <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	joined := make(chan int, 1)
	joinedErr := make(chan error, 1)
	go func() {
		v, err := shared(context.Background(), &g, "AAPL", fn)
		joined <- v
		joinedErr <- err
	}()

	cancel()
	assert.ErrorIs(t, <-starterErr, context.Canceled)

	close(release)
	assert.NoError(t, <-seen, "work started by the cancelled caller must not see its cancellation")
	require.NoError(t, <-joinedErr)
	assert.Equal(t, 42, <-joined)
}

func TestSharedReturnsError(t *testing.T) {
	var g singleflight.Group
	boom := errors.New("boom")

	_, err := shared(context.Background(), &g, "k", func(context.Context) ([]string, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, err := shared(context.Background(), &g, "k", func(context.Context) ([]string, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)
}
