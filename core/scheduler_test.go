package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartReferenceRefreshRejectsBadSchedule(t *testing.T) {
	rc := NewReferenceCache(&fakeSource{table: testTable}, 0)

	_, err := StartReferenceRefresh(context.Background(), rc, "not a schedule")
	require.Error(t, err)
}

func TestStartReferenceRefreshReloads(t *testing.T) {
	src := &fakeSource{table: testTable}
	rc := NewReferenceCache(src, 0)

	c, err := StartReferenceRefresh(context.Background(), rc, "@every 1s")
	require.NoError(t, err)
	defer func() { <-c.Stop().Done() }()

	assert.Eventually(t, func() bool { return !rc.LoadedAt().IsZero() }, 3*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, src.calls.Load(), int32(1))
}
