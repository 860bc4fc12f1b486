package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sitewatch/internal/monitor"
)

func TestQueue_EnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, monitor.CheckItem{TargetID: "a"}))
	require.NoError(t, q.Enqueue(ctx, monitor.CheckItem{TargetID: "b"}))

	item, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", item.TargetID)
}

func TestQueue_FullEnqueueFailsWithoutBlocking(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, monitor.CheckItem{TargetID: "a"}))
	require.ErrorIs(t, q.Enqueue(ctx, monitor.CheckItem{TargetID: "b"}), ErrQueueFull)
}

func TestQueue_DequeueHonorsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()
	q.Close()

	_, err := q.Dequeue(context.Background())
	require.Error(t, err)
}
