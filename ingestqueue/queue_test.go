package ingestqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushThenPopFIFO(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(Item{SeriesID: 1, Ts: 10}))
	require.NoError(t, q.Push(Item{SeriesID: 2, Ts: 20}))

	item, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(1), item.SeriesID)

	item, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(2), item.SeriesID)
}

func TestPopTimesOutOnEmptyQueue(t *testing.T) {
	q := New()
	start := time.Now()
	_, ok := q.Pop()
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), popTimeout/2)
}

func TestPopWakesOnPush(t *testing.T) {
	q := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, q.Push(Item{SeriesID: 7}))
	}()

	start := time.Now()
	item, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(7), item.SeriesID)
	require.Less(t, time.Since(start), popTimeout)
}

func TestCloseFailsSubsequentPush(t *testing.T) {
	q := New()
	q.Close()
	err := q.Push(Item{})
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseDrainsExistingItemsBeforeReturningNone(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(Item{SeriesID: 1}))
	q.Close()

	item, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(1), item.SeriesID)

	_, ok = q.Pop()
	require.False(t, ok)
}

func TestLenSnapshot(t *testing.T) {
	q := New()
	require.Equal(t, 0, q.Len())
	require.NoError(t, q.Push(Item{}))
	require.Equal(t, 1, q.Len())
}
