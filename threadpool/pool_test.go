package threadpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSizedClampsToOne(t *testing.T) {
	require.Equal(t, 1, NewSized(0).Size())
	require.Equal(t, 1, NewSized(-5).Size())
	require.Equal(t, 4, NewSized(4).Size())
}

func TestLogNumThreads(t *testing.T) {
	require.Equal(t, uint32(0), NewSized(1).LogNumThreads())
	require.Equal(t, uint32(1), NewSized(2).LogNumThreads())
	require.Equal(t, uint32(2), NewSized(4).LogNumThreads())
	require.Equal(t, uint32(2), NewSized(5).LogNumThreads())
	require.Equal(t, uint32(3), NewSized(8).LogNumThreads())
}

func TestScopeWaitsForEveryTask(t *testing.T) {
	pool := NewSized(8)
	var counter int64
	const numTasks = 1000

	pool.Scope(numTasks, func(s *Scope, _ int) {
		for i := 0; i < numTasks; i++ {
			s.Execute(func() {
				atomic.AddInt64(&counter, 1)
			})
		}
	})

	require.EqualValues(t, numTasks, counter)
}

func TestScopeClosureCanBorrowStackLocalSlice(t *testing.T) {
	pool := NewSized(4)
	data := make([]int, 100)

	pool.Scope(len(data), func(s *Scope, chunk int) {
		for start := 0; start < len(data); start += chunk {
			end := start + chunk
			if end > len(data) {
				end = len(data)
			}
			start, end := start, end
			s.Execute(func() {
				for i := start; i < end; i++ {
					data[i] = i * i
				}
			})
		}
	})

	for i, v := range data {
		require.Equal(t, i*i, v)
	}
}

func TestExecuteCoversEveryIndexExactlyOnce(t *testing.T) {
	const n = 137
	seen := make([]int32, n)
	Execute(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
	}, 8)

	for i, count := range seen {
		require.EqualValues(t, 1, count, "index %d visited %d times", i, count)
	}
}

func TestExecuteSingleTaskFallback(t *testing.T) {
	var called bool
	Execute(10, func(start, end int) {
		called = true
		require.Equal(t, 0, start)
		require.Equal(t, 10, end)
	}, 1)
	require.True(t, called)
}
