package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	req := require.New(t)
	q := NewQueue[int]("numbers")

	_, ok := q.TryPop()
	req.False(ok)

	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	req.Equal(5, q.Len())
	req.Zero(q.Cap())
	req.Equal("numbers", q.Name())

	for i := 0; i < 5; i++ {
		v, ok := q.TryPop()
		req.True(ok)
		req.Equal(i, v)
	}
	req.Zero(q.Len())
}

func TestQueue_PopWaitsForPush(t *testing.T) {
	req := require.New(t)
	q := NewQueue[string]("words")

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push("late")
	}()

	v, err := q.Pop(context.Background())
	req.NoError(err)
	req.Equal("late", v)
}

func TestQueue_PopHonoursContext(t *testing.T) {
	req := require.New(t)
	q := NewQueue[string]("words")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)

	req.ErrorIs(err, context.DeadlineExceeded)
}

func TestQueue_ManyConsumersSeeEveryItemOnce(t *testing.T) {
	req := require.New(t)
	q := NewQueue[int]("numbers")
	const items = 1000
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen = make(map[int]int)
		wg   sync.WaitGroup
	)
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, err := q.Pop(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < items; i++ {
		q.Push(i)
	}

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == items
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()
	for _, n := range seen {
		req.Equal(1, n)
	}
}
