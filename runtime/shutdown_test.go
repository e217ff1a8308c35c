package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShutdown_StopIsIdempotent(t *testing.T) {
	req := require.New(t)
	s := NewShutdown(context.Background())
	req.True(s.Running())

	// When stop is signalled concurrently many times
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		firsts int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Stop() {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Then exactly one call flipped the flag and it stays down
	req.Equal(1, firsts)
	req.False(s.Running())
	req.False(s.Stop())
	req.False(s.Running())
	req.ErrorIs(s.Context().Err(), context.Canceled)
	<-s.Done()
}

func TestShutdown_ParentCancellation(t *testing.T) {
	req := require.New(t)
	parent, cancel := context.WithCancel(context.Background())
	s := NewShutdown(parent)

	cancel()

	<-s.Done()
	req.False(s.Running())
}
