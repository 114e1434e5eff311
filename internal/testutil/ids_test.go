package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceGenerator_Sequential(t *testing.T) {
	gen := NewSequenceGenerator("")
	assert.Equal(t, "cause-1", gen.Generate())
	assert.Equal(t, "cause-2", gen.Generate())
	assert.Equal(t, int64(2), gen.Current())

	gen.Reset()
	assert.Equal(t, "cause-1", gen.Generate())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGenerator("c")
	const workers = 20
	const perWorker = 50

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := gen.Generate()
				mu.Lock()
				require.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}
