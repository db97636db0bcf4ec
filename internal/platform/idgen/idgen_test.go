package idgen

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerators(t *testing.T) {
	t.Run("uuid produces parseable ids", func(t *testing.T) {
		id := UUID{}.NewID()
		_, err := uuid.Parse(id)
		require.NoError(t, err)
	})

	t.Run("nanoid uses requested size", func(t *testing.T) {
		assert.Len(t, NanoID{Size: 12}.NewID(), 12)
		assert.Len(t, NanoID{}.NewID(), 21)
	})

	t.Run("sequence is deterministic", func(t *testing.T) {
		seq := NewSequence("case")
		assert.Equal(t, "case-1", seq.NewID())
		assert.Equal(t, "case-2", seq.NewID())
	})

	t.Run("sequence is unique under concurrency", func(t *testing.T) {
		seq := NewSequence("n")
		seen := sync.Map{}
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, dup := seen.LoadOrStore(seq.NewID(), struct{}{})
				assert.False(t, dup)
			}()
		}
		wg.Wait()
	})

	t.Run("strategy lookup", func(t *testing.T) {
		g, err := FromStrategy("nanoid")
		require.NoError(t, err)
		assert.IsType(t, NanoID{}, g)

		_, err = FromStrategy("clock")
		require.Error(t, err)
	})
}
