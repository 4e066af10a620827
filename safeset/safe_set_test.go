package safeset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeSet(t *testing.T) {
	t.Run("tracks exported lines", func(t *testing.T) {
		lines := NewSafeSet[int]()
		assert.False(t, lines.Contains(486))

		lines.Add(486)
		lines.Add(487)
		lines.Add(486)

		assert.True(t, lines.Contains(486))
		assert.ElementsMatch(t, []int{486, 487}, lines.Values())

		lines.Remove(486)
		lines.Remove(999)
		assert.False(t, lines.Contains(486))
		assert.Equal(t, []int{487}, lines.Values())
	})

	t.Run("values is a snapshot", func(t *testing.T) {
		s := NewSafeSet[string]()
		s.Add("set_mixer")
		s.Add("set_mmcm")

		for _, v := range s.Values() {
			s.Remove(v)
		}

		assert.Empty(t, s.Values())
	})

	t.Run("concurrent add and remove", func(t *testing.T) {
		s := NewSafeSet[int]()

		var wg sync.WaitGroup
		for i := range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Add(i)
				if i%2 == 1 {
					s.Remove(i)
				}
				_ = s.Contains(i)
			}()
		}
		wg.Wait()

		assert.Len(t, s.Values(), 50)
		for _, v := range s.Values() {
			assert.Zero(t, v%2)
		}
	})
}
