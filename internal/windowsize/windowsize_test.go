package windowsize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func isTwoThreeSmooth(n int) bool {
	for n%2 == 0 {
		n /= 2
	}
	for n%3 == 0 {
		n /= 3
	}
	return n == 1
}

func Test_Ideal_returnsSmallestSmoothSizeAtLeastMin(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.IntRange(6, 36864).Draw(t, "m")

		w, err := Ideal(m)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, w, m)
		assert.True(t, isTwoThreeSmooth(w), "%d is not 2^a*3^b", w)

		for _, candidate := range sizes {
			if candidate >= m {
				assert.Equal(t, candidate, w, "not the smallest qualifying size")
				break
			}
		}
	})
}

func Test_Ideal_failsAboveLargestSize(t *testing.T) {
	_, err := Ideal(36865)
	assert.Error(t, err)
}

func Test_MinWindow_roundsUp(t *testing.T) {
	w := MinWindow(48000, 20)
	assert.Equal(t, int(math.Ceil(48000.0/20.0)), w)
}
