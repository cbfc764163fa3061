package random

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	first := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	second := []int64{1, 2, 3, 4, 5, 6, 7, 8}

	Shuffle(first, rand.New(rand.NewSource(99)))
	Shuffle(second, rand.New(rand.NewSource(99)))

	assert.Equal(t, first, second)
}

func TestShuffleKeepsAllElements(t *testing.T) {
	values := []int64{10, 20, 30, 40, 50}
	Shuffle(values, rand.New(rand.NewSource(1)))
	assert.ElementsMatch(t, []int64{10, 20, 30, 40, 50}, values)
}

func TestSerialNumberLengthAndAlphabet(t *testing.T) {
	sn, err := SerialNumber(8)
	require.NoError(t, err)
	require.Len(t, sn, 8)
	for _, c := range sn {
		assert.True(t, c >= '0' && c <= '9', "unexpected character %q", c)
	}
}
