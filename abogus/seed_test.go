package abogus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSeedFixed(t *testing.T) {
	seed, err := GenerateSeed([3]float64{0.123, 0.456, 0.789})
	require.NoError(t, err)
	assert.Equal(t, [SeedSize]byte{139, 70, 5, 44, 129, 80, 0, 17, 131, 80, 15, 20}, seed)
}

func TestGenerateSeedMasks(t *testing.T) {
	// Whatever the input, the option bits always show through the masks.
	for _, f := range []float64{0, 0.5, 0.99999} {
		seed, err := GenerateSeed([3]float64{f, f, f})
		require.NoError(t, err)
		for i, opt := range seedOptions {
			g := seed[i*4 : i*4+4]
			assert.Equal(t, byte(opt[0]&85), g[0]&85)
			assert.Equal(t, byte(opt[0]&170), g[1]&170)
			assert.Equal(t, byte(opt[1]&85), g[2]&85)
			assert.Equal(t, byte(opt[1]&170), g[3]&170)
		}
	}
}

func TestGenerateSeedRange(t *testing.T) {
	for _, bad := range []float64{-0.1, 1, 42, math.NaN(), math.Inf(1)} {
		_, err := GenerateSeed([3]float64{0.1, bad, 0.2})
		assert.ErrorIs(t, err, ErrRandomRange, "value %v", bad)
	}
}
