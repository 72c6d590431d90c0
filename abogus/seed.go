package abogus

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// SeedSize is the number of seed bytes prefixed to every token.
const SeedSize = 12

// RandomSource yields uniform values in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// RandomFunc adapts a plain function to RandomSource.
type RandomFunc func() float64

func (f RandomFunc) Float64() float64 { return f() }

// systemRandom draws from the goroutine-safe math/rand top-level source.
var systemRandom RandomSource = RandomFunc(rand.Float64)

// option masks per seed group
var seedOptions = [3][2]int{{3, 45}, {1, 0}, {1, 5}}

// GenerateSeed turns three fractions in [0,1) into the 12-byte token prefix.
func GenerateSeed(r [3]float64) ([SeedSize]byte, error) {
	var out [SeedSize]byte
	for i, f := range r {
		if math.IsNaN(f) || f < 0 || f >= 1 {
			return out, errors.Wrapf(ErrRandomRange, "seed input %d = %v", i, f)
		}
		g := seedGroup(int(f*10000), seedOptions[i])
		copy(out[i*4:], g[:])
	}
	return out, nil
}

func seedGroup(v int, option [2]int) [4]byte {
	return [4]byte{
		byte((v & 255 & 170) | (option[0] & 85)),
		byte((v & 255 & 85) | (option[0] & 170)),
		byte((v >> 8 & 255 & 170) | (option[1] & 85)),
		byte((v >> 8 & 255 & 85) | (option[1] & 170)),
	}
}
