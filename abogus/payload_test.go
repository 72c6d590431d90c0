package abogus

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTimestamp = int64(1678886400000)
	testParams    = "a=1&b=2"
	testUA        = "TestUA/1.0"
)

func testInput(args Arguments) PayloadInput {
	return PayloadInput{
		SearchParams: testParams,
		UserAgent:    testUA,
		Environment:  DefaultEnvironment,
		Suffix:       DefaultSuffix,
		Args:         args,
		Start:        testTimestamp,
	}
}

func TestBuildPayloadGolden(t *testing.T) {
	tests := []struct {
		name     string
		args     Arguments
		fields   string
		checksum byte
	}{
		{"detail", DetailArguments, "2ce50000000018c63a00e86d0018610100ef7b33e670000000000000000ee56d007000038601860141000000", 85},
		{"reply", ReplyArguments, "2ce50000000018c63a00f56d0018610100ef7b3372700000000000000008e56d007000038601860141000000", 218},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := BuildPayload(testInput(tt.args))
			require.NoError(t, err)

			b := p.Bytes()
			require.Len(t, b, len(serialOrder)+len(DefaultEnvironment)+1)
			assert.Equal(t, tt.fields, hex.EncodeToString(b[:len(serialOrder)]))
			assert.Equal(t, DefaultEnvironment, string(b[len(serialOrder):len(b)-1]))
			assert.Equal(t, tt.checksum, b[len(b)-1])
			assert.Equal(t, tt.checksum, p.Checksum())
		})
	}
}

func TestPayloadLayout(t *testing.T) {
	p, err := BuildPayload(testInput(Arguments{0x01020304, 0x0A0B0C0D, 14}))
	require.NoError(t, err)

	assert.Equal(t, byte(44), p.At(18))
	ts := uint64(testTimestamp)
	assert.Equal(t, []byte{byte(ts >> 24), byte(ts >> 16), byte(ts >> 8), byte(ts), byte(ts >> 32), byte(ts >> 40)},
		[]byte{p.At(20), p.At(21), p.At(22), p.At(23), p.At(24), p.At(25)})

	assert.Equal(t, []byte{1, 2, 3, 4}, []byte{p.At(26), p.At(27), p.At(28), p.At(29)})
	// 0x0A0B0C0D: /256 -> 0x0C, %256 -> 0x0D, >>24 -> 0x0A, >>16 -> 0x0B
	assert.Equal(t, []byte{0x0C, 0x0D, 0x0A, 0x0B}, []byte{p.At(30), p.At(31), p.At(32), p.At(33)})
	assert.Equal(t, []byte{0, 0, 0, 14}, []byte{p.At(34), p.At(35), p.At(36), p.At(37)})

	assert.Equal(t, byte(3), p.At(48))
	assert.Equal(t, []byte{0, 0, 0x18, 0x61}, []byte{p.At(52), p.At(53), p.At(54), p.At(55)})
	assert.Equal(t, []byte{0xEF, 0x18, 0, 0}, []byte{p.At(57), p.At(58), p.At(59), p.At(60)})
	assert.Equal(t, []byte{byte(len(DefaultEnvironment)), 0}, []byte{p.At(65), p.At(66)})
	assert.Equal(t, []byte{0, 0}, []byte{p.At(70), p.At(71)})
	assert.Zero(t, p.At(-1))
	assert.Zero(t, p.At(500))
}

func TestPayloadEndTimestamp(t *testing.T) {
	in := testInput(DetailArguments)
	in.End = testTimestamp + 0x0102
	p, err := BuildPayload(in)
	require.NoError(t, err)

	end := uint64(in.End)
	assert.Equal(t, []byte{byte(end >> 24), byte(end >> 16), byte(end >> 8), byte(end)},
		[]byte{p.At(44), p.At(45), p.At(46), p.At(47)})
	assert.Equal(t, byte(end>>32), p.At(49))
	assert.Equal(t, byte(end>>40), p.At(50))
	assert.NotEqual(t, p.At(47), p.At(23))
	assert.True(t, p.VerifyChecksum())
}

func TestPayloadChecksum(t *testing.T) {
	for _, args := range []Arguments{DetailArguments, ReplyArguments, {7, 65535, 255}, {-1, -300, 0}} {
		p, err := BuildPayload(testInput(args))
		require.NoError(t, err)
		assert.True(t, p.VerifyChecksum(), "args %v", args)

		var x byte
		for _, i := range checksumIndices {
			x ^= p.At(i)
		}
		assert.Equal(t, x, p.Checksum())

		p.fields[30] ^= 0xFF
		assert.False(t, p.VerifyChecksum())
	}
}

func TestPayloadArgumentsIsolation(t *testing.T) {
	base, err := BuildPayload(testInput(DetailArguments))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		args := DetailArguments
		args[i] += 3
		p, err := BuildPayload(testInput(args))
		require.NoError(t, err)

		changed := false
		for off := 26; off <= 37; off++ {
			if p.At(off) != base.At(off) {
				changed = true
			}
		}
		assert.True(t, changed, "argument %d", i)

		// params and suffix digests never see the flags.
		for off := 38; off <= 41; off++ {
			assert.Equal(t, base.At(off), p.At(off), "argument %d offset %d", i, off)
		}
		// only the third flag feeds the user agent key.
		if i < 2 {
			assert.Equal(t, base.At(42), p.At(42))
			assert.Equal(t, base.At(43), p.At(43))
		}
	}
}

func TestPayloadUnicodeEnvironment(t *testing.T) {
	in := testInput(DetailArguments)
	in.Environment = "1920|1080|屏幕"
	p, err := BuildPayload(in)
	require.NoError(t, err)
	assert.Equal(t, byte(len([]byte(in.Environment))), p.At(65))
	assert.True(t, strings.HasSuffix(string(p.Bytes()[:len(p.Bytes())-1]), in.Environment))
}

func TestBuildPayloadErrors(t *testing.T) {
	bad := string([]byte{0xff, 0xfe})

	in := testInput(DetailArguments)
	in.UserAgent = bad
	_, err := BuildPayload(in)
	assert.ErrorIs(t, err, ErrEncoding)

	in = testInput(DetailArguments)
	in.SearchParams = bad
	_, err = BuildPayload(in)
	assert.ErrorIs(t, err, ErrEncoding)

	in = testInput(DetailArguments)
	in.Environment = strings.Repeat("x", 0x10000)
	_, err = BuildPayload(in)
	assert.ErrorIs(t, err, ErrEncoding)

	for _, k := range []int{-1, 256} {
		_, err = BuildPayload(testInput(Arguments{0, 1, k}))
		assert.ErrorIs(t, err, ErrArguments)
	}
}
