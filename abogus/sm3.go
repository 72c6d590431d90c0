package abogus

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math/bits"
)

const (
	// Size is the SM3 digest length in bytes.
	Size = 32
	// BlockSize is the SM3 compression block length in bytes.
	BlockSize = 64
)

// GB/T 32905-2016 initial value.
var sm3IV = [8]uint32{
	0x7380166F, 0x4914B2B9, 0x172442D7, 0xDA8A0600,
	0xA96F30BC, 0x163138AA, 0xE38DEE4D, 0xB0FB0E4E,
}

// SM3 is an incremental SM3 hasher. Full 64-byte blocks are compressed as
// they arrive; the tail stays buffered until Sum pads it.
type SM3 struct {
	reg  [8]uint32
	buf  []byte
	size uint64
}

var _ hash.Hash = (*SM3)(nil)

// NewSM3 returns a hasher loaded with the standard IV.
func NewSM3() *SM3 {
	d := new(SM3)
	d.Reset()
	return d
}

func (d *SM3) Reset() {
	d.reg = sm3IV
	d.buf = d.buf[:0]
	d.size = 0
}

func (d *SM3) Size() int { return Size }

func (d *SM3) BlockSize() int { return BlockSize }

func (d *SM3) Write(p []byte) (int, error) {
	n := len(p)
	d.size += uint64(n)
	d.buf = append(d.buf, p...)
	if len(d.buf) >= BlockSize {
		full := len(d.buf) &^ (BlockSize - 1)
		sm3Blocks(&d.reg, d.buf[:full])
		d.buf = append(d.buf[:0], d.buf[full:]...)
	}
	return n, nil
}

// Sum appends the digest of everything written so far to in. The hasher
// state is left untouched, so more data may still be written.
func (d *SM3) Sum(in []byte) []byte {
	reg := d.reg
	sm3Blocks(&reg, sm3Pad(d.buf, d.size))

	var out [Size]byte
	for i, v := range reg {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return append(in, out[:]...)
}

// Digest resets the hasher, hashes data and returns the 32-byte result.
func (d *SM3) Digest(data []byte) [Size]byte {
	d.Reset()
	_, _ = d.Write(data)
	var out [Size]byte
	copy(out[:], d.Sum(nil))
	return out
}

// SM3Sum returns the SM3 digest of data.
func SM3Sum(data []byte) [Size]byte {
	return NewSM3().Digest(data)
}

// SM3Hex returns the lowercase hex SM3 digest of data.
func SM3Hex(data []byte) string {
	sum := SM3Sum(data)
	return hex.EncodeToString(sum[:])
}

// sm3Pad appends 0x80, zeros up to 56 mod 64 and the 64-bit big-endian bit
// length to tail. The result is always a whole number of blocks.
func sm3Pad(tail []byte, size uint64) []byte {
	n := (len(tail) + 1 + 8 + BlockSize - 1) &^ (BlockSize - 1)
	p := make([]byte, n)
	copy(p, tail)
	p[len(tail)] = 0x80
	binary.BigEndian.PutUint64(p[n-8:], size*8)
	return p
}

func sm3T(j int) uint32 {
	if j < 16 {
		return 0x79CC4519
	}
	return 0x7A879D8A
}

func sm3FF(j int, x, y, z uint32) uint32 {
	if j < 16 {
		return x ^ y ^ z
	}
	return (x & y) | (x & z) | (y & z)
}

func sm3GG(j int, x, y, z uint32) uint32 {
	if j < 16 {
		return x ^ y ^ z
	}
	return (x & y) | (^x & z)
}

func sm3P0(x uint32) uint32 {
	return x ^ bits.RotateLeft32(x, 9) ^ bits.RotateLeft32(x, 17)
}

func sm3P1(x uint32) uint32 {
	return x ^ bits.RotateLeft32(x, 15) ^ bits.RotateLeft32(x, 23)
}

// sm3Blocks runs the compression function over every 64-byte block of p.
func sm3Blocks(reg *[8]uint32, p []byte) {
	var w [68]uint32
	var w1 [64]uint32

	for len(p) >= BlockSize {
		for i := 0; i < 16; i++ {
			w[i] = binary.BigEndian.Uint32(p[4*i:])
		}
		for j := 16; j < 68; j++ {
			w[j] = sm3P1(w[j-16]^w[j-9]^bits.RotateLeft32(w[j-3], 15)) ^
				bits.RotateLeft32(w[j-13], 7) ^ w[j-6]
		}
		for j := 0; j < 64; j++ {
			w1[j] = w[j] ^ w[j+4]
		}

		a, b, c, d := reg[0], reg[1], reg[2], reg[3]
		e, f, g, h := reg[4], reg[5], reg[6], reg[7]
		for j := 0; j < 64; j++ {
			// RotateLeft32 reduces the shift mod 32, as the round schedule expects.
			a12 := bits.RotateLeft32(a, 12)
			ss1 := bits.RotateLeft32(a12+e+bits.RotateLeft32(sm3T(j), j), 7)
			ss2 := ss1 ^ a12
			tt1 := sm3FF(j, a, b, c) + d + ss2 + w1[j]
			tt2 := sm3GG(j, e, f, g) + h + ss1 + w[j]

			d = c
			c = bits.RotateLeft32(b, 9)
			b = a
			a = tt1
			h = g
			g = bits.RotateLeft32(f, 19)
			f = e
			e = sm3P0(tt2)
		}

		reg[0] ^= a
		reg[1] ^= b
		reg[2] ^= c
		reg[3] ^= d
		reg[4] ^= e
		reg[5] ^= f
		reg[6] ^= g
		reg[7] ^= h

		p = p[BlockSize:]
	}
}
