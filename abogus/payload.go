package abogus

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Arguments is the 3-flag tuple that distinguishes the signing entry points.
type Arguments [3]int

var (
	DetailArguments = Arguments{0, 1, 14}
	ReplyArguments  = Arguments{0, 1, 8}
)

const (
	pageID    = 6241
	aid       = 6383
	endFlag   = 3
	magicByte = 44
)

// Payload offsets. Only these positions are ever written.
const (
	offMagic     = 18
	offStart     = 20 // 20..23 low word BE, 24 and 25 high bytes
	offArgs0     = 26 // 26..29
	offArgs1     = 30 // 30..33
	offArgs2     = 34 // 34..37
	offParams    = 38 // 38, 39
	offSuffix    = 40 // 40, 41
	offUA        = 42 // 42, 43
	offEnd       = 44 // 44..47 low word BE, 49 and 50 high bytes
	offEndFlag   = 48
	offPageID    = 52 // 52..55
	offAid       = 57 // 57..60, low byte first
	offEnvLen    = 65 // 65, 66 little endian
	offReserved  = 70 // 70, 71
	offChecksum  = 72
	payloadWidth = 73
)

// checksumIndices feed the XOR at offChecksum. 34 is serialized but not summed.
var checksumIndices = [...]int{
	18, 20, 26, 30, 38, 40, 42, 21, 27, 31, 35, 39, 41, 43, 22,
	28, 32, 36, 23, 29, 33, 37, 44, 45, 46, 47, 48, 49, 50, 24,
	25, 52, 53, 54, 55, 57, 58, 59, 60, 65, 66, 70, 71,
}

// serialOrder is the order fields are written out in.
var serialOrder = [...]int{
	18, 20, 52, 26, 30, 34, 58, 38, 40, 53, 42, 21, 27, 54, 55, 31,
	35, 57, 39, 41, 43, 22, 28, 32, 60, 36, 23, 29, 33, 37, 44, 45,
	59, 46, 47, 48, 49, 50, 24, 25, 65, 66, 70, 71,
}

// PayloadInput carries everything BuildPayload needs.
type PayloadInput struct {
	SearchParams string
	UserAgent    string
	Environment  string
	Suffix       string
	Args         Arguments
	// Start and End are unix milliseconds; End == 0 reuses Start.
	Start int64
	End   int64
}

// Payload is the laid-out field buffer plus the environment tail.
type Payload struct {
	fields [payloadWidth]byte
	env    []byte
}

// At returns the byte stored at field offset i (0 for unused offsets).
func (p *Payload) At(i int) byte {
	if i < 0 || i >= payloadWidth {
		return 0
	}
	return p.fields[i]
}

// Checksum returns the embedded XOR byte.
func (p *Payload) Checksum() byte {
	return p.fields[offChecksum]
}

// VerifyChecksum recomputes the XOR over the checksum fields.
func (p *Payload) VerifyChecksum() bool {
	return p.computeChecksum() == p.fields[offChecksum]
}

func (p *Payload) computeChecksum() byte {
	var x byte
	for _, i := range checksumIndices {
		x ^= p.fields[i]
	}
	return x
}

// Bytes serializes the fields in wire order, then the environment, then the checksum.
func (p *Payload) Bytes() []byte {
	out := make([]byte, 0, len(serialOrder)+len(p.env)+1)
	for _, i := range serialOrder {
		out = append(out, p.fields[i])
	}
	out = append(out, p.env...)
	return append(out, p.fields[offChecksum])
}

// BuildPayload hashes the inputs and lays the derived bytes out at their
// fixed offsets.
func BuildPayload(in PayloadInput) (*Payload, error) {
	for _, field := range [...]struct{ name, value string }{
		{"search params", in.SearchParams},
		{"user agent", in.UserAgent},
		{"environment", in.Environment},
		{"suffix", in.Suffix},
	} {
		if !utf8.ValidString(field.value) {
			return nil, errors.Wrapf(ErrEncoding, "%s is not valid utf-8", field.name)
		}
	}
	env := []byte(in.Environment)
	if len(env) > 0xFFFF {
		return nil, errors.Wrapf(ErrEncoding, "environment is %d bytes, limit 65535", len(env))
	}
	if in.Args[2] < 0 || in.Args[2] > 0xFF {
		return nil, errors.Wrapf(ErrArguments, "arguments[2] = %d does not fit a key byte", in.Args[2])
	}

	h := NewSM3()
	sum := h.Digest([]byte(in.SearchParams + in.Suffix))
	paramsList := h.Digest(sum[:])

	sum = h.Digest([]byte(in.Suffix))
	suffixList := h.Digest(sum[:])

	uaRC4, err := RC4Encrypt([]byte(in.UserAgent), []byte{0, 1, byte(in.Args[2])})
	if err != nil {
		return nil, err
	}
	uaEncoded, err := Encode(uaRC4, S3)
	if err != nil {
		return nil, err
	}
	uaList := h.Digest([]byte(uaEncoded))

	end := in.End
	if end == 0 {
		end = in.Start
	}

	p := &Payload{env: env}
	f := &p.fields

	f[offMagic] = magicByte
	putTimestamp(f[offStart:offStart+6], in.Start)

	a0, a1, a2 := uint32(in.Args[0]), uint32(in.Args[1]), uint32(in.Args[2])
	putUint32BE(f[offArgs0:], a0)
	// second flag: low half as hi/lo, then the top half. Kept as observed.
	f[offArgs1] = byte(a1 / 256)
	f[offArgs1+1] = byte(a1 % 256)
	f[offArgs1+2] = byte(a1 >> 24)
	f[offArgs1+3] = byte(a1 >> 16)
	putUint32BE(f[offArgs2:], a2)

	f[offParams], f[offParams+1] = paramsList[21], paramsList[22]
	f[offSuffix], f[offSuffix+1] = suffixList[21], suffixList[22]
	f[offUA], f[offUA+1] = uaList[23], uaList[24]

	var endBytes [6]byte
	putTimestamp(endBytes[:], end)
	copy(f[offEnd:offEnd+4], endBytes[:4])
	f[offEndFlag] = endFlag
	f[offEndFlag+1], f[offEndFlag+2] = endBytes[4], endBytes[5]

	putUint32BE(f[offPageID:], pageID)
	f[offAid] = aid & 0xFF
	f[offAid+1] = aid >> 8 & 0xFF
	f[offAid+2] = aid >> 16 & 0xFF
	f[offAid+3] = aid >> 24 & 0xFF

	f[offEnvLen] = byte(len(env))
	f[offEnvLen+1] = byte(len(env) >> 8)
	f[offReserved], f[offReserved+1] = 0, 0

	f[offChecksum] = p.computeChecksum()
	return p, nil
}

// putTimestamp writes the low 32 bits big endian into dst[0:4], then
// ms/2^32 and ms/2^40 (each truncated to a byte) into dst[4] and dst[5].
func putTimestamp(dst []byte, ms int64) {
	u := uint64(ms)
	putUint32BE(dst, uint32(u))
	dst[4] = byte(u >> 32)
	dst[5] = byte(u >> 40)
}

func putUint32BE(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}
