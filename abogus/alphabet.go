package abogus

import (
	"strings"

	"github.com/pkg/errors"
)

// Variant selects one of the five fixed encoding alphabets.
type Variant string

const (
	S0 Variant = "s0"
	S1 Variant = "s1"
	S2 Variant = "s2"
	S3 Variant = "s3" // rc4'd user agent
	S4 Variant = "s4" // final token
)

// s0..s2 carry a 65th '=' that the 6-bit windowing never reaches.
var alphabets = map[Variant]string{
	S0: "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/=",
	S1: "Dkdpgh4ZKsQB80/Mfvw36XI1R25+WUAlEi7NLboqYTOPuzmFjJnryx9HVGcaStCe=",
	S2: "Dkdpgh4ZKsQB80/Mfvw36XI1R25-WUAlEi7NLboqYTOPuzmFjJnryx9HVGcaStCe=",
	S3: "ckdp1h4ZKsUB80/Mfvw36XIgR25+WQAlEi7NLboqYTOPuzmFjJnryx9HVGDaStCe",
	S4: "Dkdpgh2ZmsQB80/MfvV36XI1R45-WUAlEixNLwoqYTOPuzKFjJnry79HbGcaStCe",
}

// ParseVariant maps a tag such as "s3" to its Variant.
func ParseVariant(tag string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(tag)))
	if _, ok := alphabets[v]; !ok {
		return "", errors.Wrapf(ErrUnknownVariant, "tag %q", tag)
	}
	return v, nil
}

// Alphabet returns the lookup table for v.
func Alphabet(v Variant) (string, error) {
	a, ok := alphabets[v]
	if !ok {
		return "", errors.Wrapf(ErrUnknownVariant, "variant %q", string(v))
	}
	return a, nil
}

// EncodedLen is the output length of Encode for n input bytes: four
// characters per full group, then 2 or 3 for a trailing 1 or 2 bytes.
func EncodedLen(n int) int {
	out := n / 3 * 4
	switch n % 3 {
	case 1:
		out += 2
	case 2:
		out += 3
	}
	return out
}

// Encode maps data to text 3 bytes -> 4 characters with alphabet v.
// A short final group emits only the characters it covers; no '=' is added.
func Encode(data []byte, v Variant) (string, error) {
	alphabet, err := Alphabet(v)
	if err != nil {
		return "", err
	}

	dataLen := len(data)
	var result strings.Builder
	result.Grow(EncodedLen(dataLen))

	for i := 0; i < dataLen; i += 3 {
		b1, b2, b3 := data[i], byte(0), byte(0)
		if i+1 < dataLen {
			b2 = data[i+1]
		}
		if i+2 < dataLen {
			b3 = data[i+2]
		}
		block := uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)

		result.WriteByte(alphabet[(block>>18)&0x3F])
		result.WriteByte(alphabet[(block>>12)&0x3F])
		if i+1 < dataLen {
			result.WriteByte(alphabet[(block>>6)&0x3F])
		}
		if i+2 < dataLen {
			result.WriteByte(alphabet[block&0x3F])
		}
	}
	return result.String(), nil
}
