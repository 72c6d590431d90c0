package abogus

import (
	"crypto/rc4"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRC4KnownVector(t *testing.T) {
	out, err := RC4Encrypt([]byte("Plaintext"), []byte("Key"))
	require.NoError(t, err)
	assert.Equal(t, "bbf316e8d940af0ad3", hex.EncodeToString(out))
}

func TestRC4UserAgentKey(t *testing.T) {
	out, err := RC4Encrypt([]byte("TestUA/1.0"), []byte{0, 1, 14})
	require.NoError(t, err)
	assert.Equal(t, []byte{140, 140, 157, 224, 150, 201, 94, 185, 42, 0}, out)
}

func TestRC4Involution(t *testing.T) {
	keys := [][]byte{{0x79}, {0, 1, 8}, []byte("a much longer key than usual")}
	text := []byte("device_platform=webapp&aid=6383\x00\xff")
	for _, key := range keys {
		enc, err := RC4Encrypt(text, key)
		require.NoError(t, err)
		require.Len(t, enc, len(text))

		dec, err := RC4Encrypt(enc, key)
		require.NoError(t, err)
		assert.Equal(t, text, dec)

		c, err := rc4.NewCipher(key)
		require.NoError(t, err)
		want := make([]byte, len(text))
		c.XORKeyStream(want, text)
		assert.Equal(t, want, enc)
	}
}

func TestRC4EmptyKey(t *testing.T) {
	_, err := RC4Encrypt([]byte("x"), nil)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestRC4EmptyInput(t *testing.T) {
	out, err := RC4Encrypt(nil, []byte{1})
	require.NoError(t, err)
	assert.Empty(t, out)
}
