package abogus

// RC4Encrypt performs RC4 encryption (KSA + PRGA).
// Decryption is the same call with the same key.
func RC4Encrypt(plaintext, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	var s [256]byte
	for i := range s {
		s[i] = byte(i)
	}

	j := 0
	keyLen := len(key)
	for i := 0; i < 256; i++ {
		j = (j + int(s[i]) + int(key[i%keyLen])) & 0xff
		s[i], s[j] = s[j], s[i]
	}

	out := make([]byte, len(plaintext))
	i := 0
	j = 0
	for n := 0; n < len(plaintext); n++ {
		i = (i + 1) & 0xff
		j = (j + int(s[i])) & 0xff
		s[i], s[j] = s[j], s[i]
		out[n] = plaintext[n] ^ s[s[i]+s[j]]
	}
	return out, nil
}
