package abogus

import "github.com/pkg/errors"

var (
	// ErrEmptyKey is returned by RC4Encrypt for a zero-length key.
	ErrEmptyKey = errors.New("abogus: rc4 key is empty")
	// ErrUnknownVariant is returned for an alphabet tag outside s0..s4.
	ErrUnknownVariant = errors.New("abogus: unknown alphabet variant")
	// ErrEncoding is returned when an input string is not valid UTF-8 or
	// does not fit the field that carries it.
	ErrEncoding = errors.New("abogus: invalid input encoding")
	// ErrRandomRange is returned when a seed input lies outside [0,1).
	ErrRandomRange = errors.New("abogus: random value out of range")
	// ErrArguments is returned when the flag tuple cannot be packed.
	ErrArguments = errors.New("abogus: invalid arguments")
)
