// Package abogus generates the a_bogus query signature.
//
// A token is the 12-byte random seed followed by the RC4(0x79) encrypted
// payload, encoded with alphabet s4 and terminated by '='. The payload packs
// the request timestamps, the flag tuple, bytes of three SM3 digests and the
// browser environment string, closed by an XOR checksum.
package abogus

import (
	"encoding/hex"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultEnvironment is the window/screen fingerprint sent when none is configured.
	DefaultEnvironment = "1536|747|1536|834|0|30|0|0|1536|834|1536|864|1525|747|24|24|Win32"
	// DefaultSuffix is appended to the search params before hashing.
	DefaultSuffix = "cus"
)

var payloadKey = []byte{0x79}

// Signer produces tokens. All fields are set at construction, so one
// Signer may be shared between goroutines.
type Signer struct {
	environment string
	suffix      string
	now         func() int64
	random      RandomSource
	fixed       *[3]float64
	log         logrus.FieldLogger
}

// Option configures a Signer.
type Option func(*Signer)

// WithFixedTimestamp pins both payload timestamps to ms.
func WithFixedTimestamp(ms int64) Option {
	return func(s *Signer) {
		s.now = func() int64 { return ms }
	}
}

// WithClock replaces the wall clock; fn returns unix milliseconds.
func WithClock(fn func() int64) Option {
	return func(s *Signer) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithRandomValues pins the three seed inputs.
func WithRandomValues(a, b, c float64) Option {
	return func(s *Signer) {
		s.fixed = &[3]float64{a, b, c}
	}
}

// WithRandomSource draws seed inputs from src. Ignored when
// WithRandomValues is also given. src must be safe for concurrent use if
// the Signer is shared.
func WithRandomSource(src RandomSource) Option {
	return func(s *Signer) {
		if src != nil {
			s.random = src
		}
	}
}

// WithEnvironment overrides DefaultEnvironment.
func WithEnvironment(env string) Option {
	return func(s *Signer) {
		s.environment = env
	}
}

func WithSuffix(suffix string) Option {
	return func(s *Signer) {
		s.suffix = suffix
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Signer) {
		if l != nil {
			s.log = l
		}
	}
}

func NewSigner(opts ...Option) *Signer {
	s := &Signer{
		environment: DefaultEnvironment,
		suffix:      DefaultSuffix,
		now:         func() int64 { return time.Now().UnixMilli() },
		random:      systemRandom,
		log:         discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Environment returns the fingerprint string this Signer embeds.
func (s *Signer) Environment() string { return s.environment }

func (s *Signer) seedInputs() [3]float64 {
	if s.fixed != nil {
		return *s.fixed
	}
	return [3]float64{s.random.Float64(), s.random.Float64(), s.random.Float64()}
}

// Payload builds the unencrypted payload for a request, for inspection.
func (s *Signer) Payload(params, userAgent string, args Arguments) (*Payload, error) {
	start := s.now()
	return BuildPayload(PayloadInput{
		SearchParams: params,
		UserAgent:    userAgent,
		Environment:  s.environment,
		Suffix:       s.suffix,
		Args:         args,
		Start:        start,
		End:          s.now(),
	})
}

// Sign returns the token for params/userAgent under the given flag tuple.
func (s *Signer) Sign(params, userAgent string, args Arguments) (string, error) {
	seed, err := GenerateSeed(s.seedInputs())
	if err != nil {
		return "", err
	}

	p, err := s.Payload(params, userAgent, args)
	if err != nil {
		return "", errors.Wrap(err, "build payload")
	}

	enc, err := RC4Encrypt(p.Bytes(), payloadKey)
	if err != nil {
		return "", errors.Wrap(err, "encrypt payload")
	}

	buf := make([]byte, 0, SeedSize+len(enc))
	buf = append(buf, seed[:]...)
	buf = append(buf, enc...)

	token, err := Encode(buf, S4)
	if err != nil {
		return "", err
	}

	s.log.WithFields(logrus.Fields{
		"args":     args,
		"checksum": p.Checksum(),
	}).Debugf("sign buffer %s", hex.EncodeToString(buf))

	return token + "=", nil
}

// SignDetail signs with DetailArguments.
func (s *Signer) SignDetail(params, userAgent string) (string, error) {
	return s.Sign(params, userAgent, DetailArguments)
}

// SignReply signs with ReplyArguments.
func (s *Signer) SignReply(params, userAgent string) (string, error) {
	return s.Sign(params, userAgent, ReplyArguments)
}

var defaultSigner = NewSigner()

// Sign uses the wall clock and system randomness.
func Sign(params, userAgent string, args Arguments) (string, error) {
	return defaultSigner.Sign(params, userAgent, args)
}

func SignDetail(params, userAgent string) (string, error) {
	return defaultSigner.SignDetail(params, userAgent)
}

func SignReply(params, userAgent string) (string, error) {
	return defaultSigner.SignReply(params, userAgent)
}
