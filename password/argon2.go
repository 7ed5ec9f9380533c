package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	// MaxPasswordBytes bounds the work a single Verify can be made to do.
	MaxPasswordBytes = 1024
)

var (
	// ErrInvalidParams is returned by NewHasher for out-of-range parameters.
	ErrInvalidParams = errors.New("invalid argon2 parameters")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrPasswordTooLong is returned for inputs above MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
)

// Params are the Argon2id cost parameters recorded in every hash.
type Params struct {
	MemoryKB    uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the OWASP Argon2id baseline (19 MiB, 2 passes).
func DefaultParams() Params {
	return Params{
		MemoryKB:    19 * 1024,
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Params) validate() error {
	switch {
	case p.MemoryKB < 8*1024:
		return fmt.Errorf("%w: memory must be >= 8192 KiB", ErrInvalidParams)
	case p.Iterations < 1:
		return fmt.Errorf("%w: iterations must be >= 1", ErrInvalidParams)
	case p.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be >= 1", ErrInvalidParams)
	case p.SaltLength < 16:
		return fmt.Errorf("%w: salt length must be >= 16", ErrInvalidParams)
	case p.KeyLength < 16:
		return fmt.Errorf("%w: key length must be >= 16", ErrInvalidParams)
	}
	return nil
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	params Params
	dummy  string
}

// NewHasher validates p and precomputes the hash used by VerifyUnknown.
func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	h := &Hasher{params: p}
	dummy, err := h.Hash("unknown-account")
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	return h, nil
}

// Hash returns a PHC-encoded Argon2id hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKB, h.params.Parallelism, h.params.KeyLength)

	enc := phc{
		memoryKB:    h.params.MemoryKB,
		iterations:  h.params.Iterations,
		parallelism: h.params.Parallelism,
		salt:        salt,
		key:         key,
	}
	return enc.String(), nil
}

// Verify reports whether password matches encoded. The comparison runs in
// constant time with respect to the derived key.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), p.salt, p.iterations, p.memoryKB, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

// VerifyUnknown spends one verification against a throwaway hash and
// always reports false. Use it when the account does not exist.
func (h *Hasher) VerifyUnknown(password string) bool {
	_, _ = h.Verify(password, h.dummy)
	return false
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the Hasher's.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return p.memoryKB < h.params.MemoryKB ||
		p.iterations < h.params.Iterations ||
		p.parallelism < h.params.Parallelism ||
		uint32(len(p.key)) != h.params.KeyLength, nil
}

type phc struct {
	memoryKB    uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		p.memoryKB, p.iterations, p.parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

func parsePHC(encoded string) (phc, error) {
	var p phc

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return p, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, fmt.Errorf("%w: unsupported version", ErrMalformedHash)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memoryKB, &p.iterations, &p.parallelism); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if p.memoryKB < 8*1024 || p.iterations < 1 || p.parallelism < 1 {
		return p, fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(p.salt) < 16 {
		return p, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.key) < 16 {
		return p, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return p, nil
}
