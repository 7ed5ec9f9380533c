package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealInfo = "goSession record seal v1"

// MinSecretLength is the shortest session secret accepted by [NewSealer].
const MinSecretLength = 16

// ErrSealOpen is returned when a sealed blob fails authentication, typically
// because it was written under a different secret.
var ErrSealOpen = errors.New("session seal open failed")

// Sealer encrypts encoded records at rest with a key derived from the session
// secret (HKDF-SHA256 into XChaCha20-Poly1305). The session ID is bound as
// additional data so a blob cannot be replayed under another key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the record key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.New("session secret too short")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo)), key); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns nonce || ciphertext.
func (s *Sealer) Seal(sessionID string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(sessionID)), nil
}

// Open reverses [Sealer.Seal].
func (s *Sealer) Open(sessionID string, sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, ErrSealOpen
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(sessionID))
	if err != nil {
		return nil, ErrSealOpen
	}
	return plain, nil
}
