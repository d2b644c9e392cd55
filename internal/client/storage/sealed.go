package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
)

// ErrSealedValue is returned when a stored value cannot be opened with the
// configured key.
var ErrSealedValue = errors.New("sealed value cannot be opened")

// Sealed encrypts every value with AES-GCM before handing it to the wrapped
// KV. Stored values are nonce || ciphertext.
type Sealed struct {
	kv   KV
	aead cipher.AEAD
}

// NewSealed derives an AES-256 key from secret and wraps kv.
func NewSealed(kv KV, secret []byte) (*Sealed, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty storage secret")
	}
	aead, err := newAEAD(secret)
	if err != nil {
		return nil, err
	}
	return &Sealed{kv: kv, aead: aead}, nil
}

func newAEAD(secret []byte) (cipher.AEAD, error) {
	key := sha256.Sum256(secret)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

func (s *Sealed) Get(key string) ([]byte, bool, error) {
	raw, ok, err := s.kv.Get(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(raw) < s.aead.NonceSize() {
		return nil, true, fmt.Errorf("%q: %w", key, ErrSealedValue)
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return nil, true, fmt.Errorf("%q: %w", key, ErrSealedValue)
	}
	return plain, true, nil
}

func (s *Sealed) Put(key string, value []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	// the key is bound as additional data so values cannot be swapped between keys
	return s.kv.Put(key, s.aead.Seal(nonce, nonce, value, []byte(key)))
}

func (s *Sealed) Delete(key string) error {
	return s.kv.Delete(key)
}
