package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
)

// ErrMalformedPayload is returned when a sealed value is shorter than its nonce.
var ErrMalformedPayload = errors.New("sealed value is truncated")

// newAEAD derives a 32 byte AES key from secret with SHA-256.
func newAEAD(secret string) (cipher.AEAD, error) {
	sum := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// SealSetting encrypts value with AES-GCM. The setting name is authenticated
// as additional data, so the result only opens under the same name.
// The payload layout is nonce || ciphertext.
func SealSetting(secret, name, value string) ([]byte, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, []byte(value), []byte(name)), nil
}

// OpenSetting reverses SealSetting. It fails when the secret or name differ
// from the ones used to seal.
func OpenSetting(secret, name string, payload []byte) (string, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return "", err
	}
	n := aead.NonceSize()
	if len(payload) < n+aead.Overhead() {
		return "", ErrMalformedPayload
	}
	plain, err := aead.Open(nil, payload[:n], payload[n:], []byte(name))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
