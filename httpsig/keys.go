package httpsig

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// --- Ed25519 ---

type ed25519Signer struct {
	key   ed25519.PrivateKey
	keyID string
}

// NewEd25519Signer creates a Signer using Ed25519.
func NewEd25519Signer(keyID string, key ed25519.PrivateKey) (Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 private key must be %d bytes", ErrInvalidKey, ed25519.PrivateKeySize)
	}

	return &ed25519Signer{key: key, keyID: keyID}, nil
}

func (s *ed25519Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.key, message), nil
}

func (s *ed25519Signer) Algorithm() Algorithm { return AlgorithmEd25519 }
func (s *ed25519Signer) KeyID() string        { return s.keyID }

type ed25519Verifier struct {
	key   ed25519.PublicKey
	keyID string
}

// NewEd25519Verifier creates a Verifier using Ed25519.
func NewEd25519Verifier(keyID string, key ed25519.PublicKey) (Verifier, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: ed25519 public key must be %d bytes", ErrInvalidKey, ed25519.PublicKeySize)
	}

	return &ed25519Verifier{key: key, keyID: keyID}, nil
}

func (v *ed25519Verifier) Verify(message, signature []byte) error {
	if !ed25519.Verify(v.key, message, signature) {
		return ErrSignatureInvalid
	}

	return nil
}

func (v *ed25519Verifier) Algorithm() Algorithm { return AlgorithmEd25519 }
func (v *ed25519Verifier) KeyID() string        { return v.keyID }

// --- HMAC SHA-256 ---

const minHMACKeyBytes = 32

type hmacSHA256Signer struct {
	key   []byte
	keyID string
}

// NewHMACSHA256Signer creates a Signer using HMAC-SHA256.
// The key must be at least 32 bytes.
func NewHMACSHA256Signer(keyID string, key []byte) (Signer, error) {
	if len(key) < minHMACKeyBytes {
		return nil, fmt.Errorf("%w: hmac key must be at least %d bytes", ErrInvalidKey, minHMACKeyBytes)
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	return &hmacSHA256Signer{key: keyCopy, keyID: keyID}, nil
}

func (s *hmacSHA256Signer) Sign(message []byte) ([]byte, error) {
	return computeHMAC(s.key, message), nil
}

func (s *hmacSHA256Signer) Algorithm() Algorithm { return AlgorithmHMACSHA256 }
func (s *hmacSHA256Signer) KeyID() string        { return s.keyID }

type hmacSHA256Verifier struct {
	key   []byte
	keyID string
}

// NewHMACSHA256Verifier creates a Verifier using HMAC-SHA256.
// The key must be at least 32 bytes.
func NewHMACSHA256Verifier(keyID string, key []byte) (Verifier, error) {
	if len(key) < minHMACKeyBytes {
		return nil, fmt.Errorf("%w: hmac key must be at least %d bytes", ErrInvalidKey, minHMACKeyBytes)
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	return &hmacSHA256Verifier{key: keyCopy, keyID: keyID}, nil
}

func (v *hmacSHA256Verifier) Verify(message, signature []byte) error {
	expected := computeHMAC(v.key, message)
	if !hmac.Equal(expected, signature) {
		return ErrSignatureInvalid
	}

	return nil
}

func (v *hmacSHA256Verifier) Algorithm() Algorithm { return AlgorithmHMACSHA256 }
func (v *hmacSHA256Verifier) KeyID() string        { return v.keyID }

func computeHMAC(key, message []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)

	return h.Sum(nil)
}
