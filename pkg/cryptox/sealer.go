// Package cryptox provides the at-rest encryption used for stored OAuth
// tokens. A Sealer wraps AES-256-GCM with a key derived from a key file that
// is generated on first run.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"
)

// ErrDecrypt reports that a ciphertext could not be opened: the key has
// rotated, the payload is corrupt, or it was sealed by another key. Callers
// treat affected records as absent, never as fatal.
var ErrDecrypt = errors.New("cryptox: decryption failed")

const keyFileSize = 32

// hkdfInfo domain-separates the sealing key from other uses of the key file
// (the login-state signing secret is derived from the same material).
const (
	sealInfo  = "jirabot/token-seal/v1"
	stateInfo = "jirabot/login-state/v1"
)

// Sealer encrypts and decrypts token secrets with a process-wide symmetric
// key. It is constructed once at startup and injected; there is no package
// level key state.
type Sealer struct {
	aead cipher.AEAD

	stateSecret []byte
}

// NewSealerFromFile loads key material from path, generating and persisting a
// random 32-byte key file on first run. Losing the file invalidates every
// stored token; decryption then fails with ErrDecrypt and users simply
// re-authenticate.
func NewSealerFromFile(path string) (*Sealer, error) {
	material, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		material = make([]byte, keyFileSize)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("generate key material: %w", err)
		}
		if err := os.WriteFile(path, material, 0o600); err != nil {
			return nil, fmt.Errorf("persist key file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	return NewSealer(material)
}

// NewSealer derives the sealing key from the given material with HKDF-SHA256
// and returns a ready Sealer.
func NewSealer(material []byte) (*Sealer, error) {
	if len(material) == 0 {
		return nil, errors.New("cryptox: empty key material")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	stateSecret := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, nil, []byte(stateInfo)), stateSecret); err != nil {
		return nil, fmt.Errorf("derive state secret: %w", err)
	}

	return &Sealer{aead: aead, stateSecret: stateSecret}, nil
}

// StateSecret returns the HMAC secret used to sign OAuth state parameters.
// Derived from the same key file so a single secret rotation invalidates both
// stored tokens and in-flight logins together.
func (s *Sealer) StateSecret() []byte { return s.stateSecret }

// Seal encrypts plaintext. Output layout: [nonce][ciphertext][auth tag].
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal. Any tampering or key mismatch returns
// ErrDecrypt.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrDecrypt
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// SealString seals a secret and returns it base64-encoded for storage in a
// text column.
func (s *Sealer) SealString(plaintext string) (string, error) {
	sealed, err := s.Seal([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenString reverses SealString. Malformed base64 is reported as ErrDecrypt
// like any other corruption.
func (s *Sealer) OpenString(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}
	plaintext, err := s.Open(data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
