package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Encryptor seals and opens short secrets for storage.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Algorithm names a supported AEAD.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM (default).
	AlgorithmAESGCM Algorithm = "aes-256-gcm"
	// AlgorithmChaCha20 is ChaCha20-Poly1305, fast on CPUs without AES-NI.
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// Config selects the key and algorithm for secrets at rest. An empty Key
// disables encryption.
type Config struct {
	Key       string    `yaml:"encryption_key" mapstructure:"encryption_key"`
	Algorithm Algorithm `yaml:"encryption_algorithm" mapstructure:"encryption_algorithm"`
}

// Enabled reports whether a key is configured.
func (c *Config) Enabled() bool { return c.Key != "" }

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmAESGCM
	}
}

// Validate checks the algorithm and key length.
func (c *Config) Validate() error {
	switch c.Algorithm {
	case AlgorithmAESGCM, AlgorithmChaCha20:
	default:
		return fmt.Errorf("encryption: unsupported algorithm %q", c.Algorithm)
	}
	if c.Enabled() && len(c.Key) < 16 {
		return fmt.Errorf("encryption: key must be at least 16 bytes")
	}
	return nil
}

// New creates an Encryptor for cfg. The key is hashed with SHA-256 to the
// 32 bytes both algorithms take.
func New(cfg Config) (Encryptor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("encryption: key is required")
	}

	key := sha256.Sum256([]byte(cfg.Key))
	var (
		aead cipher.AEAD
		err  error
	)
	switch cfg.Algorithm {
	case AlgorithmChaCha20:
		aead, err = chacha20poly1305.New(key[:])
	default:
		var block cipher.Block
		if block, err = aes.NewCipher(key[:]); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("encryption: create %s: %w", cfg.Algorithm, err)
	}
	return &sealer{aead: aead}, nil
}

// sealer prefixes each ciphertext with its random nonce and base64-encodes
// the result.
type sealer struct {
	aead cipher.AEAD
}

func (s *sealer) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *sealer) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return "", fmt.Errorf("ciphertext too short")
	}
	plaintext, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
