package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrCorruptCiphertext is returned when Decrypt is given data that was not
// produced by Encrypt with the matching key: tampered ciphertext, data
// encrypted under a different key, or a malformed envelope.
var ErrCorruptCiphertext = errors.New("corrupt ciphertext")

// currentKeyID identifies the key a ciphertext was produced with. It is the
// first byte of the envelope so a future key ring can route decrypts during
// rotation. A single key is supported today.
const currentKeyID byte = 1

// HistoryEncryptor provides AES-256-GCM encryption for medical-history text.
// The envelope layout is keyID || nonce || ciphertext, base64-encoded.
type HistoryEncryptor struct {
	aead cipher.AEAD
}

// NewHistoryEncryptor creates an encryptor from a 32-byte AES-256 key. The
// key comes from configuration at process start; it is never a source
// literal.
func NewHistoryEncryptor(key []byte) (*HistoryEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("history encryptor: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("history encryptor: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("history encryptor: create GCM: %w", err)
	}

	return &HistoryEncryptor{aead: aead}, nil
}

// Encrypt encrypts the plaintext and returns the base64-encoded envelope.
func (e *HistoryEncryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("history encrypt: generate nonce: %w", err)
	}

	envelope := make([]byte, 0, 1+len(nonce)+len(plaintext)+e.aead.Overhead())
	envelope = append(envelope, currentKeyID)
	envelope = append(envelope, nonce...)
	envelope = e.aead.Seal(envelope, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt reverses Encrypt. Any failure to authenticate or parse the
// envelope is reported as ErrCorruptCiphertext; garbage is never returned.
func (e *HistoryEncryptor) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode: %v", ErrCorruptCiphertext, err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < 1+nonceSize {
		return "", fmt.Errorf("%w: envelope too short", ErrCorruptCiphertext)
	}

	if data[0] != currentKeyID {
		return "", fmt.Errorf("%w: unknown key id %d", ErrCorruptCiphertext, data[0])
	}

	nonce, sealed := data[1:1+nonceSize], data[1+nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptCiphertext, err)
	}

	return string(plaintext), nil
}

// GenerateKey returns a random 32-byte key, used in development mode when no
// key is configured.
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate encryption key: %w", err)
	}
	return key, nil
}
