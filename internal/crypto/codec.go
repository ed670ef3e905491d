// Package crypto implements the message codec used by the chat ledger.
// Chat text is sealed with ChaCha20-Poly1305 under a single service key;
// the wire format is base64(nonce[12] + ciphertext + tag[16]).
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"roomchat/internal/domain"
)

const nonceSize = chacha20poly1305.NonceSize

// Codec implements domain.MessageCodec.
type Codec struct {
	key []byte
}

// NewCodec builds a codec from a hex-encoded 32-byte key.
func NewCodec(hexKey string) (*Codec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid message key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("message key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Codec{key: key}, nil
}

// Encrypt seals plaintext and returns the base64 wire form.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a base64 wire-form ciphertext produced by Encrypt.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	wire, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("invalid base64 ciphertext: %w", err)
	}
	if len(wire) < nonceSize+chacha20poly1305.Overhead {
		return "", fmt.Errorf("ciphertext too short: %d bytes", len(wire))
	}

	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, wire[:nonceSize], wire[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt failed: %w", err)
	}
	return string(plaintext), nil
}

var _ domain.MessageCodec = (*Codec)(nil)
