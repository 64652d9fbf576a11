// Package crypto implements the end-to-end message encryption layer shared
// with the external counterpart clients: a deterministic room-derived AES-256-GCM
// key, so any participant who knows the room id can re-derive the key with no
// separate exchange step. Not forward-secure; the goal is opportunistic
// confidentiality against passive storage inspection.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/skillbridge/console/internal/domain"
	"golang.org/x/crypto/pbkdf2"
)

const (
	kdfSalt       = "skillbridge-ladder-e2ee-salt"
	kdfIterations = 100000
	keyLen        = 32 // AES-256
	nonceLen      = 12 // 96-bit GCM nonce
)

// KeyDeriver turns a room identifier into a symmetric key. Isolated behind an
// interface so derivation (per-message ephemeral keys, out-of-band exchange)
// can be swapped without touching the encrypt/decrypt call sites.
type KeyDeriver interface {
	DeriveKey(roomID string) []byte
}

// RoomKeyDeriver derives keys from the fixed room passphrase template via
// PBKDF2-SHA256 with a fixed salt.
type RoomKeyDeriver struct{}

// DeriveKey returns the AES-256 key for a room id.
func (RoomKeyDeriver) DeriveKey(roomID string) []byte {
	passphrase := fmt.Sprintf("sbl-room-%s-e2ee", roomID)
	return pbkdf2.Key([]byte(passphrase), []byte(kdfSalt), kdfIterations, keyLen, sha256.New)
}

// Encrypt seals plaintext under key and returns base64(nonce || ciphertext).
// A fresh random nonce is generated per call; callers must never cache or
// predict nonces; nonce reuse under one key is the one catastrophic failure.
func Encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens base64(nonce || ciphertext) with key. Any failure (bad
// encoding, truncated blob, wrong key, tampered ciphertext) surfaces as a
// typed decryption error for callers to render as a placeholder.
func Decrypt(blob string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", domain.ErrDecrypt(fmt.Errorf("decode base64: %w", err))
	}
	if len(raw) < nonceLen {
		return "", domain.ErrDecrypt(fmt.Errorf("blob too short: %d bytes", len(raw)))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", domain.ErrDecrypt(fmt.Errorf("new cipher: %w", err))
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", domain.ErrDecrypt(fmt.Errorf("new gcm: %w", err))
	}

	nonce, ciphertext := raw[:nonceLen], raw[nonceLen:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", domain.ErrDecrypt(err)
	}
	return string(plaintext), nil
}
