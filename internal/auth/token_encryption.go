// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// defaultEncryptionContext is the HKDF info string for session tokens.
const defaultEncryptionContext = "moviesavanna-session-tokens"

var (
	// ErrDecryptionFailed indicates the ciphertext did not authenticate.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidCiphertext indicates the ciphertext is malformed.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// TokenEncryptor seals provider tokens with AES-GCM before a session is
// written to disk. A nil *TokenEncryptor is valid and passes values
// through unchanged.
type TokenEncryptor struct {
	aead cipher.AEAD
}

// TokenEncryptorConfig holds configuration for token encryption.
type TokenEncryptorConfig struct {
	// MasterKey is base64 and must decode to at least 16 bytes.
	MasterKey string

	// Context is the HKDF info string. Defaults to defaultEncryptionContext.
	Context string
}

// NewTokenEncryptor returns nil, nil when no master key is configured.
func NewTokenEncryptor(config *TokenEncryptorConfig) (*TokenEncryptor, error) {
	if config == nil || config.MasterKey == "" {
		return nil, nil
	}

	masterKey, err := base64.StdEncoding.DecodeString(config.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(masterKey) < 16 {
		return nil, errors.New("master key must be at least 16 bytes")
	}

	info := config.Context
	if info == "" {
		info = defaultEncryptionContext
	}
	key, err := deriveKey(masterKey, []byte(info), 32)
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM cipher: %w", err)
	}
	return &TokenEncryptor{aead: aead}, nil
}

// deriveKey derives a key using HKDF-SHA256.
func deriveKey(secret, info []byte, keyLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, nil, info)
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// IsEnabled reports whether values are actually encrypted.
func (e *TokenEncryptor) IsEnabled() bool {
	return e != nil && e.aead != nil
}

// Encrypt returns base64(nonce || ciphertext). Empty input stays empty.
func (e *TokenEncryptor) Encrypt(plaintext string) (string, error) {
	if !e.IsEnabled() || plaintext == "" {
		return plaintext, nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (e *TokenEncryptor) Decrypt(ciphertext string) (string, error) {
	if !e.IsEnabled() || ciphertext == "" {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrInvalidCiphertext)
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize+1+e.aead.Overhead() {
		return "", fmt.Errorf("%w: data too short", ErrInvalidCiphertext)
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDecryptionFailed, err.Error())
	}
	return string(plaintext), nil
}

// sealSession returns a copy of s with both provider tokens encrypted.
// s itself is not modified.
func (e *TokenEncryptor) sealSession(s *Session) (*Session, error) {
	if !e.IsEnabled() {
		return s, nil
	}
	sealed := *s
	var err error
	if sealed.AccessToken, err = e.Encrypt(s.AccessToken); err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	if sealed.RefreshToken, err = e.Encrypt(s.RefreshToken); err != nil {
		return nil, fmt.Errorf("encrypt refresh token: %w", err)
	}
	return &sealed, nil
}

// openSession decrypts both provider tokens in place.
func (e *TokenEncryptor) openSession(s *Session) error {
	if !e.IsEnabled() {
		return nil
	}
	var err error
	if s.AccessToken, err = e.Decrypt(s.AccessToken); err != nil {
		return fmt.Errorf("decrypt access token: %w", err)
	}
	if s.RefreshToken, err = e.Decrypt(s.RefreshToken); err != nil {
		return fmt.Errorf("decrypt refresh token: %w", err)
	}
	return nil
}
