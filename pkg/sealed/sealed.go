// Package sealed stores small secrets (origin cookies, session material)
// encrypted at rest with a passphrase.
package sealed

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

const (
	// Magic identifies a sealed file.
	Magic = "UGSL"

	// Version of the sealed format.
	Version = 1

	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	keyLen       = 32

	saltSize  = 16
	nonceSize = 12

	// magic(4) + version(4) + salt + nonce
	headerSize = 4 + 4 + saltSize + nonceSize
)

var (
	ErrNotSealed          = errors.New("not a sealed file")
	ErrUnsupportedVersion = errors.New("unsupported sealed format version")
	ErrWrongPassphrase    = errors.New("wrong passphrase or corrupted data")
	ErrEmptyPassphrase    = errors.New("passphrase must not be empty")
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLen)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext with AES-256-GCM under an argon2id-derived key.
// The header is authenticated as additional data.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}

	header := make([]byte, headerSize)
	copy(header[0:4], Magic)
	binary.BigEndian.PutUint32(header[4:8], Version)
	if _, err := io.ReadFull(rand.Reader, header[8:headerSize]); err != nil {
		return nil, fmt.Errorf("generate salt and nonce: %w", err)
	}
	salt := header[8 : 8+saltSize]
	nonce := header[8+saltSize:]

	gcm, err := newGCM(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	return gcm.Seal(header, nonce, plaintext, header), nil
}

// Open reverses Seal.
func Open(data []byte, passphrase string) ([]byte, error) {
	if !IsSealed(data) || len(data) < headerSize {
		return nil, ErrNotSealed
	}
	if v := binary.BigEndian.Uint32(data[4:8]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	header := data[:headerSize]
	salt := header[8 : 8+saltSize]
	nonce := header[8+saltSize:]

	gcm, err := newGCM(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, data[headerSize:], header)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

// IsSealed reports whether data starts with the sealed magic.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Magic))
}

// SealFile encrypts srcPath into dstPath, readable by the owner only.
func SealFile(srcPath, dstPath, passphrase string) error {
	plaintext, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	data, err := Seal(plaintext, passphrase)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dstPath, data, 0600); err != nil {
		return fmt.Errorf("write destination: %w", err)
	}
	return nil
}

// ReadFile returns the plaintext content of path. Sealed files are opened
// with passphrase; plain files are returned as-is.
func ReadFile(path, passphrase string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !IsSealed(data) {
		return data, nil
	}
	if passphrase == "" {
		return nil, fmt.Errorf("%s is sealed: %w", path, ErrEmptyPassphrase)
	}
	return Open(data, passphrase)
}
